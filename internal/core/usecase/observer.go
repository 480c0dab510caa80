package usecase

import "time"

// Observer receives pipeline measurements.
type Observer interface {
	ObserveIndexBuild(status string, chunks int, duration time.Duration)
	ObserveTurn(status string, sources int, duration time.Duration)
}

type NoopObserver struct{}

func (NoopObserver) ObserveIndexBuild(string, int, time.Duration) {}

func (NoopObserver) ObserveTurn(string, int, time.Duration) {}
