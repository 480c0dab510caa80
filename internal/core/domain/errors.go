package domain

import (
	"errors"
	"fmt"
)

var (
	ErrExtraction       = errors.New("extraction failed")
	ErrMissingDocuments = errors.New("index does not exist and no documents were provided")
	ErrGeneration       = errors.New("generation failed")
	ErrConfiguration    = errors.New("configuration error")

	ErrDocumentNotFound = errors.New("document not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrIndexExists      = errors.New("index already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
