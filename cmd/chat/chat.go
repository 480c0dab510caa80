package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abhikalparya/documentchatbot/internal/adapters/tui"
	"github.com/abhikalparya/documentchatbot/internal/bootstrap"
	"github.com/abhikalparya/documentchatbot/internal/config"
	"github.com/abhikalparya/documentchatbot/internal/core/usecase"
	"github.com/abhikalparya/documentchatbot/internal/observability/logging"
)

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.HasCredential() {
		fmt.Fprintln(cmd.ErrOrStderr(), usecase.MissingCredentialMessage)
		return nil
	}

	// The terminal belongs to the UI, so logs go to a file.
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	logger := logging.NewJSONLoggerTo(f, "chat", cfg.LogLevel)

	ctx := cmd.Context()
	app, err := bootstrap.New(ctx, cfg, "chat", logger)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	session, err := app.Sessions.Create()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	model := tui.New(ctx, session, tui.Options{InitialPaths: args})
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run chat ui: %w", err)
	}
	return nil
}
