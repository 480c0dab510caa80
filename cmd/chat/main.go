package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abhikalparya/documentchatbot/internal/config"
)

var (
	configFile string
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "docchat [file.pdf ...]",
	Short: "Chat with your PDF documents in the terminal",
	Long: `Chat with your PDF documents in the terminal.

PDF paths given as arguments are uploaded at start. Inside the chat:
  /open <path>       upload another PDF
  /use <filename>    switch to an uploaded document
  /docs              list uploaded documents
  /save <path>       write the transcript (.md or .pdf)
  /quit              leave`,
	SilenceUsage: true,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if configFile != "" {
			return os.Setenv(config.FileEnv, configFile)
		}
		return nil
	},
	RunE: runChat,
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "YAML config file, overridden by environment variables")
	rootCmd.Flags().StringVar(&logFile, "log-file", "docchat.log", "file that receives JSON logs")
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
