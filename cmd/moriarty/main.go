package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mirkola/moriarty/internal/logging"
	"github.com/spf13/cobra"
)

var (
	debugLog  bool
	pprofPort string
)

func init() {
	// A .env file is optional; environment variables win either way.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&pprofPort, "pprof-port", "", "port for pprof listening on localhost, e.g. :6060")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(scenarioCmd)
}

var rootCmd = &cobra.Command{
	Use:  "moriarty",
	Long: `Clue lifecycle engine for multi-round social-deduction games.`,
}

// newLogger builds the process logger the commands share.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if debugLog {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debugLog,
	})
	return slog.New(logging.NewContextHandler(handler))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
