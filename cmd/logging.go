package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// setupLogger creates an slog.Logger writing to stderr or a file. stdout is
// never used: it carries the MCP stdio transport and command output.
func setupLogger(level string, logFile string) (*slog.Logger, func()) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var writer io.Writer = os.Stderr
	closeFn := func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
		} else {
			writer = f
			closeFn = func() { f.Close() }
		}
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler), closeFn
}
