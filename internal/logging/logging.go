package logging

import (
	"log/slog"
	"os"
)

// Init installs the default slog logger writing text to stderr.
// Verbose enables debug output.
func Init(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
