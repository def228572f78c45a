package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output when LOG_FORMAT
// is json, text otherwise.
func New() *slog.Logger {
	if os.Getenv("LOG_FORMAT") == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
