package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Services receive it through constructor
// options so tests can pass a discard handler instead.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
