package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup returns a JSON slog.Logger writing to w. Development builds get the text handler
// at debug level instead.
func Setup(w io.Writer, development bool) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if development {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// SetupDefault installs the logger from Setup as the process-wide default and returns it.
func SetupDefault(w io.Writer, development bool) *slog.Logger {
	l := Setup(w, development)
	slog.SetDefault(l)
	return l
}
