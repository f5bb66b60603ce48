package simlog

import (
	"io"
	"log/slog"
	"os"
)

// New builds a structured JSON logger over w at Debug level and attaches
// mask to every record as the "mask" attribute. The logger itself does not
// filter or re-level records by mask; Log does that per call. Passing a nil
// writer defaults to os.Stdout.
func New(w io.Writer, mask Level) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})).
		With("mask", mask)
}

// Log writes msg at Info if bit is enabled in mask, otherwise at Debug.
func Log(log *slog.Logger, mask Level, bit Level, msg string, args ...any) {
	if mask.Enabled(bit) {
		log.Info(msg, args...)
		return
	}
	log.Debug(msg, args...)
}
