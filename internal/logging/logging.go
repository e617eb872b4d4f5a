package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

// TimeFormat is the timestamp layout of every log line
const TimeFormat = "2006-01-02 15:04:05.000"

// New returns a logger writing human readable lines to w. Colors are only
// emitted when w is a terminal.
func New(w io.Writer, isTTY bool, level slog.Leveler) *slog.Logger {
	return slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			NoColor:    !isTTY,
			TimeFormat: TimeFormat,
		}),
	)
}

// ParseLevel converts a level name (debug, info, warn, error) to a slog level
func ParseLevel(name string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
	}
	return lvl, nil
}
