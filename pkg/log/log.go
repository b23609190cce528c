// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a JSON handler on stderr as the default slog logger.
// Unknown level names fall back to info. At debug level the handler also
// records source positions.
func Setup(logLevel string) {
	level := parseLevel(logLevel)

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	slog.SetDefault(slog.New(handler))
}

func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}

	return level
}

// WithModule returns the default logger tagged with the cadenza module name.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
