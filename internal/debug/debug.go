package debug

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	enabled bool
	logFile *lumberjack.Logger
	logger  = zerolog.Nop()
	mu      sync.Mutex
)

// Enable turns on debug logging to the specified file.
func Enable(path string) error {
	return EnableLevel(path, zerolog.DebugLevel)
}

// EnableLevel turns on logging to path, dropping events below level.
func EnableLevel(path string, level zerolog.Level) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // MB
		MaxBackups: 3,
		MaxAge:     14, // days
	}
	logger = zerolog.New(logFile).Level(level).With().Timestamp().Logger()
	enabled = true

	logger.Info().Str("level", level.String()).Msg("debug logging enabled")
	return nil
}

// Close closes the debug log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	logger = zerolog.Nop()
	enabled = false
}

// IsEnabled returns whether debug logging is enabled.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Logger returns the current logger. It is a no-op logger while disabled.
func Logger() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	l := logger
	return &l
}

// Log writes a debug message if debugging is enabled.
func Log(format string, args ...interface{}) {
	Logger().Debug().Msgf(format, args...)
}

// Timed logs the duration of an operation. Usage:
//
//	defer debug.Timed("operation name")()
func Timed(name string) func() {
	if !IsEnabled() {
		return func() {}
	}

	start := time.Now()
	Logger().Debug().Str("op", name).Msg("started")

	return func() {
		Logger().Debug().Str("op", name).Dur("took", time.Since(start)).Msg("completed")
	}
}

// ParseLevel parses a level name ("debug", "info", ...), defaulting to
// debug for empty or unknown names.
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.DebugLevel
	}
	return level
}
