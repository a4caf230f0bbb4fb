package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/conformboost/pkg/errors"
)

var (
	mu       sync.RWMutex
	provider LoggerProvider = newZerologProvider(os.Stderr, LevelInfo, false)
)

// SetupLogger configures the process-wide logger to write JSON to stderr at
// the given level ("debug", "info", "warn" or "error").
func SetupLogger(loglevel string) error {
	return SetupLoggerTo(os.Stderr, loglevel, false)
}

// SetupLoggerTo is SetupLogger with an explicit writer. With console set the
// output is human readable instead of JSON.
func SetupLoggerTo(w io.Writer, loglevel string, console bool) error {
	level, err := ToLogLevel(loglevel)
	if err != nil {
		return err
	}
	SetProvider(newZerologProvider(w, level, console))

	// Library warnings (e.g. undefined metrics) go through the same sink.
	errors.SetZerologWarnFunc(func(w error) {
		GetLoggerWithName("warnings").Warn(w.Error(), "warning", w)
	})
	return nil
}

// ToLogLevel parses a level name.
func ToLogLevel(level string) (Level, error) {
	switch level {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewConfigError("LOG_LEVEL", "invalid log level: "+level)
	}
}

// SetProvider replaces the process-wide provider. Tests use it to install a
// TestLoggerProvider.
func SetProvider(p LoggerProvider) {
	mu.Lock()
	defer mu.Unlock()
	provider = p
}

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return provider.GetLogger()
}

// GetLoggerWithName returns the process-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	mu.RLock()
	defer mu.RUnlock()
	return provider.GetLoggerWithName(name)
}

type zerologProvider struct {
	mu   sync.Mutex
	base zerolog.Logger
}

func newZerologProvider(w io.Writer, level Level, console bool) *zerologProvider {
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(zerolog.SyncWriter(w)).
		Level(toZerologLevel(level)).
		With().Timestamp().Logger()
	return &zerologProvider{base: zl}
}

func (p *zerologProvider) GetLogger() Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return NewZerologLogger(p.base)
}

func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return NewZerologLogger(p.base.With().Str(ComponentKey, name).Logger())
}

func (p *zerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.base.Level(toZerologLevel(level))
}

// SetRunID tags every logger handed out afterwards with RunIDKey. It has no
// effect on providers installed with SetProvider.
func SetRunID(id string) {
	mu.RLock()
	defer mu.RUnlock()
	if p, ok := provider.(*zerologProvider); ok {
		p.mu.Lock()
		p.base = p.base.With().Str(RunIDKey, id).Logger()
		p.mu.Unlock()
	}
}
