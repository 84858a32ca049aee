package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	// RequestIDKey is the key used to store request IDs in context
	RequestIDKey contextKey = "request_id"
	// InstrumentKey is the key used to store the instrument in context
	InstrumentKey contextKey = "instrument"
)

// Config defines logging configuration
type Config struct {
	// Level is the logging level (debug, info, warn, error)
	Level string
	// Pretty determines if logs should be formatted for human readability
	Pretty bool
	// Output is where logs are written (defaults to os.Stdout)
	Output io.Writer
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Pretty: false,
		Output: os.Stdout,
	}
}

// Setup configures global logging based on the provided config and returns
// the new global logger.
func Setup(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	return log.Logger
}

// Component returns the global logger tagged with a component name
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// WithRequestID stores a request id in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithInstrument stores an instrument name in ctx
func WithInstrument(ctx context.Context, instrument string) context.Context {
	return context.WithValue(ctx, InstrumentKey, instrument)
}

// FromContext extracts a logger with request context
func FromContext(ctx context.Context) zerolog.Logger {
	logCtx := log.With()
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		logCtx = logCtx.Str("request_id", requestID)
	}
	if instrument, ok := ctx.Value(InstrumentKey).(string); ok {
		logCtx = logCtx.Str("instrument", instrument)
	}
	return logCtx.Logger()
}
