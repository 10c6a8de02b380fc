// Package logging builds the zap loggers used throughout pgcore.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration
type Config struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("validate: format must be json or console, "+
			"have(%q)", c.Format)
	}
	return nil
}

// New returns a logger writing to stderr at the given level, in json
// or console format
func New(level, format string) (*zap.Logger, error) {
	return NewWithSink(Config{Level: level, Format: format},
		zapcore.Lock(os.Stderr))
}

// NewWithSink returns a logger described by c that writes to sink
func NewWithSink(c Config, sink zapcore.WriteSyncer) (*zap.Logger, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newWithSink: %v", err)
	}
	lvl, _ := zapcore.ParseLevel(c.Level)

	core := zapcore.NewCore(newEncoder(c.Format), sink, lvl)
	return zap.New(core, zap.AddCaller()), nil
}

// newEncoder creates a JSON or console encoder
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}
