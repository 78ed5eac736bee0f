// Package logger builds the service's zap loggers and carries request
// correlation fields through contexts, gin and gorm.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Config selects level, encoding and destination. Zero fields fall back to
// info, console and stdout.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr or a file path
	TimeFormat string // time layout; defaults to millisecond RFC 3339
}

type options struct {
	fields []zap.Field
	tee    []zapcore.Core
}

type Option func(*options)

// WithCore tees every entry into core as well, for example the OTLP log bridge.
// The extra core filters by its own level.
func WithCore(core zapcore.Core) Option {
	return func(o *options) {
		if core != nil {
			o.tee = append(o.tee, core)
		}
	}
}

// WithFields stamps fields on every entry.
func WithFields(fields ...zap.Field) Option {
	return func(o *options) { o.fields = append(o.fields, fields...) }
}

// New builds a logger that records callers and adds stack traces from error up.
func New(cfg Config, opts ...Option) (*zap.Logger, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	output := cfg.Output
	if output == "" {
		output = "stdout"
	}
	sink, _, err := zap.Open(output)
	if err != nil {
		return nil, fmt.Errorf("open log output %q: %w", output, err)
	}

	core := zapcore.NewCore(encoder(cfg), sink, ParseLevel(cfg.Level))
	log := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if len(o.tee) > 0 {
		log = log.WithOptions(Tee(o.tee...))
	}
	if len(o.fields) > 0 {
		log = log.With(o.fields...)
	}
	return log, nil
}

// Tee is a zap option that copies entries of an existing logger into cores.
func Tee(cores ...zapcore.Core) zap.Option {
	return zap.WrapCore(func(primary zapcore.Core) zapcore.Core {
		return zapcore.NewTee(append([]zapcore.Core{primary}, cores...)...)
	})
}

// ParseLevel reads a level name case-insensitively. "warning" is accepted and
// anything unknown means info.
func ParseLevel(level string) zapcore.Level {
	level = strings.ToLower(level)
	if level == "warning" {
		level = "warn"
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func encoder(cfg Config) zapcore.Encoder {
	layout := cfg.TimeFormat
	if layout == "" {
		layout = defaultTimeLayout
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.MessageKey = "msg"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(layout)
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	if strings.EqualFold(cfg.Format, "json") {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}
