package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowSQL = 200 * time.Millisecond

// GormConfig tunes the statement logger.
type GormConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration // 0 selects 200ms, negative disables slow warnings
	// LogNotFound reports ErrRecordNotFound as an SQL error. Lookups that miss
	// are routine here, so it is normally off.
	LogNotFound bool
	// FullSQL keeps bound values in logged statements. Off, GORM renders
	// placeholders so buyer and supplier data stays out of the logs.
	FullSQL bool
}

// GormLogger routes GORM output into zap under the "gorm" name, tagged with
// the request's correlation fields.
type GormLogger struct {
	log *zap.Logger
	cfg GormConfig
}

// NewGormLogger builds the statement logger. A nil log discards everything.
//
// Raw(...).Scan records its statement through gorm's package-level Recorder
// before handing it to this logger, and the Recorder masks only through
// gormlogger.RecorderParamsFilter. NewGormLogger installs its own ParamsFilter
// there, so the most recently built logger decides masking for Scan.
func NewGormLogger(log *zap.Logger, cfg GormConfig) *GormLogger {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SlowThreshold == 0 {
		cfg.SlowThreshold = defaultSlowSQL
	}
	l := &GormLogger{log: log.Named("gorm"), cfg: cfg}
	gormlogger.RecorderParamsFilter = l.ParamsFilter
	return l
}

// GormLevel maps the application log level onto GORM's coarser scale.
// Anything unknown behaves like "warn".
func GormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// LogMode returns a copy at level; gorm calls it for Session and Debug.
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.cfg.Level = level
	return &clone
}

// Info, Warn and Error format gorm's own messages (migrations, callbacks) and
// log them at the matching zap level when the gorm level allows it.
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

// Warn logs a gorm warning.
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

// Error logs a gorm error.
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, msg string, data []any) {
	if l.cfg.Level < min {
		return
	}
	if ce := l.log.Check(level, fmt.Sprintf(msg, data...)); ce != nil {
		ce.Write(Fields(ctx)...)
	}
}

// ParamsFilter implements gorm.ParamsFilter.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if l.cfg.FullSQL {
		return sql, params
	}
	return sql, nil
}

// Trace logs one finished statement: failures at error, slow ones at warn and
// the rest at debug when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	level, msg, ok := l.classify(elapsed, err)
	if !ok {
		return
	}
	ce := l.log.Check(level, msg)
	if ce == nil {
		return
	}

	sql, rows := fc()
	fields := append([]zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}, Fields(ctx)...)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

func (l *GormLogger) classify(elapsed time.Duration, err error) (zapcore.Level, string, bool) {
	switch {
	case err != nil:
		if l.cfg.Level < gormlogger.Error || (!l.cfg.LogNotFound && errors.Is(err, gorm.ErrRecordNotFound)) {
			return 0, "", false
		}
		return zapcore.ErrorLevel, "SQL Error", true
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold && l.cfg.Level >= gormlogger.Warn:
		return zapcore.WarnLevel, fmt.Sprintf("SLOW SQL >= %v", l.cfg.SlowThreshold), true
	case l.cfg.Level >= gormlogger.Info:
		return zapcore.DebugLevel, "SQL Query", true
	default:
		return 0, "", false
	}
}

var (
	_ gormlogger.Interface = (*GormLogger)(nil)
	_ gorm.ParamsFilter    = (*GormLogger)(nil)
)
