package utils

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// Logger wraps zap.SugaredLogger with a key/value API
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// InitLogger builds the logger for the given mode
func InitLogger(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// NopLogger discards everything. Used by tests and as a nil-safe fallback.
func NopLogger() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}

func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, keysAndValues...)
}

func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}

// GormLogger routes GORM SQL logs into zap. Only errors and slow queries are logged.
type GormLogger struct {
	log           *Logger
	SlowThreshold time.Duration
	LogLevel      gormlogger.LogLevel
}

func NewGormLogger(log *Logger) gormlogger.Interface {
	return &GormLogger{
		log:           log.With("component", "gorm"),
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      gormlogger.Warn,
	}
}

func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.LogLevel = level
	return &cp
}

func (g *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if g.LogLevel >= gormlogger.Info {
		g.log.SugaredLogger.Infof(msg, data...)
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if g.LogLevel >= gormlogger.Warn {
		g.log.SugaredLogger.Warnf(msg, data...)
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if g.LogLevel >= gormlogger.Error {
		g.log.SugaredLogger.Errorf(msg, data...)
	}
}

func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.LogLevel <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && g.LogLevel >= gormlogger.Error:
		sql, rows := fc()
		g.log.Error("sql error", "err", err, "elapsed", elapsed, "rows", rows, "sql", sql)
	case elapsed > g.SlowThreshold && g.LogLevel >= gormlogger.Warn:
		sql, rows := fc()
		g.log.Warn("slow sql", "elapsed", elapsed, "rows", rows, "sql", sql)
	case g.LogLevel >= gormlogger.Info:
		sql, rows := fc()
		g.log.Debug("sql", "elapsed", elapsed, "rows", rows, "sql", sql)
	}
}
