package engine

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DebugLevel defines verbosity
type DebugLevel int

const (
	DebugNone DebugLevel = iota
	DebugSQL
	DebugTrace
	DebugExplain
)

func (l DebugLevel) String() string {
	switch l {
	case DebugSQL:
		return "sql"
	case DebugTrace:
		return "trace"
	case DebugExplain:
		return "explain"
	default:
		return "none"
	}
}

// ParseDebugLevel accepts none, sql, trace and explain (case insensitive).
// "1" is accepted as sql for CHAMELEON_DEBUG compatibility.
func ParseDebugLevel(s string) DebugLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sql", "1", "debug":
		return DebugSQL
	case "trace":
		return DebugTrace
	case "explain":
		return DebugExplain
	default:
		return DebugNone
	}
}

// DebugContext holds debug configuration and the logger SQL output goes to.
type DebugContext struct {
	Level  DebugLevel
	Logger *zap.Logger
}

// DefaultDebugContext for production
func DefaultDebugContext() *DebugContext {
	return &DebugContext{Level: DebugNone, Logger: zap.NewNop()}
}

// DebugContextFromEnv reads CHAMELEON_DEBUG.
func DebugContextFromEnv() *DebugContext {
	level := ParseDebugLevel(os.Getenv("CHAMELEON_DEBUG"))
	return NewDebugContext(level, os.Stderr, "")
}

// NewDebugContext builds a console logger on w. When file is set, entries
// are also written as JSON to a rotated log file.
func NewDebugContext(level DebugLevel, w io.Writer, file string) *DebugContext {
	if level == DebugNone {
		return DefaultDebugContext()
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	consoleCfg := encoderCfg
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(w), zapcore.DebugLevel)

	if file != "" {
		fileCfg := encoderCfg
		fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10,
			MaxBackups: 3,
		}
		core = zapcore.NewTee(core, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotated), zapcore.DebugLevel))
	}

	return &DebugContext{
		Level:  level,
		Logger: zap.New(core).Named("entityview"),
	}
}

func (dc *DebugContext) logger() *zap.Logger {
	if dc == nil || dc.Logger == nil {
		return zap.NewNop()
	}
	return dc.Logger
}

// Enabled reports whether output at level is produced.
func (dc *DebugContext) Enabled(level DebugLevel) bool {
	return dc != nil && level != DebugNone && dc.Level >= level
}

// LogSQL logs generated SQL and its bound values
func (dc *DebugContext) LogSQL(entity, sql string, values []interface{}) {
	if !dc.Enabled(DebugSQL) {
		return
	}
	dc.logger().Debug("sql",
		zap.String("entity", entity),
		zap.String("statement", sql),
		zap.Any("values", values),
	)
}

// LogQuery logs a statement trace
func (dc *DebugContext) LogQuery(operation, entity string, duration time.Duration, rowCount int) {
	if !dc.Enabled(DebugTrace) {
		return
	}
	dc.logger().Debug("trace",
		zap.String("operation", operation),
		zap.String("entity", entity),
		zap.Duration("duration", duration),
		zap.Int("rows", rowCount),
	)
}
