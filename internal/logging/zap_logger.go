package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vvka-141/fsload/pkg/fsload"
)

// Log output formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ZapLogger adapts a zap sugared logger to fsload.Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger creates a JSON logger writing to out. Verbose messages are
// logged at debug level and only emitted when verbose is true.
func NewZapLogger(out io.Writer, verbose bool) *ZapLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(out), level)
	return &ZapLogger{sugar: zap.New(core).Sugar()}
}

// NewZapLoggerFrom wraps an existing zap logger.
func NewZapLoggerFrom(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: logger.Sugar()}
}

func (l *ZapLogger) Verbose(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *ZapLogger) Info(format string, args ...interface{})    { l.sugar.Infof(format, args...) }
func (l *ZapLogger) Warn(format string, args ...interface{})    { l.sugar.Warnf(format, args...) }
func (l *ZapLogger) Error(format string, args ...interface{})   { l.sugar.Errorf(format, args...) }

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

// New returns the logger for a --log-format value.
func New(format string, out io.Writer, verbose bool) (fsload.Logger, error) {
	switch strings.ToLower(format) {
	case "", FormatConsole:
		return NewConsoleLoggerTo(out, verbose), nil
	case FormatJSON:
		return NewZapLogger(out, verbose), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want %s or %s): %w", format, FormatConsole, FormatJSON, fsload.ErrInvalidConfig)
	}
}
