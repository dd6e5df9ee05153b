package flagcore

import (
	"go.uber.org/zap"
)

// Logger is the narrow ambient logging surface the store, evaluator,
// and error boundary write through. Concrete construction (which
// backend, which level, where output goes) lives entirely behind this
// interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
}

// ZapLogger backs Logger with a zap.SugaredLogger, matching the
// structured-logging convention used elsewhere in the reference
// corpus this SDK's ambient stack is grounded on.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds a production zap logger (JSON encoding, info
// level and above) wrapped as a Logger. Callers that need a
// development-friendly console encoder should build their own
// *zap.Logger and pass it to WrapZapLogger instead.
func NewZapLogger() (*ZapLogger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return WrapZapLogger(z), nil
}

// WrapZapLogger adapts an already-configured *zap.Logger.
func WrapZapLogger(z *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: z.Sugar()}
}

func (l *ZapLogger) Debug(msg string, fields ...interface{}) {
	l.sugar.Debugw(msg, fields...)
}

func (l *ZapLogger) Info(msg string, fields ...interface{}) {
	l.sugar.Infow(msg, fields...)
}

func (l *ZapLogger) Warn(msg string, fields ...interface{}) {
	l.sugar.Warnw(msg, fields...)
}

func (l *ZapLogger) Error(msg string, err error, fields ...interface{}) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	l.sugar.Errorw(msg, fields...)
}

// Sync flushes any buffered log entries. Call it from shutdown paths.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

// NopLogger discards everything. It backs LocalMode and tests that
// don't care about log output.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{})        {}
func (NopLogger) Info(string, ...interface{})         {}
func (NopLogger) Warn(string, ...interface{})         {}
func (NopLogger) Error(string, error, ...interface{}) {}
