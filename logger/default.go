package logger

import (
	"io"
	"sync/atomic"
)

var defLogger atomic.Pointer[SlogLogger]

func init() {
	defLogger.Store(newSlog(nil, InfoLevel, false))
}

func Debug(msg string, keysAndValues ...any) {
	defLogger.Load().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	defLogger.Load().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	defLogger.Load().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	defLogger.Load().Error(msg, keysAndValues...)
}

func SetLevel(level Level) {
	defLogger.Load().SetLevel(level)
}

// SetOutput replaces the default logger with one writing to w, keeping the current level.
func SetOutput(w io.Writer) {
	defLogger.Store(newSlog(w, defLogger.Load().Level(), false))
}

// GetLogger returns the package default logger.
func GetLogger() Logger {
	return defLogger.Load()
}

func With(keyValues ...any) Logger {
	return defLogger.Load().With(keyValues...)
}
