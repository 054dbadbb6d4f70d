package logs

import (
	"github.com/Trinoooo/eggie_ipc/consts"
	"go.uber.org/zap"
)

// ComponentLogger 给同一个组件的日志统一带上 component 字段
type ComponentLogger struct {
	logger *zap.Logger
}

func NewComponentLogger(component string, fields ...zap.Field) *ComponentLogger {
	fields = append([]zap.Field{zap.String(consts.LogFieldComponent, component)}, fields...)
	return &ComponentLogger{
		// 跳过 wrapper 本身这一层，caller 指向真正的调用方
		logger: Logger.WithOptions(zap.AddCallerSkip(1)).With(fields...),
	}
}

func (cl *ComponentLogger) With(fields ...zap.Field) *ComponentLogger {
	return &ComponentLogger{logger: cl.logger.With(fields...)}
}

func (cl *ComponentLogger) Debug(msg string, fields ...zap.Field) {
	cl.logger.Debug(msg, fields...)
}

func (cl *ComponentLogger) Info(msg string, fields ...zap.Field) {
	cl.logger.Info(msg, fields...)
}

func (cl *ComponentLogger) Warn(msg string, fields ...zap.Field) {
	cl.logger.Warn(msg, fields...)
}

func (cl *ComponentLogger) Error(msg string, fields ...zap.Field) {
	cl.logger.Error(msg, fields...)
}

func (cl *ComponentLogger) Fatal(msg string, fields ...zap.Field) {
	cl.logger.Fatal(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Logger.Fatal(msg, fields...)
}
