package feed

import (
	"fmt"
	"maps"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/embracexyz/filmorate/internal/jsonlog"
)

// Logger routes watermill's own logging through jsonlog.
type Logger struct {
	logger *jsonlog.Logger
	fields watermill.LogFields
}

func NewLogger(logger *jsonlog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.PrintError(fmt.Errorf("%s: %w", msg, err), l.properties(fields))
}

func (l *Logger) Info(msg string, fields watermill.LogFields) {
	l.logger.PrintInfo(msg, l.properties(fields))
}

func (l *Logger) Debug(msg string, fields watermill.LogFields) {
	l.logger.PrintDebug(msg, l.properties(fields))
}

// Trace is too chatty for anything above debug.
func (l *Logger) Trace(msg string, fields watermill.LogFields) {
	l.logger.PrintDebug(msg, l.properties(fields))
}

func (l *Logger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	merged := maps.Clone(l.fields)
	if merged == nil {
		merged = watermill.LogFields{}
	}
	maps.Copy(merged, fields)
	return &Logger{logger: l.logger, fields: merged}
}

func (l *Logger) properties(fields watermill.LogFields) map[string]string {
	if len(l.fields) == 0 && len(fields) == 0 {
		return nil
	}
	props := make(map[string]string, len(l.fields)+len(fields))
	for k, v := range l.fields {
		props[k] = fmt.Sprint(v)
	}
	for k, v := range fields {
		props[k] = fmt.Sprint(v)
	}
	return props
}
