package jsonlog

import (
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
)

type Level int8

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
	FATAL
	OFF
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return ""
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARNING:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	case FATAL:
		return zerolog.FatalLevel
	default:
		return zerolog.Disabled
	}
}

// ParseLevel accepts the names returned by Level.String, case-insensitively.
func ParseLevel(s string) (Level, bool) {
	for l := DEBUG; l <= FATAL; l++ {
		if strings.EqualFold(s, l.String()) {
			return l, true
		}
	}
	if strings.EqualFold(s, "off") {
		return OFF, true
	}
	return INFO, false
}

// Logger writes one JSON object per line. zerolog serializes writes to out,
// so Logger is safe for concurrent use.
type Logger struct {
	zl       zerolog.Logger
	minLevel Level
}

func New(out io.Writer, minLevel Level) *Logger {
	zl := zerolog.New(zerolog.SyncWriter(out)).
		Level(minLevel.zerolog()).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl, minLevel: minLevel}
}

func (l *Logger) Print(level Level, message string, properties map[string]string) {
	if level < l.minLevel || level >= OFF {
		return
	}

	// WithLevel(FatalLevel) 不会退出进程，退出由PrintFatal负责
	ev := l.zl.WithLevel(level.zerolog())
	if ev == nil {
		return
	}
	if len(properties) > 0 {
		ev = ev.Dict("properties", toDict(properties))
	}
	if level >= ERROR {
		ev = ev.Str("trace", string(debug.Stack()))
	}
	ev.Msg(message)
}

func toDict(properties map[string]string) *zerolog.Event {
	dict := zerolog.Dict()
	for k, v := range properties {
		dict = dict.Str(k, v)
	}
	return dict
}

func (l *Logger) PrintDebug(message string, properties map[string]string) {
	l.Print(DEBUG, message, properties)
}

func (l *Logger) PrintInfo(message string, properties map[string]string) {
	l.Print(INFO, message, properties)
}

func (l *Logger) PrintWarning(message string, properties map[string]string) {
	l.Print(WARNING, message, properties)
}

func (l *Logger) PrintError(err error, properties map[string]string) {
	l.Print(ERROR, err.Error(), properties)
}

func (l *Logger) PrintFatal(err error, properties map[string]string) {
	l.Print(FATAL, err.Error(), properties)
	os.Exit(1)
}

// Write lets http.Server use the logger through log.New(app.logger, "", 0).
func (l *Logger) Write(message []byte) (n int, err error) {
	l.Print(ERROR, strings.TrimSuffix(string(message), "\n"), nil)
	return len(message), nil
}
