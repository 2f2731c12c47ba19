package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/crytic/sollab/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger is disabled until the CLI configures it. Each package should derive its own sub-logger from it so that
// log output can be filtered by the "module" key.
var GlobalLogger = NewLogger(zerolog.Disabled)

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in a human-readable format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// contextField is a key-value pair attached to every event emitted by a sub-logger.
type contextField struct {
	key   string
	value string
}

// Logger fans log events out to three classes of writers: structured (JSON), unstructured without color, and
// unstructured with ANSI coloring. Colorized message text is only ever sent to the last class.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// fields holds the context attached by NewSubLogger.
	fields []contextField

	structuredWriters        []io.Writer
	unstructuredWriters      []io.Writer
	unstructuredColorWriters []io.Writer

	// plainLogger writes to structuredWriters and unstructuredWriters.
	plainLogger zerolog.Logger

	// colorLogger writes to unstructuredColorWriters.
	colorLogger zerolog.Logger
}

// NewLogger creates a Logger at the given level with no writers attached.
func NewLogger(level zerolog.Level) *Logger {
	logger := &Logger{
		level:                    level,
		fields:                   make([]contextField, 0),
		structuredWriters:        make([]io.Writer, 0),
		unstructuredWriters:      make([]io.Writer, 0),
		unstructuredColorWriters: make([]io.Writer, 0),
	}
	logger.rebuild()
	return logger
}

// NewSubLogger creates a new Logger with the same writers plus a key-value pair attached to every event. Writers added
// to the parent afterwards are not propagated.
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	sub := &Logger{
		level:                    l.level,
		fields:                   append(append(make([]contextField, 0, len(l.fields)+1), l.fields...), contextField{key, value}),
		structuredWriters:        append(make([]io.Writer, 0), l.structuredWriters...),
		unstructuredWriters:      append(make([]io.Writer, 0), l.unstructuredWriters...),
		unstructuredColorWriters: append(make([]io.Writer, 0), l.unstructuredColorWriters...),
	}
	sub.rebuild()
	return sub
}

// writerList returns a pointer to the writer list that manages writers of the given format and coloring.
func (l *Logger) writerList(format LogFormat, colored bool) *[]io.Writer {
	if format == STRUCTURED {
		return &l.structuredWriters
	}
	if colored {
		return &l.unstructuredColorWriters
	}
	return &l.unstructuredWriters
}

// AddWriter adds a writer of the given format. Coloring only applies to unstructured output. Adding a writer that is
// already registered for the same format is a no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat, colored bool) {
	list := l.writerList(format, colored)
	for _, w := range *list {
		if w == writer {
			return
		}
	}
	*list = append(*list, writer)
	l.rebuild()
}

// RemoveWriter removes a previously added writer. If the writer is not registered, this is a no-op.
func (l *Logger) RemoveWriter(writer io.Writer, format LogFormat, colored bool) {
	list := l.writerList(format, colored)
	for i, w := range *list {
		if w == writer {
			*list = append((*list)[:i], (*list)[i+1:]...)
			l.rebuild()
			return
		}
	}
}

// Level returns the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel updates the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.rebuild()
}

// rebuild recreates the underlying zerolog loggers from the current writer lists.
func (l *Logger) rebuild() {
	plainWriters := make([]io.Writer, 0, len(l.structuredWriters)+len(l.unstructuredWriters))
	plainWriters = append(plainWriters, l.structuredWriters...)
	for _, w := range l.unstructuredWriters {
		plainWriters = append(plainWriters, consoleWriter(w, l.level, false))
	}
	colorWriters := make([]io.Writer, 0, len(l.unstructuredColorWriters))
	for _, w := range l.unstructuredColorWriters {
		colorWriters = append(colorWriters, consoleWriter(w, l.level, true))
	}

	l.plainLogger = l.newZerologger(plainWriters)
	l.colorLogger = l.newZerologger(colorWriters)
}

// newZerologger creates a zerolog.Logger over the provided writers carrying this Logger's context fields.
func (l *Logger) newZerologger(writers []io.Writer) zerolog.Logger {
	if len(writers) == 0 {
		return zerolog.Nop()
	}
	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(l.level).With().Timestamp()
	for _, field := range l.fields {
		ctx = ctx.Str(field.key, field.value)
	}
	return ctx.Logger()
}

// Trace logs a trace event
func (l *Logger) Trace(args ...any) {
	l.log(zerolog.TraceLevel, args...)
}

// Debug logs a debug event
func (l *Logger) Debug(args ...any) {
	l.log(zerolog.DebugLevel, args...)
}

// Info logs an info event
func (l *Logger) Info(args ...any) {
	l.log(zerolog.InfoLevel, args...)
}

// Warn logs a warning event
func (l *Logger) Warn(args ...any) {
	l.log(zerolog.WarnLevel, args...)
}

// Error logs an error event
func (l *Logger) Error(args ...any) {
	l.log(zerolog.ErrorLevel, args...)
}

// Panic logs a panic event to every writer and then panics.
func (l *Logger) Panic(args ...any) {
	l.log(zerolog.PanicLevel, args...)
}

// log builds the colorized and plain messages from args and sends them to their respective writers. Stack traces are
// attached to errors when the logger is at debug level or below, and always for panics.
func (l *Logger) log(level zerolog.Level, args ...any) {
	colorMsg, plainMsg, err, info := buildMsgs(args...)
	colorEvent := l.colorLogger.WithLevel(level)
	plainEvent := l.plainLogger.WithLevel(level)

	withStack := l.level <= zerolog.DebugLevel || level == zerolog.PanicLevel
	for _, event := range []*zerolog.Event{colorEvent, plainEvent} {
		if err != nil {
			event.Err(err)
			if withStack {
				event.Stack()
			}
		}
		if info != nil {
			event.Any("info", info)
		}
	}

	colorEvent.Msg(colorMsg)
	plainEvent.Msg(plainMsg)
	if level == zerolog.PanicLevel {
		panic(plainMsg)
	}
}

// buildMsgs takes a variadic list of arguments of any type and returns a colorized message, a plain message and,
// optionally, an error and a StructuredLogInfo object. ColorFunc arguments switch the color context of the arguments
// that follow them. Only the last error and the last StructuredLogInfo are kept.
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	if len(args) == 0 {
		return "", "", nil, nil
	}

	colorCtx := colors.Reset
	colored := make([]string, 0, len(args))
	plain := make([]string, 0, len(args))
	var info StructuredLogInfo
	var err error

	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			colorCtx = t
		case StructuredLogInfo:
			info = t
		case error:
			err = t
		default:
			colored = append(colored, colorCtx(t))
			plain = append(plain, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(colored, ""), strings.Join(plain, ""), err, info
}

// consoleWriter wraps w in a zerolog.ConsoleWriter with the project's console formatting.
func consoleWriter(w io.Writer, level zerolog.Level, colored bool) zerolog.ConsoleWriter {
	writer := zerolog.ConsoleWriter{Out: w, NoColor: !colored}

	// No timestamps on console output
	writer.FormatTimestamp = func(i any) string {
		return ""
	}

	writer.FormatLevel = func(i any) string {
		levelStr, _ := i.(string)
		parsed, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return levelStr
		}
		format := func(s string, colorFunc colors.ColorFunc) string {
			if colored {
				return colorFunc(s)
			}
			return s
		}

		switch parsed {
		case zerolog.TraceLevel:
			return format(zerolog.LevelTraceValue, colors.CyanBold)
		case zerolog.DebugLevel:
			return format(zerolog.LevelDebugValue, colors.BlueBold)
		case zerolog.InfoLevel:
			return format(colors.LEFT_ARROW, colors.GreenBold)
		case zerolog.WarnLevel:
			return format(zerolog.LevelWarnValue, colors.YellowBold)
		case zerolog.ErrorLevel:
			return format(zerolog.LevelErrorValue, colors.RedBold)
		case zerolog.FatalLevel:
			return format(zerolog.LevelFatalValue, colors.RedBold)
		case zerolog.PanicLevel:
			return format(zerolog.LevelPanicValue, colors.RedBold)
		default:
			return levelStr
		}
	}

	// Above debug level, the module field is noise on the console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module"}
	}
	return writer
}
