package log

import (
	"bytes"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Verbose controls whether debug messages are being printed.
var Verbose bool

// IndentationLevel controls the amount of indentation of log messages.
var IndentationLevel = 0

var errorOccured = false

var logger = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: &formatter{},
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.DebugLevel,
	ExitFunc:  os.Exit,
}

// plainField marks entries printed without any level prefix.
const plainField = "plain"

var (
	debugPrefix   = color.New(color.FgCyan).SprintFunc()("Debug: ")
	successPrefix = color.New(color.FgGreen).SprintFunc()("Success: ")
	warningPrefix = color.New(color.FgYellow).SprintFunc()("Warning: ")
	errorPrefix   = color.New(color.FgRed).SprintFunc()("Error: ")
	fatalTrailer  = color.New(color.FgRed).SprintFunc()("A fatal error occured. Exiting...")
)

type formatter struct{}

func (f *formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(strings.Repeat("  ", IndentationLevel))
	if prefix, ok := entry.Data["prefix"].(string); ok {
		b.WriteString(prefix)
	} else if _, plain := entry.Data[plainField]; !plain {
		switch entry.Level {
		case logrus.DebugLevel, logrus.TraceLevel:
			b.WriteString(debugPrefix)
		case logrus.WarnLevel:
			b.WriteString(warningPrefix)
		case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
			b.WriteString(errorPrefix)
		}
	}
	b.WriteString(entry.Message)
	if entry.Level <= logrus.FatalLevel {
		if !strings.HasSuffix(entry.Message, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString(fatalTrailer)
		b.WriteByte('\n')
	}
	return b.Bytes(), nil
}

// ErrorOccured reports whether any errors have occured.
func ErrorOccured() bool {
	return errorOccured
}

// Log prints an indented and formatted message to os.Stderr.
func Log(format string, a ...interface{}) {
	logger.WithField(plainField, true).Infof(format, a...)
}

// Debug prints an indented and formatted debug message to os.Stderr if verbose output is selected.
func Debug(format string, a ...interface{}) {
	if Verbose {
		logger.Debugf(format, a...)
	}
}

// Success prints an indented and formatted success message to os.Stderr.
func Success(format string, a ...interface{}) {
	logger.WithField("prefix", successPrefix).Infof(format, a...)
}

// Warning prints an indented and formatted warning to os.Stderr.
func Warning(format string, a ...interface{}) {
	logger.Warnf(format, a...)
}

// Error prints an indented and formatted error message to os.Stderr.
func Error(format string, a ...interface{}) {
	errorOccured = true
	logger.Errorf(format, a...)
}

// Fatal prints an indented and formatted error message to os.Stderr and terminates the program.
func Fatal(format string, a ...interface{}) {
	errorOccured = true
	logger.Fatalf(format, a...)
}
