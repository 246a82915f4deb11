package log

import (
	"io"

	"gopkg.in/Sirupsen/logrus.v0"
)

type Level = logrus.Level

const (
	PanicLevel = logrus.PanicLevel
	FatalLevel = logrus.FatalLevel
	ErrorLevel = logrus.ErrorLevel
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
)

// A ContextAdder adds fields to every log entry. The simulator registers one
// so that each line carries the current pc.
type ContextAdder interface {
	AddLogContext(entry *EntryZ)
}

var contexts []ContextAdder

func AddContext(ctx ContextAdder) {
	contexts = append(contexts, ctx)
}

// SetOutput redirects all modules to w.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

var disabled bool

// Disable silences every module, warnings included.
func Disable() {
	disabled = true
	logrus.SetOutput(io.Discard)
}

func init() {
	logrus.SetLevel(logrus.DebugLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
		TimestampFormat:  "15:04:05.000",
	})
}
