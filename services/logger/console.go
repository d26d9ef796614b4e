package logsvc

import (
	"fmt"
	"io"
	"strings"

	"github.com/labstack/gommon/log"

	"github.com/scoda/scoda/core"
)

type ConsoleLogger struct {
	l *log.Logger
}

var _ core.Logger = (*ConsoleLogger)(nil)

// NewConsoleLogger writes leveled lines to w. Debug lines are only written in debug mode.
func NewConsoleLogger(w io.Writer, conf *core.Config) *ConsoleLogger {
	l := log.New(strings.ToUpper(conf.AppName))
	l.SetOutput(w)
	l.SetHeader("${time_rfc3339} ${level} ${prefix}")
	if conf.Debug {
		l.SetLevel(log.DEBUG)
	} else {
		l.SetLevel(log.INFO)
	}
	return &ConsoleLogger{l: l}
}

// line renders msg followed by each arg, errors with their stack when they have one.
func line(msg string, args []interface{}) string {
	var b strings.Builder
	b.WriteString(msg)
	for _, arg := range args {
		b.WriteByte(' ')
		if err, ok := arg.(error); ok {
			fmt.Fprintf(&b, "%+v", err)
			continue
		}
		fmt.Fprintf(&b, "%v", arg)
	}
	return b.String()
}

func (c ConsoleLogger) Debug(msg string, args ...interface{}) { c.l.Debug(line(msg, args)) }
func (c ConsoleLogger) Info(msg string, args ...interface{})  { c.l.Info(line(msg, args)) }
func (c ConsoleLogger) Warn(msg string, args ...interface{})  { c.l.Warn(line(msg, args)) }
func (c ConsoleLogger) Error(msg string, args ...interface{}) { c.l.Error(line(msg, args)) }
func (c ConsoleLogger) Fatal(msg string, args ...interface{}) { c.l.Fatal(line(msg, args)) }
