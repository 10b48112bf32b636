package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/stemlearn/core"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// ParseLevel reads debug, info, warn or error, in any case. Anything else logs everything.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelDebug
	}
}

// RollbarLogger reports to rollbar and mirrors each entry on a std logger.
// Entries below its level are dropped on both sides.
type RollbarLogger struct {
	std   *log.Logger
	level Level
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std, level: ParseLevel(conf.LogLevel)}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// entry is one log call: the first error, the custom data of every map and session tag,
// and whatever else was passed.
type entry struct {
	msg    string
	err    error
	custom map[string]interface{}
	extra  []interface{}
}

// expected args: error, map[string]interface{}, core.SessionTag
func newEntry(msg string, args []interface{}) entry {
	e := entry{msg: msg, custom: make(map[string]interface{})}
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			if e.err == nil {
				e.err = a
				continue
			}
			e.extra = append(e.extra, a)
		case map[string]interface{}:
			for k, v := range a {
				e.custom[k] = v
			}
		case core.SessionTag:
			// custom data of the item; rollbar's person is process wide
			e.custom["scope"] = a.Scope
			if a.Role != "" {
				e.custom["role"] = a.Role
			}
		default:
			e.extra = append(e.extra, a)
		}
	}
	return e
}

func (e entry) rollbarArgs() []interface{} {
	args := []interface{}{e.msg}
	if e.err != nil {
		args = append(args, e.err)
	}
	if len(e.custom) > 0 {
		args = append(args, e.custom)
	}
	return args
}

// print writes `msg key=value...` on one line, then the error with its stack and the extras.
func (e entry) print(std *log.Logger) {
	keys := make([]string, 0, len(e.custom))
	for k := range e.custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(e.msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.custom[k])
	}
	std.Println(b.String())

	if e.err != nil {
		std.Printf("%+v\n", e.err)
	}
	for _, arg := range e.extra {
		std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) log(level Level, report func(...interface{}), msg string, args []interface{}) {
	if level < l.level {
		return
	}
	e := newEntry(msg, args)
	report(e.rollbarArgs()...)
	e.print(l.std)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, rollbar.Debug, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, rollbar.Info, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, rollbar.Warning, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(LevelError, rollbar.Error, msg, args)
}

// Fatal logs whatever the level and exits.
func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	e := newEntry(msg, args)
	rollbar.Critical(e.rollbarArgs()...)
	e.print(l.std)
	rollbar.Wait()
	l.std.Fatal(msg)
}
