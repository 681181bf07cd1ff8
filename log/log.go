// Package log provides the leveled, terminal-aware logger used across the
// node, in the style of the teacher codebase's own log package: a global
// root logger, contextual key/value pairs, and colorized output on a tty.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	colorable "github.com/mattn/go-colorable"
	isatty "github.com/mattn/go-isatty"
)

// Lvl is a log severity level, ordered from most to least severe.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

var levelColor = map[Lvl]*color.Color{
	LvlCrit:  color.New(color.FgWhite, color.BgRed, color.Bold),
	LvlError: color.New(color.FgRed, color.Bold),
	LvlWarn:  color.New(color.FgYellow),
	LvlInfo:  color.New(color.FgGreen),
	LvlDebug: color.New(color.FgCyan),
	LvlTrace: color.New(color.FgWhite),
}

// Logger writes leveled, contextual messages with a fixed set of base
// key/value pairs (via New), the way a contract or component would tag
// every line with its own identity.
type Logger struct {
	ctx []interface{}
}

// root is the process-wide default logger behind the package-level functions.
var root = &Logger{}

var (
	mu       sync.Mutex
	minLevel = LvlInfo
	out      io.Writer = defaultWriter()
	useColor           = isatty.IsTerminal(os.Stderr.Fd())
)

func defaultWriter() io.Writer {
	return colorable.NewColorableStderr()
}

// SetLevel sets the process-wide minimum level written to output.
func SetLevel(l Lvl) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	useColor = false
}

// New returns a child logger with ctx appended to every message it writes.
func New(ctx ...interface{}) *Logger {
	return &Logger{ctx: append(append([]interface{}{}, root.ctx...), ctx...)}
}

func (l *Logger) write(lvl Lvl, msg string, ctx []interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if lvl > minLevel {
		return
	}
	ts := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	caller := ""
	if cs := stack.Trace().TrimRuntime(); len(cs) > 2 {
		caller = fmt.Sprintf(" %v", cs[2])
	}
	levelStr := lvl.String()
	if useColor {
		if c, ok := levelColor[lvl]; ok {
			levelStr = c.Sprint(lvl.String())
		}
	}
	full := append(append([]interface{}{}, l.ctx...), ctx...)
	fmt.Fprintf(out, "%s [%s]%s %s", ts, levelStr, caller, msg)
	for i := 0; i+1 < len(full); i += 2 {
		fmt.Fprintf(out, " %v=%v", full[i], full[i+1])
	}
	fmt.Fprintln(out)
}

func (l *Logger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }
func (l *Logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *Logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }
func (l *Logger) Crit(msg string, ctx ...interface{}) {
	l.write(LvlCrit, msg, ctx)
	os.Exit(1)
}

// Package-level convenience functions delegate to the root logger.
func Trace(msg string, ctx ...interface{}) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { root.Crit(msg, ctx...) }
