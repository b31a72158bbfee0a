// Package flog is a small async logger: producers never block on I/O,
// messages are dropped (and counted) once the internal channel backs up.
package flog

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

type Level int

const None Level = -1
const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

var levelStrings = [...]string{
	Debug: "DEBUG",
	Info:  "INFO",
	Warn:  "WARN",
	Error: "ERROR",
	Fatal: "FATAL",
}

func (l Level) String() string {
	if int(l) >= 0 && int(l) < len(levelStrings) {
		return levelStrings[l]
	}
	if l == None {
		return "None"
	}
	return "UNKNOWN"
}

// Logger tags every line with a component name (e.g. "router", "overlay")
// so the packet plane's several moving parts stay distinguishable on stdout.
type Logger struct {
	component string
	minLevel  Level
	out       chan string
	dropped   atomic.Uint64
}

// New starts a Logger for component, draining to stdout on a background
// goroutine until Close is called. Pass None to disable output entirely.
func New(component string, level Level) *Logger {
	l := &Logger{
		component: component,
		minLevel:  level,
		out:       make(chan string, 1024),
	}
	if level != None {
		go l.drain()
	}
	return l
}

func (l *Logger) drain() {
	for msg := range l.out {
		fmt.Fprint(os.Stdout, msg)
	}
}

// Dropped returns the number of lines dropped because the channel was full.
func (l *Logger) Dropped() uint64 { return l.dropped.Load() }

func (l *Logger) logf(level Level, format string, args ...any) {
	if l == nil || level < l.minLevel || l.minLevel == None {
		return
	}
	// Check channel capacity before formatting to avoid wasted allocations.
	if len(l.out) == cap(l.out) {
		l.dropped.Add(1)
		return
	}

	now := time.Now().Format("2006-01-02 15:04:05.000")
	line := fmt.Sprintf("%s [%s] %s: %s\n", now, level, l.component, fmt.Sprintf(format, args...))

	select {
	case l.out <- line:
	default:
		l.dropped.Add(1)
	}
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(Warn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(Error, format, args...) }
func (l *Logger) Fatalf(format string, args ...any) {
	l.logf(Fatal, format, args...)
	time.Sleep(10 * time.Millisecond) // let the drain goroutine flush
	os.Exit(1)
}

// Close closes the message channel; the drain goroutine writes whatever
// is still queued and then exits. Close does not wait for that to finish.
// Safe to call once; calling it twice panics, matching close(chan)
// semantics.
func (l *Logger) Close() { close(l.out) }
