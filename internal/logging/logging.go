// Package logging provides the daemon log sink. The watch daemon runs
// detached from a terminal, so everything it reports goes through a rotating
// file with timestamps.
package logging

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the minimal logging surface pipeline components depend on.
type Logger interface {
	Logf(format string, args ...interface{})
}

// FileLogger writes timestamped lines to a size-rotated log file, optionally
// echoing to stderr when running in the foreground.
type FileLogger struct {
	mu   sync.Mutex
	out  *lumberjack.Logger
	echo bool
}

// NewFileLogger opens (or creates) a rotating log at path.
func NewFileLogger(path string, echo bool) *FileLogger {
	return &FileLogger{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     30, // days
			Compress:   true,
		},
		echo: echo,
	}
}

func (l *FileLogger) Logf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("[%s] %s", time.Now().Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))
	if line[len(line)-1] != '\n' {
		line += "\n"
	}
	_, _ = l.out.Write([]byte(line))
	if l.echo {
		fmt.Fprint(os.Stderr, line)
	}
}

func (l *FileLogger) Close() error {
	return l.out.Close()
}

type nopLogger struct{}

func (nopLogger) Logf(string, ...interface{}) {}

// Nop returns a logger that discards everything. Tests use it.
func Nop() Logger { return nopLogger{} }

type stderrLogger struct{}

func (stderrLogger) Logf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line += "\n"
	}
	fmt.Fprint(os.Stderr, line)
}

// NewStderrLogger returns an unrotated stderr logger for one-shot commands.
func NewStderrLogger() Logger { return stderrLogger{} }
