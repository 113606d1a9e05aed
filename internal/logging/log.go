package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

var debugEnabled atomic.Bool

func init() {
	log.SetFlags(log.Ldate | log.Ltime)
}

// SetDebug toggles Debug/Debugf output
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether debug output is on
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetOutput redirects the standard logger
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// SetFile sends log output to a size-rotated file. The returned closer
// releases the file handle.
func SetFile(path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 2,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(lj)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	return lj, nil
}

// Printf calls the standard log.Printf()
func Printf(format string, v ...interface{}) {
	log.Output(2, fmt.Sprintf(format, v...))
}

// Println calls the standard log.Println()
func Println(v ...interface{}) {
	log.Output(2, fmt.Sprintln(v...))
}

// Debugf logs with a [DEBUG] prefix when debug output is enabled
func Debugf(format string, v ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	log.Output(2, "[DEBUG] "+fmt.Sprintf(format, v...))
}

// Logger prefixes every line, e.g. with a batch run id
type Logger struct {
	prefix string
}

// New creates a Logger whose lines start with [prefix]
func New(prefix string) *Logger {
	return &Logger{prefix: "[" + prefix + "] "}
}

func (l *Logger) Printf(format string, v ...interface{}) {
	log.Output(2, l.prefix+fmt.Sprintf(format, v...))
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	log.Output(2, l.prefix+"[DEBUG] "+fmt.Sprintf(format, v...))
}
