// Package logging provides the leveled logger used by every other package.
// The level is stored atomically so it can be adjusted after flag parsing
// without racing against in-flight log calls.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
)

// Log level constants, ordered by verbosity.
const (
	None = iota
	Error
	Warning
	Info
	Debug
)

var currentLevel atomic.Int32

var logger = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)

func init() {
	currentLevel.Store(Info)
}

// SetLevel sets the global logging level, clamped to [None, Debug].
func SetLevel(level int) {
	if level < None {
		level = None
	} else if level > Debug {
		level = Debug
	}
	currentLevel.Store(int32(level))
}

// GetLevel returns the current global logging level.
func GetLevel() int {
	return int(currentLevel.Load())
}

// ParseLevel converts a level name (case-insensitive) to its constant.
// Returns Info and an error for unrecognized names.
func ParseLevel(levelStr string) (int, error) {
	switch strings.ToLower(levelStr) {
	case "none":
		return None, nil
	case "error":
		return Error, nil
	case "warn", "warning":
		return Warning, nil
	case "info":
		return Info, nil
	case "debug":
		return Debug, nil
	default:
		return Info, fmt.Errorf("invalid log level string: '%s'", levelStr)
	}
}

// SetupLogging sets the global level from a level name, falling back to Info
// (with a warning) when the name is invalid. Returns the level that was set.
func SetupLogging(levelStr string) int {
	level, err := ParseLevel(levelStr)
	if err != nil {
		logf(Warning, "Invalid log level '%s', defaulting to 'info': %v", levelStr, err)
	}
	SetLevel(level)
	return level
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// logf formats and emits a message if the level is enabled. Debug messages
// are prefixed with the caller's file:line:function.
func logf(level int, format string, v ...interface{}) {
	if int32(level) > currentLevel.Load() {
		return
	}

	var prefix string
	switch level {
	case Error:
		prefix = "[ERROR] "
	case Warning:
		prefix = "[WARN] "
	case Info:
		prefix = "[INFO] "
	case Debug:
		prefix = "[DEBUG] "
	default:
		prefix = "[UNKN] "
	}

	if level == Debug {
		// Caller(2) is the caller of the public Logf.
		if pc, file, line, ok := runtime.Caller(2); ok {
			funcName := "???"
			if f := runtime.FuncForPC(pc); f != nil {
				funcName = filepath.Base(f.Name())
			}
			prefix = fmt.Sprintf("%s%s:%d:%s ", prefix, filepath.Base(file), line, funcName)
		}
	}

	logger.Println(prefix + fmt.Sprintf(format, v...))
}

// Logf logs a formatted message when the given level is enabled.
func Logf(level int, format string, v ...interface{}) {
	logf(level, format, v...)
}
