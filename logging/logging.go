// Package logging provides a small leveled logger, extended with
// TTY-aware ANSI coloring (SPEC_FULL.md §2.2): color is applied only
// when stdout is a real terminal.
package logging

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// logging levels
const (
	DEBUG = "DEBUG"
	INFO  = "INFO"
	WARN  = "WARN"
	ERROR = "ERROR"
)

var levels = map[string]int{
	DEBUG: 1,
	INFO:  2,
	WARN:  3,
	ERROR: 4,
}

// LogLevel defines the current logging level (default is INFO)
var LogLevel = INFO

var (
	out  = colorable.NewColorableStdout()
	tty  = isatty.IsTerminal(os.Stdout.Fd())
	tags = map[string]func(format string, a ...any) string{
		DEBUG: color.New(color.FgCyan).SprintfFunc(),
		INFO:  color.New(color.FgGreen).SprintfFunc(),
		WARN:  color.New(color.FgYellow).SprintfFunc(),
		ERROR: color.New(color.FgRed, color.Bold).SprintfFunc(),
	}
)

func init() {
	log.SetOutput(out)
}

// SetLogLevel sets the log level for filtering logs
func SetLogLevel(logLevel string) {
	LogLevel = logLevel
}

// Log writes a log message at a specified level, formatted with optional arguments
func Log(level, message string, a ...any) {
	if levels[level] < levels[LogLevel] {
		return
	}
	body := fmt.Sprintf(message, a...)
	tag := "[" + level + "]"
	if tty {
		tag = tags[level]("[%s]", level)
	}
	log.Printf("%s %s\n", tag, body)
}

// Debug logs a message at DEBUG level
func Debug(message string, a ...any) {
	Log(DEBUG, message, a...)
}

// Info logs a message at INFO level
func Info(message string, a ...any) {
	Log(INFO, message, a...)
}

// Warn logs a message at WARN level
func Warn(message string, a ...any) {
	Log(WARN, message, a...)
}

// Error logs a message at ERROR level
func Error(message string, a ...any) {
	Log(ERROR, message, a...)
}

// Panic logs at ERROR level then panics.
func Panic(message string, a ...any) {
	Error(message, a...)
	panic(fmt.Sprintf(message, a...))
}
