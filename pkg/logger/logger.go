// Package logger provides the colored console logger used across this
// module, backed by github.com/apex/log for field-structured output.
package logger

import (
	"fmt"
	"os"

	alog "github.com/apex/log"
	"github.com/apex/log/handlers/cli"
)

// ANSI color codes, used only for the banner/section decoration below —
// apex/log's cli handler already colors level tags.
const (
	ColorReset = "\033[0m"
	ColorCyan  = "\033[36m"
	ColorGreen = "\033[32m"
)

// Fields is a set of structured key/value pairs attached to a log entry.
type Fields = alog.Fields

// Entry is a field-scoped logger returned by WithFields.
type Entry = alog.Entry

var entry = alog.Log

func init() {
	alog.SetHandler(cli.Default)
	alog.SetLevel(alog.InfoLevel)
}

// SetLevel sets the minimum log level ("debug", "info", "warn", "error").
func SetLevel(level string) {
	lvl, err := alog.ParseLevel(level)
	if err != nil {
		lvl = alog.InfoLevel
	}
	alog.SetLevel(lvl)
}

// WithFields returns a field-scoped logger for a single call site, e.g.
// a send or recv transaction carrying a node id and correlation id.
func WithFields(fields Fields) *alog.Entry {
	return entry.WithFields(fields)
}

// Debug logs a debug message (gray, suppressed unless level is debug).
func Debug(format string, args ...interface{}) {
	entry.Debugf(format, args...)
}

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	entry.Infof(format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...interface{}) {
	entry.Warnf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	entry.Errorf(format, args...)
}

// Success logs an info-level message tagged as a success milestone.
func Success(format string, args ...interface{}) {
	entry.WithField("result", "success").Infof(format, args...)
}

// Fatal logs a fatal error and exits the process.
func Fatal(format string, args ...interface{}) {
	entry.Errorf(format, args...)
	os.Exit(1)
}

// Section prints a section header to stdout, outside the structured log
// stream — purely console decoration for the demo command.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n%s╔%s╗%s\n", ColorCyan, border, ColorReset)
	fmt.Printf("%s║%s %-57s %s║%s\n", ColorCyan, ColorReset, title, ColorCyan, ColorReset)
	fmt.Printf("%s╚%s╝%s\n\n", ColorCyan, border, ColorReset)
}

// Banner prints the application banner.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, ColorCyan, title, ColorReset, ColorGreen, version, ColorReset)
}
