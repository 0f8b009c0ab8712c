package logger

import (
	"io"

	"github.com/fatih/color" // Import the fatih/color package for colored console output
)

// Colorized printing functions for each log level, built on fatih/color.
// They behave like fmt.Printf. Info and Debug go to stdout, Warn and Error
// to stderr so fatal messages land on the error stream.
var (
	infoColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgHiMagenta)
	errorColor = color.New(color.FgRed)
	debugColor = color.New(color.FgCyan)

	stdout io.Writer = color.Output
	stderr io.Writer = color.Error

	debugEnabled bool
)

// Info logs informational messages in green color.
// Green is used for success or normal progress.
func Info(format string, a ...any) {
	_, _ = infoColor.Fprintf(stdout, format, a...)
}

// Warn logs warning messages in bright magenta color.
// Warnings never stop the current operation.
func Warn(format string, a ...any) {
	_, _ = warnColor.Fprintf(stderr, format, a...)
}

// Error logs error messages in red color.
func Error(format string, a ...any) {
	_, _ = errorColor.Fprintf(stderr, format, a...)
}

// Debug logs debug messages in cyan color if enabled, otherwise is a no-op.
func Debug(format string, a ...any) {
	if !debugEnabled {
		return
	}
	_, _ = debugColor.Fprintf(stdout, format, a...)
}

// Init initializes the logger package, specifically enabling or disabling debug logging.
func Init(enableDebug bool) {
	debugEnabled = enableDebug
}

// SetOutput redirects the normal and error streams. Passing nil restores the
// terminal default for that stream.
func SetOutput(out, errOut io.Writer) {
	if out == nil {
		out = color.Output
	}
	if errOut == nil {
		errOut = color.Error
	}
	stdout, stderr = out, errOut
}
