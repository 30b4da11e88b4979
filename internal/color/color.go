// Package color wraps fatih/color with the handful of foregrounds used in terminal output.
package color

import "github.com/fatih/color"

var (
	red     = color.New(color.FgRed).SprintfFunc()
	green   = color.New(color.FgGreen).SprintfFunc()
	yellow  = color.New(color.FgYellow).SprintfFunc()
	magenta = color.New(color.FgMagenta).SprintfFunc()
	cyan    = color.New(color.FgCyan).SprintfFunc()
)

func FgRed(format string, a ...interface{}) string {
	return red(format, a...)
}

func FgGreen(format string, a ...interface{}) string {
	return green(format, a...)
}

func FgYellow(format string, a ...interface{}) string {
	return yellow(format, a...)
}

func FgMagenta(format string, a ...interface{}) string {
	return magenta(format, a...)
}

func FgCyan(format string, a ...interface{}) string {
	return cyan(format, a...)
}

// Disable turns colors off globally, e.g. when output goes to a log file.
func Disable() {
	color.NoColor = true
}
