package main

import (
	"fmt"
	"io"
	"os"
)

// ANSI escape sequences, suppressed by --no-color.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// CLI feedback goes to stderr so stdout stays clean for generated copy.
var errOut io.Writer = os.Stderr

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func mark(color, prefix, format string, args ...any) {
	fmt.Fprintln(errOut, colorize(color, prefix+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { mark(colorGreen, "✓ ", format, args...) }
func printError(format string, args ...any)   { mark(colorRed, "✗ ", format, args...) }
func printWarning(format string, args ...any) { mark(colorYellow, "! ", format, args...) }
func printStep(format string, args ...any)    { mark(colorCyan, "» ", format, args...) }

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(errOut, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}
