package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔═══════════════════════════════════════════════╗
    ║ ███████╗███╗   ███╗ ██████╗ ████████╗███████╗ ║
    ║ ██╔════╝████╗ ████║██╔═══██╗╚══██╔══╝██╔════╝ ║
    ║ █████╗  ██╔████╔██║██║   ██║   ██║   █████╗   ║
    ║ ██╔══╝  ██║╚██╔╝██║██║   ██║   ██║   ██╔══╝   ║
    ║ ███████╗██║ ╚═╝ ██║╚██████╔╝   ██║   ███████╗ ║
    ║ ╚══════╝╚═╝     ╚═╝ ╚═════╝    ╚═╝   ╚══════╝ ║
    ║          7TV EMOTE DOWNLOADER  :3             ║
    ╚═══════════════════════════════════════════════╝
`

var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout

	quietMode    atomic.Bool
	colorEnabled atomic.Bool
)

func init() {
	colorEnabled.Store(true)
}

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled.Load() {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// SetOutput redirects everything the package prints. Returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	prev := out
	out = w
	return prev
}

// Output returns the writer the package prints to
func Output() io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	return out
}

// SetQuietMode suppresses everything but errors and final summaries
func SetQuietMode(quiet bool) { quietMode.Store(quiet) }

func IsQuietMode() bool { return quietMode.Load() }

// SetColorEnabled toggles ANSI colors
func SetColorEnabled(enabled bool) { colorEnabled.Store(enabled) }

func writeLine(line string) {
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintln(out, line)
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	if IsQuietMode() {
		return
	}
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprint(out, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		writeLine(Red(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		writeLine(Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	writeLine(Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	if IsQuietMode() {
		return
	}
	writeLine(fmt.Sprintf("%s: %s", Cyan(label), Yellow(value)))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if IsQuietMode() {
		return
	}
	if len(args) > 0 {
		writeLine(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		writeLine(Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if IsQuietMode() {
		return
	}
	writeLine(Magenta(msg))
}

// PrintPlain prints msg unstyled
func PrintPlain(msg string) {
	writeLine(msg)
}
