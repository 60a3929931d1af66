// Package output provides the colored console logger and the report format
// selector shared by the commands.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Format selects where an analysis report goes.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
	FormatBoth    Format = "both"
)

// ParseFormat converts a string to Format. Unknown values are an error.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return FormatBoth, nil
	case "console", "text":
		return FormatConsole, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q (want json, console or both)", s)
	}
}

// Console reports whether the format prints to the terminal.
func (f Format) Console() bool {
	return f == FormatConsole || f == FormatBoth
}

// JSON reports whether the format writes a JSON document.
func (f Format) JSON() bool {
	return f == FormatJSON || f == FormatBoth
}

// Console writes leveled, optionally colored messages. It is safe for
// concurrent use.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	colored bool
	verbose bool
}

// NewConsole creates a console logger writing to w.
func NewConsole(w io.Writer, colored, verbose bool) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w, colored: colored, verbose: verbose}
}

// Discard returns a console that drops every message.
func Discard() *Console {
	return NewConsole(io.Discard, false, false)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Writer returns the underlying writer.
func (c *Console) Writer() io.Writer {
	return c.w
}

// Colored returns whether colored output is enabled.
func (c *Console) Colored() bool {
	return c.colored
}

// Verbose returns whether debug messages are printed.
func (c *Console) Verbose() bool {
	return c.verbose
}

func (c *Console) print(attr color.Attribute, prefix, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	if c.colored {
		col := color.New(attr)
		col.EnableColor()
		col.Fprintln(c.w, msg)
		return
	}
	fmt.Fprintln(c.w, prefix+msg)
}

func (c *Console) Info(format string, args ...any) {
	c.print(color.FgCyan, "", format, args...)
}

func (c *Console) Success(format string, args ...any) {
	c.print(color.FgGreen, "", format, args...)
}

func (c *Console) Warn(format string, args ...any) {
	c.print(color.FgYellow, "WARNING: ", format, args...)
}

func (c *Console) Error(format string, args ...any) {
	c.print(color.FgRed, "ERROR: ", format, args...)
}

// Debug prints only in verbose mode.
func (c *Console) Debug(format string, args ...any) {
	if !c.verbose {
		return
	}
	c.print(color.FgHiBlack, "DEBUG: ", format, args...)
}

// Println writes an uncolored line.
func (c *Console) Println(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format+"\n", args...)
}
