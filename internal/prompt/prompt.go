// Package prompt asks yes/no questions on the terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Confirmer answers yes/no questions.
type Confirmer interface {
	Confirm(message string) (bool, error)
}

// Terminal reads answers line by line from in and writes prompts to out.
// An empty answer or end of input means no.
type Terminal struct {
	mu      sync.Mutex
	reader  *bufio.Reader
	out     io.Writer
	colored bool
}

// NewTerminal creates a prompt on the given streams.
func NewTerminal(in io.Reader, out io.Writer, colored bool) *Terminal {
	return &Terminal{reader: bufio.NewReader(in), out: out, colored: colored}
}

// Confirm asks the question with a [y/N] hint and defaults to no.
func (t *Terminal) Confirm(message string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	question := "? " + message
	hint := " [y/N]: "
	if t.colored {
		q := color.New(color.FgCyan, color.Bold)
		q.EnableColor()
		h := color.New(color.FgHiBlack)
		h.EnableColor()
		fmt.Fprint(t.out, q.Sprint(question)+h.Sprint(hint))
	} else {
		fmt.Fprint(t.out, question+hint)
	}

	line, err := t.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read answer: %w", err)
	}
	if err == io.EOF && line == "" {
		fmt.Fprintln(t.out)
	}
	return ParseAnswer(line), nil
}

// ParseAnswer reports whether a typed answer means yes.
func ParseAnswer(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Fixed answers every question the same way and records the questions.
type Fixed struct {
	Answer bool

	mu    sync.Mutex
	Asked []string
}

// Confirm implements Confirmer.
func (f *Fixed) Confirm(message string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Asked = append(f.Asked, message)
	return f.Answer, nil
}
