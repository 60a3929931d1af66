// Package progress shows a spinner on stderr while the detectors run.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// spinInterval is how often a running spinner advances.
const spinInterval = 120 * time.Millisecond

// Tracker wraps a progress bar used as a spinner. A nil *Tracker is valid and
// does nothing, so callers can disable progress without branching.
type Tracker struct {
	bar   *progressbar.ProgressBar
	w     io.Writer
	label string

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a spinner on stderr.
func NewSpinner(label string) *Tracker {
	return NewSpinnerTo(os.Stderr, label)
}

// NewSpinnerTo creates a spinner writing to w.
func NewSpinnerTo(w io.Writer, label string) *Tracker {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Tracker{bar: bar, w: w, label: label}
}

// Start animates the spinner until a Finish method is called.
func (t *Tracker) Start() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(spinInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.bar.Add(1)
			}
		}
	}(t.stop, t.done)
}

// Describe changes the label shown next to the spinner.
func (t *Tracker) Describe(label string) {
	if t == nil {
		return
	}
	t.bar.Describe(label)
}

func (t *Tracker) halt() {
	t.mu.Lock()
	stop, done := t.stop, t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	t.bar.Finish()
	t.bar.Clear()
}

// FinishSuccess clears the spinner completely (no output).
func (t *Tracker) FinishSuccess() {
	if t == nil {
		return
	}
	t.halt()
}

// FinishError clears the spinner and prints an error message.
func (t *Tracker) FinishError(err error) {
	if t == nil {
		return
	}
	t.halt()
	fmt.Fprintf(t.w, "  %s error: %v\n", t.label, err)
}
