package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/panbanda/unused-cleaner/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilTrackerIsNoop(t *testing.T) {
	var tr *Tracker
	assert.NotPanics(t, func() {
		tr.Start()
		tr.Describe("x")
		tr.FinishSuccess()
		tr.FinishError(errors.New("e"))
	})
}

func TestSpinner_StartAndFinish(t *testing.T) {
	var buf testutil.SyncBuffer
	tr := NewSpinnerTo(&buf, "Analyzing")

	tr.Start()
	tr.Start() // second start is ignored
	time.Sleep(3 * spinInterval)
	tr.Describe("Checking dependencies")
	tr.FinishSuccess()

	assert.NotContains(t, buf.String(), "error:")
	assert.NotPanics(t, tr.FinishSuccess, "finishing twice is safe")
}

func TestSpinner_FinishError(t *testing.T) {
	var buf testutil.SyncBuffer
	tr := NewSpinnerTo(&buf, "depcheck")
	tr.Start()
	tr.FinishError(errors.New("timed out"))
	assert.Contains(t, buf.String(), "depcheck error: timed out")
}
