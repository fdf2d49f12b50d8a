package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/bubbles/progress"
)

// Tracker shows a spinner with a progress bar while edit pages are scraped.
// It only animates when its writer is a terminal.
type Tracker struct {
	bar       progress.Model
	spinner   *spinner.Spinner
	total     int
	processed int
	failed    int
}

// New creates a Tracker writing to w
func New(w io.Writer) *Tracker {
	opts := []spinner.Option{spinner.WithWriter(w)}
	if f, ok := w.(*os.File); ok {
		opts = append(opts, spinner.WithWriterFile(f))
	}
	return &Tracker{
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(24)),
		spinner: spinner.New(spinner.CharSets[9], 100*time.Millisecond, opts...),
	}
}

// Start begins tracking total scrapes
func (t *Tracker) Start(total int) {
	t.total = total
	t.processed = 0
	t.failed = 0
	t.setSuffix("")
	t.spinner.Start()
}

// Begin shows the page being scraped
func (t *Tracker) Begin(label string) {
	t.setSuffix(label)
}

// Done records a finished scrape
func (t *Tracker) Done(ok bool) {
	t.processed++
	if !ok {
		t.failed++
	}
	t.setSuffix("")
}

// Stop clears the spinner
func (t *Tracker) Stop() {
	t.spinner.Stop()
}

// Percent returns the completed fraction in [0, 1]
func (t *Tracker) Percent() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.processed) / float64(t.total)
}

// Processed returns finished and failed scrape counts
func (t *Tracker) Processed() (done, failed int) {
	return t.processed, t.failed
}

func (t *Tracker) setSuffix(label string) {
	t.spinner.Lock()
	t.spinner.Suffix = t.suffix(label)
	t.spinner.Unlock()
}

func (t *Tracker) suffix(label string) string {
	s := fmt.Sprintf(" %s %d/%d", t.bar.ViewAs(t.Percent()), t.processed, t.total)
	if t.failed > 0 {
		s += fmt.Sprintf(" (%d failed)", t.failed)
	}
	if label != "" {
		s += " " + label
	}
	return s
}
