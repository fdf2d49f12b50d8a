package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/cookiecode-sync/internal/types"
)

// Define common styles
var (
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("110"))
)

// maxListedFailures caps the failures printed in the summary box
const maxListedFailures = 10

// RunStats holds what the summary box shows
type RunStats struct {
	Counts       types.Counts
	Failures     []types.Failure
	Batches      int
	DispatchMode string
	FromCache    bool
	Elapsed      time.Duration
	Err          error
}

// RenderSummary renders the end-of-run statistics box
func RenderSummary(s RunStats) string {
	source := "listing"
	if s.FromCache {
		source = "cache"
	}

	planned := s.Counts.CustomersPlanned + s.Counts.WebsitesPlanned
	stats := []struct {
		label string
		value string
	}{
		{"Edit URLs", fmt.Sprintf("%d customers, %d websites (%s)", s.Counts.CustomersPlanned, s.Counts.WebsitesPlanned, source)},
		{"Scraped", fmt.Sprintf("%d/%d", s.Counts.Records, planned)},
		{"Failed", fmt.Sprintf("%d", s.Counts.Failed)},
		{"Webhook", fmt.Sprintf("%d message(s), %s mode", s.Batches, s.DispatchMode)},
		{"Elapsed Time", formatElapsed(s.Elapsed)},
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("Sync Summary") + "\n\n")

	for _, stat := range stats {
		fmt.Fprintf(&content, "%s %s\n",
			labelStyle.Width(14).Render(stat.label+":"),
			valueStyle.Render(stat.value),
		)
	}

	if len(s.Failures) > 0 {
		content.WriteString("\nFailed pages:\n")
		for i, f := range s.Failures {
			if i == maxListedFailures {
				content.WriteString(infoStyle.Render(fmt.Sprintf("... and %d more", len(s.Failures)-i)) + "\n")
				break
			}
			content.WriteString(infoStyle.Render(fmt.Sprintf("- %s %s", f.Type, f.URL)) + "\n")
		}
	}

	if s.Err != nil {
		content.WriteString("\n" + errorStyle.Render("Error: "+s.Err.Error()) + "\n")
	}

	return borderStyle.Render(strings.TrimRight(content.String(), "\n"))
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d",
		int(d.Hours()),
		int(d.Minutes())%60,
		int(d.Seconds())%60,
	)
}
