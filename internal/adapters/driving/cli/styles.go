package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/proofscan/internal/app"
	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// Palette for command output. Colours degrade to plain text when the
// output is not a terminal.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourError   = lipgloss.Color("#F38BA8")
	colourBorder  = lipgloss.Color("#45475A")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	labelStyle   = lipgloss.NewStyle().Foreground(colourMuted).Width(18)
	mutedStyle   = lipgloss.NewStyle().Foreground(colourMuted)
	successStyle = lipgloss.NewStyle().Foreground(colourSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colourWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colourError)
	boxStyle     = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colourBorder).
			Padding(0, 1)
)

// renderSummary writes a boxed run summary.
func renderSummary(w io.Writer, s *domain.RunSummary) {
	var b strings.Builder

	status := successStyle.Render("complete")
	if !s.Complete() {
		status = warningStyle.Render("incomplete")
	}
	fmt.Fprintf(&b, "%s %s\n\n", titleStyle.Render("Run "+s.RunID), status)

	line := func(label string, value any) {
		fmt.Fprintf(&b, "%s%v\n", labelStyle.Render(label), value)
	}
	line("Folder", s.RootFolderID)
	line("Destination", s.Destination)
	line("Duration", s.Duration().Round(100*time.Millisecond))
	line("Files visited", s.FilesVisited)
	line("Rows written", s.RowsWritten)
	if s.RowsUndelivered > 0 {
		line("Rows undelivered", errorStyle.Render(fmt.Sprint(s.RowsUndelivered)))
		line("Rows spooled", s.RowsSpooled)
	}
	line("Folders skipped", s.FoldersSkipped())
	line("Errors", s.ErrorCount())

	for _, f := range s.SkippedFolders {
		where := f.Path
		if where == "" {
			where = f.FolderID
		}
		fmt.Fprintf(&b, "\n%s %s: %s", warningStyle.Render("skipped"), where, mutedStyle.Render(f.Cause))
	}

	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(b.String(), "\n")))
}

// checkMark renders a setup check status.
func checkMark(status app.CheckStatus) string {
	switch status {
	case app.CheckPass:
		return successStyle.Render("[ok]  ")
	case app.CheckWarn:
		return warningStyle.Render("[warn]")
	case app.CheckFail:
		return errorStyle.Render("[fail]")
	default:
		return mutedStyle.Render("[skip]")
	}
}
