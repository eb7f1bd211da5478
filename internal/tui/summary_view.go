package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rshade/cryptoassets-importer/internal/importer"
)

const (
	columnGap       = 2
	durationRounder = 10 * time.Millisecond
)

// SummaryOptions control how RenderSummary formats its table.
type SummaryOptions struct {
	// Color enables lipgloss styling. Plain text is used otherwise.
	Color bool

	// Language selects the number format, English when unset.
	Language language.Tag
}

// summaryColumns are the table headers in display order.
var summaryColumns = []string{ //nolint:gochecknoglobals // Fixed table layout.
	"IMPORTER", "STATUS", "DISCOVERED", "LOADED", "FAILED", "DROPPED", "OUTPUT",
}

// RenderSummary renders one row per importer plus a totals row.
func RenderSummary(summary *importer.Summary, opts SummaryOptions) string {
	tag := opts.Language
	if tag == language.Und {
		tag = language.English
	}
	p := message.NewPrinter(tag)

	style := func(s lipgloss.Style, text string) string {
		if !opts.Color {
			return text
		}
		return s.Render(text)
	}

	rows := make([][]string, 0, len(summary.Reports)+1)
	statuses := make([]lipgloss.Style, 0, len(summary.Reports)+1)
	for _, r := range summary.Reports {
		status, st := reportStatus(r)
		output := "-"
		if r.Output != "" {
			output = filepath.Base(r.Output)
		}
		if r.Err != nil {
			output = r.Err.Error()
		}
		rows = append(rows, []string{
			r.Importer,
			status,
			p.Sprintf("%d", r.Discovered),
			p.Sprintf("%d", r.Loaded),
			p.Sprintf("%d", r.Failed),
			p.Sprintf("%d", r.Dropped),
			output,
		})
		statuses = append(statuses, st)
	}

	totals := summary.Totals()
	rows = append(rows, []string{
		"total",
		"",
		p.Sprintf("%d", totals.Discovered),
		p.Sprintf("%d", totals.Loaded),
		p.Sprintf("%d", totals.Failed),
		p.Sprintf("%d", totals.Dropped),
		summary.Duration.Round(durationRounder).String(),
	})
	statuses = append(statuses, MutedStyle)

	widths := make([]int, len(summaryColumns))
	for i, h := range summaryColumns {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string, render func(i int, padded string) string) {
		for i, cell := range cells {
			padded := cell
			if i < len(cells)-1 {
				padded += strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+columnGap)
			}
			sb.WriteString(render(i, padded))
		}
		sb.WriteString("\n")
	}

	writeRow(summaryColumns, func(_ int, padded string) string {
		return style(HeaderStyle, padded)
	})
	for n, row := range rows {
		last := n == len(rows)-1
		writeRow(row, func(i int, padded string) string {
			switch {
			case last:
				return style(MutedStyle, padded)
			case i == 1:
				return style(statuses[n], padded)
			default:
				return padded
			}
		})
	}

	if summary.RunID != "" {
		sb.WriteString(style(MutedStyle, fmt.Sprintf("run %s", summary.RunID)))
		sb.WriteString("\n")
	}
	return sb.String()
}

func reportStatus(r importer.Report) (string, lipgloss.Style) {
	switch {
	case r.Err != nil:
		return IconFailed + " error", CriticalStyle
	case r.Failed > 0:
		return IconWarning + " partial", WarningStyle
	default:
		return IconOK + " ok", OKStyle
	}
}
