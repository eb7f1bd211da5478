package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rshade/cryptoassets-importer/internal/engine/batch"
)

// Default dimensions for the progress model.
const (
	progressDefaultWidth = 80
	progressMinBarWidth  = 10
	progressLabelPadding = 2
	percentDivisor       = 100
)

// ProgressMsg carries a runner snapshot for one importer.
type ProgressMsg struct {
	Importer string
	Snapshot batch.ProgressSnapshot
}

// DoneMsg tells the model the run has finished.
type DoneMsg struct{}

// importerRow is the display state of one importer.
type importerRow struct {
	name     string
	snapshot batch.ProgressSnapshot
	started  bool
}

// ProgressModel is the Bubble Tea model showing one progress bar per importer.
type ProgressModel struct {
	rows  []*importerRow
	index map[string]int
	bar   progress.Model

	labelWidth  int
	width       int
	done        bool
	interrupted bool
}

// NewProgressModel creates a model with one row per importer, in order.
func NewProgressModel(importers []string) *ProgressModel {
	m := &ProgressModel{
		index: make(map[string]int, len(importers)),
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		width: progressDefaultWidth,
	}
	for _, name := range importers {
		if _, dup := m.index[name]; dup {
			continue
		}
		m.index[name] = len(m.rows)
		m.rows = append(m.rows, &importerRow{name: name})
		m.labelWidth = max(m.labelWidth, len(name))
	}
	m.resize()
	return m
}

// Init implements tea.Model.
func (m *ProgressModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.interrupted = true
			return m, tea.Quit
		case tea.KeyRunes:
			if msg.String() == "q" {
				m.interrupted = true
				return m, tea.Quit
			}
		}
		return m, nil

	case ProgressMsg:
		m.apply(msg)
		return m, nil

	case DoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// apply records a snapshot. Snapshots may arrive out of order from
// concurrent lanes, so a row never moves backwards.
func (m *ProgressModel) apply(msg ProgressMsg) {
	i, ok := m.index[msg.Importer]
	if !ok {
		m.index[msg.Importer] = len(m.rows)
		m.rows = append(m.rows, &importerRow{name: msg.Importer})
		m.labelWidth = max(m.labelWidth, len(msg.Importer))
		m.resize()
		i = len(m.rows) - 1
	}
	row := m.rows[i]
	if row.started && msg.Snapshot.Settled() < row.snapshot.Settled() {
		return
	}
	row.snapshot = msg.Snapshot
	row.started = true
}

func (m *ProgressModel) resize() {
	// label, bar, then " 1234/5678 (12 failed) 850/s ~12s left"
	const countsWidth = 40
	m.bar.Width = max(m.width-m.labelWidth-countsWidth-progressLabelPadding, progressMinBarWidth)
}

// View implements tea.Model.
func (m *ProgressModel) View() string {
	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render("Importing assets"))
	sb.WriteString("\n\n")

	for _, row := range m.rows {
		label := fmt.Sprintf("%-*s", m.labelWidth, row.name)
		sb.WriteString(LabelStyle.Render(label))
		sb.WriteString("  ")

		if !row.started {
			sb.WriteString(m.bar.ViewAs(0))
			sb.WriteString(MutedStyle.Render(" waiting"))
			sb.WriteString("\n")
			continue
		}

		snap := row.snapshot
		sb.WriteString(m.bar.ViewAs(snap.PercentComplete / percentDivisor))
		sb.WriteString(fmt.Sprintf(" %d/%d", snap.Settled(), snap.TotalItems))
		if snap.FailedItems > 0 {
			sb.WriteString(WarningStyle.Render(fmt.Sprintf(" (%d failed)", snap.FailedItems)))
		}
		if snap.Remaining > 0 {
			sb.WriteString(MutedStyle.Render(fmt.Sprintf(" %.0f/s ~%s left",
				snap.ItemsPerSecond, snap.Remaining.Round(time.Second))))
		}
		sb.WriteString("\n")
	}

	if !m.done && !m.interrupted {
		sb.WriteString("\n")
		sb.WriteString(MutedStyle.Render("q: cancel"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Interrupted reports whether the user quit the model.
func (m *ProgressModel) Interrupted() bool {
	return m.interrupted
}

// Sender is the part of *tea.Program the progress callback needs.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgressCallback returns a callback that forwards importer progress to p.
func ProgressCallback(p Sender) func(importer string, snapshot batch.ProgressSnapshot) {
	return func(importer string, snapshot batch.ProgressSnapshot) {
		p.Send(ProgressMsg{Importer: importer, Snapshot: snapshot})
	}
}
