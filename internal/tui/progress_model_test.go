package tui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/rshade/cryptoassets-importer/internal/engine/batch"
	"github.com/rshade/cryptoassets-importer/internal/importer"
)

func snapshot(total, succeeded, failed int) batch.ProgressSnapshot {
	settled := succeeded + failed
	return batch.ProgressSnapshot{
		TotalItems:      total,
		SucceededItems:  succeeded,
		FailedItems:     failed,
		PercentComplete: float64(settled) / float64(total) * 100,
	}
}

func TestNewProgressModel(t *testing.T) {
	m := NewProgressModel([]string{"erc20", "bep20", "erc20"})
	require.Len(t, m.rows, 2)
	assert.Equal(t, len("erc20"), m.labelWidth)
	assert.Nil(t, m.Init())

	view := m.View()
	assert.Contains(t, view, "Importing assets")
	assert.Equal(t, 2, strings.Count(view, "waiting"))
	assert.Contains(t, view, "q: cancel")
}

func TestProgressModel_Update(t *testing.T) {
	tests := []struct {
		name            string
		msg             tea.Msg
		wantQuit        bool
		wantInterrupted bool
		wantDone        bool
	}{
		{name: "ctrl+c", msg: tea.KeyMsg{Type: tea.KeyCtrlC}, wantQuit: true, wantInterrupted: true},
		{name: "esc", msg: tea.KeyMsg{Type: tea.KeyEsc}, wantQuit: true, wantInterrupted: true},
		{name: "q", msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}, wantQuit: true, wantInterrupted: true},
		{name: "other key", msg: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}}},
		{name: "done", msg: DoneMsg{}, wantQuit: true, wantDone: true},
		{name: "resize", msg: tea.WindowSizeMsg{Width: 120, Height: 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewProgressModel([]string{"erc20"})
			_, cmd := m.Update(tt.msg)

			if tt.wantQuit {
				require.NotNil(t, cmd)
				assert.Equal(t, tea.Quit(), cmd())
			} else {
				assert.Nil(t, cmd)
			}
			assert.Equal(t, tt.wantInterrupted, m.Interrupted())
			assert.Equal(t, tt.wantDone, m.done)
		})
	}
}

func TestProgressModel_Resize(t *testing.T) {
	m := NewProgressModel([]string{"erc20"})
	m.Update(tea.WindowSizeMsg{Width: 120})
	wide := m.bar.Width

	m.Update(tea.WindowSizeMsg{Width: 10})
	assert.Equal(t, progressMinBarWidth, m.bar.Width)
	assert.Greater(t, wide, m.bar.Width)
}

func TestProgressModel_AppliesSnapshots(t *testing.T) {
	m := NewProgressModel([]string{"erc20", "currencies"})

	m.Update(ProgressMsg{Importer: "erc20", Snapshot: snapshot(4, 2, 1)})
	m.Update(ProgressMsg{Importer: "erc20", Snapshot: snapshot(4, 1, 1)})

	row := m.rows[0]
	assert.True(t, row.started)
	assert.Equal(t, 3, row.snapshot.Settled(), "an older snapshot must not replace a newer one")

	view := m.View()
	assert.Contains(t, view, "3/4")
	assert.Contains(t, view, "(1 failed)")
	assert.Equal(t, 1, strings.Count(view, "waiting"))

	m.Update(ProgressMsg{Importer: "late", Snapshot: snapshot(1, 1, 0)})
	require.Len(t, m.rows, 3)
	assert.Contains(t, m.View(), "late")

	assert.NotContains(t, m.View(), "left", "no estimate before a rate is known")

	running := snapshot(100, 40, 0)
	running.ItemsPerSecond = 85
	running.Remaining = 4200 * time.Millisecond
	m.Update(ProgressMsg{Importer: "currencies", Snapshot: running})
	assert.Contains(t, m.View(), "85/s ~4s left")

	m.Update(DoneMsg{})
	assert.NotContains(t, m.View(), "q: cancel")
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func TestProgressCallback(t *testing.T) {
	s := &recordingSender{}
	cb := ProgressCallback(s)
	cb("erc20", snapshot(2, 1, 0))

	require.Len(t, s.msgs, 1)
	msg, ok := s.msgs[0].(ProgressMsg)
	require.True(t, ok)
	assert.Equal(t, "erc20", msg.Importer)
	assert.Equal(t, 1, msg.Snapshot.SucceededItems)
}

func TestRenderSummary(t *testing.T) {
	summary := &importer.Summary{
		RunID:    "01J0000000000000000000TEST",
		Duration: 1234 * time.Millisecond,
		Reports: []importer.Report{
			{Importer: "erc20", Discovered: 12000, Loaded: 11998, Failed: 2, Output: "/out/erc20.json"},
			{Importer: "currencies-exchange", Discovered: 80, Loaded: 70, Dropped: 10, Output: "/out/currencies-exchange.json"},
			{Importer: "bep20", Err: errors.New("listing assets: no such file")},
		},
	}

	out := RenderSummary(summary, SummaryOptions{})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 6)

	assert.True(t, strings.HasPrefix(lines[0], "IMPORTER"))
	assert.Contains(t, lines[1], "! partial")
	assert.Contains(t, lines[1], "12,000")
	assert.Contains(t, lines[1], "11,998")
	assert.Contains(t, lines[1], "erc20.json")
	assert.NotContains(t, lines[1], "/out/")
	assert.Contains(t, lines[2], "✓ ok")
	assert.Contains(t, lines[3], "✗ error")
	assert.Contains(t, lines[3], "no such file")
	assert.Contains(t, lines[4], "12,080")
	assert.Contains(t, lines[4], "1.23s")
	assert.Equal(t, "run 01J0000000000000000000TEST", lines[5])

	// Columns line up: STATUS starts at the same offset in every row.
	offset := strings.Index(lines[0], "STATUS")
	assert.Equal(t, offset, strings.Index(lines[1], "! partial"))
	assert.Equal(t, offset, strings.Index(lines[3], "✗ error"))
}

func TestRenderSummary_Language(t *testing.T) {
	summary := &importer.Summary{Reports: []importer.Report{{Importer: "x", Discovered: 1500}}}
	out := RenderSummary(summary, SummaryOptions{Language: language.German})
	assert.Contains(t, out, "1.500")
	assert.NotContains(t, out, "run ")
}
