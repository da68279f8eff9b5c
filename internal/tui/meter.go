// SPDX-License-Identifier: MIT
/*
Package tui renders terminal views with Bubble Tea: a live bar meter fed from
the latest published snapshot and an input device picker.

The meter never touches the analyzer. It polls a transport.Reader on a
ticker and skips redraws when the sequence has not moved.
*/
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kitkacy/PunchyAudio/internal/transport"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultRefreshInterval is the meter poll period (~30Hz).
const DefaultRefreshInterval = 33 * time.Millisecond

const (
	defaultMeterHeight = 16
	chromeLines        = 4 // title, blank, blank, status
)

var (
	barStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	peakStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E8B339"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C5C5C"))
)

type meterKeyMap struct {
	Quit  key.Binding
	Pause key.Binding
}

var meterKeys = meterKeyMap{
	Quit:  key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	Pause: key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause")),
}

type tickMsg time.Time

// MeterModel is the Bubble Tea model for the live bar meter.
type MeterModel struct {
	source   transport.Reader
	interval time.Duration

	bars    []float64
	snap    transport.Snapshot
	seen    bool
	redraws uint64
	paused  bool

	width  int
	height int
}

// NewMeterModel returns a meter reading up to barCount bars from source.
func NewMeterModel(source transport.Reader, barCount int, interval time.Duration) MeterModel {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return MeterModel{
		source:   source,
		interval: interval,
		bars:     make([]float64, barCount),
		height:   defaultMeterHeight + chromeLines,
	}
}

func (m MeterModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the poll ticker.
func (m MeterModel) Init() tea.Cmd {
	return m.tick()
}

// Update handles ticks, resizes and key presses.
func (m MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, meterKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, meterKeys.Pause):
			m.paused = !m.paused
		}

	case tickMsg:
		if !m.paused {
			m.poll()
		}
		return m, m.tick()
	}

	return m, nil
}

// poll copies the latest snapshot if its sequence is new.
func (m *MeterModel) poll() {
	snap, ok := m.source.LoadInto(m.bars)
	if !ok || (m.seen && snap.Sequence == m.snap.Sequence) {
		return
	}
	m.bars = snap.Bars
	m.snap = snap
	m.seen = true
	m.redraws++
}

// Redraws returns how many new snapshots the meter has picked up.
func (m MeterModel) Redraws() uint64 { return m.redraws }

// Bars returns the bars currently displayed.
func (m MeterModel) Bars() []float64 { return m.bars }

// View renders the bars as vertical columns, tallest row first.
func (m MeterModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("PunchyAudio"))
	sb.WriteString("\n\n")

	if !m.seen {
		sb.WriteString(infoStyle.Render("Waiting for audio..."))
		sb.WriteString("\n\n")
		sb.WriteString(m.status())
		return sb.String()
	}

	rows := max(m.height-chromeLines, 1)
	colWidth := 1
	if n := len(m.snap.Bars); n > 0 && m.width > 0 {
		colWidth = max(m.width/n-1, 1)
	}
	cell := strings.Repeat("█", colWidth)
	blank := strings.Repeat(" ", colWidth)

	for row := rows; row >= 1; row-- {
		threshold := float64(row) / float64(rows)
		for _, v := range m.snap.Bars {
			filled := v >= threshold-0.5/float64(rows)
			switch {
			case filled && row == rows:
				sb.WriteString(peakStyle.Render(cell))
			case filled:
				sb.WriteString(barStyle.Render(cell))
			default:
				sb.WriteString(blank)
			}
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}

	sb.WriteByte('\n')
	sb.WriteString(m.status())
	return sb.String()
}

func (m MeterModel) status() string {
	state := "live"
	if m.paused {
		state = "paused"
	}
	line := fmt.Sprintf("seq %d • %d bars • %s", m.snap.Sequence, len(m.snap.Bars), state)
	help := fmt.Sprintf("%s: %s • %s: %s",
		meterKeys.Pause.Help().Key, meterKeys.Pause.Help().Desc,
		meterKeys.Quit.Help().Key, meterKeys.Quit.Help().Desc)
	return dimStyle.Render(line) + "  " + infoStyle.Render(help)
}

// RunMeter shows the meter until the user quits or ctx is cancelled. Both
// end the program without error.
func RunMeter(ctx context.Context, source transport.Reader, barCount int, interval time.Duration) error {
	p := tea.NewProgram(
		NewMeterModel(source, barCount, interval),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
