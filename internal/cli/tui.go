package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/nocsched/pkg/occupancy"
	"github.com/matzehuels/nocsched/pkg/schedule"
)

// List styles
var (
	listDimStyle = StyleDim
	lateStyle    = styleFail
)

// =============================================================================
// ScheduleModel - Interactive schedule browser
// =============================================================================

// ScheduleModel is the bubbletea model for browsing a schedule.
type ScheduleModel struct {
	Title     string
	Entries   []schedule.Entry
	Cursor    int
	Height    int
	Offset    int
	ByRelease bool
}

// NewScheduleModel creates a browser over the entries of s.
func NewScheduleModel(title string, s *schedule.Schedule) ScheduleModel {
	entries := make([]schedule.Entry, len(s.Entries))
	copy(entries, s.Entries)
	return ScheduleModel{
		Title:   title,
		Entries: entries,
		Height:  15,
	}
}

func (m ScheduleModel) Init() tea.Cmd {
	return nil
}

func (m ScheduleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Entries)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		case "end", "G":
			m.Cursor = max(len(m.Entries)-1, 0)
			m.Offset = max(m.Cursor-m.Height+1, 0)
		case "s":
			m.ByRelease = !m.ByRelease
			m.sort()
			m.Cursor, m.Offset = 0, 0
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 10
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

// sort orders entries by release time or by packet name.
func (m *ScheduleModel) sort() {
	sort.SliceStable(m.Entries, func(i, j int) bool {
		a, b := m.Entries[i], m.Entries[j]
		if m.ByRelease && a.Release != b.Release {
			return a.Release < b.Release
		}
		return packetLess(a.Name, b.Name)
	})
}

func (m ScheduleModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	order := "name"
	if m.ByRelease {
		order = "release"
	}
	b.WriteString(listDimStyle.Render("↑/↓ navigate  s sort (" + order + ")  q quit"))
	b.WriteString("\n\n")

	if len(m.Entries) == 0 {
		b.WriteString(listDimStyle.Render("  no packets"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Entries))
	b.WriteString(scheduleTable(m.Entries[m.Offset:end], m.Cursor-m.Offset))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Entries))))
	b.WriteString("\n")
	b.WriteString(entryDetail(m.Entries[m.Cursor]))

	return b.String()
}

// scheduleTable renders entries; cursor is the highlighted row or -1.
func scheduleTable(entries []schedule.Entry, cursor int) string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		mark := "  "
		if i == cursor {
			mark = "▸ "
		}
		rows[i] = []string{
			mark,
			e.Name,
			e.Source.Node + " " + arrow + " " + e.Target.Node,
			fmt.Sprintf("[%d, %d]", e.MinStart, e.AbsDeadline),
			strconv.Itoa(e.Release),
			finishText(e),
		}
	}

	headers := []string{"", "Packet", "Route", "Window", "Release", "Finish"}
	return newTable(headers, rows, func(row, col int) lipgloss.Style {
		base := lipgloss.NewStyle()
		if row < 0 || row >= len(entries) {
			return base
		}
		if late(entries[row]) {
			base = base.Foreground(colorFail)
		} else if col >= 3 {
			base = base.Foreground(colorMuted)
		}
		if row == cursor {
			return base.Bold(true)
		}
		return base
	}).Render()
}

// entryDetail describes one entry below the table.
func entryDetail(e schedule.Entry) string {
	var b strings.Builder
	line := func(key, value string) {
		b.WriteString("  " + listDimStyle.Render(fmt.Sprintf("%-10s", key)) + " " + value + "\n")
	}
	line("Flow", e.Flow+" ("+e.Source.Task+" "+arrow+" "+e.Target.Task+")")
	line("Payload", fmt.Sprintf("%d bytes, %d flits", e.DataSizeBytes, e.NumFlits))
	if e.NetTime != occupancy.Unused {
		line("Network", fmt.Sprintf("%d cycles", e.NetTime))
		slack := e.AbsDeadline - e.Finish()
		text := strconv.Itoa(slack)
		if slack < 0 {
			text = lateStyle.Render(text)
		}
		line("Slack", text)
	}
	return b.String()
}

func finishText(e schedule.Entry) string {
	if e.NetTime == occupancy.Unused {
		return "-"
	}
	return strconv.Itoa(e.Finish())
}

// late reports whether e violates its timing window.
func late(e schedule.Entry) bool {
	if e.Release < e.MinStart {
		return true
	}
	return e.NetTime != occupancy.Unused && e.Finish() > e.AbsDeadline
}

// packetLess orders "flow:index" names by flow, then numerically by index.
func packetLess(a, b string) bool {
	fa, ia, okA := splitPacketName(a)
	fb, ib, okB := splitPacketName(b)
	if !okA || !okB || fa != fb {
		return a < b
	}
	return ia < ib
}

func splitPacketName(name string) (string, int, bool) {
	i := strings.LastIndex(name, ":")
	if i < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return "", 0, false
	}
	return name[:i], n, true
}
