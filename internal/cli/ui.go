package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/nocsched/pkg/pipeline"
)

var (
	colorAccent = lipgloss.Color("36")
	colorOK     = lipgloss.Color("35")
	colorWarn   = lipgloss.Color("220")
	colorFail   = lipgloss.Color("167")
	colorMuted  = lipgloss.Color("240")
	colorLabel  = lipgloss.Color("245")
)

// Styles shared by the command output and the schedule viewer.
var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	StyleNumber    = StyleHighlight
	StyleDim       = lipgloss.NewStyle().Foreground(colorMuted)
)

var (
	styleLabel   = lipgloss.NewStyle().Foreground(colorLabel).Width(12)
	styleOK      = lipgloss.NewStyle().Foreground(colorOK)
	styleWarn    = lipgloss.NewStyle().Foreground(colorWarn)
	styleFail    = lipgloss.NewStyle().Foreground(colorFail)
	styleInfo    = lipgloss.NewStyle().Foreground(colorLabel)
	styleSpinner = StyleHighlight
	styleHeader  = lipgloss.NewStyle().Foreground(colorLabel).Bold(true)
)

const arrow = "→"

// newTable returns a rounded table whose header row is styled; cell
// styles other than the header come from cell.
func newTable(headers []string, rows [][]string, cell func(row, col int) lipgloss.Style) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			return cell(row, col)
		})
}

// cacheLabel renders whether a stage result was served from the cache.
func cacheLabel(hit bool) string {
	if hit {
		return "cached"
	}
	return "fresh"
}

// printStatus prints a formatted message behind a colored marker.
func printStatus(marker string, style lipgloss.Style, format string, args ...any) {
	fmt.Println(style.Render(marker) + " " + fmt.Sprintf(format, args...))
}

func printSuccess(format string, args ...any) { printStatus("✓", styleOK, format, args...) }

func printError(format string, args ...any) { printStatus("✗", styleFail, format, args...) }

func printInfo(format string, args ...any) { printStatus("›", styleInfo, format, args...) }

// printWarning colors the message itself as well, since warnings about
// deadline windows and skipped links are easy to miss in long output.
func printWarning(format string, args ...any) {
	printStatus("!", styleWarn, "%s", styleWarn.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile reports a written output file.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(arrow) + " " + path)
}

func printKeyValue(key, value string) {
	fmt.Println(styleLabel.Render(key) + " " + value)
}

// printStats prints the model summary on one line, ending with whether
// the occupancy model came from the cache.
func printStats(s pipeline.Stats, cached bool) {
	var parts []string
	if s.NumFlows > 0 {
		parts = append(parts, fmt.Sprintf("%d flows", s.NumFlows))
	}
	parts = append(parts,
		fmt.Sprintf("%d packets", s.NumPackets),
		fmt.Sprintf("%d/%d links used", s.UsedLinks, s.NumLinks),
		fmt.Sprintf("%d cells", s.UsedCells),
	)
	for i, p := range parts {
		parts[i] = StyleDim.Render(p)
	}
	if cached {
		parts = append(parts, styleOK.Render("cached"))
	} else {
		parts = append(parts, styleInfo.Render("fresh"))
	}
	fmt.Println("  " + strings.Join(parts, StyleDim.Render(" · ")))
}

func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + StyleHighlight.Render(cmd))
}

func printNewline() {
	fmt.Println()
}
