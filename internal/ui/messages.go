package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// Symbols
const (
	SuccessSymbol = "✓"
	ErrorSymbol   = "✗"
	InfoSymbol    = "ℹ"
	WarningSymbol = "⚠"
	BulletSymbol  = "•"
	NotSymbol     = "◌"
)

// PrintLogo prints the forge banner.
func PrintLogo() {
	if TerminalWidth() < 80 || IsCI() {
		fmt.Println(TitleStyle.Render("forge"))
		return
	}

	logo := `█▀▀ █▀█ █▀█ █▀▀ █▀▀
█▀░ █▄█ █▀▄ █▄█ ██▄`

	colors := []string{PrimaryColor, SecondaryColor}
	for i, line := range strings.Split(logo, "\n") {
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color(colors[i%len(colors)])).Render(line))
	}
	fmt.Println(SubtitleStyle.Render("on-chain program lifecycle"))
}

// PrintSuccess prints a success message.
func PrintSuccess(message string) {
	fmt.Println(SuccessStyle.Bold(true).Render(SuccessSymbol + " " + message))
}

// PrintError prints an error message in a box on stderr. Long diagnostics,
// such as toolchain output, are wrapped to the terminal width.
func PrintError(message string) {
	fmt.Fprintln(os.Stderr, RenderError(message, TerminalWidth()))
}

// RenderError renders message as PrintError does, wrapped to width.
func RenderError(message string, width int) string {
	// border and padding take four columns
	wrapped := wordwrap.String(ErrorSymbol+" Error: "+message, max(width-4, 20))
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ErrorColor)).
		Padding(0, 1).
		Render(ErrorStyle.Bold(true).Render(wrapped))
}

// PrintWarning prints a warning message.
func PrintWarning(message string) {
	fmt.Println(WarningStyle.Bold(true).Render(WarningSymbol + " " + message))
}

// PrintInfo prints a label and value.
func PrintInfo(label, value string) {
	fmt.Printf("%s %s\n",
		DimStyle.Bold(true).Render(label+":"),
		InfoStyle.Render(value))
}

// PrintMetadata prints metadata with styled label and value.
func PrintMetadata(label, value string) {
	if value == "" {
		fmt.Printf("%s %s\n",
			InfoStyle.Render(InfoSymbol),
			DimStyle.Bold(true).Render(label))
	} else {
		fmt.Printf("%s %s %s\n",
			InfoStyle.Render(InfoSymbol),
			DimStyle.Bold(true).Render(label),
			InfoStyle.Render(value))
	}
}

// PrintEmptyState shows a message when no data is available.
func PrintEmptyState(message string) {
	fmt.Println(DimStyle.Render(NotSymbol + " " + message))
}

// StyleDeployed renders a deployment flag.
func StyleDeployed(deployed bool) string {
	if deployed {
		return SuccessStyle.Render(SuccessSymbol + " deployed")
	}
	return DimStyle.Render(NotSymbol + " not deployed")
}

// StyleCheck renders a doctor check result.
func StyleCheck(ok bool) string {
	if ok {
		return SuccessStyle.Render(SuccessSymbol)
	}
	return ErrorStyle.Render(ErrorSymbol)
}

// Table represents a formatted table with headers and rows.
type Table struct {
	Headers     []string
	Rows        [][]string
	ColumnWidth []int
}

// NewTable creates a new table with the given headers.
func NewTable(headers []string) *Table {
	columnWidth := make([]int, len(headers))
	for i, h := range headers {
		columnWidth[i] = len(h) + 4
	}
	return &Table{
		Headers:     headers,
		Rows:        [][]string{},
		ColumnWidth: columnWidth,
	}
}

// AddRow adds a new row to the table.
func (t *Table) AddRow(values ...string) {
	if len(values) != len(t.Headers) {
		panic(fmt.Sprintf("Row has %d values, expected %d", len(values), len(t.Headers)))
	}

	for i, v := range values {
		if len(v)+4 > t.ColumnWidth[i] {
			t.ColumnWidth[i] = len(v) + 4
		}
	}

	t.Rows = append(t.Rows, values)
}

// RenderTable renders the table without a border.
func RenderTable(table *Table) string {
	headerFormat := ""
	for i, width := range table.ColumnWidth {
		headerFormat += fmt.Sprintf("%%-%ds", width)
		if i < len(table.ColumnWidth)-1 {
			headerFormat += " "
		}
	}

	headerText := fmt.Sprintf(headerFormat, toInterfaceSlice(table.Headers)...)
	rows := []string{
		TableHeaderStyle.Render(headerText),
		DimStyle.Render(strings.Repeat("─", len(headerText))),
	}

	for i, row := range table.Rows {
		style := TableRowStyle
		if i%2 == 1 {
			style = style.Background(lipgloss.Color(AlternatingRowDark))
		}
		rows = append(rows, style.Render(fmt.Sprintf(headerFormat, toInterfaceSlice(row)...)))
	}

	return fmt.Sprintf("\n%s\n", lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func toInterfaceSlice(ss []string) []interface{} {
	is := make([]interface{}, len(ss))
	for i, s := range ss {
		is[i] = s
	}
	return is
}
