package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guregu/null/v5"

	"stockanalyzer/internal/app"
	"stockanalyzer/internal/export"
	"stockanalyzer/internal/format"
	"stockanalyzer/internal/indicators"
)

// Report styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			MarginTop(1)

	priceStyle = lipgloss.NewStyle().
			Bold(true)

	upStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	downStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Width(18)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

// RenderReport writes the terminal report for an analysis. historyRows limits
// the recent-history table; zero omits it.
func RenderReport(w io.Writer, a *app.Analysis, historyRows int) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s)", a.Profile.Name, a.Symbol)))
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(fmt.Sprintf("Exchange: %s | Sector: %s | Source: %s | Period: %s",
		a.Profile.Exchange, a.Profile.Sector, a.Source, a.Period)))
	b.WriteString("\n\n")

	change := upStyle
	if !a.Quote.Up() {
		change = downStyle
	}
	b.WriteString(priceStyle.Render(format.Currency(nullFloat(a.Quote.Price))))
	b.WriteString("  ")
	b.WriteString(change.Render(a.Quote.ChangeText()))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Key Financial Metrics"))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(metricLines(a.Metrics)))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Technical Indicators"))
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(indicatorLines(a.Result)))
	b.WriteString("\n")

	if historyRows > 0 {
		b.WriteString(sectionStyle.Render("Historical Data"))
		b.WriteString("\n")
		b.WriteString(historyTable(a.Result, historyRows))
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("Company Summary"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Width(80).Render(a.Profile.Summary))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func metricLines(metrics []app.Metric) string {
	lines := make([]string, len(metrics))
	for i, m := range metrics {
		lines[i] = labelStyle.Render(m.Label) + m.Value
	}
	return strings.Join(lines, "\n")
}

func indicatorLines(res *indicators.Result) string {
	if res == nil || len(res.Columns) == 0 {
		return subtleStyle.Render("No indicators selected")
	}
	lines := make([]string, 0, len(res.Columns)+1)
	for _, name := range res.ColumnNames() {
		value := format.Ratio(res.Latest(name))
		if res.WarmingUp(name) {
			value = fmt.Sprintf("%s (needs %d bars)", format.NotAvailable, res.RequiredBars(name))
		}
		lines = append(lines, labelStyle.Render(name)+value)
	}
	if zone, value, ok := res.RSIZone(); ok {
		lines = append(lines, labelStyle.Render("RSI Zone")+fmt.Sprintf("%s (%.2f)", zone, value))
	}
	return strings.Join(lines, "\n")
}

// historyTable renders the most recent rows, newest first.
func historyTable(res *indicators.Result, rows int) string {
	header := []string{"Date", "Open", "High", "Low", "Close", "Volume"}
	lines := []string{strings.Join(padRow(header), " ")}
	n := len(res.Bars)
	for k := 0; k < rows && k < n; k++ {
		bar := res.Bars[n-1-k]
		row := []string{
			bar.Time.Format(export.DateLayout),
			format.Ratio(nullFloat(bar.Open)),
			format.Ratio(nullFloat(bar.High)),
			format.Ratio(nullFloat(bar.Low)),
			format.Ratio(nullFloat(bar.Close)),
			format.Magnitude(nullFloat(bar.Volume)),
		}
		lines = append(lines, strings.Join(padRow(row), " "))
	}
	return strings.Join(lines, "\n")
}

func padRow(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = fmt.Sprintf("%12s", c)
	}
	return out
}

// RenderError formats a command failure for the terminal.
func RenderError(err error) string {
	return errorStyle.Render("Error: " + err.Error())
}

func nullFloat(v float64) null.Float { return null.FloatFrom(v) }
