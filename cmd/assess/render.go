package main

import (
	"fmt"
	"math"
	"strings"

	"go-image-assessor/internal/operation"
	"go-image-assessor/pkg/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("202"))
)

// renderResponse draws the metric table followed by issues and the verdict
func renderResponse(resp *models.AssessmentResponse) string {
	rows := make([][]string, 0, len(resp.Results))
	failed := make(map[int]bool)
	for i, r := range resp.Results {
		value := r.Error
		if r.Value != nil {
			value = formatScore(float64(*r.Value))
		} else {
			failed[i] = true
		}
		rows = append(rows, []string{r.Metric, value, fmt.Sprintf("%.3fs", r.DurationSec)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("METRIC", "VALUE", "TIME").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1 && failed[row]:
				return errorStyle
			default:
				return cellStyle
			}
		})

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%dx%d, %d ch, %s) vs %s (%dx%d, %d ch, %s)\n",
		resp.Measured.Source, resp.Measured.Width, resp.Measured.Height, resp.Measured.Channels, resp.Measured.DType,
		resp.Reference.Source, resp.Reference.Width, resp.Reference.Height, resp.Reference.Channels, resp.Reference.DType)
	if len(resp.Transformations) > 0 {
		fmt.Fprintf(&b, "transformations: %s\n", strings.Join(resp.Transformations, " -> "))
	}
	if resp.ROI != "" {
		fmt.Fprintf(&b, "roi: %s\n", resp.ROI)
	}
	b.WriteString(t.String())
	b.WriteString("\n")

	for _, issue := range resp.Issues {
		b.WriteString(noteStyle.Render(fmt.Sprintf("! %s: %s", issue.Severity, issue.Message)))
		b.WriteString("\n")
	}

	if resp.Passed {
		b.WriteString(passStyle.Render("PASSED"))
	} else {
		b.WriteString(failStyle.Render("FAILED"))
	}
	fmt.Fprintf(&b, " in %.3fs", resp.ProcessingTimeSec)
	return b.String()
}

// renderOperations lists the registry, one table per kind
func renderOperations(infos []operation.Info) string {
	var b strings.Builder
	for _, kind := range []operation.Kind{operation.KindMetric, operation.KindTransformation} {
		var rows [][]string
		for _, info := range infos {
			if info.Kind != kind {
				continue
			}
			params := make([]string, 0, len(info.Params))
			for _, p := range info.Params {
				params = append(params, fmt.Sprintf("%s:%s=%v", p.Name, p.Type, p.Default))
			}
			rows = append(rows, []string{info.Name, strings.Join(params, " "), info.Description})
		}
		if len(rows) == 0 {
			continue
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers(strings.ToUpper(string(kind)), "PARAMETERS", "DESCRIPTION").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		b.WriteString(t.String())
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatScore(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return fmt.Sprintf("%.6g", v)
}
