package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/untoldecay/Distillery/internal/types"
)

// RenderImpact formats a delete preview: a count table followed by the files
// that would be removed from the vault.
func RenderImpact(impact *types.DeleteImpact, width int) string {
	counts := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true).Foreground(ColorAccent)
			}
			if col == 1 {
				return style.Align(lipgloss.Right)
			}
			return style
		}).
		Headers("Record", "Count").
		Row("Documents", strconv.Itoa(impact.Documents)).
		Row("Summary versions", strconv.Itoa(impact.Summaries)).
		Row("Insights", strconv.Itoa(impact.Insights)).
		Row("Reviews", strconv.Itoa(impact.Reviews)).
		Row("Embeddings", strconv.Itoa(impact.Embeddings)).
		Row("Cluster links", strconv.Itoa(impact.ClusterMembers))

	sections := []string{
		HeaderStyle.Render("Deletion impact"),
		counts.Render(),
	}
	if len(impact.Files) > 0 {
		var files []string
		files = append(files, WarnStyle.Render(fmt.Sprintf("%d file(s) will be removed:", len(impact.Files))))
		for _, f := range impact.Files {
			files = append(files, "  "+truncate(f, width-4))
		}
		sections = append(sections, strings.Join(files, "\n"))
	} else {
		sections = append(sections, HintStyle.Render("No vault files affected."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// RenderStats formats pipeline state for the status command.
func RenderStats(stats *types.Stats, width int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true).Foreground(ColorAccent)
			}
			if col == 1 {
				return style.Align(lipgloss.Right)
			}
			return style
		}).
		Headers("Tier", "Count").
		Row("Documents (L0)", strconv.Itoa(stats.Documents)).
		Row("Active summaries (L1)", strconv.Itoa(stats.ActiveSummaries)).
		Row("Summary versions, total", strconv.Itoa(stats.TotalVersions)).
		Row("Insights (L2)", strconv.Itoa(stats.Insights)).
		Row("Pending reviews", strconv.Itoa(stats.PendingReviews)).
		Row("Unclustered summaries", strconv.Itoa(stats.Unclustered))

	status := PassStyle.Render("No reviews waiting.")
	if stats.PendingReviews > 0 {
		status = WarnStyle.Render(fmt.Sprintf("%d review(s) waiting for a decision.", stats.PendingReviews))
	}
	return lipgloss.JoinVertical(lipgloss.Left, t.Render(), status)
}

func truncate(s string, max int) string {
	if max < 8 || len(s) <= max {
		return s
	}
	return "…" + s[len(s)-max+1:]
}
