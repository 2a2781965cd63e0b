package reporting

import (
	"fmt"
	"strings"
	"time"

	"ads-guardrail/internal/domain"
)

// RenderHistoryMarkdown renders an experiment history as Markdown string.
func RenderHistoryMarkdown(h *History) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Guardrail History: %s\n\n", h.ExperimentID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", h.GeneratedAt.Format(time.RFC3339)))

	if h.Latest == nil {
		sb.WriteString("No evaluation runs recorded.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Latest action: **%s** (%s, run `%s`)\n\n",
		h.Latest.Action, h.Latest.EvaluatedAt.Format(time.RFC3339), h.Latest.RunID))

	// Action counts
	sb.WriteString("## Actions\n\n")
	sb.WriteString("| Action | Runs |\n")
	sb.WriteString("|--------|------|\n")
	for _, c := range h.ActionCounts {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", c.Action, c.Count))
	}
	sb.WriteString("\n")

	// Runs
	sb.WriteString("## Runs\n\n")
	sb.WriteString("| Evaluated | Window | End of B | Action | Reasons | Warnings | Run |\n")
	sb.WriteString("|-----------|--------|----------|--------|---------|----------|-----|\n")
	for _, r := range h.Runs {
		sb.WriteString(fmt.Sprintf("| %s | %s | %t | %s | %s | %d | `%s` |\n",
			r.EvaluatedAt.Format(time.RFC3339), escapeCell(r.WindowLabel), r.EndOfWindowB,
			r.Action, joinCodes(r.ReasonCodes, ", "), r.WarningsCount, r.RunID))
	}
	sb.WriteString("\n")

	return sb.String()
}

func joinCodes(codes []domain.ReasonCode, sep string) string {
	if len(codes) == 0 {
		return "-"
	}
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, sep)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
