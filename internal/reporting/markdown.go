package reporting

import (
	"fmt"
	"strings"
	"time"

	"valuation-lab/internal/domain"
)

// RenderMarkdown renders the report as a Markdown string. The top-ranked
// valid strategy is marked as best.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Strategy Comparison Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Dataset Summary
	sb.WriteString("## Dataset\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Frequency | %s |\n", r.Frequency))
	sb.WriteString(fmt.Sprintf("| Rows | %d |\n", r.Rows))
	sb.WriteString(fmt.Sprintf("| Start | %s |\n", r.Start.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("| End | %s |\n", r.End.Format("2006-01-02")))
	sb.WriteString("\n")

	// Ranked results
	sb.WriteString("## Results (ranked by XIRR)\n\n")
	sb.WriteString("| Rank | Strategy | Kind | Invested | Value | Return % | XIRR | Status |\n")
	sb.WriteString("|------|----------|------|----------|-------|----------|------|--------|\n")

	for i, res := range r.Results {
		name := res.StrategyName
		if i == 0 && !res.Failed && res.XIRRValid {
			name = "**" + name + "** (best)"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %.2f | %.2f | %.2f%% | %s | %s |\n",
			i+1, name, res.Kind, res.TotalInvested, res.CurrentValue,
			res.ReturnPct, xirrCell(res), statusCell(res)))
	}
	sb.WriteString("\n")

	// Deployment detail, when any deployment strategies ran
	var hasDeployment bool
	for _, res := range r.Results {
		if res.Kind == domain.KindDeployment && !res.Failed {
			hasDeployment = true
			break
		}
	}
	if hasDeployment {
		sb.WriteString("## Deployment Strategies\n\n")
		sb.WriteString("| Strategy | Deployed | Parked Remaining | Tranches |\n")
		sb.WriteString("|----------|----------|------------------|----------|\n")
		for _, res := range r.Results {
			if res.Kind != domain.KindDeployment || res.Failed {
				continue
			}
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %d |\n",
				res.StrategyName, res.TotalInvested, res.ParkedRemaining, res.NumDeployments))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func xirrCell(r domain.SimulationResult) string {
	if !r.XIRRValid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", r.XIRR*100)
}

func statusCell(r domain.SimulationResult) string {
	switch {
	case r.Failed:
		return "FAILED: " + r.FailureReason
	case !r.XIRRValid:
		return "xirr unavailable"
	case r.Warnings > 0:
		return fmt.Sprintf("ok (%d warnings)", r.Warnings)
	}
	return "ok"
}
