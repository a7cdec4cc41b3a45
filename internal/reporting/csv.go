package reporting

import (
	"fmt"
	"strings"

	"valuation-lab/internal/domain"
)

// RenderCSV renders simulation results as a CSV string. Unavailable
// XIRR figures render as empty cells, never as zero.
func RenderCSV(results []domain.SimulationResult) string {
	var sb strings.Builder

	// Header
	sb.WriteString("strategy_id,strategy_name,kind,total_invested,current_value,units_held,")
	sb.WriteString("avg_buy_price,absolute_return,return_pct,xirr,parked_remaining,")
	sb.WriteString("num_deployments,warnings,status\n")

	// Rows
	for _, r := range results {
		xirrCell := ""
		if r.XIRRValid {
			xirrCell = fmt.Sprintf("%.6f", r.XIRR)
		}
		status := "ok"
		if r.Failed {
			status = "failed: " + strings.ReplaceAll(r.FailureReason, ",", ";")
		} else if !r.XIRRValid {
			status = "xirr unavailable"
		}

		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.2f,%.2f,%.6f,%.4f,%.2f,%.4f,%s,%.2f,%d,%d,%s\n",
			r.StrategyID,
			strings.ReplaceAll(r.StrategyName, ",", ";"),
			r.Kind,
			r.TotalInvested,
			r.CurrentValue,
			r.UnitsHeld,
			r.AvgBuyPrice,
			r.AbsoluteReturn,
			r.ReturnPct,
			xirrCell,
			r.ParkedRemaining,
			r.NumDeployments,
			r.Warnings,
			status,
		))
	}

	return sb.String()
}
