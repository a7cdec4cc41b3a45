package simulation

import (
	"fmt"
	"math"

	"valuation-lab/internal/domain"
	"valuation-lab/internal/strategy"
)

const daysPerYear = 365.0

// RunDeployment replays a bullet/lumpsum strategy: totalCapital starts
// fully parked, earning baselineAnnualYield as simple (non-compounding)
// daily interest, and moves into the tracked instrument in tranches
// whenever a valuation tier is active. Each tranche deploys the tier's
// fraction of the still-parked principal. Deployment is one-way: parked
// capital never grows back, so the deployed fraction is non-decreasing
// across the run.
//
// Capital still parked at the end contributes principal plus accrued
// interest to the terminal event; deployed capital contributes its
// mark-to-market value.
func RunDeployment(dataset *domain.AlignedDataset, def *domain.StrategyDefinition, totalCapital, baselineAnnualYield float64) (*domain.SimulationLedger, error) {
	if def == nil {
		return nil, ErrNilDefinition
	}
	if def.Kind != domain.KindDeployment {
		return nil, fmt.Errorf("%s: %w", def.Kind, ErrKindMismatch)
	}
	if dataset == nil || dataset.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if totalCapital <= 0 {
		return nil, ErrNonPositiveAmount
	}
	if baselineAnnualYield < 0 {
		return nil, strategy.ErrNegativeYield
	}

	ledger := &domain.SimulationLedger{
		StrategyID: def.StrategyID,
		Kind:       domain.KindDeployment,
	}

	parked := totalCapital
	accrued := 0.0
	prev := dataset.Start()

	for _, row := range dataset.Rows {
		// Interest accrues on the balance parked over the interval, on
		// the principal only.
		days := row.Timestamp.Sub(prev).Hours() / 24
		accrued += parked * baselineAnnualYield * days / daysPerYear
		prev = row.Timestamp

		if row.Price <= 0 || math.IsNaN(row.Price) {
			ledger.Warnings = append(ledger.Warnings, domain.Warning{
				Timestamp: row.Timestamp,
				Message:   fmt.Sprintf("non-positive price %.4f, deployment check skipped", row.Price),
			})
			continue
		}

		// Mark-to-market tracks the last valid price even on rows with no
		// deployment.
		ledger.Position.LastPrice = row.Price

		fraction, valuation, active := strategy.DeployFraction(def, row.PE, row.PB)
		if active && parked > 0 {
			amount := parked * fraction
			units := amount / row.Price
			parked -= amount

			ledger.Events = append(ledger.Events, domain.CashFlowEvent{
				Timestamp: row.Timestamp,
				Amount:    -amount,
			})
			ledger.TotalInvested += amount
			ledger.Position.UnitsHeld += units
			ledger.Deployments = append(ledger.Deployments, domain.DeploymentRecord{
				Timestamp:   row.Timestamp,
				Valuation:   valuation,
				Price:       row.Price,
				Amount:      amount,
				Fraction:    fraction,
				Units:       units,
				ParkedAfter: parked,
			})
		}
	}

	ledger.ParkedRemaining = parked + accrued

	terminal := ledger.Position.UnitsHeld*ledger.Position.LastPrice + ledger.ParkedRemaining
	if terminal > 0 {
		ledger.Events = append(ledger.Events, domain.CashFlowEvent{
			Timestamp: dataset.End(),
			Amount:    terminal,
		})
	}

	return ledger, nil
}
