// Package simulation replays strategy definitions over an aligned
// dataset. Each run is a pure function of its inputs and produces its
// own ledger; the dataset and definition are only read, so runs may
// execute concurrently over shared inputs.
package simulation

import (
	"errors"
	"fmt"
	"math"

	"valuation-lab/internal/domain"
	"valuation-lab/internal/strategy"
)

// Simulator errors
var (
	ErrEmptyDataset      = errors.New("dataset has no rows")
	ErrNilDefinition     = errors.New("strategy definition is nil")
	ErrKindMismatch      = errors.New("strategy kind does not match simulator")
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// RunContribution replays a recurring-investment strategy: every dataset
// row is one scheduled contribution of baseAmount scaled by the active
// tier multiplier. Rows with a non-positive price are skipped with a
// recorded warning, never a crash. The ledger closes with one positive
// mark-to-market event at the final timestamp so XIRR reflects
// unrealized value.
func RunContribution(dataset *domain.AlignedDataset, def *domain.StrategyDefinition, baseAmount float64) (*domain.SimulationLedger, error) {
	if def == nil {
		return nil, ErrNilDefinition
	}
	if def.Kind != domain.KindContribution {
		return nil, fmt.Errorf("%s: %w", def.Kind, ErrKindMismatch)
	}
	if dataset == nil || dataset.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if baseAmount <= 0 {
		return nil, ErrNonPositiveAmount
	}

	ledger := &domain.SimulationLedger{
		StrategyID: def.StrategyID,
		Kind:       domain.KindContribution,
	}

	for _, row := range dataset.Rows {
		if row.Price <= 0 || math.IsNaN(row.Price) {
			ledger.Warnings = append(ledger.Warnings, domain.Warning{
				Timestamp: row.Timestamp,
				Message:   fmt.Sprintf("non-positive price %.4f, contribution skipped", row.Price),
			})
			continue
		}

		mult := strategy.MultiplierFor(def, row.PE, row.PB)
		amount := baseAmount * mult
		units := amount / row.Price

		ledger.Events = append(ledger.Events, domain.CashFlowEvent{
			Timestamp: row.Timestamp,
			Amount:    -amount,
		})
		ledger.TotalInvested += amount
		ledger.Position.UnitsHeld += units
		ledger.Position.LastPrice = row.Price
		countMultiplier(&ledger.Multipliers, mult)
	}

	// Terminal mark-to-market event. Nothing to value when every row was
	// skipped.
	if len(ledger.Events) > 0 {
		ledger.Events = append(ledger.Events, domain.CashFlowEvent{
			Timestamp: dataset.End(),
			Amount:    ledger.Position.UnitsHeld * ledger.Position.LastPrice,
		})
	}

	return ledger, nil
}

// countMultiplier tallies the period into its multiplier band.
// Fractional multipliers below 2 count as base; 4 and above share one
// bucket.
func countMultiplier(c *domain.MultiplierCounts, mult float64) {
	switch {
	case mult < 2:
		c.AtBase++
	case mult < 3:
		c.At2x++
	case mult < 4:
		c.At3x++
	default:
		c.At4xPlus++
	}
}
