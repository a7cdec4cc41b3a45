// Package compare runs batches of strategy definitions against one
// aligned dataset and summarizes each run. Runs share nothing but the
// read-only dataset, so the batch is dispatched across a worker pool;
// one strategy's failure never aborts the batch.
package compare

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"

	"valuation-lab/internal/domain"
	"valuation-lab/internal/simulation"
	"valuation-lab/internal/strategy"
	"valuation-lab/internal/xirr"
)

// Batch errors
var (
	ErrNoStrategies = errors.New("no strategy definitions to compare")
	ErrEmptyDataset = errors.New("dataset has no rows")
)

// Params configures a comparison batch. Zero amounts fall back to each
// definition's own BaseUnit and BaselineAnnualYield.
type Params struct {
	// BaseAmount is the per-period contribution for contribution
	// strategies.
	BaseAmount float64
	// TotalCapital is the capital pool for deployment strategies.
	TotalCapital float64
	// BaselineAnnualYield overrides the parked-capital yield for
	// deployment strategies when non-zero.
	BaselineAnnualYield float64
	// Workers bounds the pool size. Zero means one worker per CPU.
	Workers int
}

// Compare executes every definition against dataset and returns one
// result per definition, index-aligned with defs regardless of
// completion order. Failed strategies are marked, never dropped.
// Cancellation is coarse-grained: a cancelled context abandons the
// remaining batch and returns the context error.
func Compare(ctx context.Context, dataset *domain.AlignedDataset, defs []*domain.StrategyDefinition, p Params) ([]domain.SimulationResult, error) {
	if len(defs) == 0 {
		return nil, ErrNoStrategies
	}
	if dataset == nil || dataset.Len() == 0 {
		return nil, ErrEmptyDataset
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(defs) {
		workers = len(defs)
	}

	results := make([]domain.SimulationResult, len(defs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = runOne(dataset, defs[i], p)
			}
		}()
	}

	cancelled := false
	for i := range defs {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case <-ctx.Done():
			cancelled = true
		case jobs <- i:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	if cancelled {
		return nil, ctx.Err()
	}
	return results, nil
}

// runOne executes a single definition and summarizes its ledger.
// Definitions are re-validated here so a definition corrupted after
// construction degrades to a marked failure instead of poisoning the
// batch.
func runOne(dataset *domain.AlignedDataset, def *domain.StrategyDefinition, p Params) domain.SimulationResult {
	if def == nil {
		return domain.SimulationResult{
			Failed:        true,
			FailureReason: simulation.ErrNilDefinition.Error(),
		}
	}

	res := domain.SimulationResult{
		StrategyID:   def.StrategyID,
		StrategyName: def.Name,
		Kind:         def.Kind,
	}

	if err := validate(def); err != nil {
		res.Failed = true
		res.FailureReason = err.Error()
		return res
	}

	var (
		ledger *domain.SimulationLedger
		err    error
	)
	switch def.Kind {
	case domain.KindContribution:
		amount := p.BaseAmount
		if amount == 0 {
			amount = def.BaseUnit
		}
		ledger, err = simulation.RunContribution(dataset, def, amount)
	case domain.KindDeployment:
		capital := p.TotalCapital
		if capital == 0 {
			capital = def.BaseUnit
		}
		yield := p.BaselineAnnualYield
		if yield == 0 {
			yield = def.BaselineAnnualYield
		}
		ledger, err = simulation.RunDeployment(dataset, def, capital, yield)
	default:
		err = simulation.ErrKindMismatch
	}
	if err != nil {
		res.Failed = true
		res.FailureReason = err.Error()
		return res
	}

	return summarize(res, ledger)
}

func validate(def *domain.StrategyDefinition) error {
	if !def.Kind.Valid() {
		return strategy.ErrInvalidKind
	}
	if !def.Metric.Valid() {
		return strategy.ErrInvalidMetric
	}
	if err := strategy.ValidateTiers(def.Tiers, def.Kind); err != nil {
		return err
	}
	if def.Metric == domain.MetricCombined {
		return strategy.ValidateTiers(def.PBTiers, def.Kind)
	}
	return nil
}

// summarize computes the immutable result figures from a finished
// ledger. Returns are measured on invested (deployed) capital; parked
// cash is reported separately.
func summarize(res domain.SimulationResult, ledger *domain.SimulationLedger) domain.SimulationResult {
	res.TotalInvested = ledger.TotalInvested
	res.UnitsHeld = ledger.Position.UnitsHeld
	res.CurrentValue = ledger.Position.UnitsHeld * ledger.Position.LastPrice
	res.Multipliers = ledger.Multipliers
	res.ParkedRemaining = ledger.ParkedRemaining
	res.NumDeployments = len(ledger.Deployments)
	res.Warnings = len(ledger.Warnings)

	if res.UnitsHeld > 0 {
		res.AvgBuyPrice = res.TotalInvested / res.UnitsHeld
	}
	res.AbsoluteReturn = res.CurrentValue - res.TotalInvested
	if res.TotalInvested > 0 {
		res.ReturnPct = res.AbsoluteReturn / res.TotalInvested * 100
	}

	rate, err := xirr.Solve(ledger.Events)
	if err == nil {
		res.XIRR = rate
		res.XIRRValid = true
	}
	return res
}

// SortByXIRR orders results by annualized return, descending. Results
// without a valid XIRR sort below all valid ones; failed runs sort last.
// Ties and same-class entries keep a deterministic order by strategy ID.
func SortByXIRR(results []domain.SimulationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Failed != b.Failed {
			return !a.Failed
		}
		if a.XIRRValid != b.XIRRValid {
			return a.XIRRValid
		}
		if a.XIRRValid && a.XIRR != b.XIRR {
			return a.XIRR > b.XIRR
		}
		return a.StrategyID < b.StrategyID
	})
}
