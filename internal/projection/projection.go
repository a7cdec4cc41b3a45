// Package projection runs long-horizon blended-portfolio projections
// over simulated yearly return cycles. All market assumptions, including
// the dip boost applied in a staged-deployment year, are explicit named
// parameters; nothing here is derived from real data.
package projection

import (
	"errors"
	"fmt"
	"math"
)

// Projection errors
var (
	ErrInvalidAllocation = errors.New("allocation percentages must sum to 100")
	ErrInvalidYears      = errors.New("projection years must be positive")
	ErrEmptyCycle        = errors.New("return cycle must not be empty")
)

// Allocation is a portfolio split in percent. Components must sum to
// 100.
type Allocation struct {
	EquityPct float64
	GoldPct   float64
	DebtPct   float64
	CashPct   float64
}

// Scenario describes one deployment path to project. DeployYear 0 means
// no staged deployment; otherwise DeployAmountPct of the portfolio moves
// into equity in that year and the equity return for that year gets the
// dip boost (the scenario assumes the deployment caught a dip).
type Scenario struct {
	Name            string
	EquityStartPct  float64
	DeployYear      int
	DeployAmountPct float64
}

// Params are the simulated-market assumptions. Return cycles are yearly
// percentages, repeated when shorter than the horizon.
type Params struct {
	Years         int
	DipBoostPct   float64
	EquityReturns []float64
	GoldReturns   []float64
	DebtReturns   []float64
	CashReturns   []float64
}

// DefaultParams returns the stock 30-year assumption set: three decade
// cycles for equity, and steady gold/debt/cash cycles, with an 8% dip
// boost for staged-deployment years.
func DefaultParams() Params {
	equity := []float64{
		8, 15, 18, 12, -5, 25, 20, 15, 10, 5,
		10, 12, 20, 15, -8, 22, 18, 12, 8, 6,
		7, 14, 16, 10, -3, 28, 22, 14, 11, 4,
	}
	return Params{
		Years:         30,
		DipBoostPct:   8,
		EquityReturns: equity,
		GoldReturns:   []float64{12, 6, 8, 10, 15, 5, 8, 10, 12, 8},
		DebtReturns:   []float64{7.5, 7.5, 7.0, 7.0, 7.5, 7.0, 6.5, 6.5, 6.5, 7.0},
		CashReturns:   []float64{5.5, 5.5, 5.5, 5.5, 5.5, 5.5, 5.0, 5.0, 5.0, 5.5},
	}
}

// Result is one projected scenario. Values are indexed to a starting
// portfolio of 100.
type Result struct {
	Name             string
	YearlyReturns    []float64
	CumulativeValues []float64
	FinalValue       float64
	CAGR             float64
}

// Run projects every scenario over the same assumption set and returns
// results in scenario order.
func Run(alloc Allocation, scenarios []Scenario, p Params) ([]Result, error) {
	if p.Years <= 0 {
		return nil, ErrInvalidYears
	}
	sum := alloc.EquityPct + alloc.GoldPct + alloc.DebtPct + alloc.CashPct
	if math.Abs(sum-100) > 1e-9 {
		return nil, fmt.Errorf("sum %.4f: %w", sum, ErrInvalidAllocation)
	}
	for _, cycle := range [][]float64{p.EquityReturns, p.GoldReturns, p.DebtReturns, p.CashReturns} {
		if len(cycle) == 0 {
			return nil, ErrEmptyCycle
		}
	}

	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		results = append(results, runScenario(alloc, sc, p))
	}
	return results, nil
}

func runScenario(alloc Allocation, sc Scenario, p Params) Result {
	res := Result{
		Name:             sc.Name,
		YearlyReturns:    make([]float64, 0, p.Years),
		CumulativeValues: []float64{100},
	}

	eq := sc.EquityStartPct
	gl, dt, cs := alloc.GoldPct, alloc.DebtPct, alloc.CashPct
	if eq != alloc.EquityPct {
		gl, dt, cs = rebalance(eq, alloc.EquityPct, gl, dt, cs)
	}

	for year := 0; year < p.Years; year++ {
		eqReturn := cycleAt(p.EquityReturns, year)

		if sc.DeployYear == year+1 {
			eqReturn += p.DipBoostPct
			prev := eq
			eq += sc.DeployAmountPct
			gl, dt, cs = rebalance(eq, prev, gl, dt, cs)
		}

		blended := eq/100*eqReturn +
			gl/100*cycleAt(p.GoldReturns, year) +
			dt/100*cycleAt(p.DebtReturns, year) +
			cs/100*cycleAt(p.CashReturns, year)

		res.YearlyReturns = append(res.YearlyReturns, blended)
		last := res.CumulativeValues[len(res.CumulativeValues)-1]
		res.CumulativeValues = append(res.CumulativeValues, last*(1+blended/100))
	}

	res.FinalValue = res.CumulativeValues[len(res.CumulativeValues)-1]
	res.CAGR = (math.Pow(res.FinalValue/100, 1/float64(p.Years)) - 1) * 100
	return res
}

// rebalance funds an equity change proportionally from the other
// sleeves, flooring each at zero.
func rebalance(newEquity, oldEquity, gold, debt, cash float64) (float64, float64, float64) {
	change := newEquity - oldEquity
	other := gold + debt + cash
	if other <= 0 {
		return gold, debt, cash
	}
	return math.Max(0, gold-gold/other*change),
		math.Max(0, debt-debt/other*change),
		math.Max(0, cash-cash/other*change)
}

func cycleAt(cycle []float64, year int) float64 {
	return cycle[year%len(cycle)]
}
