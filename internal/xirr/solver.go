// Package xirr solves for the annualized internal rate of return of an
// irregular cash-flow sequence, and computes CAGR for plain start/end
// growth. The two must not be confused in presentation: XIRR accounts
// for interim cash flows, CAGR does not.
package xirr

import (
	"errors"
	"math"
	"sort"

	"valuation-lab/internal/domain"
)

// Solver errors
var (
	ErrTooFewCashFlows = errors.New("xirr requires at least two cash flows")
	ErrSameSign        = errors.New("xirr requires both inflows and outflows")
	ErrNonConvergent   = errors.New("xirr solver did not converge")
	ErrInvalidCAGR     = errors.New("cagr requires positive initial value and positive day count")
)

// Solver bounds. The rate is bracketed in [BracketLow, BracketHigh];
// anything outside is treated as non-convergent.
const (
	Tolerance     = 1e-6
	MaxIterations = 100
	BracketLow    = -0.9999
	BracketHigh   = 10.0

	daysPerYear = 365.0
)

// Solve computes XIRR for the given cash-flow events with day-count
// actual/365. Events may arrive in any order. Returns ErrSameSign when
// all amounts share one sign and ErrNonConvergent when no root is found
// inside the bracket within MaxIterations.
func Solve(events []domain.CashFlowEvent) (float64, error) {
	if len(events) < 2 {
		return 0, ErrTooFewCashFlows
	}

	sorted := make([]domain.CashFlowEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var hasPos, hasNeg bool
	amounts := make([]float64, len(sorted))
	days := make([]float64, len(sorted))
	t0 := sorted[0].Timestamp
	for i, e := range sorted {
		amounts[i] = e.Amount
		days[i] = e.Timestamp.Sub(t0).Hours() / 24
		if e.Amount > 0 {
			hasPos = true
		}
		if e.Amount < 0 {
			hasNeg = true
		}
	}
	if !hasPos || !hasNeg {
		return 0, ErrSameSign
	}
	// All flows on one date: NPV collapses to the plain sum at every
	// rate, so no rate can be identified. Single-row ledgers land here.
	if days[len(days)-1] == 0 {
		return 0, ErrNonConvergent
	}

	npv := func(rate float64) float64 {
		var sum float64
		for i := range amounts {
			sum += amounts[i] / math.Pow(1+rate, days[i]/daysPerYear)
		}
		return sum
	}
	// Derivative of NPV with respect to rate, for Newton steps.
	dnpv := func(rate float64) float64 {
		var sum float64
		for i := range amounts {
			y := days[i] / daysPerYear
			sum -= amounts[i] * y / math.Pow(1+rate, y+1)
		}
		return sum
	}

	lo, hi := BracketLow, BracketHigh
	flo, fhi := npv(lo), npv(hi)
	if flo == 0 {
		return lo, nil
	}
	if fhi == 0 {
		return hi, nil
	}
	if (flo > 0) == (fhi > 0) {
		return 0, ErrNonConvergent
	}

	// Safeguarded Newton: take a Newton step when it stays inside the
	// current bracket, otherwise bisect. The bracket shrinks every
	// iteration, so convergence is bounded.
	rate := 0.1
	if rate <= lo || rate >= hi {
		rate = (lo + hi) / 2
	}
	for i := 0; i < MaxIterations; i++ {
		f := npv(rate)
		if f == 0 {
			return rate, nil
		}

		if (f > 0) == (flo > 0) {
			lo, flo = rate, f
		} else {
			hi = rate
		}
		if hi-lo < Tolerance {
			return (lo + hi) / 2, nil
		}

		next := rate
		if d := dnpv(rate); d != 0 && !math.IsInf(d, 0) && !math.IsNaN(d) {
			next = rate - f/d
		}
		if next <= lo || next >= hi || math.IsNaN(next) {
			next = (lo + hi) / 2
		}
		rate = next
	}

	return 0, ErrNonConvergent
}

// CAGR computes the compound annual growth rate for a start/end value
// over the given number of days: (final/initial)^(365/days) - 1.
// Use only for growth series without interim cash flows.
func CAGR(initial, final float64, days int) (float64, error) {
	if initial <= 0 || days <= 0 {
		return 0, ErrInvalidCAGR
	}
	return math.Pow(final/initial, daysPerYear/float64(days)) - 1, nil
}
