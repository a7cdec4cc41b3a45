package domain

import "time"

// CashFlowEvent is one dated cash movement. Negative amounts are money
// invested, positive amounts are money returned (including the terminal
// mark-to-market valuation).
type CashFlowEvent struct {
	Timestamp time.Time
	Amount    float64
}

// Position is the running holding accumulated by a simulation.
type Position struct {
	UnitsHeld float64
	LastPrice float64
}

// Warning records a non-fatal per-row data issue (skipped row,
// stale valuation). The simulation continues past it.
type Warning struct {
	Timestamp time.Time
	Message   string
}

// DeploymentRecord describes one tranche moved from parked capital into
// the tracked instrument.
type DeploymentRecord struct {
	Timestamp   time.Time
	Valuation   float64
	Price       float64
	Amount      float64
	Fraction    float64
	Units       float64
	ParkedAfter float64
}

// MultiplierCounts tallies how many periods a contribution run spent at
// each multiplier band (multipliers of 4 and above share one bucket).
type MultiplierCounts struct {
	AtBase   int
	At2x     int
	At3x     int
	At4xPlus int
}

// SimulationLedger is the full cash-flow record of one simulation run:
// the ordered events, the resulting position, and any warnings. Produced
// fresh per run and never mutated after the run completes.
type SimulationLedger struct {
	StrategyID string
	Kind       Kind
	Events     []CashFlowEvent
	Position   Position
	Warnings   []Warning

	TotalInvested float64

	// Contribution runs only.
	Multipliers MultiplierCounts

	// Deployment runs only.
	Deployments     []DeploymentRecord
	ParkedRemaining float64
}
