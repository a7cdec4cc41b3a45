package domain

// SimulationResult is the summary computed once from a finished ledger.
// Immutable. Failed results say so explicitly: Failed/FailureReason for
// runs that never produced a ledger, XIRRValid=false when only the
// annualized figure is unavailable.
type SimulationResult struct {
	StrategyID   string
	StrategyName string
	Kind         Kind

	TotalInvested  float64
	CurrentValue   float64
	UnitsHeld      float64
	AvgBuyPrice    float64
	AbsoluteReturn float64
	ReturnPct      float64

	// XIRR is the annualized return. Valid only when XIRRValid is true;
	// a false value means the solver did not converge and the figure
	// must be presented as unavailable, never as 0%.
	XIRR      float64
	XIRRValid bool

	Multipliers MultiplierCounts

	// Deployment strategies only.
	ParkedRemaining float64
	NumDeployments  int

	Warnings int

	Failed        bool
	FailureReason string
}
