package domain

// Kind selects which simulator executes a strategy.
type Kind string

// Strategy kind constants.
const (
	KindContribution Kind = "CONTRIBUTION"
	KindDeployment   Kind = "DEPLOYMENT"
)

// Valid reports whether k is a known strategy kind.
func (k Kind) Valid() bool {
	return k == KindContribution || k == KindDeployment
}

// Metric identifies the valuation signal(s) a strategy keys on.
type Metric string

// Valuation metric constants.
const (
	MetricPE       Metric = "PE"
	MetricPB       Metric = "PB"
	MetricCombined Metric = "PE_PB"
)

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	return m == MetricPE || m == MetricPB || m == MetricCombined
}

// Tier pairs a valuation threshold with a contribution multiplier (or,
// for deployment strategies, the fraction of parked capital to deploy).
// A tier is active when the valuation is at or below its threshold.
type Tier struct {
	Threshold  float64
	Multiplier float64
}

// StrategyDefinition is an immutable, validated description of one
// tiered strategy. Construct through strategy.Build; never mutate after
// construction, since definitions are shared read-only across
// concurrent simulation runs.
//
// Tiers are ordered by strictly descending threshold with strictly
// ascending multipliers (cheaper valuation buys more). For
// MetricCombined, Tiers holds the PE tier set and PBTiers the PB tier
// set; the higher of the two resulting multipliers wins.
type StrategyDefinition struct {
	StrategyID string
	Name       string
	Kind       Kind
	Metric     Metric
	Tiers      []Tier
	PBTiers    []Tier

	// BaseUnit is the base contribution amount per period
	// (KindContribution) or the total capital to deploy (KindDeployment).
	BaseUnit float64

	// BaselineAnnualYield is the simple annual yield parked capital earns
	// while waiting for deployment. Ignored for contribution strategies.
	BaselineAnnualYield float64
}
