// Package strategy builds and evaluates tiered strategy definitions.
// Definitions are validated once at construction; a malformed tier set
// is a construction-time error, never a runtime one.
package strategy

import (
	"errors"

	"valuation-lab/internal/domain"
	"valuation-lab/internal/idhash"
)

// MaxTiers is the maximum number of tiers a strategy may carry.
const MaxTiers = 10

// Validation errors
var (
	ErrInvalidKind           = errors.New("unknown strategy kind")
	ErrInvalidMetric         = errors.New("unknown valuation metric")
	ErrNoTiers               = errors.New("strategy requires at least one tier")
	ErrTooManyTiers          = errors.New("strategy exceeds maximum tier count")
	ErrThresholdOrder        = errors.New("tier thresholds must be strictly descending")
	ErrDuplicateThreshold    = errors.New("tier thresholds must be distinct")
	ErrMultiplierOrder       = errors.New("tier multipliers must strictly ascend as thresholds descend")
	ErrNonPositiveMultiplier = errors.New("tier multiplier must be positive")
	ErrFractionAboveOne      = errors.New("deployment fraction must not exceed 1")
	ErrNonPositiveBaseUnit   = errors.New("base unit must be positive")
	ErrNegativeYield         = errors.New("baseline annual yield must not be negative")
	ErrMissingPBTiers        = errors.New("combined strategy requires a PB tier set")
	ErrUnexpectedPBTiers     = errors.New("PB tier set only allowed for combined strategies")
)

// Params describes a strategy to build. Tiers must be ordered by
// strictly descending threshold. For MetricCombined, Tiers is the PE
// tier set and PBTiers the PB tier set.
type Params struct {
	Name    string
	Kind    domain.Kind
	Metric  domain.Metric
	Tiers   []domain.Tier
	PBTiers []domain.Tier

	BaseUnit            float64
	BaselineAnnualYield float64
}

// Build validates p and returns an immutable StrategyDefinition with a
// deterministic StrategyID. Tier slices are copied so later mutation of
// p cannot leak into the definition.
func Build(p Params) (*domain.StrategyDefinition, error) {
	if !p.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	if !p.Metric.Valid() {
		return nil, ErrInvalidMetric
	}
	if p.BaseUnit <= 0 {
		return nil, ErrNonPositiveBaseUnit
	}
	if p.BaselineAnnualYield < 0 {
		return nil, ErrNegativeYield
	}

	if err := ValidateTiers(p.Tiers, p.Kind); err != nil {
		return nil, err
	}
	if p.Metric == domain.MetricCombined {
		if len(p.PBTiers) == 0 {
			return nil, ErrMissingPBTiers
		}
		if err := ValidateTiers(p.PBTiers, p.Kind); err != nil {
			return nil, err
		}
	} else if len(p.PBTiers) > 0 {
		return nil, ErrUnexpectedPBTiers
	}

	def := &domain.StrategyDefinition{
		Name:                p.Name,
		Kind:                p.Kind,
		Metric:              p.Metric,
		Tiers:               append([]domain.Tier(nil), p.Tiers...),
		PBTiers:             append([]domain.Tier(nil), p.PBTiers...),
		BaseUnit:            p.BaseUnit,
		BaselineAnnualYield: p.BaselineAnnualYield,
	}
	def.StrategyID = idhash.ComputeStrategyID(
		def.Name, def.Kind, def.Metric, def.Tiers, def.PBTiers,
		def.BaseUnit, def.BaselineAnnualYield,
	)
	return def, nil
}

// ValidateTiers checks one tier set: 1..MaxTiers tiers, strictly
// descending distinct thresholds, strictly ascending positive
// multipliers. Deployment tiers additionally cap the multiplier
// (deploy fraction) at 1.
func ValidateTiers(tiers []domain.Tier, kind domain.Kind) error {
	if len(tiers) == 0 {
		return ErrNoTiers
	}
	if len(tiers) > MaxTiers {
		return ErrTooManyTiers
	}

	for i, t := range tiers {
		if t.Multiplier <= 0 {
			return ErrNonPositiveMultiplier
		}
		if kind == domain.KindDeployment && t.Multiplier > 1 {
			return ErrFractionAboveOne
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if t.Threshold == prev.Threshold {
			return ErrDuplicateThreshold
		}
		if t.Threshold > prev.Threshold {
			return ErrThresholdOrder
		}
		if t.Multiplier <= prev.Multiplier {
			return ErrMultiplierOrder
		}
	}
	return nil
}
