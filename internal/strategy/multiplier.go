package strategy

import "valuation-lab/internal/domain"

// MultiplierFor returns the active multiplier for one dataset row.
// The cheapest matched tier wins: of all tiers whose threshold the
// valuation is at or below, the one with the lowest threshold applies.
// A nil valuation cannot evaluate tiers and contributes the base
// multiplier 1. For combined strategies the PE and PB tier sets are
// evaluated independently and the higher multiplier wins.
func MultiplierFor(def *domain.StrategyDefinition, pe, pb *float64) float64 {
	switch def.Metric {
	case domain.MetricPE:
		return lookup(def.Tiers, pe)
	case domain.MetricPB:
		return lookup(def.Tiers, pb)
	case domain.MetricCombined:
		peMult := lookup(def.Tiers, pe)
		pbMult := lookup(def.PBTiers, pb)
		if pbMult > peMult {
			return pbMult
		}
		return peMult
	}
	return 1
}

// lookup scans tiers from the lowest threshold upward and returns the
// multiplier of the first tier the valuation is at or below. Valuations
// above all thresholds, and nil valuations, fall back to 1.
func lookup(tiers []domain.Tier, v *float64) float64 {
	if v == nil {
		return 1
	}
	for i := len(tiers) - 1; i >= 0; i-- {
		if *v <= tiers[i].Threshold {
			return tiers[i].Multiplier
		}
	}
	return 1
}
