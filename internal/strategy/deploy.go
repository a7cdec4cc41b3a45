package strategy

import "valuation-lab/internal/domain"

// DeployFraction returns the deploy fraction of the active tier for a
// deployment-strategy row, along with the valuation value that selected
// it. Unlike contribution lookups there is no base fallback: when the
// valuation is nil or above all thresholds no capital moves and ok is
// false. For combined strategies the side yielding the larger fraction
// wins.
func DeployFraction(def *domain.StrategyDefinition, pe, pb *float64) (fraction, valuation float64, ok bool) {
	switch def.Metric {
	case domain.MetricPE:
		return lookupActive(def.Tiers, pe)
	case domain.MetricPB:
		return lookupActive(def.Tiers, pb)
	case domain.MetricCombined:
		peFrac, peVal, peOK := lookupActive(def.Tiers, pe)
		pbFrac, pbVal, pbOK := lookupActive(def.PBTiers, pb)
		switch {
		case peOK && pbOK:
			if pbFrac > peFrac {
				return pbFrac, pbVal, true
			}
			return peFrac, peVal, true
		case peOK:
			return peFrac, peVal, true
		case pbOK:
			return pbFrac, pbVal, true
		}
	}
	return 0, 0, false
}

func lookupActive(tiers []domain.Tier, v *float64) (float64, float64, bool) {
	if v == nil {
		return 0, 0, false
	}
	for i := len(tiers) - 1; i >= 0; i-- {
		if *v <= tiers[i].Threshold {
			return tiers[i].Multiplier, *v, true
		}
	}
	return 0, 0, false
}
