package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"valuation-lab/internal/domain"
)

// ComputeStrategyID computes a deterministic strategy identifier.
// Formula: SHA256(name|kind|metric|tiers|pb_tiers|base_unit|yield)
// with tiers serialized as threshold:multiplier pairs in definition
// order. Returns hex-encoded hash (64 characters).
func ComputeStrategyID(
	name string,
	kind domain.Kind,
	metric domain.Metric,
	tiers []domain.Tier,
	pbTiers []domain.Tier,
	baseUnit float64,
	baselineAnnualYield float64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%.8f|%.8f",
		name,
		string(kind),
		string(metric),
		serializeTiers(tiers),
		serializeTiers(pbTiers),
		baseUnit,
		baselineAnnualYield,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeRunID computes a deterministic identifier for one simulation
// run over a dataset. Scope is the strategy ID for a single-strategy
// run, or the symbol for a whole comparison batch.
// Formula: SHA256(scope|frequency|start|end|rows)
func ComputeRunID(scope string, freq domain.Frequency, start, end time.Time, rows int) string {
	data := fmt.Sprintf("%s|%s|%d|%d|%d",
		scope,
		string(freq),
		start.UTC().Unix(),
		end.UTC().Unix(),
		rows,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

func serializeTiers(tiers []domain.Tier) string {
	if len(tiers) == 0 {
		return "-"
	}
	parts := make([]string, len(tiers))
	for i, t := range tiers {
		parts[i] = fmt.Sprintf("%.8f:%.8f", t.Threshold, t.Multiplier)
	}
	return strings.Join(parts, ",")
}
