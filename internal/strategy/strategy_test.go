package strategy

import (
	"errors"
	"testing"

	"valuation-lab/internal/domain"
)

func validContributionParams() Params {
	return Params{
		Name:   "Opportunistic",
		Kind:   domain.KindContribution,
		Metric: domain.MetricPE,
		Tiers: []domain.Tier{
			{Threshold: 20, Multiplier: 1},
			{Threshold: 18, Multiplier: 2},
			{Threshold: 16, Multiplier: 3},
		},
		BaseUnit: 10000,
	}
}

func TestBuild_Valid(t *testing.T) {
	def, err := Build(validContributionParams())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if def.StrategyID == "" {
		t.Error("expected non-empty strategy ID")
	}
	if len(def.StrategyID) != 64 {
		t.Errorf("expected 64-char hex ID, got %d chars", len(def.StrategyID))
	}
	if len(def.Tiers) != 3 {
		t.Errorf("expected 3 tiers, got %d", len(def.Tiers))
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a, err := Build(validContributionParams())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	b, err := Build(validContributionParams())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if a.StrategyID != b.StrategyID {
		t.Errorf("identical params produced different IDs: %s vs %s", a.StrategyID, b.StrategyID)
	}

	p := validContributionParams()
	p.Tiers[2].Multiplier = 4
	c, err := Build(p)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if c.StrategyID == a.StrategyID {
		t.Error("changed tier produced identical ID")
	}
}

func TestBuild_CopiesTiers(t *testing.T) {
	p := validContributionParams()
	def, err := Build(p)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	p.Tiers[0].Threshold = 999
	if def.Tiers[0].Threshold != 20 {
		t.Error("mutation of input params leaked into definition")
	}
}

func TestBuild_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr error
	}{
		{
			name:    "unknown kind",
			mutate:  func(p *Params) { p.Kind = "SOMETHING" },
			wantErr: ErrInvalidKind,
		},
		{
			name:    "unknown metric",
			mutate:  func(p *Params) { p.Metric = "EV_EBITDA" },
			wantErr: ErrInvalidMetric,
		},
		{
			name:    "no tiers",
			mutate:  func(p *Params) { p.Tiers = nil },
			wantErr: ErrNoTiers,
		},
		{
			name: "too many tiers",
			mutate: func(p *Params) {
				p.Tiers = nil
				for i := 0; i < MaxTiers+1; i++ {
					p.Tiers = append(p.Tiers, domain.Tier{
						Threshold:  float64(100 - i),
						Multiplier: float64(i + 1),
					})
				}
			},
			wantErr: ErrTooManyTiers,
		},
		{
			name: "ascending thresholds",
			mutate: func(p *Params) {
				p.Tiers = []domain.Tier{
					{Threshold: 16, Multiplier: 1},
					{Threshold: 18, Multiplier: 2},
				}
			},
			wantErr: ErrThresholdOrder,
		},
		{
			name: "duplicate thresholds",
			mutate: func(p *Params) {
				p.Tiers = []domain.Tier{
					{Threshold: 18, Multiplier: 1},
					{Threshold: 18, Multiplier: 2},
				}
			},
			wantErr: ErrDuplicateThreshold,
		},
		{
			name: "non-ascending multipliers",
			mutate: func(p *Params) {
				p.Tiers = []domain.Tier{
					{Threshold: 20, Multiplier: 2},
					{Threshold: 18, Multiplier: 2},
				}
			},
			wantErr: ErrMultiplierOrder,
		},
		{
			name: "zero multiplier",
			mutate: func(p *Params) {
				p.Tiers = []domain.Tier{{Threshold: 20, Multiplier: 0}}
			},
			wantErr: ErrNonPositiveMultiplier,
		},
		{
			name:    "zero base unit",
			mutate:  func(p *Params) { p.BaseUnit = 0 },
			wantErr: ErrNonPositiveBaseUnit,
		},
		{
			name:    "negative yield",
			mutate:  func(p *Params) { p.BaselineAnnualYield = -0.01 },
			wantErr: ErrNegativeYield,
		},
		{
			name: "pb tiers on plain PE strategy",
			mutate: func(p *Params) {
				p.PBTiers = []domain.Tier{{Threshold: 3, Multiplier: 2}}
			},
			wantErr: ErrUnexpectedPBTiers,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validContributionParams()
			tt.mutate(&p)
			_, err := Build(p)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuild_CombinedRequiresPBTiers(t *testing.T) {
	p := validContributionParams()
	p.Metric = domain.MetricCombined
	if _, err := Build(p); !errors.Is(err, ErrMissingPBTiers) {
		t.Errorf("Build() error = %v, want ErrMissingPBTiers", err)
	}

	p.PBTiers = []domain.Tier{
		{Threshold: 3.0, Multiplier: 1},
		{Threshold: 2.5, Multiplier: 2},
	}
	if _, err := Build(p); err != nil {
		t.Errorf("Build() with PB tiers failed: %v", err)
	}
}

func TestBuild_DeploymentFractionCap(t *testing.T) {
	p := Params{
		Name:   "Bullet",
		Kind:   domain.KindDeployment,
		Metric: domain.MetricPE,
		Tiers: []domain.Tier{
			{Threshold: 18, Multiplier: 0.25},
			{Threshold: 16, Multiplier: 0.5},
		},
		BaseUnit:            1000000,
		BaselineAnnualYield: 0.055,
	}
	if _, err := Build(p); err != nil {
		t.Fatalf("Build deployment failed: %v", err)
	}

	p.Tiers = []domain.Tier{{Threshold: 18, Multiplier: 1.5}}
	if _, err := Build(p); !errors.Is(err, ErrFractionAboveOne) {
		t.Errorf("Build() error = %v, want ErrFractionAboveOne", err)
	}

	// Contribution multipliers above 1 stay legal
	p.Kind = domain.KindContribution
	if _, err := Build(p); err != nil {
		t.Errorf("contribution multiplier above 1 rejected: %v", err)
	}
}
