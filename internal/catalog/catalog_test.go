package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valuation-lab/internal/domain"
)

func TestDefault_LoadsEmbeddedCatalog(t *testing.T) {
	defs, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, defs)

	var contribution, deployment, combined int
	seen := make(map[string]bool)
	for _, def := range defs {
		require.NotEmpty(t, def.StrategyID)
		assert.False(t, seen[def.StrategyID], "duplicate strategy ID for %s", def.Name)
		seen[def.StrategyID] = true

		switch def.Kind {
		case domain.KindContribution:
			contribution++
		case domain.KindDeployment:
			deployment++
		}
		if def.Metric == domain.MetricCombined {
			combined++
			assert.NotEmpty(t, def.PBTiers, "%s: combined preset without PB tiers", def.Name)
		}
	}

	assert.Greater(t, contribution, 0, "expected contribution presets")
	assert.Greater(t, deployment, 0, "expected deployment presets")
	assert.Greater(t, combined, 0, "expected combined presets")
}

func TestParse_AppliesBaseUnitDefault(t *testing.T) {
	defs, err := Parse([]byte(`
strategies:
  - name: minimal
    kind: CONTRIBUTION
    metric: PE
    tiers:
      - threshold: 20
        multiplier: 1
`))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, 10000.0, defs[0].BaseUnit)
}

func TestParse_RejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("strategies: [broken"))
	assert.Error(t, err)
}

func TestParse_RejectsEmptyCatalog(t *testing.T) {
	_, err := Parse([]byte("strategies: []"))
	assert.Error(t, err)
}

func TestParse_RejectsInvalidEntry(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown kind",
			yaml: `
strategies:
  - name: bad
    kind: SOMETIMES
    metric: PE
    tiers:
      - threshold: 20
        multiplier: 1
`,
		},
		{
			name: "no tiers",
			yaml: `
strategies:
  - name: bad
    kind: CONTRIBUTION
    metric: PE
    tiers: []
`,
		},
		{
			name: "ascending thresholds",
			yaml: `
strategies:
  - name: bad
    kind: CONTRIBUTION
    metric: PE
    tiers:
      - threshold: 16
        multiplier: 1
      - threshold: 18
        multiplier: 2
`,
		},
		{
			name: "deployment fraction above one",
			yaml: `
strategies:
  - name: bad
    kind: DEPLOYMENT
    metric: PE
    base_unit: 1000000
    tiers:
      - threshold: 18
        multiplier: 2
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_OneBadEntryFailsWholeCatalog(t *testing.T) {
	_, err := Parse([]byte(`
strategies:
  - name: good
    kind: CONTRIBUTION
    metric: PE
    tiers:
      - threshold: 20
        multiplier: 1
  - name: bad
    kind: CONTRIBUTION
    metric: PE
    tiers:
      - threshold: 20
        multiplier: 1
      - threshold: 20
        multiplier: 2
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}
