// Package catalog loads preset strategy definitions from YAML. Presets
// are data, not code: the embedded default catalog can be replaced by
// any caller-supplied file of the same shape. Every entry passes through
// the same construction-time validation as user-built strategies.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"valuation-lab/internal/domain"
	"valuation-lab/internal/strategy"
)

//go:embed presets.yaml
var presetYAML []byte

// File is the top-level catalog document.
type File struct {
	Strategies []Entry `yaml:"strategies" validate:"min=1,dive"`
}

// Entry is one catalog strategy before construction.
type Entry struct {
	Name        string      `yaml:"name" validate:"required"`
	Kind        string      `yaml:"kind" validate:"required,oneof=CONTRIBUTION DEPLOYMENT"`
	Metric      string      `yaml:"metric" validate:"required,oneof=PE PB PE_PB"`
	Description string      `yaml:"description"`
	BaseUnit    float64     `yaml:"base_unit" default:"10000" validate:"gt=0"`
	Yield       float64     `yaml:"baseline_annual_yield" validate:"gte=0"`
	Tiers       []TierEntry `yaml:"tiers" validate:"required,min=1,max=10,dive"`
	PBTiers     []TierEntry `yaml:"pb_tiers" validate:"omitempty,max=10,dive"`
}

// TierEntry is one (threshold, multiplier) pair.
type TierEntry struct {
	Threshold  float64 `yaml:"threshold" validate:"gt=0"`
	Multiplier float64 `yaml:"multiplier" validate:"gt=0"`
}

// Default returns the embedded preset catalog.
func Default() ([]*domain.StrategyDefinition, error) {
	return Parse(presetYAML)
}

// LoadFile reads and builds a catalog from a YAML file.
func LoadFile(path string) ([]*domain.StrategyDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults, validates and builds every catalog entry.
// A malformed entry fails the whole catalog: presets are trusted input
// and a silent partial load would hide the defect.
func Parse(data []byte) ([]*domain.StrategyDefinition, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := defaults.Set(&file); err != nil {
		return nil, fmt.Errorf("apply catalog defaults: %w", err)
	}
	if err := validator.New().Struct(&file); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	defs := make([]*domain.StrategyDefinition, 0, len(file.Strategies))
	for _, e := range file.Strategies {
		def, err := strategy.Build(strategy.Params{
			Name:                e.Name,
			Kind:                domain.Kind(e.Kind),
			Metric:              domain.Metric(e.Metric),
			Tiers:               toTiers(e.Tiers),
			PBTiers:             toTiers(e.PBTiers),
			BaseUnit:            e.BaseUnit,
			BaselineAnnualYield: e.Yield,
		})
		if err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", e.Name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func toTiers(entries []TierEntry) []domain.Tier {
	if len(entries) == 0 {
		return nil
	}
	tiers := make([]domain.Tier, len(entries))
	for i, e := range entries {
		tiers[i] = domain.Tier{Threshold: e.Threshold, Multiplier: e.Multiplier}
	}
	return tiers
}
