package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"valuation-lab/internal/align"
	"valuation-lab/internal/domain"
	"valuation-lab/internal/marketdata"
	"valuation-lab/internal/simulation"
	"valuation-lab/internal/strategy"
	"valuation-lab/internal/xirr"
)

func main() {
	name := flag.String("name", "ad-hoc", "Strategy name")
	kind := flag.String("kind", "CONTRIBUTION", "Strategy kind: CONTRIBUTION or DEPLOYMENT")
	metric := flag.String("metric", "PE", "Valuation metric: PE, PB, PE_PB")
	tierSpec := flag.String("tiers", "", "Tiers as threshold:multiplier pairs, e.g. 20:1,18:2,16:3 (required)")
	pbTierSpec := flag.String("pb-tiers", "", "PB tiers for PE_PB strategies, same format")

	baseUnit := flag.Float64("base-unit", 10000, "Per-period contribution or total capital pool")
	baselineYield := flag.Float64("baseline-yield", 0.055, "Annual yield on parked capital (DEPLOYMENT)")

	symbol := flag.String("symbol", "NIFTY50", "Symbol label")
	priceCSV := flag.String("price-csv", "", "Price series CSV file (required)")
	peCSV := flag.String("pe-csv", "", "PE ratio series CSV file")
	pbCSV := flag.String("pb-csv", "", "PB ratio series CSV file")
	frequency := flag.String("frequency", "WEEKLY", "Sampling frequency: DAILY, WEEKLY, MONTHLY")

	showDeployments := flag.Bool("deployments", false, "Include per-tranche deployment records in output")

	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().Str("component", "simulate").Logger()

	if *tierSpec == "" {
		logger.Fatal().Msg("--tiers is required")
	}
	if *priceCSV == "" {
		logger.Fatal().Msg("--price-csv is required")
	}
	if *peCSV == "" && *pbCSV == "" {
		logger.Fatal().Msg("at least one of --pe-csv and --pb-csv is required")
	}

	tiers, err := parseTiers(*tierSpec)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse --tiers")
	}
	var pbTiers []domain.Tier
	if *pbTierSpec != "" {
		if pbTiers, err = parseTiers(*pbTierSpec); err != nil {
			logger.Fatal().Err(err).Msg("parse --pb-tiers")
		}
	}

	def, err := strategy.Build(strategy.Params{
		Name:                *name,
		Kind:                domain.Kind(strings.ToUpper(*kind)),
		Metric:              domain.Metric(strings.ToUpper(*metric)),
		Tiers:               tiers,
		PBTiers:             pbTiers,
		BaseUnit:            *baseUnit,
		BaselineAnnualYield: *baselineYield,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build strategy")
	}

	price, err := marketdata.LoadCSVSeries(*priceCSV, *symbol+"/price")
	if err != nil {
		logger.Fatal().Err(err).Msg("load price series")
	}
	var vals align.Valuations
	if *peCSV != "" {
		if vals.PE, err = marketdata.LoadCSVSeries(*peCSV, *symbol+"/pe"); err != nil {
			logger.Fatal().Err(err).Msg("load PE series")
		}
	}
	if *pbCSV != "" {
		if vals.PB, err = marketdata.LoadCSVSeries(*pbCSV, *symbol+"/pb"); err != nil {
			logger.Fatal().Err(err).Msg("load PB series")
		}
	}

	dataset, warnings, err := align.Align(price, vals, align.Options{
		Frequency: domain.Frequency(strings.ToUpper(*frequency)),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("align series")
	}
	for _, w := range warnings {
		logger.Warn().Time("ts", w.Timestamp).Msg(w.Message)
	}

	var ledger *domain.SimulationLedger
	switch def.Kind {
	case domain.KindContribution:
		ledger, err = simulation.RunContribution(dataset, def, def.BaseUnit)
	case domain.KindDeployment:
		ledger, err = simulation.RunDeployment(dataset, def, def.BaseUnit, def.BaselineAnnualYield)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("run simulation")
	}

	out := buildOutput(def, dataset, ledger, *showDeployments)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatal().Err(err).Msg("encode output")
	}
}

// parseTiers parses "threshold:multiplier,threshold:multiplier" specs.
func parseTiers(spec string) ([]domain.Tier, error) {
	parts := strings.Split(spec, ",")
	tiers := make([]domain.Tier, 0, len(parts))
	for _, part := range parts {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("tier %q: want threshold:multiplier", part)
		}
		threshold, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("tier %q: parse threshold: %w", part, err)
		}
		multiplier, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("tier %q: parse multiplier: %w", part, err)
		}
		tiers = append(tiers, domain.Tier{Threshold: threshold, Multiplier: multiplier})
	}
	return tiers, nil
}

// output is the JSON document printed after a run.
type output struct {
	StrategyID    string    `json:"strategy_id"`
	Name          string    `json:"name"`
	Kind          string    `json:"kind"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Rows          int       `json:"rows"`
	TotalInvested float64   `json:"total_invested"`
	CurrentValue  float64   `json:"current_value"`
	UnitsHeld     float64   `json:"units_held"`
	ReturnPct     float64   `json:"return_pct"`
	XIRR          *float64  `json:"xirr,omitempty"`

	Multipliers     domain.MultiplierCounts `json:"multiplier_counts"`
	ParkedRemaining float64                 `json:"parked_remaining,omitempty"`
	NumDeployments  int                     `json:"num_deployments,omitempty"`

	Deployments []domain.DeploymentRecord `json:"deployments,omitempty"`
	Warnings    []domain.Warning          `json:"warnings,omitempty"`
}

func buildOutput(def *domain.StrategyDefinition, dataset *domain.AlignedDataset, ledger *domain.SimulationLedger, showDeployments bool) output {
	currentValue := ledger.Position.UnitsHeld*dataset.FinalPrice() + ledger.ParkedRemaining

	out := output{
		StrategyID:      def.StrategyID,
		Name:            def.Name,
		Kind:            string(def.Kind),
		Start:           dataset.Start(),
		End:             dataset.End(),
		Rows:            dataset.Len(),
		TotalInvested:   ledger.TotalInvested,
		CurrentValue:    currentValue,
		UnitsHeld:       ledger.Position.UnitsHeld,
		Multipliers:     ledger.Multipliers,
		ParkedRemaining: ledger.ParkedRemaining,
		NumDeployments:  len(ledger.Deployments),
		Warnings:        ledger.Warnings,
	}

	if ledger.TotalInvested > 0 {
		out.ReturnPct = (currentValue - ledger.TotalInvested) / ledger.TotalInvested * 100
	}
	if rate, err := xirr.Solve(ledger.Events); err == nil {
		out.XIRR = &rate
	}
	if showDeployments {
		out.Deployments = ledger.Deployments
	}
	return out
}
