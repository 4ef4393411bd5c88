package main

import (
	"io"

	"github.com/spf13/cobra"

	"goinsight/domain/insight"
	"goinsight/internal/engine"
	"goinsight/internal/narrative"
)

// demoRegion holds per-region totals; the urban row carries 60% of the
// population and urbanRoutes of the routes.
type demoRegion struct {
	name        string
	routes      float64
	urbanRoutes float64
	population  float64
	density     float64
}

// Σroutes/Σpopulation × 100k is 7.89
var demoRegions = []demoRegion{
	{"A", 1240, 806, 10e6, 410},
	{"B", 2040, 1326, 20e6, 350},
	{"C", 915, 595, 10e6, 300},
	{"D", 2580, 1677, 30e6, 280},
	{"E", 1590, 1034, 20e6, 240},
	{"F", 1342, 900, 20e6, 200},
	{"G", 580, 377, 10e6, 150},
	{"H", 980, 637, 20e6, 120},
	{"I", 568, 369, 10e6, 140},
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Print narratives for the built-in transit example",
		Long: `Run the three reference scenarios against a built-in dataset of nine
regions: one region selected, an urban subset, and a single region within
the urban subset.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.OutOrStdout())
		},
	}
}

func runDemo(w io.Writer) error {
	eng := engine.New()
	ds := demoDataset()
	cfg := demoMetric()

	scenarios := []insight.Filters{
		{Entities: []string{"F"}},
		{Subsets: map[string][]string{"area_type": {"urban"}}},
		{Entities: []string{"F"}, Subsets: map[string][]string{"area_type": {"urban"}}},
	}
	for _, filters := range scenarios {
		result := eng.Run(ds, cfg, filters)
		if _, err := io.WriteString(w, narrative.Markdown(result)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n---\n\n"); err != nil {
			return err
		}
	}
	return nil
}

// demoDataset has one urban and one rural row per region
func demoDataset() insight.Dataset {
	ds := insight.Dataset{Columns: []string{"region", "area_type", "routes", "population", "density"}}
	for _, r := range demoRegions {
		urbanPop := r.population * 0.6
		ds.Rows = append(ds.Rows,
			demoRow(r.name, "urban", r.urbanRoutes, urbanPop, r.density),
			demoRow(r.name, "rural", r.routes-r.urbanRoutes, r.population-urbanPop, r.density),
		)
	}
	return ds
}

func demoRow(region, area string, routes, population, density float64) insight.Row {
	return insight.Row{
		Attributes: map[string]string{"region": region, "area_type": area},
		Values:     map[string]float64{"routes": routes, "population": population, "density": density},
	}
}

func demoMetric() insight.MetricConfig {
	return insight.MetricConfig{
		ID:                "transit_routes",
		Name:              "Public transit routes",
		GroupColumn:       "region",
		GroupLabel:        "region",
		NumeratorColumn:   "routes",
		DenominatorColumn: "population",
		Scale:             100000,
		Unit:              "routes per 100k residents",
		Direction:         insight.HigherIsBetter,
		Bands: []insight.Band{
			{Label: "high", Min: 10},
			{Label: "medium", Min: 6},
			{Label: "low", Min: 0},
		},
		Rules: []insight.RuleID{
			insight.RuleRanking,
			insight.RuleSingleEntityPositioning,
			insight.RuleSubsetDescriptive,
			insight.RuleCorrelation,
			insight.RuleOutlier,
			insight.RuleGapToInvestment,
			insight.RuleVariation,
		},
		CorrelateWith: &insight.CorrelationSpec{Column: "density", Label: "population density", Method: "pearson"},
		CostModel: &insight.CostModel{
			UnitLabel:           "route",
			CapitalCost:         250000,
			AnnualOperatingCost: 40000,
			AnnualBenefit:       90000,
			Currency:            "EUR",
		},
		Sources: []insight.Source{
			{Name: "Regional transit registry", Publisher: "Transport Statistics Office", Year: 2024},
			{Name: "Population estimates", Publisher: "National Statistics Institute", Year: 2024},
		},
	}
}
