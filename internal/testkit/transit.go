// Package testkit holds shared fixtures for tests across packages.
package testkit

import (
	"fmt"
	"math/rand"
	"strings"

	"goinsight/domain/insight"
)

// Regions of the transit fixture, in declaration order
var Regions = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"}

// Per-region totals. Σroutes/Σpopulation × 100k is 7.89.
var (
	regionRoutes     = []float64{1240, 2040, 915, 2580, 1590, 1342, 580, 980, 568}
	regionPopulation = []float64{10e6, 20e6, 10e6, 30e6, 20e6, 20e6, 10e6, 20e6, 10e6}
	regionUrbanRoute = []float64{806, 1326, 595, 1677, 1034, 900, 377, 637, 369}
	regionDensity    = []float64{410, 350, 300, 280, 240, 200, 150, 120, 140}
)

// National transit rate in routes per 100k residents
const NationalRate = 7.89

// TransitDataset returns 18 rows, one urban and one rural per region. Urban
// rows carry 60% of the population.
func TransitDataset() insight.Dataset {
	ds := insight.Dataset{Columns: []string{"region", "area_type", "routes", "population", "density"}}
	for i, region := range Regions {
		urbanPop := regionPopulation[i] * 0.6
		ds.Rows = append(ds.Rows,
			row(region, "urban", regionUrbanRoute[i], urbanPop, regionDensity[i]),
			row(region, "rural", regionRoutes[i]-regionUrbanRoute[i], regionPopulation[i]-urbanPop, regionDensity[i]),
		)
	}
	return ds
}

// Shuffled returns the dataset with its rows in a seeded random order
func Shuffled(ds insight.Dataset, seed int64) insight.Dataset {
	out := insight.Dataset{Columns: ds.Columns, Rows: append([]insight.Row(nil), ds.Rows...)}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(out.Rows), func(i, j int) { out.Rows[i], out.Rows[j] = out.Rows[j], out.Rows[i] })
	return out
}

// TransitMetric configures every rule against the transit fixture
func TransitMetric() insight.MetricConfig {
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

// SmallDataset has four regions, too few for a correlation
func SmallDataset() insight.Dataset {
	ds := insight.Dataset{Columns: []string{"region", "area_type", "routes", "population", "density"}}
	for i, region := range Regions[:4] {
		ds.Rows = append(ds.Rows, row(region, "urban", regionRoutes[i], regionPopulation[i], regionDensity[i]))
	}
	return ds
}

func row(region, area string, routes, population, density float64) insight.Row {
	return insight.Row{
		Attributes: map[string]string{"region": region, "area_type": area},
		Values:     map[string]float64{"routes": routes, "population": population, "density": density},
	}
}

// Records flattens a dataset into the loosely typed records the loaders
// produce, in column order.
func Records(ds insight.Dataset) []map[string]any {
	out := make([]map[string]any, len(ds.Rows))
	for i, r := range ds.Rows {
		rec := make(map[string]any, len(r.Attributes)+len(r.Values))
		for k, v := range r.Attributes {
			rec[k] = v
		}
		for k, v := range r.Values {
			rec[k] = v
		}
		out[i] = rec
	}
	return out
}

// CSV renders a dataset as comma-separated text with a header row
func CSV(ds insight.Dataset) string {
	var b strings.Builder
	b.WriteString(strings.Join(ds.Columns, ","))
	b.WriteByte('\n')
	for _, rec := range Records(ds) {
		cells := make([]string, len(ds.Columns))
		for j, c := range ds.Columns {
			if v, ok := rec[c]; ok {
				cells[j] = fmt.Sprint(v)
			}
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteByte('\n')
	}
	return b.String()
}
