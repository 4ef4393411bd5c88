package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"goinsight/domain/insight"
	"goinsight/internal/calculators"
	"goinsight/internal/errors"
	"goinsight/internal/rules"
)

// Catalog is the declarative list of analyzable metrics, usually read from
// metrics.yaml. An optional appraisal block overrides the environment.
type Catalog struct {
	Appraisal *calculators.Appraisal `yaml:"appraisal,omitempty" json:"appraisal,omitempty"`
	Metrics   []insight.MetricConfig `yaml:"metrics" json:"metrics"`
}

// LoadCatalog reads and validates a YAML catalog file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.WithCode(errors.CodeConfigInvalid, err), "failed to read metric catalog %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.WithCode(errors.CodeConfigInvalid, err), "failed to parse metric catalog")
	}
	if problems := schemaErrors(doc); len(problems) > 0 {
		return nil, errors.ConfigInvalid("metric catalog is malformed: " + strings.Join(problems, "; "))
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, errors.Wrap(errors.WithCode(errors.CodeConfigInvalid, err), "failed to parse metric catalog")
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate checks every metric definition
func (c *Catalog) Validate() error {
	if len(c.Metrics) == 0 {
		return errors.ConfigInvalid("metric catalog is empty")
	}
	if c.Appraisal != nil {
		if err := c.Appraisal.Validate(); err != nil {
			return errors.WithCode(errors.CodeConfigInvalid, err)
		}
	}

	seen := make(map[string]bool, len(c.Metrics))
	for _, m := range c.Metrics {
		if m.ID == "" {
			return errors.ConfigInvalid("metric without id")
		}
		if seen[m.ID] {
			return errors.ConfigInvalid(fmt.Sprintf("duplicate metric id %q", m.ID))
		}
		seen[m.ID] = true

		if err := validateMetric(m); err != nil {
			return errors.Wrapf(err, "metric %s", m.ID)
		}
	}
	return nil
}

func validateMetric(m insight.MetricConfig) error {
	if m.GroupColumn == "" {
		return errors.ConfigInvalid("group_column is required")
	}
	hasRate := m.NumeratorColumn != "" || m.DenominatorColumn != ""
	if hasRate && !m.IsRate() {
		return errors.ConfigInvalid("numerator_column and denominator_column must be set together")
	}
	if !m.IsRate() && m.ValueColumn == "" {
		return errors.ConfigInvalid("either value_column or numerator_column/denominator_column is required")
	}
	if m.Direction != "" && m.Direction != insight.HigherIsBetter && m.Direction != insight.LowerIsBetter {
		return errors.ConfigInvalid(fmt.Sprintf("direction must be %q or %q", insight.HigherIsBetter, insight.LowerIsBetter))
	}
	if len(m.Rules) == 0 {
		return errors.ConfigInvalid("at least one rule is required")
	}
	for _, id := range m.Rules {
		if _, err := rules.Lookup(id, m.Thresholds); err != nil {
			return errors.WithCode(errors.CodeConfigInvalid, err)
		}
	}
	if m.CostModel != nil && m.CostModel.CapitalCost < 0 {
		return errors.ConfigInvalid("cost_model.capital_cost must not be negative")
	}
	return nil
}

// Metric returns the metric with the given id
func (c *Catalog) Metric(id string) (insight.MetricConfig, bool) {
	for _, m := range c.Metrics {
		if strings.EqualFold(m.ID, id) {
			return m, true
		}
	}
	return insight.MetricConfig{}, false
}

// WithDefaults returns a copy whose metrics inherit any unset gate from
// the environment-level thresholds.
func (c *Catalog) WithDefaults(th insight.Thresholds) *Catalog {
	out := &Catalog{Appraisal: c.Appraisal, Metrics: make([]insight.MetricConfig, len(c.Metrics))}
	for i, m := range c.Metrics {
		t := &m.Thresholds
		if t.GapPercent == 0 {
			t.GapPercent = th.GapPercent
		}
		if t.OutlierMultiple == 0 {
			t.OutlierMultiple = th.OutlierMultiple
		}
		if t.VariationCV == 0 {
			t.VariationCV = th.VariationCV
		}
		if t.Alpha == 0 {
			t.Alpha = th.Alpha
		}
		if t.MinSampleSize == 0 {
			t.MinSampleSize = th.MinSampleSize
		}
		if t.MinRankGroups == 0 {
			t.MinRankGroups = th.MinRankGroups
		}
		out.Metrics[i] = m
	}
	return out
}

// AppraisalOr returns the catalog's appraisal, or fallback when it has none
func (c *Catalog) AppraisalOr(fallback calculators.Appraisal) calculators.Appraisal {
	if c.Appraisal == nil {
		return fallback
	}
	a := *c.Appraisal
	if len(a.Bands) == 0 {
		a.Bands = calculators.DefaultBCRBands()
	}
	return a
}
