package insight

// EvidenceStatus marks whether an Evidence record may back a claim
type EvidenceStatus string

const (
	EvidenceSufficient   EvidenceStatus = "sufficient"
	EvidenceInsufficient EvidenceStatus = "insufficient"
)

// Evidence holds the computed facts for one rule firing. Optional fields are
// pointers: nil means "not computed", never zero.
type Evidence struct {
	Status EvidenceStatus `json:"status"`
	Reason string         `json:"reason,omitempty"`

	// Positioning
	Group          string   `json:"group,omitempty"`
	Value          *float64 `json:"value,omitempty"`
	Reference      *float64 `json:"reference,omitempty"`
	ArithmeticMean *float64 `json:"arithmetic_mean,omitempty"`
	Rank           *int     `json:"rank,omitempty"`
	N              *int     `json:"n,omitempty"`
	Percentile     *float64 `json:"percentile,omitempty"`
	PctVsReference *float64 `json:"pct_vs_reference,omitempty"`
	Classification string   `json:"classification,omitempty"`
	LowestGroup    string   `json:"lowest_group,omitempty"`
	LowestValue    *float64 `json:"lowest_value,omitempty"`
	LowestPct      *float64 `json:"lowest_pct,omitempty"`

	// Relationship
	Covariate   string   `json:"covariate,omitempty"`
	Method      string   `json:"method,omitempty"`
	Coefficient *float64 `json:"coefficient,omitempty"`
	PValue      *float64 `json:"p_value,omitempty"`
	SampleSize  *int     `json:"sample_size,omitempty"`
	EffectSize  *float64 `json:"effect_size,omitempty"`

	// Distribution
	Side         string   `json:"side,omitempty"`
	NextGroup    string   `json:"next_group,omitempty"`
	NextValue    *float64 `json:"next_value,omitempty"`
	OutlierRatio *float64 `json:"outlier_ratio,omitempty"`
	CV           *float64 `json:"cv,omitempty"`
	Gini         *float64 `json:"gini,omitempty"`

	// Appraisal
	UnitsNeeded      *float64 `json:"units_needed,omitempty"`
	CostPV           *float64 `json:"cost_pv,omitempty"`
	BenefitPV        *float64 `json:"benefit_pv,omitempty"`
	BenefitCostRatio *float64 `json:"benefit_cost_ratio,omitempty"`
	BCRBand          string   `json:"bcr_band,omitempty"`
	DiscountRate     *float64 `json:"discount_rate,omitempty"`
	HorizonYears     *int     `json:"horizon_years,omitempty"`
}

// Insufficient builds an explicitly insufficient record
func Insufficient(reason string) Evidence {
	return Evidence{Status: EvidenceInsufficient, Reason: reason}
}

// IsSufficient reports whether the record may back an insight
func (e Evidence) IsSufficient() bool {
	return e.Status == EvidenceSufficient
}

// Fields exposes the record as placeholder -> value for template rendering.
// Absent pointers and empty strings appear as untyped nil.
func (e Evidence) Fields() map[string]any {
	return map[string]any{
		"group":              str(e.Group),
		"value":              flt(e.Value),
		"reference":          flt(e.Reference),
		"arithmetic_mean":    flt(e.ArithmeticMean),
		"rank":               num(e.Rank),
		"n":                  num(e.N),
		"percentile":         flt(e.Percentile),
		"pct_vs_reference":   flt(e.PctVsReference),
		"classification":     str(e.Classification),
		"lowest_group":       str(e.LowestGroup),
		"lowest_value":       flt(e.LowestValue),
		"lowest_pct":         flt(e.LowestPct),
		"covariate":          str(e.Covariate),
		"method":             str(e.Method),
		"coefficient":        flt(e.Coefficient),
		"p_value":            flt(e.PValue),
		"sample_size":        num(e.SampleSize),
		"effect_size":        flt(e.EffectSize),
		"side":               str(e.Side),
		"next_group":         str(e.NextGroup),
		"next_value":         flt(e.NextValue),
		"outlier_ratio":      flt(e.OutlierRatio),
		"cv":                 flt(e.CV),
		"gini":               flt(e.Gini),
		"units_needed":       flt(e.UnitsNeeded),
		"cost_pv":            flt(e.CostPV),
		"benefit_pv":         flt(e.BenefitPV),
		"benefit_cost_ratio": flt(e.BenefitCostRatio),
		"bcr_band":           str(e.BCRBand),
		"discount_rate":      flt(e.DiscountRate),
		"horizon_years":      num(e.HorizonYears),
	}
}

func str(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func flt(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func num(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }
