package insight

// Category groups insights for presentation
type Category string

const (
	CategoryPositioning  Category = "positioning"
	CategoryRelationship Category = "relationship"
	CategoryDistribution Category = "distribution"
	CategoryInvestment   Category = "investment"
	CategoryContext      Category = "context"
)

// Severity tags how strongly an insight should be surfaced
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityNotice  Severity = "notice"
	SeverityWarning Severity = "warning"
)

// Insight is one rule's evidence-backed output
type Insight struct {
	RuleID         RuleID   `json:"rule_id"`
	Category       Category `json:"category"`
	Severity       Severity `json:"severity"`
	Priority       int      `json:"priority"`
	Text           string   `json:"text"`
	Recommendation string   `json:"recommendation,omitempty"`
	Evidence       Evidence `json:"evidence"`
}

// Outcome of evaluating one configured rule
type Outcome string

const (
	OutcomeFired         Outcome = "fired"
	OutcomeNotApplicable Outcome = "not_applicable"
	OutcomeSkipped       Outcome = "skipped"
)

// EvidenceRecord is the audit entry for one configured rule
type EvidenceRecord struct {
	RuleID   RuleID    `json:"rule_id"`
	Outcome  Outcome   `json:"outcome"`
	Code     string    `json:"code,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Evidence *Evidence `json:"evidence,omitempty"`
}

// ReferenceSummary records the reference-set aggregates used by every rule
type ReferenceSummary struct {
	Value          *float64 `json:"value,omitempty"`
	ArithmeticMean *float64 `json:"arithmetic_mean,omitempty"`
	GroupCount     int      `json:"group_count"`
	ViewValue      *float64 `json:"view_value,omitempty"`
	Reason         string   `json:"reason,omitempty"`
}

// NarrativeResult is the orchestrator's immutable output for one request
type NarrativeResult struct {
	ID             string                    `json:"id"`
	MetricID       string                    `json:"metric_id"`
	MetricName     string                    `json:"metric_name"`
	Unit           string                    `json:"unit"`
	Context        ViewContext               `json:"context"`
	Summary        string                    `json:"summary"`
	KeyFinding     string                    `json:"key_finding"`
	Recommendation string                    `json:"recommendation"`
	Insights       []Insight                 `json:"insights"`
	Sources        []Source                  `json:"sources"`
	Reference      ReferenceSummary          `json:"reference"`
	Evidence       map[string]EvidenceRecord `json:"evidence"`
}

// Insight returns the insight emitted by a rule, if any
func (r NarrativeResult) Insight(id RuleID) (Insight, bool) {
	for _, in := range r.Insights {
		if in.RuleID == id {
			return in, true
		}
	}
	return Insight{}, false
}
