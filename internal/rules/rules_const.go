package rules

// rules_const.go
//
// Default evidence gates and precedence for the rule set. A metric may
// override any gate through insight.Thresholds; zero values fall back here.

// ============================================================================
// Evidence gates
// ============================================================================

const (
	// DEFAULT_ALPHA: significance level a correlation must beat.
	DEFAULT_ALPHA = 0.05

	// MIN_CORRELATION_SAMPLES: paired observations required before a
	// coefficient is reported at all. Configuration may raise it, never lower.
	MIN_CORRELATION_SAMPLES = 5

	// MIN_RANK_GROUPS: groups required before a league table is meaningful.
	MIN_RANK_GROUPS = 3

	// DEFAULT_GAP_PERCENT: adverse gap versus the reference, in percent,
	// beyond which closing the gap is appraised.
	DEFAULT_GAP_PERCENT = 20.0

	// DEFAULT_OUTLIER_MULTIPLE: an extreme is an outlier when it is more
	// than this multiple of the next comparable value.
	DEFAULT_OUTLIER_MULTIPLE = 2.0

	// DEFAULT_VARIATION_CV: coefficient of variation above which the spread
	// between groups is reported.
	DEFAULT_VARIATION_CV = 0.30

	// MIN_DISTRIBUTION_GROUPS: groups required for outlier and spread rules.
	MIN_DISTRIBUTION_GROUPS = 3
)

// ============================================================================
// Precedence
// ============================================================================
//
// When several rules fire for one metric the highest priority supplies the
// key finding and recommendation. Equal priorities keep configuration order.

const (
	PRIORITY_GAP_TO_INVESTMENT = 100
	PRIORITY_OUTLIER           = 90
	PRIORITY_POSITIONING       = 80
	PRIORITY_RANKING           = 70
	PRIORITY_CORRELATION       = 60
	PRIORITY_VARIATION         = 50
	PRIORITY_DISCLAIMER        = 10
)
