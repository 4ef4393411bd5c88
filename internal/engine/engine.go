// Package engine runs the insight pipeline for one metric and one filter set:
// resolve the view context, compute evidence for each configured rule, gate
// it, render what fired and assemble an immutable NarrativeResult.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"goinsight/domain/core"
	"goinsight/domain/insight"
	"goinsight/internal/calculators"
	"goinsight/internal/narrative"
	"goinsight/internal/rules"
	"goinsight/internal/scope"
)

// Stage of one invocation
type Stage int

const (
	StageIdle Stage = iota
	StageContextResolved
	StageEvidenceComputed
	StageRulesEvaluated
	StageRendered
	StageReturned
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageContextResolved:
		return "context_resolved"
	case StageEvidenceComputed:
		return "evidence_computed"
	case StageRulesEvaluated:
		return "rules_evaluated"
	case StageRendered:
		return "rendered"
	case StageReturned:
		return "returned"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Engine is stateless between calls and safe for concurrent use
type Engine struct {
	logger    *log.Logger
	appraisal calculators.Appraisal
	trace     func(metric string, stage Stage)
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger for skipped-rule and stage messages
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithAppraisal sets the discount rate, horizon and BCR bands
func WithAppraisal(a calculators.Appraisal) Option {
	return func(e *Engine) { e.appraisal = a }
}

// WithTrace registers a hook called on every stage transition
func WithTrace(fn func(metric string, stage Stage)) Option {
	return func(e *Engine) { e.trace = fn }
}

// New builds an engine. Without options it discards logs and uses the
// default appraisal.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:    log.New(io.Discard, "", 0),
		appraisal: calculators.DefaultAppraisal(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if len(e.appraisal.Bands) == 0 {
		e.appraisal.Bands = calculators.DefaultBCRBands()
	}
	return e
}

// Appraisal returns a copy of the engine's appraisal settings
func (e *Engine) Appraisal() calculators.Appraisal {
	a := e.appraisal
	a.Bands = append([]calculators.BCRBand(nil), e.appraisal.Bands...)
	return a
}

// invocation carries the state of one Run
type invocation struct {
	engine *Engine
	cfg    insight.MetricConfig
	stage  Stage
}

func (inv *invocation) advance(next Stage) {
	if next != inv.stage+1 {
		inv.engine.logger.Printf("[Engine] %s: unexpected transition %s -> %s", inv.cfg.ID, inv.stage, next)
	}
	inv.stage = next
	if inv.engine.trace != nil {
		inv.engine.trace(inv.cfg.ID, next)
	}
}

// fired pairs an emitted insight with its position in the rule list
type fired struct {
	order   int
	insight insight.Insight
}

// Run evaluates one metric under one filter set. It never fails: rule-level
// problems are recorded in the result's evidence dictionary.
func (e *Engine) Run(ds insight.Dataset, cfg insight.MetricConfig, filters insight.Filters) insight.NarrativeResult {
	inv := &invocation{engine: e, cfg: cfg, stage: StageIdle}
	ds = ds.NormalizeGroups(cfg.GroupColumn)

	ctx := scope.ResolveFor(filters, ds, cfg)
	inv.advance(StageContextResolved)
	if ctx.Ambiguous {
		e.logger.Printf("[Engine] %s: ambiguous filters, falling back to subset: %s", cfg.ID, ctx.Disclaimer)
	}

	in := e.inputs(ds, cfg, ctx)
	inv.advance(StageEvidenceComputed)

	records := make(map[string]insight.EvidenceRecord, len(cfg.Rules)+1)
	var firing []fired
	for i, id := range cfg.Rules {
		key := string(id)
		if _, seen := records[key]; seen {
			continue
		}
		rec, ins, ok := e.evaluate(id, in)
		records[key] = rec
		if ok {
			firing = append(firing, fired{order: i, insight: ins})
		}
	}
	if ctx.Ambiguous {
		ins := rules.ContextDisclaimer(ctx)
		firing = append(firing, fired{order: len(cfg.Rules), insight: ins})
		records[string(ins.RuleID)] = insight.EvidenceRecord{
			RuleID:   ins.RuleID,
			Outcome:  insight.OutcomeFired,
			Code:     core.CodeInvalidContext,
			Reason:   ctx.Disclaimer,
			Evidence: evidencePtr(ins.Evidence),
		}
	}

	// Highest priority first; equal priorities keep configuration order
	sort.SliceStable(firing, func(i, j int) bool {
		if firing[i].insight.Priority != firing[j].insight.Priority {
			return firing[i].insight.Priority > firing[j].insight.Priority
		}
		return firing[i].order < firing[j].order
	})
	inv.advance(StageRulesEvaluated)

	insights := make([]insight.Insight, 0, len(firing))
	for _, f := range firing {
		ins := f.insight
		ins.Text = narrative.Render(ins, ctx, cfg)
		if rec, ok := narrative.Recommend(ins, ctx, cfg); ok {
			ins.Recommendation = rec
		}
		if missing := narrative.Missing(ins, ctx, cfg); len(missing) > 0 {
			rec := records[string(ins.RuleID)]
			if rec.Code == "" {
				rec.Code = core.CodeFormatFallback
			}
			rec.Reason = joinReason(rec.Reason, fmt.Sprintf("%v: %s", core.ErrFormatFallback, strings.Join(missing, ", ")))
			records[string(ins.RuleID)] = rec
			e.logger.Printf("[Engine] %s: rule %s rendered with fallbacks for %s", cfg.ID, ins.RuleID, strings.Join(missing, ", "))
		}
		insights = append(insights, ins)
	}
	inv.advance(StageRendered)

	result := insight.NarrativeResult{
		ID:         core.NewResultID(core.ComputeRequestHash(cfg.ID, filters.Entities, filters.Subsets)).String(),
		MetricID:   cfg.ID,
		MetricName: cfg.Name,
		Unit:       cfg.Unit,
		Context:    ctx,
		Insights:   insights,
		Sources:    append([]insight.Source{}, cfg.Sources...),
		Reference: insight.ReferenceSummary{
			Value:          in.ReferenceValue,
			ArithmeticMean: in.ReferenceMean,
			GroupCount:     len(in.Reference),
			ViewValue:      in.ViewValue,
		},
		Evidence: records,
	}
	if in.ReferenceErr != nil {
		result.Reference.Reason = in.ReferenceErr.Error()
	}
	result.Summary, result.KeyFinding, result.Recommendation = headline(insights, cfg)

	inv.advance(StageReturned)
	return result
}

// inputs computes the reference and view aggregates shared by every rule
func (e *Engine) inputs(ds insight.Dataset, cfg insight.MetricConfig, ctx insight.ViewContext) rules.Inputs {
	in := rules.Inputs{
		Context:   ctx,
		Config:    cfg,
		Appraisal: e.Appraisal(),
	}

	ref := aggregate(ds, cfg)
	in.Reference, in.ReferenceValue, in.ReferenceMean, in.ReferenceErr = ref.groups, ref.value, ref.mean, ref.err

	viewRows := ds
	view := ref
	if ctx.Scope != insight.ScopeAll {
		viewRows = ds.Filter(ctx.Filters, cfg.GroupColumn)
		view = aggregate(viewRows, cfg)
	}
	in.View, in.ViewValue, in.ViewWeight, in.ViewErr = view.groups, view.value, view.weight, view.err

	if cfg.CorrelateWith != nil {
		in.Covariate, in.CovariateErr = covariate(viewRows, cfg, in.View)
	}
	return in
}

// evaluate runs one rule in isolation. A panic inside a rule is contained
// and audited like any other failure.
func (e *Engine) evaluate(id insight.RuleID, in rules.Inputs) (rec insight.EvidenceRecord, ins insight.Insight, ok bool) {
	rec = insight.EvidenceRecord{RuleID: id}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("[Engine] %s: rule %s panicked: %v", in.Config.ID, id, r)
			rec = insight.EvidenceRecord{RuleID: id, Outcome: insight.OutcomeSkipped, Code: core.CodeUnknown, Reason: fmt.Sprint(r)}
			ins, ok = insight.Insight{}, false
		}
	}()

	rule, err := rules.Lookup(id, in.Config.Thresholds)
	if err != nil {
		e.logger.Printf("[Engine] %s: rule %s skipped: %v", in.Config.ID, id, err)
		rec.Outcome, rec.Code, rec.Reason = insight.OutcomeSkipped, core.Classify(err), err.Error()
		return rec, ins, false
	}
	rec.RuleID = rule.ID

	ev, err := rule.Evidence(in)
	switch {
	case errors.Is(err, rules.ErrNotApplicable):
		rec.Outcome, rec.Reason = insight.OutcomeNotApplicable, fmt.Sprintf("not applicable in %s scope", in.Context.Scope)
		return rec, ins, false
	case err != nil:
		e.logger.Printf("[Engine] %s: rule %s skipped: %v", in.Config.ID, id, err)
		insufficient := insight.Insufficient(err.Error())
		rec.Outcome, rec.Code, rec.Reason, rec.Evidence = insight.OutcomeSkipped, core.Classify(err), err.Error(), &insufficient
		return rec, ins, false
	}

	if !rule.Applies(in.Context, ev) {
		rec.Outcome, rec.Code, rec.Reason = insight.OutcomeSkipped, core.CodeInsufficientEvidence, "evidence gate not met"
		rec.Evidence = evidencePtr(ev)
		return rec, ins, false
	}

	ins = rule.Emit(in.Context, ev)
	rec.Outcome = insight.OutcomeFired
	rec.Evidence = evidencePtr(ins.Evidence)
	return rec, ins, true
}

// headline picks the summary, key finding and recommendation. Insights are
// already in priority order.
func headline(insights []insight.Insight, cfg insight.MetricConfig) (summary, key, recommendation string) {
	if len(insights) == 0 {
		name := cfg.Name
		if name == "" {
			name = cfg.ID
		}
		none := fmt.Sprintf("There is not enough evidence to describe %s for this selection.", name)
		return none, none, ""
	}

	key = insights[0].Text
	summary = key
	for _, in := range insights {
		if in.Category == insight.CategoryPositioning {
			summary = in.Text
			break
		}
	}
	for _, in := range insights {
		if in.Recommendation != "" {
			recommendation = in.Recommendation
			break
		}
	}
	return summary, key, recommendation
}

func evidencePtr(ev insight.Evidence) *insight.Evidence {
	return &ev
}

func joinReason(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
