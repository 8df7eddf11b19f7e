package routing

import (
	"time"

	"github.com/cogbandwidth/router/internal/routingerr"
)

// Weights are the priority-score coefficients (spec §3 RoutingPolicy). The
// first three plus AttentionWeight must sum to 1; New enforces this on
// construction by rescaling, mirroring how the teacher's TelemetryPolicy
// normalizes its own knobs.
type Weights struct {
	SLOWeight         float64 `yaml:"slo_weight" json:"slo_weight"`
	UncertaintyWeight float64 `yaml:"uncertainty_weight" json:"uncertainty_weight"`
	SeverityWeight    float64 `yaml:"severity_weight" json:"severity_weight"`
	AttentionWeight   float64 `yaml:"attention_weight" json:"attention_weight"`
}

// DefaultWeights matches the concrete scenarios in spec §8.
func DefaultWeights() Weights {
	return Weights{SLOWeight: 0.4, UncertaintyWeight: 0.25, SeverityWeight: 0.25, AttentionWeight: 0.1}
}

// Thresholds are the strategy-selection boundaries (spec §3 RoutingPolicy).
type Thresholds struct {
	ImmediateThreshold   float64 `yaml:"immediate_threshold" json:"immediate_threshold"`
	BatchThreshold       float64 `yaml:"batch_threshold" json:"batch_threshold"`
	MinConfidenceForAuto float64 `yaml:"min_confidence_for_auto" json:"min_confidence_for_auto"`
	MaxSeverityForAuto   int     `yaml:"max_severity_for_auto" json:"max_severity_for_auto"`
	ParkLoadThreshold    float64 `yaml:"park_load_threshold" json:"park_load_threshold"`
	AutoMinSLOMinutes    float64 `yaml:"auto_min_slo_minutes" json:"auto_min_slo_minutes"`
	SLOHorizonMinutes    float64 `yaml:"slo_horizon_minutes" json:"slo_horizon_minutes"`
}

// DefaultThresholds matches the concrete scenarios in spec §8.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ImmediateThreshold:   0.75,
		BatchThreshold:       0.45,
		MinConfidenceForAuto: 0.85,
		MaxSeverityForAuto:   2,
		ParkLoadThreshold:    0.7,
		AutoMinSLOMinutes:    15,
		SLOHorizonMinutes:    60,
	}
}

// Policy is the immutable, validated routing configuration (spec §3). It
// is built only through New (or Default) so every live Policy is guaranteed
// normalized and within documented bounds; replacement is then a single
// atomic pointer swap at the Service (spec §4.5 update_policy, §9 Design
// Notes: "explicit immutable policy record built by a validating builder").
type Policy struct {
	weights    Weights
	thresholds Thresholds
}

// Default returns the policy implied by the concrete scenarios in spec §8.
func Default() *Policy {
	p, err := New(DefaultWeights(), DefaultThresholds())
	if err != nil {
		// Defaults are a repo invariant; a failure here is a programmer error.
		panic(err)
	}
	return p
}

// New validates and normalizes weights/thresholds into an immutable Policy.
// Negative weights are rejected; the first three weights plus
// AttentionWeight are rescaled to sum to exactly 1 (spec §3 invariant).
func New(w Weights, t Thresholds) (*Policy, error) {
	if w.SLOWeight < 0 || w.UncertaintyWeight < 0 || w.SeverityWeight < 0 || w.AttentionWeight < 0 {
		return nil, routingerr.New(routingerr.KindConfigError, "routing weights must be non-negative")
	}
	sum := w.SLOWeight + w.UncertaintyWeight + w.SeverityWeight + w.AttentionWeight
	if sum <= 0 {
		return nil, routingerr.New(routingerr.KindConfigError, "routing weights must sum to a positive value")
	}
	normalized := Weights{
		SLOWeight:         w.SLOWeight / sum,
		UncertaintyWeight: w.UncertaintyWeight / sum,
		SeverityWeight:    w.SeverityWeight / sum,
		AttentionWeight:   w.AttentionWeight / sum,
	}

	if t.ImmediateThreshold <= 0 || t.ImmediateThreshold >= 1 {
		return nil, routingerr.New(routingerr.KindConfigError, "immediate_threshold must be in (0,1)")
	}
	if t.BatchThreshold <= 0 || t.BatchThreshold >= 1 {
		return nil, routingerr.New(routingerr.KindConfigError, "batch_threshold must be in (0,1)")
	}
	if t.BatchThreshold >= t.ImmediateThreshold {
		return nil, routingerr.New(routingerr.KindConfigError, "immediate_threshold must exceed batch_threshold")
	}
	if t.MinConfidenceForAuto <= 0 || t.MinConfidenceForAuto > 1 {
		return nil, routingerr.New(routingerr.KindConfigError, "min_confidence_for_auto must be in (0,1]")
	}
	if t.MaxSeverityForAuto < 1 || t.MaxSeverityForAuto > 5 {
		return nil, routingerr.New(routingerr.KindConfigError, "max_severity_for_auto must be in {1..5}")
	}
	if t.ParkLoadThreshold <= 0 || t.ParkLoadThreshold >= 1 {
		return nil, routingerr.New(routingerr.KindConfigError, "park_load_threshold must be in (0,1)")
	}
	if t.AutoMinSLOMinutes < 0 {
		return nil, routingerr.New(routingerr.KindConfigError, "auto_min_slo_minutes must be non-negative")
	}
	if t.SLOHorizonMinutes <= 0 {
		return nil, routingerr.New(routingerr.KindConfigError, "slo_horizon must be positive")
	}

	return &Policy{weights: normalized, thresholds: t}, nil
}

// Weights returns the policy's normalized weights.
func (p *Policy) Weights() Weights { return p.weights }

// Thresholds returns the policy's thresholds.
func (p *Policy) Thresholds() Thresholds { return p.thresholds }

// Evaluate is the pure, total scoring function (spec §4.4). Given a
// well-formed TaskIntent it always returns a WorkItem; malformed inputs
// (out-of-range severity/confidence) fail with InvalidArgument and no
// partial WorkItem is produced.
func (p *Policy) Evaluate(task TaskIntent, sc ScoringContext, now time.Time) (WorkItem, error) {
	if task.Severity < 1 || task.Severity > 5 {
		return WorkItem{}, routingerr.New(routingerr.KindInvalidArgument, "severity must be in {1..5}")
	}
	if task.ModelConfidence < 0 || task.ModelConfidence > 1 {
		return WorkItem{}, routingerr.New(routingerr.KindInvalidArgument, "model_confidence must be in [0,1]")
	}
	if task.SLORiskMinutes < 0 {
		return WorkItem{}, routingerr.New(routingerr.KindInvalidArgument, "slo_risk_minutes must be non-negative")
	}

	t := p.thresholds
	w := p.weights

	sloComponent := clamp01(1 - min1(task.SLORiskMinutes/t.SLOHorizonMinutes))
	uncertaintyComponent := 1 - task.ModelConfidence
	severityComponent := float64(task.Severity) / 5
	attentionComponent := 1 - sc.Load

	rationale := Rationale{
		SLOComponent:         sloComponent,
		UncertaintyComponent: uncertaintyComponent,
		SeverityComponent:    severityComponent,
		AttentionComponent:   attentionComponent,
		SLOWeighted:          w.SLOWeight * sloComponent,
		UncertaintyWeighted:  w.UncertaintyWeight * uncertaintyComponent,
		SeverityWeighted:     w.SeverityWeight * severityComponent,
		AttentionWeighted:    w.AttentionWeight * attentionComponent,
	}

	priority := clamp01(rationale.SLOWeighted + rationale.UncertaintyWeighted + rationale.SeverityWeighted + rationale.AttentionWeighted)

	strategy, rule := p.selectStrategy(task, sc, priority, t)
	rationale.RuleFired = rule

	return WorkItem{
		Task:          task,
		Strategy:      strategy,
		Priority:      priority,
		AttentionLoad: sc.Load,
		QueueDepth:    sc.AttentionContext.QueueDepth,
		Rationale:     rationale,
		DecidedAt:     now,
	}, nil
}

// selectStrategy implements the fixed-order decision boundary from spec
// §4.4. Ties on a boundary resolve upward toward the higher-urgency
// bucket (>= rather than >).
func (p *Policy) selectStrategy(task TaskIntent, sc ScoringContext, priority float64, t Thresholds) (Strategy, string) {
	if task.ModelConfidence >= t.MinConfidenceForAuto &&
		task.Severity <= t.MaxSeverityForAuto &&
		task.SLORiskMinutes >= t.AutoMinSLOMinutes {
		return StrategyAuto, "auto: confidence/severity/slo within safe-automation bounds"
	}

	if sc.Load >= t.ParkLoadThreshold &&
		priority < t.ImmediateThreshold &&
		task.SensitivityTag != SensitivityRegulated {
		return StrategyPark, "park: operator load at/above park_load_threshold and priority below immediate_threshold"
	}

	if priority >= t.ImmediateThreshold {
		return StrategyImmediate, "immediate: priority at/above immediate_threshold"
	}

	if priority >= t.BatchThreshold {
		return StrategyBatch, "batch: priority at/above batch_threshold"
	}

	// Fallthrough: priority is below every threshold. A regulated task
	// would otherwise park here purely because the operator is
	// overloaded (the same condition rule 2 tests) — that is exactly the
	// "silent park" regulated tasks must never receive, so escalate to
	// batch instead. A regulated task with genuinely low load parks like
	// any other task; it simply never parks because of load.
	if task.SensitivityTag == SensitivityRegulated && sc.Load >= t.ParkLoadThreshold {
		return StrategyBatch, "batch: regulated task escalated past park (operator overloaded)"
	}
	return StrategyPark, "park: fallthrough, priority below batch_threshold"
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
