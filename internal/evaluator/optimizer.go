package evaluator

import (
	"github.com/cogbandwidth/router/internal/routing"
	"github.com/cogbandwidth/router/internal/routingerr"
)

// Grid enumerates the candidate values for each policy knob the optimizer
// searches over (spec §4.8 optimize). Any empty slice falls back to the
// corresponding default value so a caller can vary only the knobs they
// care about.
type Grid struct {
	SLOWeights         []float64
	UncertaintyWeights []float64
	SeverityWeights    []float64
	AttentionWeights   []float64
	ImmediateThresholds []float64
	BatchThresholds     []float64
}

// Objective scores a Report; Optimize minimizes or maximizes depending on
// the objective's documented direction (spec §4.8: human_rate minimizes,
// priority_mean maximizes, or a caller-supplied scalar function).
type Objective struct {
	Name     string
	Score    func(Report) float64
	Minimize bool
}

// HumanRateObjective minimizes RouterHumanRate.
func HumanRateObjective() Objective {
	return Objective{Name: "human_rate", Score: func(r Report) float64 { return r.RouterHumanRate }, Minimize: true}
}

// PriorityMeanObjective maximizes AveragePriority.
func PriorityMeanObjective() Objective {
	return Objective{Name: "priority_mean", Score: func(r Report) float64 { return r.AveragePriority }, Minimize: false}
}

func fallback(values []float64, def float64) []float64 {
	if len(values) == 0 {
		return []float64{def}
	}
	return values
}

// Optimize performs a deterministic Cartesian grid search over g, scoring
// each candidate policy with objective.Score against records, and returns
// the best policy and its score. Iteration order is the order fields are
// declared in Grid, nested from outermost (SLOWeights) to innermost
// (BatchThresholds); ties are broken by the first candidate encountered in
// that order (spec §4.8, §9 "stable tie-break: first encountered").
// Candidate weight/threshold combinations that fail Policy validation are
// skipped, not treated as a tie-break candidate.
func Optimize(records []Record, g Grid, objective Objective) (*routing.Policy, float64, error) {
	defaults := routing.DefaultThresholds()
	sloWeights := fallback(g.SLOWeights, routing.DefaultWeights().SLOWeight)
	uncertaintyWeights := fallback(g.UncertaintyWeights, routing.DefaultWeights().UncertaintyWeight)
	severityWeights := fallback(g.SeverityWeights, routing.DefaultWeights().SeverityWeight)
	attentionWeights := fallback(g.AttentionWeights, routing.DefaultWeights().AttentionWeight)
	immediateThresholds := fallback(g.ImmediateThresholds, defaults.ImmediateThreshold)
	batchThresholds := fallback(g.BatchThresholds, defaults.BatchThreshold)

	var bestPolicy *routing.Policy
	bestScore := 0.0
	haveBest := false

	for _, slo := range sloWeights {
		for _, uncertainty := range uncertaintyWeights {
			for _, severity := range severityWeights {
				for _, attn := range attentionWeights {
					for _, immediate := range immediateThresholds {
						for _, batch := range batchThresholds {
							thresholds := defaults
							thresholds.ImmediateThreshold = immediate
							thresholds.BatchThreshold = batch

							policy, err := routing.New(routing.Weights{
								SLOWeight:         slo,
								UncertaintyWeight: uncertainty,
								SeverityWeight:    severity,
								AttentionWeight:   attn,
							}, thresholds)
							if err != nil {
								continue
							}

							report, err := Evaluate(records, policy)
							if err != nil {
								continue
							}
							score := objective.Score(report)

							if !haveBest {
								bestPolicy, bestScore, haveBest = policy, score, true
								continue
							}
							if objective.Minimize && score < bestScore {
								bestPolicy, bestScore = policy, score
							} else if !objective.Minimize && score > bestScore {
								bestPolicy, bestScore = policy, score
							}
						}
					}
				}
			}
		}
	}

	if !haveBest {
		return nil, 0, routingerr.New(routingerr.KindConfigError, "grid search produced no valid candidate policy")
	}
	return bestPolicy, bestScore, nil
}
