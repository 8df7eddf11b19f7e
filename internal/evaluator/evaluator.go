// Package evaluator implements the Offline Evaluator & Optimizer (spec
// §4.8): a pure replay of historical records through a RoutingPolicy,
// producing a deterministic Report, plus a grid-search optimizer. Like
// attention.Model and routing.Policy, nothing here performs I/O or blocks;
// callers own reading record files (see cmd/replay) and pass in already
// decoded Records.
package evaluator

import (
	"time"

	"github.com/cogbandwidth/router/internal/attention"
	"github.com/cogbandwidth/router/internal/routing"
	"github.com/cogbandwidth/router/internal/routingerr"
	"github.com/cogbandwidth/router/internal/telemetry"
)

// Baseline carries the optional human-intervention flag a historical
// record may be labeled with (spec §4.8).
type Baseline struct {
	HumanIntervention bool `yaml:"human_intervention"`
}

// Record bundles one historical decision input (spec §4.8): a telemetry
// summary, an attention context, a task intent, and an optional baseline.
type Record struct {
	Summary   telemetry.Summary  `yaml:"summary"`
	Context   attention.Context  `yaml:"context"`
	Task      routing.TaskIntent `yaml:"task"`
	Baseline  *Baseline          `yaml:"baseline,omitempty"`
	Timestamp time.Time          `yaml:"timestamp"`
}

// Report is the deterministic output of Evaluate (spec §4.8): per-strategy
// counts, average priority/load, and the human-intervention reduction
// relative to the records' baseline labels.
type Report struct {
	StrategyCounts             map[routing.Strategy]int `json:"strategy_counts"`
	AveragePriority            float64                  `json:"average_priority"`
	AverageLoad                float64                  `json:"average_load"`
	BaselineHumanRate          float64                  `json:"baseline_human_rate"`
	RouterHumanRate            float64                  `json:"router_human_rate"`
	HumanInterventionReduction float64                  `json:"human_intervention_reduction"`
	RecordCount                int                      `json:"record_count"`
	BaselineLabeledRecordCount int                      `json:"baseline_labeled_record_count"`
}

// Evaluate replays records through policy and computes a Report. It is
// pure: identical (records, policy) always produces a byte-for-byte
// identical Report (spec §8 "Evaluator purity").
func Evaluate(records []Record, policy *routing.Policy) (Report, error) {
	if policy == nil {
		return Report{}, routingerr.New(routingerr.KindConfigError, "evaluate requires a non-nil policy")
	}

	report := Report{StrategyCounts: make(map[routing.Strategy]int)}
	if len(records) == 0 {
		return report, nil
	}

	var prioritySum, loadSum float64
	var baselineHumanCount, routerHumanCount, baselineLabeled int

	model := attention.NewModel(attention.DefaultWeights(), attention.DefaultSoftCaps())

	for _, rec := range records {
		load := model.Load(rec.Summary, rec.Context)
		sc := routing.ScoringContext{AttentionContext: rec.Context, Load: load}

		item, err := policy.Evaluate(rec.Task, sc, rec.Timestamp)
		if err != nil {
			return Report{}, err
		}

		report.StrategyCounts[item.Strategy]++
		prioritySum += item.Priority
		loadSum += load

		if isHumanStrategy(item.Strategy) {
			routerHumanCount++
		}
		if rec.Baseline != nil {
			baselineLabeled++
			if rec.Baseline.HumanIntervention {
				baselineHumanCount++
			}
		}
	}

	n := float64(len(records))
	report.RecordCount = len(records)
	report.BaselineLabeledRecordCount = baselineLabeled
	report.AveragePriority = prioritySum / n
	report.AverageLoad = loadSum / n
	report.RouterHumanRate = float64(routerHumanCount) / n

	if baselineLabeled > 0 {
		report.BaselineHumanRate = float64(baselineHumanCount) / float64(baselineLabeled)
	}
	if report.BaselineHumanRate > 0 {
		report.HumanInterventionReduction = (report.BaselineHumanRate - report.RouterHumanRate) / report.BaselineHumanRate
	}

	return report, nil
}

// Sweep evaluates records against every labeled policy, preserving input
// order (spec §4.8 sweep).
func Sweep(records []Record, policies []LabeledPolicy) ([]LabeledReport, error) {
	out := make([]LabeledReport, 0, len(policies))
	for _, lp := range policies {
		report, err := Evaluate(records, lp.Policy)
		if err != nil {
			return nil, err
		}
		out = append(out, LabeledReport{Label: lp.Label, Report: report})
	}
	return out, nil
}

// LabeledPolicy names a policy for Sweep/Optimize output.
type LabeledPolicy struct {
	Label  string
	Policy *routing.Policy
}

// LabeledReport pairs a Report with the label of the policy that produced it.
type LabeledReport struct {
	Label  string
	Report Report
}

func isHumanStrategy(s routing.Strategy) bool {
	return s == routing.StrategyImmediate || s == routing.StrategyBatch
}
