// Package routing implements the Routing Policy (spec §4.4): a pure
// function mapping a TaskIntent plus attention context into a WorkItem.
package routing

import (
	"time"

	"github.com/cogbandwidth/router/internal/attention"
)

// SensitivityTag classifies how a task's content should be handled.
type SensitivityTag string

const (
	SensitivityStandard     SensitivityTag = "standard"
	SensitivityConfidential SensitivityTag = "confidential"
	SensitivityRegulated    SensitivityTag = "regulated"
)

// TaskIntent is an agent/alerting request for human time (spec §3). It is
// immutable after creation; task_id is unique within a routing session.
type TaskIntent struct {
	TaskID          string         `json:"task_id" yaml:"task_id"`
	Severity        int            `json:"severity" yaml:"severity"` // 1..5, 5 most severe
	SLORiskMinutes  float64        `json:"slo_risk_minutes" yaml:"slo_risk_minutes"`
	ModelConfidence float64        `json:"model_confidence" yaml:"model_confidence"` // [0,1]
	Explanation     string         `json:"explanation" yaml:"explanation"`
	SensitivityTag  SensitivityTag `json:"sensitivity_tag" yaml:"sensitivity_tag"`
	Source          string         `json:"source" yaml:"source"`
	SubmittedAt     time.Time      `json:"submitted_at" yaml:"submitted_at"`
}

// Strategy is the router's decision for a task.
type Strategy string

const (
	StrategyImmediate Strategy = "immediate"
	StrategyBatch     Strategy = "batch"
	StrategyAuto      Strategy = "auto"
	StrategyPark      Strategy = "park"

	// StrategyWildcard is not a real decision; it is the sink-registry key
	// meaning "dispatch regardless of strategy" (spec §4.5, §6).
	StrategyWildcard Strategy = "*"
)

// Rationale is the structured breakdown of the scoring components and the
// rule that fired (spec §3, §4.4).
type Rationale struct {
	SLOComponent         float64 `json:"slo_component" yaml:"slo_component"`
	UncertaintyComponent float64 `json:"uncertainty_component" yaml:"uncertainty_component"`
	SeverityComponent    float64 `json:"severity_component" yaml:"severity_component"`
	AttentionComponent   float64 `json:"attention_component" yaml:"attention_component"`
	SLOWeighted          float64 `json:"slo_weighted" yaml:"slo_weighted"`
	UncertaintyWeighted  float64 `json:"uncertainty_weighted" yaml:"uncertainty_weighted"`
	SeverityWeighted     float64 `json:"severity_weighted" yaml:"severity_weighted"`
	AttentionWeighted    float64 `json:"attention_weighted" yaml:"attention_weighted"`
	RuleFired            string  `json:"rule_fired" yaml:"rule_fired"`
}

// WorkItem is the immutable record of one routing decision (spec §3).
type WorkItem struct {
	Task          TaskIntent `json:"task" yaml:"task"`
	Strategy      Strategy   `json:"strategy" yaml:"strategy"`
	Priority      float64    `json:"priority" yaml:"priority"`
	AttentionLoad float64    `json:"attention_load" yaml:"attention_load"`
	QueueDepth    int        `json:"queue_depth" yaml:"queue_depth"`
	Rationale     Rationale  `json:"rationale" yaml:"rationale"`
	DecidedAt     time.Time  `json:"decided_at" yaml:"decided_at"`
}

// ScoringContext bundles the attention-side inputs to Evaluate so the
// signature stays stable as attention context grows additional axes.
type ScoringContext struct {
	AttentionContext attention.Context
	Load             float64
}
