// Command replay runs the Offline Evaluator & Optimizer (spec §4.8) over a
// historical record file. Modeled on the teacher's cmd/apireport: a single
// flag-driven pass producing a report, rather than a long-running server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cogbandwidth/router/internal/evaluator"
	"github.com/cogbandwidth/router/internal/policyconfig"
	"github.com/cogbandwidth/router/internal/routing"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		recordsPath string
		policyPath  string
		mode        string
		objective   string
	)
	flag.StringVar(&recordsPath, "records", "", "path to a YAML historical record file (required)")
	flag.StringVar(&policyPath, "policy-file", "", "optional YAML policy file; defaults to the documented default policy")
	flag.StringVar(&mode, "mode", "evaluate", "evaluate|optimize")
	flag.StringVar(&objective, "objective", "human_rate", "optimize objective: human_rate|priority_mean")
	flag.Parse()

	if recordsPath == "" {
		fmt.Fprintln(os.Stderr, "-records is required")
		return 2
	}

	records, err := loadRecords(recordsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load records: %v\n", err)
		return 3
	}

	policy := routing.Default()
	if policyPath != "" {
		p, err := policyconfig.Load(policyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load policy file: %v\n", err)
			return 2
		}
		policy = p
	}

	switch mode {
	case "evaluate":
		report, err := evaluator.Evaluate(records, policy)
		if err != nil {
			fmt.Fprintf(os.Stderr, "evaluate: %v\n", err)
			return 1
		}
		return printJSON(report)
	case "optimize":
		obj, err := resolveObjective(objective)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
		grid := evaluator.Grid{
			ImmediateThresholds: []float64{0.6, 0.7, 0.75, 0.8, 0.9},
			BatchThresholds:     []float64{0.3, 0.4, 0.45, 0.5},
		}
		policy, score, err := evaluator.Optimize(records, grid, obj)
		if err != nil {
			fmt.Fprintf(os.Stderr, "optimize: %v\n", err)
			return 1
		}
		return printJSON(struct {
			Weights    routing.Weights    `json:"weights"`
			Thresholds routing.Thresholds `json:"thresholds"`
			Score      float64            `json:"score"`
		}{policy.Weights(), policy.Thresholds(), score})
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", mode)
		return 2
	}
}

func resolveObjective(name string) (evaluator.Objective, error) {
	switch name {
	case "human_rate":
		return evaluator.HumanRateObjective(), nil
	case "priority_mean":
		return evaluator.PriorityMeanObjective(), nil
	default:
		return evaluator.Objective{}, fmt.Errorf("unknown objective %q", name)
	}
}

func loadRecords(path string) ([]evaluator.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []evaluator.Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		return 1
	}
	return 0
}
