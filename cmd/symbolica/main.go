// Command symbolica loads a compiled Rule Set and a Fact Map, runs one
// reason() call (spec.md §4.4), and prints the Execution Result.
// Grounded on the teacher's cmd/betrace-backend/main.go (env-driven
// bring-up, OpenTelemetry init, graceful top-level error handling),
// trimmed of its HTTP server: the engine has no inbound network surface
// (spec.md §1), so this is a one-shot batch runner rather than a daemon.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/symbolica/symbolica/internal/config"
	"github.com/symbolica/symbolica/internal/executor"
	"github.com/symbolica/symbolica/internal/observability"
	"github.com/symbolica/symbolica/internal/registry"
	"github.com/symbolica/symbolica/internal/storage"
	"github.com/symbolica/symbolica/internal/temporal"
	"github.com/symbolica/symbolica/pkg/fact"
	"github.com/symbolica/symbolica/pkg/rule"
	"github.com/symbolica/symbolica/pkg/value"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional, defaults + env vars apply regardless)")
	rulesPath := flag.String("rules", "", "path to a YAML Rule Set document (version + rules, see internal/storage.RuleSetDocument)")
	factsPath := flag.String("facts", "", "path to a YAML Fact Map (field: value)")
	flag.Parse()

	if *rulesPath == "" || *factsPath == "" {
		fmt.Fprintln(os.Stderr, "usage: symbolica -rules <ruleset.yaml> -facts <facts.yaml> [-config <config.yaml>]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	shutdownTracer := observability.InitOpenTelemetryOrNoop(ctx, "symbolica", version)
	defer shutdownTracer(ctx)
	if cfg.Observability.MetricsEnabled {
		if err := observability.InitMetrics(); err != nil {
			log.Printf("warning: failed to initialize metrics: %v", err)
		}
	}

	ruleSet, err := loadRuleSet(*rulesPath)
	if err != nil {
		log.Fatalf("load rule set: %v", err)
	}
	facts, err := loadFacts(*factsPath)
	if err != nil {
		log.Fatalf("load facts: %v", err)
	}

	clock := temporal.SystemClock{}
	store := temporal.New(clock,
		temporal.WithRetention(cfg.Temporal.Retention()),
		temporal.WithMaxSamples(cfg.Temporal.MaxSamplesPerKey),
	)
	reg := registry.New(store, clock, nil)
	exec := executor.New(reg, clock)

	strategy := executor.Strategy{
		Permissive: cfg.Engine.Permissive,
		Deadline:   cfg.Engine.Deadline(),
	}

	result, err := exec.Reason(ctx, ruleSet, facts, strategy)
	if err != nil {
		log.Fatalf("reason: %v (commit %s)", err, commit)
	}

	printResult(result)
}

// loadRuleSet reads a YAML Rule Set document from path and compiles it.
// The document shape matches storage.RuleSetDocument (version + rules),
// the same format DiskRuleSetStore persists, so a file written by a
// host's Save call loads here unchanged.
func loadRuleSet(path string) (*rule.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set file: %w", err)
	}
	var doc storage.RuleSetDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal rule set file: %w", err)
	}
	set, err := rule.CompileSet(doc.Rules)
	if err != nil {
		return nil, fmt.Errorf("compile rule set: %w", err)
	}
	return set, nil
}

// loadFacts reads a YAML Fact Map and converts each value into a
// value.Value. YAML already decodes scalars, lists, and nested maps into
// plain Go types (map[string]interface{}, []interface{}, string, bool,
// int, float64), so this is a straight structural conversion, not a
// parser.
func loadFacts(path string) (fact.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facts file: %w", err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal facts file: %w", err)
	}
	facts := make(fact.Map, len(raw))
	for k, v := range raw {
		facts[k] = toValue(v)
	}
	return facts, nil
}

func toValue(raw interface{}) value.Value {
	switch v := raw.(type) {
	case nil:
		return value.Null
	case bool:
		return value.Bool(v)
	case int:
		return value.Int(int64(v))
	case int64:
		return value.Int(v)
	case float64:
		return value.Float(v)
	case string:
		return value.String(v)
	case []interface{}:
		items := make([]value.Value, len(v))
		for i, item := range v {
			items[i] = toValue(item)
		}
		return value.List(items)
	case map[string]interface{}:
		m := make(map[string]value.Value, len(v))
		for k, item := range v {
			m[k] = toValue(item)
		}
		return value.Map(m)
	default:
		return value.Null
	}
}

func printResult(result executor.Result) {
	verdict := make(map[string]interface{}, len(result.Verdict))
	for k, v := range result.Verdict {
		verdict[k] = v.String()
	}

	out := struct {
		Fired     []string       `json:"fired"`
		Verdict   map[string]any `json:"verdict"`
		Truncated bool           `json:"truncated"`
		Cancelled bool           `json:"cancelled"`
		Elapsed   string         `json:"elapsed"`
	}{
		Fired:     result.Fired,
		Verdict:   verdict,
		Truncated: result.Truncated,
		Cancelled: result.Cancelled,
		Elapsed:   result.Elapsed.String(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode result: %v", err)
	}

	if result.Reasoning != "" {
		fmt.Println("\n" + result.Reasoning)
	}
}
