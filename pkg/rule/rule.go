// Package rule implements spec.md §3's Rule and Rule Set: the public,
// immutable-after-compile types the rest of the engine operates on.
// Grounded on the teacher's pkg/models/rule.go shape, generalized from a
// DSL-string-plus-compiled-Lua record to an AST-backed, action-template
// record, with compilation orchestrated through pkg/fsm's CompileFSM the
// way the teacher tracks a rule's lifecycle through RuleLifecycleFSM.
package rule

import (
	"fmt"
	"sort"

	"github.com/symbolica/symbolica/internal/ast"
	"github.com/symbolica/symbolica/internal/depgraph"
	"github.com/symbolica/symbolica/internal/lang"
	"github.com/symbolica/symbolica/pkg/fsm"
)

// Action is one (field, template) pair a Rule writes on firing.
type Action struct {
	Field    string
	Template ast.Node
}

// Rule is immutable after Compile returns it successfully.
type Rule struct {
	ID       string
	Priority int
	Condition ast.Node
	Actions  []Action
	Triggers []string
	Tags     map[string]struct{}

	writeSet map[string]struct{}
	readSet  map[string]struct{}
}

// WriteSet returns the set of fields this rule's actions write.
func (r *Rule) WriteSet() map[string]struct{} { return r.writeSet }

// ReadSet returns the set of identifiers freely read by the condition
// and every template, minus fields written by an earlier action of the
// same rule (spec.md §3).
func (r *Rule) ReadSet() map[string]struct{} { return r.readSet }

// Source is the uncompiled, surface-level description of a rule: the
// interface the out-of-scope surface-syntax loader hands to Compile
// (spec.md §1's "Compiled Rule Set" boundary). Condition may be a flat
// expression string, a structured all/any/not map, or an already-parsed
// ast.Node. An action's template may be an already-parsed ast.Node or a
// plain value; a template string is parsed as an expression only when
// wrapped in {{ ... }}, and is otherwise a literal string.
type Source struct {
	ID        string
	Priority  int
	Condition interface{}
	Actions   []SourceAction
	Triggers  []string
	Tags      []string
}

// SourceAction is one uncompiled (field, template) pair.
type SourceAction struct {
	Field    string
	Template interface{}
}

const defaultPriority = 100

// compileCondition accepts a pre-built ast.Node, a structured condition map,
// or a flat expression string and returns the parsed AST.
func compileCondition(raw interface{}) (ast.Node, error) {
	if n, ok := raw.(ast.Node); ok {
		return n, nil
	}
	return lang.ParseStructured(raw)
}

func compileTemplate(raw interface{}) (ast.Node, error) {
	if n, ok := raw.(ast.Node); ok {
		return n, nil
	}
	return lang.ParseTemplate(raw)
}

// Compile parses a Source into a Rule, deriving its read and write sets.
// It does not validate cross-rule invariants (trigger resolution, cycle
// freedom) — that is CompileSet's job once every rule is parsed.
func Compile(src Source, fsms *fsm.Registry) (*Rule, error) {
	if src.ID == "" {
		return nil, fmt.Errorf("rule id must not be empty")
	}
	f := fsms.Get(src.ID)

	priority := src.Priority
	if priority == 0 {
		priority = defaultPriority
	}

	cond, err := compileCondition(src.Condition)
	if err != nil {
		_ = f.Transition(fsm.EventParseFailed)
		return nil, fmt.Errorf("rule %s: condition: %w", src.ID, err)
	}

	writeSet := make(map[string]struct{}, len(src.Actions))
	actions := make([]Action, len(src.Actions))
	for i, a := range src.Actions {
		tmpl, err := compileTemplate(a.Template)
		if err != nil {
			_ = f.Transition(fsm.EventParseFailed)
			return nil, fmt.Errorf("rule %s: action %s: %w", src.ID, a.Field, err)
		}
		actions[i] = Action{Field: a.Field, Template: tmpl}
		writeSet[a.Field] = struct{}{}
	}
	if err := f.Transition(fsm.EventParse); err != nil {
		return nil, err
	}

	readSet := make(map[string]struct{})
	collectRefs(cond, readSet)
	writtenSoFar := make(map[string]struct{})
	for _, a := range actions {
		tmplRefs := make(map[string]struct{})
		collectRefs(a.Template, tmplRefs)
		for name := range tmplRefs {
			if _, written := writtenSoFar[name]; !written {
				readSet[name] = struct{}{}
			}
		}
		writtenSoFar[a.Field] = struct{}{}
	}

	tags := make(map[string]struct{}, len(src.Tags))
	for _, t := range src.Tags {
		tags[t] = struct{}{}
	}

	if err := f.Transition(fsm.EventAnalyze); err != nil {
		return nil, err
	}
	if err := f.Transition(fsm.EventActivate); err != nil {
		return nil, err
	}

	return &Rule{
		ID:        src.ID,
		Priority:  priority,
		Condition: cond,
		Actions:   actions,
		Triggers:  append([]string(nil), src.Triggers...),
		Tags:      tags,
		writeSet:  writeSet,
		readSet:   readSet,
	}, nil
}

func collectRefs(n ast.Node, into map[string]struct{}) {
	ast.Walk(n, func(node ast.Node) {
		if ref, ok := node.(*ast.Ref); ok {
			into[ref.Name] = struct{}{}
		}
	})
}

// Set is a compiled collection of Rules plus the derived artifacts
// spec.md §3 names: an id index, the dependency graph and its
// topological layering, and a reverse write index for backward
// chaining.
type Set struct {
	Rules    []*Rule
	byID     map[string]*Rule
	Graph    *depgraph.Graph
	Layers   []depgraph.Layer
	writers  map[string][]*Rule
}

// ByID looks up a compiled rule by id.
func (s *Set) ByID(id string) (*Rule, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// WritersOf returns every rule whose write set includes field, sorted
// by descending priority, then ascending id — the reverse of the
// priority order within a topological layer — so backward chaining
// enumerates candidates in a stable order.
func (s *Set) WritersOf(field string) []*Rule {
	return s.writers[field]
}

// CompileSet parses every Source, wires triggers, builds the dependency
// graph, and computes the topological layering. It is the sole
// entry point host code needs: pass the rule sources straight from the
// (out-of-scope) surface-syntax loader.
func CompileSet(sources []Source) (*Set, error) {
	fsms := fsm.NewRegistry()
	rules := make([]*Rule, len(sources))
	byID := make(map[string]*Rule, len(sources))
	for i, src := range sources {
		r, err := Compile(src, fsms)
		if err != nil {
			return nil, err
		}
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID)
		}
		rules[i] = r
		byID[r.ID] = r
	}

	for _, r := range rules {
		for _, t := range r.Triggers {
			if _, ok := byID[t]; !ok {
				return nil, fmt.Errorf("rule %s: trigger %q does not resolve to any rule", r.ID, t)
			}
		}
	}

	graph, err := depgraph.Build(toDepgraphRules(rules))
	if err != nil {
		return nil, err
	}
	layers, err := graph.TopologicalLayers()
	if err != nil {
		return nil, err
	}

	writers := make(map[string][]*Rule)
	for _, r := range rules {
		for field := range r.writeSet {
			writers[field] = append(writers[field], r)
		}
	}
	for field := range writers {
		ws := writers[field]
		sort.Slice(ws, func(i, j int) bool {
			if ws[i].Priority != ws[j].Priority {
				return ws[i].Priority > ws[j].Priority
			}
			return ws[i].ID < ws[j].ID
		})
	}

	return &Set{Rules: rules, byID: byID, Graph: graph, Layers: layers, writers: writers}, nil
}

func toDepgraphRules(rules []*Rule) []depgraph.Rule {
	out := make([]depgraph.Rule, len(rules))
	for i, r := range rules {
		out[i] = depgraph.Rule{
			ID:       r.ID,
			Priority: r.Priority,
			ReadSet:  r.readSet,
			WriteSet: r.writeSet,
			Triggers: r.Triggers,
		}
	}
	return out
}
