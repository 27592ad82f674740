package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rs(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

func TestBuildDetectsWriteReadEdge(t *testing.T) {
	rules := []Rule{
		{ID: "A", WriteSet: rs("x"), ReadSet: rs()},
		{ID: "B", WriteSet: rs(), ReadSet: rs("x")},
	}
	g, err := Build(rules)
	require.NoError(t, err)

	layers, err := g.TopologicalLayers()
	require.NoError(t, err)
	order := FlatOrder(layers)
	assert.Equal(t, []string{"A", "B"}, order)
}

func TestCyclicDependencyDetected(t *testing.T) {
	rules := []Rule{
		{ID: "A", WriteSet: rs("x"), ReadSet: rs("y")},
		{ID: "B", WriteSet: rs("y"), ReadSet: rs("x")},
	}
	g, err := Build(rules)
	require.NoError(t, err)

	_, err = g.TopologicalLayers()
	require.Error(t, err)
	var cyc *CyclicDependency
	require.ErrorAs(t, err, &cyc)
	assert.NotEmpty(t, cyc.Cycle)
}

func TestTriggerEdgeOrdersEvenWithoutSharedFields(t *testing.T) {
	rules := []Rule{
		{ID: "A", WriteSet: rs(), ReadSet: rs(), Triggers: []string{"B"}},
		{ID: "B", WriteSet: rs(), ReadSet: rs()},
	}
	g, err := Build(rules)
	require.NoError(t, err)

	layers, err := g.TopologicalLayers()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, FlatOrder(layers))
}

func TestSameLayerOrdersAscendingPriorityThenID(t *testing.T) {
	rules := []Rule{
		{ID: "low", Priority: 50, WriteSet: rs("credit_limit"), ReadSet: rs()},
		{ID: "high", Priority: 100, WriteSet: rs("credit_limit"), ReadSet: rs()},
	}
	g, err := Build(rules)
	require.NoError(t, err)

	layers, err := g.TopologicalLayers()
	require.NoError(t, err)
	require.Len(t, layers, 1)
	// Higher priority fires LAST within the layer so its write dominates
	// on conflict (spec.md §8 scenario 2 — see DESIGN.md Open Question a).
	assert.Equal(t, []string{"low", "high"}, layers[0].RuleIDs)
}
