package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symbolica/symbolica/pkg/fact"
	"github.com/symbolica/symbolica/pkg/rule"
	"github.com/symbolica/symbolica/pkg/value"
)

func vipApprovalSet(t *testing.T) *rule.Set {
	t.Helper()
	set, err := rule.CompileSet([]rule.Source{
		{
			ID:        "vip_approval",
			Priority:  100,
			Condition: `customer_tier == 'vip' and credit_score > 750`,
			Actions: []rule.SourceAction{
				{Field: "approved", Template: true},
				{Field: "credit_limit", Template: 50000},
			},
		},
	})
	require.NoError(t, err)
	return set
}

// Scenario 6: backward chaining (spec.md §8 seed scenario 6).
func TestRulesForGoalFindsVIPApproval(t *testing.T) {
	set := vipApprovalSet(t)
	want := value.Bool(true)
	rules := RulesForGoal(set, Goal{"approved": &want})
	require.Len(t, rules, 1)
	assert.Equal(t, "vip_approval", rules[0].ID)
}

func TestRulesForGoalRejectsMismatchedLiteral(t *testing.T) {
	set := vipApprovalSet(t)
	want := value.Bool(false)
	rules := RulesForGoal(set, Goal{"approved": &want})
	assert.Empty(t, rules)
}

func TestCanAchieveTrueWithSatisfyingFacts(t *testing.T) {
	set := vipApprovalSet(t)
	want := value.Bool(true)
	facts := fact.Map{
		"customer_tier": value.String("vip"),
		"credit_score":  value.Int(800),
	}
	assert.True(t, CanAchieve(set, Goal{"approved": &want}, facts))
}

func TestCanAchieveFalseWithDisqualifyingFacts(t *testing.T) {
	set := vipApprovalSet(t)
	want := value.Bool(true)
	facts := fact.Map{
		"customer_tier": value.String("vip"),
		"credit_score":  value.Int(100),
	}
	assert.False(t, CanAchieve(set, Goal{"approved": &want}, facts))
}

// A missing comparison operand is indeterminate-true, and the backward
// chainer recurses on it as a subgoal for an upstream writer.
func TestCanAchieveRecursesThroughMissingUpstreamField(t *testing.T) {
	set, err := rule.CompileSet([]rule.Source{
		{
			ID:        "tier_assignment",
			Condition: `annual_income > 100000`,
			Actions:   []rule.SourceAction{{Field: "customer_tier", Template: "vip"}},
		},
		{
			ID:        "vip_approval",
			Condition: `customer_tier == 'vip' and credit_score > 750`,
			Actions:   []rule.SourceAction{{Field: "approved", Template: true}},
		},
	})
	require.NoError(t, err)

	want := value.Bool(true)
	facts := fact.Map{
		"annual_income": value.Int(200000),
		"credit_score":  value.Int(800),
		// customer_tier is absent: must be reached via tier_assignment.
	}
	assert.True(t, CanAchieve(set, Goal{"approved": &want}, facts))
}

func TestCanAchieveFalseWhenUpstreamFieldUnreachable(t *testing.T) {
	set, err := rule.CompileSet([]rule.Source{
		{
			ID:        "tier_assignment",
			Condition: `annual_income > 100000`,
			Actions:   []rule.SourceAction{{Field: "customer_tier", Template: "vip"}},
		},
		{
			ID:        "vip_approval",
			Condition: `customer_tier == 'vip' and credit_score > 750`,
			Actions:   []rule.SourceAction{{Field: "approved", Template: true}},
		},
	})
	require.NoError(t, err)

	want := value.Bool(true)
	facts := fact.Map{
		"annual_income": value.Int(50000), // too low for tier_assignment to fire
		"credit_score":  value.Int(800),
	}
	assert.False(t, CanAchieve(set, Goal{"approved": &want}, facts))
}

func TestFieldGoalMatchesAnyValue(t *testing.T) {
	set := vipApprovalSet(t)
	rules := RulesForGoal(set, FieldGoal("approved"))
	require.Len(t, rules, 1)
	assert.Equal(t, "vip_approval", rules[0].ID)
}
