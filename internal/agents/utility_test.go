package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-mind/internal/memory"
)

func calmContext() *DecisionContext {
	return &DecisionContext{
		Position:     Vec3{X: 1, Y: 2, Z: 3},
		Health:       0.9,
		Energy:       0.5,
		GlobalMemory: memory.NewGlobal(),
	}
}

func kinds(actions []Action) []ActionKind {
	out := make([]ActionKind, len(actions))
	for i, a := range actions {
		out[i] = a.Kind()
	}
	return out
}

func TestCandidatesOrder(t *testing.T) {
	e := NewUtilityEvaluator()
	ctx := calmContext()
	ctx.ThreatLevel = 0.6
	ctx.Nearby = []Entity{
		{ID: 7, Type: EntityResource, Position: Vec3{X: 5}},
		{ID: 8, Type: EntityEnemy, Position: Vec3{Y: 4}, ThreatLevel: 0.4},
		{ID: 9, Type: EntityNeutral},
		{ID: 10, Type: EntityObstacle},
		{ID: 11, Type: EntityAlly},
	}

	got := e.Candidates(ctx)
	assert.Equal(t, []ActionKind{KindIdle, KindExplore, KindFlee, KindMoveTo, KindAttack}, kinds(got))

	assert.Equal(t, Explore{Center: ctx.Position, Radius: 20, Duration: 10}, got[1])
	assert.Equal(t, Flee{Destination: Vec3{X: 11, Y: 2, Z: 3}}, got[2])
	assert.Equal(t, MoveTo{Target: Vec3{X: 5}}, got[3])
	assert.Equal(t, Attack{TargetID: 8, Target: Vec3{Y: 4}, Priority: 0.4}, got[4])
}

func TestCandidatesThresholds(t *testing.T) {
	e := NewUtilityEvaluator()
	ctx := &DecisionContext{
		Health:      0.3,
		Energy:      0.2,
		ThreatLevel: 0.5,
		Nearby:      []Entity{{ID: 1, Type: EntityEnemy}},
	}

	// All comparisons are strict.
	assert.Equal(t, []ActionKind{KindIdle}, kinds(e.Candidates(ctx)))
}

func TestScoreTable(t *testing.T) {
	e := NewUtilityEvaluator()
	tests := []struct {
		name   string
		action Action
		ctx    DecisionContext
		want   float64
	}{
		{"idle", Idle{}, DecisionContext{}, 0.1},
		{"explore rested", Explore{}, DecisionContext{Energy: 0.31}, 0.6},
		{"explore tired", Explore{}, DecisionContext{Energy: 0.3}, 0.2},
		{"attack healthy", Attack{}, DecisionContext{Health: 0.51}, 0.8},
		{"attack hurt", Attack{}, DecisionContext{Health: 0.5}, 0.3},
		{"defend threatened", Defend{}, DecisionContext{ThreatLevel: 0.41}, 0.7},
		{"defend calm", Defend{}, DecisionContext{ThreatLevel: 0.4}, 0.2},
		{"flee high threat", Flee{}, DecisionContext{Health: 1, ThreatLevel: 0.71}, 0.9},
		{"flee low health", Flee{}, DecisionContext{Health: 0.29}, 0.9},
		{"flee otherwise", Flee{}, DecisionContext{Health: 0.3, ThreatLevel: 0.7}, 0.1},
		{"move_to", MoveTo{}, DecisionContext{}, 0.4},
		{"patrol", Patrol{Loop: true}, DecisionContext{}, 0.3},
		{"investigate noisy", Investigate{}, DecisionContext{Environment: Environment{NoiseLevel: 0.51}}, 0.5},
		{"investigate quiet", Investigate{}, DecisionContext{Environment: Environment{NoiseLevel: 0.5}}, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Score(tt.action, &tt.ctx, nil))
		})
	}
}

func TestScoreIgnoresMemory(t *testing.T) {
	e := NewUtilityEvaluator()
	ctx := calmContext()
	mem := memory.NewLocal()
	mem.Set("enemy:8", 1)
	mem.Set("fear", 1)

	for _, a := range []Action{Idle{}, Explore{}, Attack{TargetID: 8}, Flee{}, MoveTo{}} {
		assert.Equal(t, e.Score(a, ctx, nil), e.Score(a, ctx, mem), a.Kind().String())
	}
}

func TestEvaluateExploreWins(t *testing.T) {
	e := NewUtilityEvaluator()
	ctx := calmContext()

	best := e.EvaluateBestAction(ctx, nil)
	require.NotNil(t, best)
	assert.Equal(t, KindExplore, best.Kind())
	assert.Equal(t, 0.6, e.LastConfidence())
}

func TestEvaluateFleeWins(t *testing.T) {
	e := NewUtilityEvaluator()
	ctx := &DecisionContext{Health: 0.2, Energy: 0.5, ThreatLevel: 0.8}

	best := e.EvaluateBestAction(ctx, nil)
	assert.Equal(t, Flee{Destination: Vec3{X: 10}}, best)
	assert.Equal(t, 0.9, e.LastConfidence())
}

func TestEvaluateTieKeepsFirst(t *testing.T) {
	e := NewUtilityEvaluator()
	ctx := &DecisionContext{
		Health: 0.9,
		Energy: 0.1,
		Nearby: []Entity{
			{ID: 1, Type: EntityEnemy, Position: Vec3{X: 1}},
			{ID: 2, Type: EntityEnemy, Position: Vec3{X: 2}},
		},
	}

	best := e.EvaluateBestAction(ctx, nil)
	require.IsType(t, Attack{}, best)
	assert.Equal(t, EntityID(1), best.(Attack).TargetID)
	assert.Equal(t, 0.8, e.LastConfidence())
}

func TestEvaluateTieBetweenResources(t *testing.T) {
	e := NewUtilityEvaluator()
	ctx := &DecisionContext{
		Nearby: []Entity{
			{ID: 3, Type: EntityResource, Position: Vec3{Z: 3}},
			{ID: 4, Type: EntityResource, Position: Vec3{Z: 4}},
		},
	}

	assert.Equal(t, MoveTo{Target: Vec3{Z: 3}}, e.EvaluateBestAction(ctx, nil))
}

func TestEvaluateIdleAlwaysAvailable(t *testing.T) {
	e := NewUtilityEvaluator()
	best := e.EvaluateBestAction(&DecisionContext{}, nil)

	assert.Equal(t, Idle{}, best)
	assert.Equal(t, 0.1, e.LastConfidence())
}

func TestEvaluateConfidenceFlooredAtZero(t *testing.T) {
	e := NewUtilityEvaluator()
	e.RegisterUtility(KindIdle, -0.5)

	best := e.EvaluateBestAction(&DecisionContext{}, nil)
	assert.Equal(t, Idle{}, best, "-0.5 still beats the -1 seed")
	assert.Zero(t, e.LastConfidence())
}

func TestBaseUtilityRegistry(t *testing.T) {
	e := NewUtilityEvaluator()

	u, ok := e.BaseUtility(KindMoveTo)
	require.True(t, ok)
	assert.Equal(t, 0.4, u)

	_, ok = e.BaseUtility(KindAttack)
	assert.False(t, ok, "attack is scored by rule, not a base entry")
}
