package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-mind/internal/agents"
	"github.com/talgya/mini-mind/internal/engine"
	"github.com/talgya/mini-mind/internal/persistence"
	"github.com/talgya/mini-mind/internal/weather"
)

type memRecorder struct {
	records []persistence.Record
}

func (m *memRecorder) RecordDecisions(records []persistence.Record) error {
	m.records = append(m.records, records...)
	return nil
}

func newTestSim(t *testing.T, agentCount int) (*Simulation, *memRecorder) {
	t.Helper()
	rec := &memRecorder{}
	sim := NewSimulation(
		Config{SenseRadius: 25},
		agentCount,
		engine.New(),
		weather.NewField(1, 18),
		NewSpawner(1, 50),
	)
	sim.Journal = rec
	sim.RunID = "run-test"
	return sim, rec
}

func TestNewSimulationRegistersMakers(t *testing.T) {
	sim, _ := newTestSim(t, 5)
	assert.Equal(t, 5, sim.Engine.ActiveDecisionMakers())
	assert.Len(t, sim.Agents(), 5)
}

func TestContextForPerception(t *testing.T) {
	sim, _ := newTestSim(t, 2)
	me, other := sim.bodies[0], sim.bodies[1]
	me.Position = agents.Vec3{}
	me.Health, me.Energy = 0.7, 0.4
	other.Position = agents.Vec3{X: 5}

	sim.hostiles = []*Hostile{
		{ID: 100, Position: agents.Vec3{X: 10}, Threat: 0.8, Health: 1},
		{ID: 101, Position: agents.Vec3{X: 90}, Threat: 1, Health: 1},
	}
	sim.resources = []*Resource{{ID: 200, Position: agents.Vec3{Z: 3}, Amount: 0.3}}

	ctx := sim.ContextFor(me)

	assert.Equal(t, 0.7, ctx.Health)
	assert.Equal(t, 0.4, ctx.Energy)
	assert.Same(t, sim.Engine.GlobalMemory(), ctx.GlobalMemory)
	assert.Equal(t, 1, ctx.AvailableResources)
	require.Len(t, ctx.Nearby, 3)
	assert.Equal(t, agents.EntityEnemy, ctx.Nearby[0].Type)
	assert.Equal(t, agents.EntityResource, ctx.Nearby[1].Type)
	assert.Equal(t, agents.EntityAlly, ctx.Nearby[2].Type)
	assert.InDelta(t, 0.8*(1-10.0/25), ctx.ThreatLevel, 1e-9)
}

func TestStepJournalsOnlyNewDecisions(t *testing.T) {
	sim, rec := newTestSim(t, 3)

	sim.Step(1, 0.25)
	assert.Len(t, rec.records, 3, "every agent decides on the first frame")
	for _, r := range rec.records {
		assert.Equal(t, "run-test", r.RunID)
		assert.Equal(t, uint64(1), r.Frame)
	}

	// Half the cooldown has elapsed: decisions are replayed, not journaled.
	sim.Step(2, 0.25)
	assert.Len(t, rec.records, 3)

	sim.Step(3, 0.25)
	assert.Len(t, rec.records, 6, "each agent decides again after its cooldown")
	assert.Equal(t, uint64(6), sim.Summary().Stats.Decisions)
}

func TestRememberSharesThreat(t *testing.T) {
	sim, _ := newTestSim(t, 1)
	b := sim.bodies[0]
	b.Position = agents.Vec3{}
	b.Health = 0.9
	sim.hostiles = []*Hostile{{ID: 100, Position: agents.Vec3{X: 4}, Threat: 0.6, Health: 1}}

	sim.Step(1, 0.05)

	w, ok := b.Maker.GetMemory("enemy:100")
	require.True(t, ok)
	assert.Equal(t, 1.0, w)

	g, ok := sim.Engine.GlobalMemory().Get("threat:100")
	require.True(t, ok)
	assert.Equal(t, 0.6, g)
}

func TestAttackDecisionChasesHostile(t *testing.T) {
	sim, _ := newTestSim(t, 1)
	b := sim.bodies[0]
	b.Position = agents.Vec3{}
	b.Health, b.Energy = 0.9, 0.1
	sim.hostiles = []*Hostile{{ID: 100, Position: agents.Vec3{X: 20}, Threat: 0.2, Health: 1}}

	sim.Step(1, 0.05)

	assert.Equal(t, agents.StateAttacking, b.Maker.State())
	assert.Greater(t, b.Position.X, 0.0, "body closes in on its target")
}

func TestDownedBodyIsReplaced(t *testing.T) {
	sim, _ := newTestSim(t, 2)
	victim := sim.bodies[0]
	victim.Alive = false

	sim.Step(1, 0.05)

	assert.Equal(t, 2, sim.Engine.ActiveDecisionMakers())
	assert.Len(t, sim.bodies, 2)
	_, found := sim.Agent(victim.Maker.ID)
	assert.False(t, found)
	for _, dm := range sim.Engine.DecisionMakers() {
		assert.NotSame(t, victim.Maker, dm)
	}
	assert.Equal(t, 1, sim.Summary().Stats.Downed)
}

func TestSpawnerAppliesVetoes(t *testing.T) {
	sp := NewSpawner(1, 10)
	sp.Vetoes = []agents.Transition{{From: agents.StateIdle, To: agents.StateExploring}}

	b := sp.SpawnBody()
	assert.False(t, b.Maker.StateMachine().Allowed(agents.StateIdle, agents.StateExploring))
}

func TestSpawnerIDsUnique(t *testing.T) {
	sp := NewSpawner(1, 10)
	b := sp.SpawnBody()
	h := sp.SpawnHostile()
	r := sp.SpawnResource()

	ids := map[uint64]bool{uint64(b.Maker.ID): true, uint64(h.ID): true, uint64(r.ID): true}
	assert.Len(t, ids, 3)
}

func TestSummaryAndViews(t *testing.T) {
	sim, _ := newTestSim(t, 4)
	sim.Step(1, 0.05)

	sum := sim.Summary()
	assert.Equal(t, uint64(1), sum.Frame)
	assert.Equal(t, 4, sum.Agents)
	total := 0
	for _, n := range sum.States {
		total += n
	}
	assert.Equal(t, 4, total)

	views := sim.Agents()
	require.Len(t, views, 4)
	assert.Less(t, views[0].ID, views[1].ID)
	assert.NotNil(t, views[0].LastDecision)
	assert.Nil(t, views[0].Memory)

	detail, ok := sim.Agent(views[0].ID)
	require.True(t, ok)
	assert.NotNil(t, detail.Memory)
}
