package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-mind/internal/agents"
	"github.com/talgya/mini-mind/internal/config"
	"github.com/talgya/mini-mind/internal/telemetry"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Arena.Agents = 5
	cfg.Arena.Hostiles = 2
	cfg.Arena.Resources = 3
	cfg.Arena.Size = 30
	cfg.DB.Path = filepath.Join(t.TempDir(), "arena.db")
	return cfg
}

func TestBuildAndStep(t *testing.T) {
	inst, err := build(testConfig(t), true)
	require.NoError(t, err)
	defer inst.close()

	for i := 0; i < 10; i++ {
		inst.loop.Step()
	}
	assert.Equal(t, uint64(10), inst.sim.Frame())
	assert.Equal(t, 5, inst.sim.Engine.ActiveDecisionMakers())

	runs, err := inst.journal.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, inst.sim.RunID, runs[0].ID)

	records, err := inst.journal.RecentDecisions(100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(records), 5, "every agent decides on the first frame")

	totals, err := telemetry.Totals(context.Background(), inst.reader)
	require.NoError(t, err)
	assert.Equal(t, int64(len(records)), totals["agent.decisions"])
	assert.Positive(t, totals["engine.population.updates"])
}

func TestBuildWithoutJournal(t *testing.T) {
	inst, err := build(testConfig(t), false)
	require.NoError(t, err)
	defer inst.close()

	assert.Nil(t, inst.journal)
	assert.Nil(t, inst.sim.Journal)
	inst.loop.Step()
	assert.Equal(t, uint64(1), inst.sim.Frame())
}

func TestBuildAppliesVetoes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.Vetoes = []config.Veto{{From: "idle", To: "exploring"}}

	inst, err := build(cfg, false)
	require.NoError(t, err)

	for _, dm := range inst.sim.Engine.DecisionMakers() {
		assert.False(t, dm.StateMachine().Allowed(agents.StateIdle, agents.StateExploring))
	}
}

func TestBuildRejectsBadVeto(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.Vetoes = []config.Veto{{From: "idle", To: "sleeping"}}

	_, err := build(cfg, false)
	assert.ErrorIs(t, err, config.ErrInvalidVeto)
}

func TestLoopStopsAfterFrames(t *testing.T) {
	runFlags.frames = 3
	t.Cleanup(func() { runFlags.frames = 0 })

	cfg := testConfig(t)
	cfg.Engine.FrameInterval = time.Millisecond
	inst, err := build(cfg, false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	inst.loop.Run(ctx)

	assert.Equal(t, uint64(3), inst.sim.Frame())
	assert.False(t, inst.loop.Running())
}

func TestJournalCounts(t *testing.T) {
	cfg := testConfig(t)
	inst, err := build(cfg, true)
	require.NoError(t, err)
	inst.loop.Step()
	runID := inst.sim.RunID
	inst.close()

	t.Setenv("ARENA_DB_PATH", cfg.DB.Path)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"journal", "counts"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "run "+runID)
	assert.Contains(t, out.String(), "ACTION")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "arena dev")
}
