package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestStartRun(t *testing.T) {
	j := tempJournal(t)

	run, err := j.StartRun(42, 8)
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)

	runs, err := j.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, int64(42), runs[0].Seed)
	assert.Equal(t, 8, runs[0].Agents)
}

func TestRecordAndQuery(t *testing.T) {
	j := tempJournal(t)
	run, err := j.StartRun(1, 2)
	require.NoError(t, err)

	now := time.Now().UTC()
	records := []Record{
		{RunID: run.ID, Frame: 1, AgentID: 1, Action: "explore", FromState: "idle", ToState: "exploring", Confidence: 0.6, Payload: "{}", DecidedAt: now},
		{RunID: run.ID, Frame: 1, AgentID: 2, Action: "flee", FromState: "idle", ToState: "fleeing", Confidence: 0.9, Payload: "{}", DecidedAt: now},
		{RunID: run.ID, Frame: 12, AgentID: 1, Action: "explore", FromState: "exploring", ToState: "exploring", Confidence: 0.6, Payload: "{}", DecidedAt: now},
	}
	require.NoError(t, j.RecordDecisions(records))
	require.NoError(t, j.RecordDecisions(nil))

	recent, err := j.RecentDecisions(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(12), recent[0].Frame, "newest first")

	mine, err := j.DecisionsForAgent(1, 10)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	counts, err := j.ActionCounts(run.ID)
	require.NoError(t, err)
	assert.Equal(t, []ActionCount{{Action: "explore", Count: 2}, {Action: "flee", Count: 1}}, counts)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.StartRun(5, 1)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.NoError(t, j.Ping())
}
