// Package persistence provides the SQLite decision journal: an append-only
// audit trail of the decisions agents make during a run.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Journal wraps a SQLite connection for decision records.
type Journal struct {
	conn *sqlx.DB
	Path string
}

// Run is one arena session.
type Run struct {
	ID        string    `db:"id" json:"id"`
	Seed      int64     `db:"seed" json:"seed"`
	Agents    int       `db:"agents" json:"agents"`
	StartedAt time.Time `db:"started_at" json:"started_at"`
}

// Record is one journaled decision.
type Record struct {
	RunID      string    `db:"run_id" json:"run_id"`
	Frame      uint64    `db:"frame" json:"frame"`
	AgentID    uint64    `db:"agent_id" json:"agent_id"`
	Action     string    `db:"action" json:"action"`
	FromState  string    `db:"from_state" json:"from_state"`
	ToState    string    `db:"to_state" json:"to_state"`
	Confidence float64   `db:"confidence" json:"confidence"`
	Payload    string    `db:"payload" json:"payload"` // action payload as JSON
	DecidedAt  time.Time `db:"decided_at" json:"decided_at"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Journal, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	j := &Journal{conn: conn, Path: path}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.conn.Close()
}

// Ping checks the connection.
func (j *Journal) Ping() error {
	return j.conn.Ping()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		agents INTEGER NOT NULL,
		started_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		frame INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		from_state TEXT NOT NULL,
		to_state TEXT NOT NULL,
		confidence REAL NOT NULL,
		payload TEXT NOT NULL,
		decided_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);
	CREATE INDEX IF NOT EXISTS idx_decisions_agent ON decisions(agent_id);
	`
	_, err := j.conn.Exec(schema)
	return err
}

// StartRun registers a new run and returns it.
func (j *Journal) StartRun(seed int64, agentCount int) (Run, error) {
	run := Run{
		ID:        uuid.New().String(),
		Seed:      seed,
		Agents:    agentCount,
		StartedAt: time.Now().UTC(),
	}
	_, err := j.conn.NamedExec(
		"INSERT INTO runs (id, seed, agents, started_at) VALUES (:id, :seed, :agents, :started_at)",
		run,
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	slog.Info("journal run started", "run", run.ID, "seed", seed, "agents", agentCount)
	return run, nil
}

// Runs returns all runs, newest first.
func (j *Journal) Runs() ([]Run, error) {
	var runs []Run
	err := j.conn.Select(&runs, "SELECT id, seed, agents, started_at FROM runs ORDER BY started_at DESC")
	return runs, err
}

// RecordDecisions appends decisions in one transaction.
func (j *Journal) RecordDecisions(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := j.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(`INSERT INTO decisions
		(run_id, frame, agent_id, action, from_state, to_state, confidence, payload, decided_at)
		VALUES (:run_id, :frame, :agent_id, :action, :from_state, :to_state, :confidence, :payload, :decided_at)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r); err != nil {
			return fmt.Errorf("insert decision for agent %d: %w", r.AgentID, err)
		}
	}

	return tx.Commit()
}

const recordColumns = "run_id, frame, agent_id, action, from_state, to_state, confidence, payload, decided_at"

// RecentDecisions returns the most recent decisions across all runs.
func (j *Journal) RecentDecisions(limit int) ([]Record, error) {
	var records []Record
	err := j.conn.Select(&records,
		"SELECT "+recordColumns+" FROM decisions ORDER BY id DESC LIMIT ?",
		limit,
	)
	return records, err
}

// DecisionsForAgent returns one agent's most recent decisions.
func (j *Journal) DecisionsForAgent(agentID uint64, limit int) ([]Record, error) {
	var records []Record
	err := j.conn.Select(&records,
		"SELECT "+recordColumns+" FROM decisions WHERE agent_id = ? ORDER BY id DESC LIMIT ?",
		agentID, limit,
	)
	return records, err
}

// ActionCount is the number of decisions of one action kind.
type ActionCount struct {
	Action string `db:"action" json:"action"`
	Count  int    `db:"count" json:"count"`
}

// ActionCounts tallies a run's decisions by action kind.
func (j *Journal) ActionCounts(runID string) ([]ActionCount, error) {
	var counts []ActionCount
	err := j.conn.Select(&counts,
		"SELECT action, COUNT(*) AS count FROM decisions WHERE run_id = ? GROUP BY action ORDER BY count DESC, action",
		runID,
	)
	return counts, err
}
