// Package observer reads arena state from a running inspection API. The
// watch command uses it to follow a simulation from another process.
package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// ErrNotReady is returned by WaitForAPI when the API never came up.
var ErrNotReady = errors.New("arena API not ready")

// Snapshot holds all data collected during one observation.
type Snapshot struct {
	Status Status      `json:"status"`
	Agents []AgentInfo `json:"agents"`
	Memory MemoryInfo  `json:"memory"`
}

// Status mirrors GET /api/v1/status.
type Status struct {
	Name    string  `json:"name"`
	Run     string  `json:"run"`
	Frame   uint64  `json:"frame"`
	SimTime float64 `json:"sim_time"`
	Speed   float64 `json:"speed"`
	Running bool    `json:"running"`
	Journal bool    `json:"journal"`
	Summary struct {
		EngineTicks  uint64         `json:"engine_ticks"`
		Agents       int            `json:"agents"`
		Hostiles     int            `json:"hostiles"`
		Resources    int            `json:"resources"`
		States       map[string]int `json:"states"`
		AvgHealth    float64        `json:"avg_health"`
		AvgEnergy    float64        `json:"avg_energy"`
		GlobalMemory int            `json:"global_memory_entries"`
		Stats        struct {
			Decisions   uint64 `json:"decisions"`
			Transitions uint64 `json:"transitions"`
			Downed      int    `json:"downed"`
			Defeated    int    `json:"hostiles_defeated"`
			Harvested   int    `json:"resources_harvested"`
		} `json:"stats"`
	} `json:"summary"`
}

// AgentInfo mirrors items from GET /api/v1/agents.
type AgentInfo struct {
	ID          uint64  `json:"id"`
	State       string  `json:"state"`
	Previous    string  `json:"previous_state"`
	TimeInState float64 `json:"time_in_state"`
	Health      float64 `json:"health"`
	Energy      float64 `json:"energy"`
}

// MemoryInfo mirrors GET /api/v1/memory.
type MemoryInfo struct {
	DecayRate float64            `json:"decay_rate"`
	Entries   map[string]float64 `json:"entries"`
}

// StateCount is one row of the state histogram.
type StateCount struct {
	State string
	Count int
}

// TopStates returns the n most common states, most common first. Ties are
// ordered by name.
func (s *Snapshot) TopStates(n int) []StateCount {
	out := make([]StateCount, 0, len(s.Status.Summary.States))
	for state, count := range s.Status.Summary.States {
		out = append(out, StateCount{State: state, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].State < out[j].State
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Weakest returns the agent with the lowest health, or false when there
// are no agents.
func (s *Snapshot) Weakest() (AgentInfo, bool) {
	if len(s.Agents) == 0 {
		return AgentInfo{}, false
	}
	weakest := s.Agents[0]
	for _, a := range s.Agents[1:] {
		if a.Health < weakest.Health {
			weakest = a
		}
	}
	return weakest, true
}

// Observer fetches arena state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Observe fetches status, agents, and global memory.
func (o *Observer) Observe(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	if err := o.fetchJSON(ctx, "/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON(ctx, "/api/v1/agents", &snap.Agents); err != nil {
		return nil, fmt.Errorf("fetch agents: %w", err)
	}
	if err := o.fetchJSON(ctx, "/api/v1/memory", &snap.Memory); err != nil {
		return nil, fmt.Errorf("fetch memory: %w", err)
	}

	return snap, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Backoff controls how WaitForAPI retries.
type Backoff struct {
	Initial  time.Duration
	Max      time.Duration
	Deadline time.Duration
}

// DefaultBackoff starts at 2s, doubles up to 30s, and gives up after 5m.
var DefaultBackoff = Backoff{
	Initial:  2 * time.Second,
	Max:      30 * time.Second,
	Deadline: 5 * time.Minute,
}

// WaitForAPI polls the status endpoint with exponential backoff until it
// answers 200, ctx is done, or the deadline passes.
func (o *Observer) WaitForAPI(ctx context.Context, b Backoff) error {
	ctx, cancel := context.WithTimeout(ctx, b.Deadline)
	defer cancel()

	backoff := b.Initial
	for {
		var status Status
		err := o.fetchJSON(ctx, "/api/v1/status", &status)
		if err == nil {
			return nil
		}

		slog.Info("arena API not ready, retrying", "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrNotReady, err)
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > b.Max {
			backoff = b.Max
		}
	}
}
