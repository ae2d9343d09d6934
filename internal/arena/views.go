package arena

import (
	"sort"

	"github.com/talgya/mini-mind/internal/agents"
)

// Summary is an aggregate snapshot of the arena.
type Summary struct {
	Frame        uint64                 `json:"frame"`
	EngineTicks  uint64                 `json:"engine_ticks"`
	Agents       int                    `json:"agents"`
	Hostiles     int                    `json:"hostiles"`
	Resources    int                    `json:"resources"`
	States       map[agents.AIState]int `json:"states"`
	AvgHealth    float64                `json:"avg_health"`
	AvgEnergy    float64                `json:"avg_energy"`
	GlobalMemory int                    `json:"global_memory_entries"`
	Stats        Stats                  `json:"stats"`
}

// AgentView is a read-only snapshot of one agent.
type AgentView struct {
	ID           agents.AgentID     `json:"id"`
	State        agents.AIState     `json:"state"`
	Previous     agents.AIState     `json:"previous_state"`
	TimeInState  float64            `json:"time_in_state"`
	Cooldown     float64            `json:"cooldown"`
	Position     agents.Vec3        `json:"position"`
	Health       float64            `json:"health"`
	Energy       float64            `json:"energy"`
	LastDecision *agents.Decision   `json:"last_decision,omitempty"`
	Memory       map[string]float64 `json:"memory,omitempty"`
}

// Frame returns the last frame stepped.
func (s *Simulation) Frame() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// Summary returns aggregate arena state.
func (s *Simulation) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := Summary{
		Frame:        s.frame,
		EngineTicks:  s.Engine.Ticks(),
		Agents:       len(s.bodies),
		Hostiles:     len(s.hostiles),
		Resources:    len(s.resources),
		States:       make(map[agents.AIState]int),
		GlobalMemory: s.Engine.GlobalMemory().Len(),
		Stats:        s.stats,
	}
	for _, b := range s.bodies {
		sum.States[b.Maker.State()]++
		sum.AvgHealth += b.Health
		sum.AvgEnergy += b.Energy
	}
	if n := float64(len(s.bodies)); n > 0 {
		sum.AvgHealth /= n
		sum.AvgEnergy /= n
	}
	return sum
}

// Agents returns views of every agent ordered by ID, without memory.
func (s *Simulation) Agents() []AgentView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]AgentView, 0, len(s.bodies))
	for _, b := range s.bodies {
		views = append(views, view(b, false))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// Agent returns a detailed view of one agent, including its local memory.
func (s *Simulation) Agent(id agents.AgentID) (AgentView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.index[id]
	if !ok {
		return AgentView{}, false
	}
	return view(b, true), true
}

func view(b *Body, withMemory bool) AgentView {
	dm := b.Maker
	v := AgentView{
		ID:          dm.ID,
		State:       dm.State(),
		Previous:    dm.StateMachine().Previous(),
		TimeInState: dm.StateMachine().TimeInCurrentState(),
		Cooldown:    dm.CooldownRemaining(),
		Position:    b.Position,
		Health:      b.Health,
		Energy:      b.Energy,
	}
	if d, ok := dm.LastDecision(); ok {
		v.LastDecision = &d
	}
	if withMemory {
		v.Memory = dm.Memory().Snapshot()
	}
	return v
}
