package agents

import (
	"encoding/json"
	"time"

	"github.com/talgya/mini-mind/internal/memory"
)

// DecisionCooldown is the minimum time in seconds between two effective
// decisions for one agent.
const DecisionCooldown = 0.5

// Decision is a chosen action. It is never modified after creation.
type Decision struct {
	Action     Action
	Confidence float64
	Timestamp  time.Time
}

// MarshalJSON renders the action as {"kind": ..., "payload": ...}.
func (d Decision) MarshalJSON() ([]byte, error) {
	var kind string
	if d.Action != nil {
		kind = d.Action.Kind().String()
	}
	return json.Marshal(struct {
		Kind       string    `json:"kind"`
		State      AIState   `json:"state"`
		Payload    Action    `json:"payload"`
		Confidence float64   `json:"confidence"`
		Timestamp  time.Time `json:"timestamp"`
	}{
		Kind:       kind,
		State:      StateFor(d.Action),
		Payload:    d.Action,
		Confidence: d.Confidence,
		Timestamp:  d.Timestamp,
	})
}

// DecisionMaker is the per-agent controller. It owns its state machine,
// evaluator, and local memory, and rate-limits new decisions.
type DecisionMaker struct {
	ID AgentID

	state     AIState // mirror of machine.Current() for quick inspection
	machine   *StateMachine
	evaluator *UtilityEvaluator
	memory    *memory.Store

	last     Decision
	hasLast  bool
	made     uint64  // number of new decisions produced
	cooldown float64 // seconds until a new decision is allowed; may go negative

	clock func() time.Time
}

// MakerOption configures a DecisionMaker.
type MakerOption func(*DecisionMaker)

// WithClock sets the timestamp source for decisions.
func WithClock(clock func() time.Time) MakerOption {
	return func(dm *DecisionMaker) {
		dm.clock = clock
	}
}

// NewDecisionMaker creates a decision maker for the given agent.
func NewDecisionMaker(id AgentID, opts ...MakerOption) *DecisionMaker {
	dm := &DecisionMaker{
		ID:        id,
		state:     StateIdle,
		machine:   NewStateMachine(),
		evaluator: NewUtilityEvaluator(),
		memory:    memory.NewLocal(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(dm)
	}
	return dm
}

// State returns the agent's current behavioral state.
func (dm *DecisionMaker) State() AIState { return dm.state }

// StateMachine returns the owned state machine.
func (dm *DecisionMaker) StateMachine() *StateMachine { return dm.machine }

// Evaluator returns the owned utility evaluator.
func (dm *DecisionMaker) Evaluator() *UtilityEvaluator { return dm.evaluator }

// Memory returns the agent-local memory store.
func (dm *DecisionMaker) Memory() *memory.Store { return dm.memory }

// CooldownRemaining returns the raw cooldown timer. Only a positive value
// blocks new decisions.
func (dm *DecisionMaker) CooldownRemaining() float64 { return dm.cooldown }

// DecisionCount returns how many new decisions have been produced. Replays
// during cooldown do not count.
func (dm *DecisionMaker) DecisionCount() uint64 { return dm.made }

// LastDecision returns the most recent decision, if any.
func (dm *DecisionMaker) LastDecision() (Decision, bool) {
	return dm.last, dm.hasLast
}

// Update advances the cooldown, the state timer, and local memory decay.
func (dm *DecisionMaker) Update(dt float64) {
	dm.cooldown -= dt
	dm.machine.Update(dt)
	dm.memory.Decay(dt)
}

// MakeDecision returns a new decision when the cooldown has expired, or the
// previous one unchanged while it is still running. Only a new decision
// drives a state transition.
func (dm *DecisionMaker) MakeDecision(ctx *DecisionContext) (Decision, bool) {
	if dm.cooldown > 0 {
		return dm.last, dm.hasLast
	}

	action := dm.evaluator.EvaluateBestAction(ctx, dm.memory)
	if action == nil {
		return Decision{}, false
	}

	dm.last = Decision{
		Action:     action,
		Confidence: dm.evaluator.LastConfidence(),
		Timestamp:  dm.clock(),
	}
	dm.hasLast = true
	dm.made++
	dm.cooldown = DecisionCooldown

	dm.machine.TransitionTo(StateFor(action))
	dm.state = dm.machine.Current()

	return dm.last, true
}

// AddMemory writes to local memory.
func (dm *DecisionMaker) AddMemory(key string, weight float64) {
	dm.memory.Set(key, weight)
}

// GetMemory reads from local memory.
func (dm *DecisionMaker) GetMemory(key string) (float64, bool) {
	return dm.memory.Get(key)
}
