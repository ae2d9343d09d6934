// Package agents provides the per-agent decision core: behavioral states,
// the action variants an agent can choose, utility scoring, the state
// machine, and the cooldown-gated decision maker.
package agents

import (
	"fmt"
	"math"

	"github.com/talgya/mini-mind/internal/memory"
)

// AgentID is a unique identifier for an agent.
type AgentID uint64

// EntityID identifies anything an agent can perceive.
type EntityID uint64

// AIState is the behavioral state an agent is in.
type AIState uint8

const (
	StateIdle AIState = iota
	StateMoving
	StateAttacking
	StateDefending
	StateExploring
	StatePatrolling
	StateFleeing
	StateInvestigating
)

var stateNames = [...]string{
	StateIdle:          "idle",
	StateMoving:        "moving",
	StateAttacking:     "attacking",
	StateDefending:     "defending",
	StateExploring:     "exploring",
	StatePatrolling:    "patrolling",
	StateFleeing:       "fleeing",
	StateInvestigating: "investigating",
}

// AllStates lists every AIState in declaration order.
func AllStates() []AIState {
	return []AIState{
		StateIdle, StateMoving, StateAttacking, StateDefending,
		StateExploring, StatePatrolling, StateFleeing, StateInvestigating,
	}
}

func (s AIState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("AIState(%d)", s)
}

// MarshalText renders the state name, so states work as JSON map keys.
func (s AIState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *AIState) UnmarshalText(b []byte) error {
	st, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseState maps a state name back to its AIState.
func ParseState(name string) (AIState, error) {
	for i, n := range stateNames {
		if n == name {
			return AIState(i), nil
		}
	}
	return StateIdle, fmt.Errorf("unknown AI state %q", name)
}

// Vec3 is a position or direction in world space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * k.
func (v Vec3) Scale(k float64) Vec3 { return Vec3{v.X * k, v.Y * k, v.Z * k} }

// Len returns the Euclidean length.
func (v Vec3) Len() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Dist returns the distance between two points.
func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Len() }

// EntityType classifies a perceived entity.
type EntityType uint8

const (
	EntityAlly EntityType = iota
	EntityEnemy
	EntityNeutral
	EntityResource
	EntityObstacle
)

func (t EntityType) String() string {
	switch t {
	case EntityAlly:
		return "ally"
	case EntityEnemy:
		return "enemy"
	case EntityNeutral:
		return "neutral"
	case EntityResource:
		return "resource"
	case EntityObstacle:
		return "obstacle"
	default:
		return "unknown"
	}
}

// Entity describes something near the agent, as perceived this frame.
type Entity struct {
	ID          EntityID   `json:"id"`
	Position    Vec3       `json:"position"`
	Type        EntityType `json:"type"`
	ThreatLevel float64    `json:"threat_level"`
	Distance    float64    `json:"distance"`
}

// Terrain under the agent.
type Terrain uint8

const (
	TerrainPlains Terrain = iota
	TerrainForest
	TerrainMountain
	TerrainWater
)

func (t Terrain) String() string {
	switch t {
	case TerrainPlains:
		return "plains"
	case TerrainForest:
		return "forest"
	case TerrainMountain:
		return "mountain"
	case TerrainWater:
		return "water"
	default:
		return "unknown"
	}
}

// Environment holds the ambient conditions at the agent's position.
type Environment struct {
	Temperature float64 `json:"temperature"` // Celsius
	Visibility  float64 `json:"visibility"`  // 0.0–1.0
	NoiseLevel  float64 `json:"noise_level"` // 0.0–1.0
	Terrain     Terrain `json:"terrain"`
}

// DecisionContext is the read-only snapshot an agent decides from. The
// caller builds a fresh one for every MakeDecision call; the core never
// keeps or mutates it.
type DecisionContext struct {
	Position           Vec3
	Velocity           Vec3
	Health             float64 // 0.0–1.0
	Energy             float64 // 0.0–1.0
	Nearby             []Entity
	Environment        Environment
	GlobalMemory       *memory.Store
	ThreatLevel        float64 // 0.0–1.0
	AvailableResources int
}
