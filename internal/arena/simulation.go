// Package arena is the host simulation around the decision core: it moves
// bodies, hostiles, and resources around a square arena, builds each
// agent's DecisionContext every frame, and applies the decisions it gets
// back.
package arena

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/mini-mind/internal/agents"
	"github.com/talgya/mini-mind/internal/engine"
	"github.com/talgya/mini-mind/internal/persistence"
	"github.com/talgya/mini-mind/internal/telemetry"
	"github.com/talgya/mini-mind/internal/weather"
)

// Movement and interaction tuning, in arena units and seconds.
const (
	walkSpeed    = 4.0
	runSpeed     = 8.0
	wanderSpeed  = 2.5
	hostileSpeed = 1.5
	reach        = 1.5  // contact distance for attacks, pickups, and hits
	moveCost     = 0.01 // energy per unit travelled
	restRate     = 0.05 // energy per second while idle
	healRate     = 0.01 // health per second while idle
	attackDamage = 0.5  // hostile health per second
	hitDamage    = 0.1  // body health per second per unit of threat
)

// Body is an agent-controlled entity.
type Body struct {
	Maker    *agents.DecisionMaker
	Position agents.Vec3
	Velocity agents.Vec3
	Health   float64
	Energy   float64
	Alive    bool

	wander agents.Vec3 // current explore waypoint
	seen   uint64      // decision count already journaled
}

// Hostile is an enemy that wanders toward bodies and hurts them on contact.
type Hostile struct {
	ID       agents.EntityID
	Position agents.Vec3
	Threat   float64
	Health   float64
}

// Resource restores energy when a body reaches it.
type Resource struct {
	ID       agents.EntityID
	Position agents.Vec3
	Amount   float64
}

// Recorder receives journaled decisions.
type Recorder interface {
	RecordDecisions(records []persistence.Record) error
}

// Config sizes the arena.
type Config struct {
	Hostiles    int
	Resources   int
	SenseRadius float64
}

// Stats tracks aggregate counters.
type Stats struct {
	Decisions   uint64 `json:"decisions"`
	Transitions uint64 `json:"transitions"`
	Downed      int    `json:"downed"`
	Defeated    int    `json:"hostiles_defeated"`
	Harvested   int    `json:"resources_harvested"`
}

// Simulation holds the arena state and wires it to the decision engine.
type Simulation struct {
	Engine  *engine.Engine
	Field   *weather.Field
	Spawner *Spawner
	Journal Recorder
	Metrics *telemetry.Metrics
	RunID   string

	cfg Config

	mu        sync.RWMutex
	bodies    []*Body
	index     map[agents.AgentID]*Body
	hostiles  []*Hostile
	resources []*Resource
	frame     uint64
	stats     Stats
	pending   []persistence.Record
}

// NewSimulation spawns the initial population and registers every body's
// decision maker with the engine.
func NewSimulation(cfg Config, agentCount int, eng *engine.Engine, field *weather.Field, spawner *Spawner) *Simulation {
	s := &Simulation{
		Engine:  eng,
		Field:   field,
		Spawner: spawner,
		cfg:     cfg,
		index:   make(map[agents.AgentID]*Body, agentCount),
	}
	for i := 0; i < agentCount; i++ {
		s.addBody(spawner.SpawnBody())
	}
	for i := 0; i < cfg.Hostiles; i++ {
		s.hostiles = append(s.hostiles, spawner.SpawnHostile())
	}
	for i := 0; i < cfg.Resources; i++ {
		s.resources = append(s.resources, spawner.SpawnResource())
	}
	return s
}

func (s *Simulation) addBody(b *Body) {
	s.bodies = append(s.bodies, b)
	s.index[b.Maker.ID] = b
	s.Engine.AddDecisionMaker(b.Maker)
}

// Step advances the arena by one frame of dt simulated seconds.
func (s *Simulation) Step(frame uint64, dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame = frame
	s.Field.Advance(dt)
	s.Engine.Update(dt)

	s.moveHostiles(dt)

	for _, b := range s.bodies {
		s.think(b)
	}
	for _, b := range s.bodies {
		s.act(b, dt)
	}

	s.resolveHits(dt)
	s.replaceDowned()
	s.flush()
}

// ContextFor builds the decision context for a body from current world state.
func (s *Simulation) ContextFor(b *Body) *agents.DecisionContext {
	ctx := &agents.DecisionContext{
		Position:     b.Position,
		Velocity:     b.Velocity,
		Health:       b.Health,
		Energy:       b.Energy,
		Environment:  s.Field.Sample(b.Position),
		GlobalMemory: s.Engine.GlobalMemory(),
	}

	for _, h := range s.hostiles {
		d := b.Position.Dist(h.Position)
		if d > s.cfg.SenseRadius {
			continue
		}
		ctx.Nearby = append(ctx.Nearby, agents.Entity{
			ID:          h.ID,
			Position:    h.Position,
			Type:        agents.EntityEnemy,
			ThreatLevel: h.Threat,
			Distance:    d,
		})
		// Threat falls off with distance.
		if t := h.Threat * (1 - d/s.cfg.SenseRadius); t > ctx.ThreatLevel {
			ctx.ThreatLevel = t
		}
	}
	for _, r := range s.resources {
		d := b.Position.Dist(r.Position)
		if d > s.cfg.SenseRadius {
			continue
		}
		ctx.Nearby = append(ctx.Nearby, agents.Entity{
			ID:       r.ID,
			Position: r.Position,
			Type:     agents.EntityResource,
			Distance: d,
		})
		ctx.AvailableResources++
	}
	for _, o := range s.bodies {
		if o == b || !o.Alive {
			continue
		}
		d := b.Position.Dist(o.Position)
		if d > s.cfg.SenseRadius {
			continue
		}
		ctx.Nearby = append(ctx.Nearby, agents.Entity{
			ID:       agents.EntityID(o.Maker.ID),
			Position: o.Position,
			Type:     agents.EntityAlly,
			Distance: d,
		})
	}
	return ctx
}

// think asks the body's decision maker for a decision and journals it when
// it is new.
func (s *Simulation) think(b *Body) {
	ctx := s.ContextFor(b)
	from := b.Maker.State()

	d, ok := b.Maker.MakeDecision(ctx)
	if !ok || b.Maker.DecisionCount() == b.seen {
		return
	}
	b.seen = b.Maker.DecisionCount()
	to := b.Maker.State()

	kind := d.Action.Kind().String()
	s.stats.Decisions++
	s.Metrics.RecordDecision(context.Background(), kind, d.Confidence)
	if from != to {
		s.stats.Transitions++
		s.Metrics.RecordTransition(context.Background(), from.String(), to.String())
	}

	s.remember(b, ctx)

	if ex, ok := d.Action.(agents.Explore); ok {
		b.wander = s.Spawner.Around(ex.Center, ex.Radius)
	}

	payload, err := json.Marshal(d.Action)
	if err != nil {
		payload = []byte("{}")
	}
	s.pending = append(s.pending, persistence.Record{
		RunID:      s.RunID,
		Frame:      s.frame,
		AgentID:    uint64(b.Maker.ID),
		Action:     kind,
		FromState:  from.String(),
		ToState:    to.String(),
		Confidence: d.Confidence,
		Payload:    string(payload),
		DecidedAt:  d.Timestamp,
	})
}

// remember writes perceived enemies into the agent's own memory and shares
// their threat through the global store.
func (s *Simulation) remember(b *Body, ctx *agents.DecisionContext) {
	for _, e := range ctx.Nearby {
		if e.Type != agents.EntityEnemy {
			continue
		}
		b.Maker.AddMemory(fmt.Sprintf("enemy:%d", e.ID), 1)
		key := fmt.Sprintf("threat:%d", e.ID)
		if w, ok := ctx.GlobalMemory.Get(key); !ok || e.ThreatLevel > w {
			ctx.GlobalMemory.Set(key, e.ThreatLevel)
		}
	}
}

// act applies the body's current decision for one frame.
func (s *Simulation) act(b *Body, dt float64) {
	d, ok := b.Maker.LastDecision()
	if !ok {
		return
	}

	b.Velocity = agents.Vec3{}
	switch a := d.Action.(type) {
	case agents.Idle:
		b.Energy = clamp01(b.Energy + restRate*dt)
		b.Health = clamp01(b.Health + healRate*dt)
	case agents.Explore:
		s.moveToward(b, b.wander, wanderSpeed, dt)
	case agents.Flee:
		s.moveToward(b, a.Destination, runSpeed, dt)
	case agents.MoveTo:
		s.moveToward(b, a.Target, walkSpeed, dt)
		s.harvest(b)
	case agents.Attack:
		h := s.hostile(a.TargetID)
		if h == nil {
			return
		}
		if b.Position.Dist(h.Position) > reach {
			s.moveToward(b, h.Position, walkSpeed, dt)
			return
		}
		h.Health -= attackDamage * dt
	case agents.Defend:
		if b.Position.Dist(a.Position) > a.Radius {
			s.moveToward(b, a.Position, walkSpeed, dt)
		}
	case agents.Investigate:
		s.moveToward(b, a.Position, walkSpeed, dt)
	case agents.Patrol:
		if len(a.Waypoints) > 0 {
			s.moveToward(b, a.Waypoints[a.Index%len(a.Waypoints)], walkSpeed, dt)
		}
	}
}

func (s *Simulation) moveToward(b *Body, target agents.Vec3, speed, dt float64) {
	delta := target.Sub(b.Position)
	dist := delta.Len()
	if dist < 1e-9 {
		return
	}
	step := speed * dt
	if step > dist {
		step = dist
	}
	b.Velocity = delta.Scale(speed / dist)
	b.Position = b.Position.Add(delta.Scale(step / dist))
	b.Energy = clamp01(b.Energy - moveCost*step)
}

func (s *Simulation) harvest(b *Body) {
	for i, r := range s.resources {
		if b.Position.Dist(r.Position) > reach {
			continue
		}
		b.Energy = clamp01(b.Energy + r.Amount)
		s.resources[i] = s.Spawner.SpawnResource()
		s.stats.Harvested++
		return
	}
}

func (s *Simulation) hostile(id agents.EntityID) *Hostile {
	for _, h := range s.hostiles {
		if h.ID == id {
			return h
		}
	}
	return nil
}

// moveHostiles drifts each hostile toward its nearest living body.
func (s *Simulation) moveHostiles(dt float64) {
	for _, h := range s.hostiles {
		var nearest *Body
		best := s.cfg.SenseRadius
		for _, b := range s.bodies {
			if d := h.Position.Dist(b.Position); b.Alive && d < best {
				nearest, best = b, d
			}
		}
		if nearest == nil || best < reach {
			continue
		}
		delta := nearest.Position.Sub(h.Position)
		h.Position = h.Position.Add(delta.Scale(hostileSpeed * dt / best))
	}
}

// resolveHits applies contact damage and replaces defeated hostiles.
func (s *Simulation) resolveHits(dt float64) {
	for i, h := range s.hostiles {
		if h.Health <= 0 {
			slog.Debug("hostile defeated", "id", h.ID, "frame", s.frame)
			s.hostiles[i] = s.Spawner.SpawnHostile()
			s.stats.Defeated++
			continue
		}
		for _, b := range s.bodies {
			if b.Alive && b.Position.Dist(h.Position) <= reach {
				b.Health = clamp01(b.Health - h.Threat*hitDamage*dt)
				if b.Health <= 0 {
					b.Alive = false
				}
			}
		}
	}
}

// replaceDowned removes dead bodies from the engine and spawns fresh ones,
// keeping the population size stable.
func (s *Simulation) replaceDowned() {
	for i := 0; i < len(s.bodies); i++ {
		b := s.bodies[i]
		if b.Alive {
			continue
		}
		s.Engine.RemoveDecisionMaker(b.Maker)
		delete(s.index, b.Maker.ID)
		s.bodies = append(s.bodies[:i], s.bodies[i+1:]...)
		i--
		s.stats.Downed++
		slog.Info("agent downed", "agent", b.Maker.ID, "frame", s.frame)

		s.addBody(s.Spawner.SpawnBody())
	}
}

func (s *Simulation) flush() {
	if s.Journal == nil || len(s.pending) == 0 {
		s.pending = s.pending[:0]
		return
	}
	if err := s.Journal.RecordDecisions(s.pending); err != nil {
		slog.Error("journal write failed", "error", err, "records", len(s.pending))
	}
	s.pending = s.pending[:0]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
