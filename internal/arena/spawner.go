package arena

import (
	"math/rand"

	"github.com/talgya/mini-mind/internal/agents"
)

// Spawner creates bodies, hostiles, and resources at random positions.
// Agents and entities share one ID sequence so IDs never collide.
type Spawner struct {
	rng    *rand.Rand
	nextID uint64
	size   float64

	// Vetoes are applied to every new body's state machine.
	Vetoes []agents.Transition
}

// NewSpawner creates a spawner for a square arena of half-width size.
func NewSpawner(seed int64, size float64) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		nextID: 1,
		size:   size,
	}
}

func (s *Spawner) id() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

// RandomPosition returns a point on the arena floor.
func (s *Spawner) RandomPosition() agents.Vec3 {
	return agents.Vec3{
		X: (s.rng.Float64()*2 - 1) * s.size,
		Z: (s.rng.Float64()*2 - 1) * s.size,
	}
}

// Around returns a random point within radius of center.
func (s *Spawner) Around(center agents.Vec3, radius float64) agents.Vec3 {
	return center.Add(agents.Vec3{
		X: (s.rng.Float64()*2 - 1) * radius,
		Z: (s.rng.Float64()*2 - 1) * radius,
	})
}

// SpawnBody creates an agent-controlled body with its decision maker.
func (s *Spawner) SpawnBody() *Body {
	dm := agents.NewDecisionMaker(agents.AgentID(s.id()))
	for _, v := range s.Vetoes {
		dm.StateMachine().SetTransition(v.From, v.To, false)
	}
	return &Body{
		Maker:    dm,
		Position: s.RandomPosition(),
		Health:   0.6 + s.rng.Float64()*0.4,
		Energy:   0.3 + s.rng.Float64()*0.7,
		Alive:    true,
	}
}

// SpawnHostile creates a hostile with a random threat level.
func (s *Spawner) SpawnHostile() *Hostile {
	return &Hostile{
		ID:       agents.EntityID(s.id()),
		Position: s.RandomPosition(),
		Threat:   0.3 + s.rng.Float64()*0.7,
		Health:   1,
	}
}

// SpawnResource creates a resource cache.
func (s *Spawner) SpawnResource() *Resource {
	return &Resource{
		ID:       agents.EntityID(s.id()),
		Position: s.RandomPosition(),
		Amount:   0.2 + s.rng.Float64()*0.3,
	}
}
