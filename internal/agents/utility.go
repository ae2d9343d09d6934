package agents

import "github.com/talgya/mini-mind/internal/memory"

// Candidate generation constants.
const (
	ExploreRadius   = 20.0
	ExploreDuration = 10.0
)

// FleeOffset is where an agent runs to, relative to its own position.
var FleeOffset = Vec3{X: 10}

// UtilityEvaluator scores candidate actions and picks the best one.
type UtilityEvaluator struct {
	base           map[ActionKind]float64
	lastConfidence float64
}

// NewUtilityEvaluator creates an evaluator with the default base utilities
// for the variants whose score does not depend on context.
func NewUtilityEvaluator() *UtilityEvaluator {
	return &UtilityEvaluator{
		base: map[ActionKind]float64{
			KindIdle:   0.1,
			KindMoveTo: 0.4,
			KindPatrol: 0.3,
		},
	}
}

// RegisterUtility sets the base utility for a context-independent kind.
func (e *UtilityEvaluator) RegisterUtility(kind ActionKind, utility float64) {
	e.base[kind] = utility
}

// BaseUtility returns the registered base utility for kind.
func (e *UtilityEvaluator) BaseUtility(kind ActionKind) (float64, bool) {
	u, ok := e.base[kind]
	return u, ok
}

// LastConfidence returns the winning score of the most recent evaluation,
// floored at zero.
func (e *UtilityEvaluator) LastConfidence() float64 {
	return e.lastConfidence
}

// Candidates enumerates the actions worth scoring, in a fixed order:
// idle, explore, flee, then one entry per qualifying nearby entity.
func (e *UtilityEvaluator) Candidates(ctx *DecisionContext) []Action {
	candidates := make([]Action, 0, 3+len(ctx.Nearby))
	candidates = append(candidates, Idle{})

	if ctx.Energy > 0.2 {
		candidates = append(candidates, Explore{
			Center:   ctx.Position,
			Radius:   ExploreRadius,
			Duration: ExploreDuration,
		})
	}

	if ctx.ThreatLevel > 0.5 {
		candidates = append(candidates, Flee{Destination: ctx.Position.Add(FleeOffset)})
	}

	for _, ent := range ctx.Nearby {
		switch ent.Type {
		case EntityEnemy:
			if ctx.Health > 0.3 {
				candidates = append(candidates, Attack{
					TargetID: ent.ID,
					Target:   ent.Position,
					Priority: ent.ThreatLevel,
				})
			}
		case EntityResource:
			candidates = append(candidates, MoveTo{Target: ent.Position})
		}
	}

	return candidates
}

// Score rates one action against the context. The memory argument is
// accepted for interface stability but does not affect the score.
func (e *UtilityEvaluator) Score(a Action, ctx *DecisionContext, _ *memory.Store) float64 {
	switch a.(type) {
	case Explore:
		if ctx.Energy > 0.3 {
			return 0.6
		}
		return 0.2
	case Attack:
		if ctx.Health > 0.5 {
			return 0.8
		}
		return 0.3
	case Defend:
		if ctx.ThreatLevel > 0.4 {
			return 0.7
		}
		return 0.2
	case Flee:
		if ctx.ThreatLevel > 0.7 || ctx.Health < 0.3 {
			return 0.9
		}
		return 0.1
	case Investigate:
		if ctx.Environment.NoiseLevel > 0.5 {
			return 0.5
		}
		return 0.2
	default:
		return e.base[a.Kind()]
	}
}

// EvaluateBestAction scores every candidate and returns the highest. Ties
// keep the earliest candidate. It returns nil only for an empty candidate
// list, which cannot happen while idle is always generated.
func (e *UtilityEvaluator) EvaluateBestAction(ctx *DecisionContext, mem *memory.Store) Action {
	var best Action
	bestScore := -1.0

	for _, c := range e.Candidates(ctx) {
		score := e.Score(c, ctx, mem)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}

	e.lastConfidence = max(0, bestScore)
	return best
}
