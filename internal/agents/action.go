package agents

import "fmt"

// ActionKind names an Action variant. Scoring is keyed by kind, never by
// payload: two attacks on different targets share one rule.
type ActionKind uint8

const (
	KindMoveTo ActionKind = iota
	KindAttack
	KindDefend
	KindExplore
	KindIdle
	KindPatrol
	KindFlee
	KindInvestigate
)

func (k ActionKind) String() string {
	switch k {
	case KindMoveTo:
		return "move_to"
	case KindAttack:
		return "attack"
	case KindDefend:
		return "defend"
	case KindExplore:
		return "explore"
	case KindIdle:
		return "idle"
	case KindPatrol:
		return "patrol"
	case KindFlee:
		return "flee"
	case KindInvestigate:
		return "investigate"
	default:
		return fmt.Sprintf("ActionKind(%d)", k)
	}
}

// MarshalText renders the kind name.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Action is one behavior an agent can choose, with its payload. The set
// of implementations is closed to this package.
type Action interface {
	Kind() ActionKind
	isAction()
}

// MoveTo walks to a target position.
type MoveTo struct {
	Target Vec3 `json:"target"`
}

// Attack engages a target entity.
type Attack struct {
	TargetID EntityID `json:"target_id"`
	Target   Vec3     `json:"target"`
	Priority float64  `json:"priority"`
}

// Defend holds an area.
type Defend struct {
	Position Vec3    `json:"position"`
	Radius   float64 `json:"radius"`
}

// Explore wanders around a center for a while.
type Explore struct {
	Center   Vec3    `json:"center"`
	Radius   float64 `json:"radius"`
	Duration float64 `json:"duration"`
}

// Idle does nothing.
type Idle struct{}

// Patrol walks a waypoint route.
type Patrol struct {
	Waypoints []Vec3 `json:"waypoints"`
	Index     int    `json:"index"`
	Loop      bool   `json:"loop"`
}

// Flee runs to a destination away from danger.
type Flee struct {
	Destination Vec3 `json:"destination"`
}

// Investigate checks out a point of interest.
type Investigate struct {
	Position Vec3 `json:"position"`
}

func (MoveTo) Kind() ActionKind      { return KindMoveTo }
func (Attack) Kind() ActionKind      { return KindAttack }
func (Defend) Kind() ActionKind      { return KindDefend }
func (Explore) Kind() ActionKind     { return KindExplore }
func (Idle) Kind() ActionKind        { return KindIdle }
func (Patrol) Kind() ActionKind      { return KindPatrol }
func (Flee) Kind() ActionKind        { return KindFlee }
func (Investigate) Kind() ActionKind { return KindInvestigate }

func (MoveTo) isAction()      {}
func (Attack) isAction()      {}
func (Defend) isAction()      {}
func (Explore) isAction()     {}
func (Idle) isAction()        {}
func (Patrol) isAction()      {}
func (Flee) isAction()        {}
func (Investigate) isAction() {}

// StateFor returns the behavioral state an action puts the agent in.
func StateFor(a Action) AIState {
	switch a.(type) {
	case MoveTo:
		return StateMoving
	case Attack:
		return StateAttacking
	case Defend:
		return StateDefending
	case Explore:
		return StateExploring
	case Patrol:
		return StatePatrolling
	case Flee:
		return StateFleeing
	case Investigate:
		return StateInvestigating
	case Idle:
		return StateIdle
	default:
		return StateIdle
	}
}
