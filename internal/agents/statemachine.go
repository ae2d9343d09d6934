package agents

// Transition is an ordered (from, to) state pair.
type Transition struct {
	From AIState
	To   AIState
}

// StateMachine tracks an agent's current and previous state and how long
// it has been in each state since last entering it.
//
// The transition table is a veto list: a pair with no entry is allowed.
type StateMachine struct {
	current  AIState
	previous AIState
	elapsed  map[AIState]float64
	table    map[Transition]bool
}

// NewStateMachine creates a machine starting in StateIdle with no vetoes.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current:  StateIdle,
		previous: StateIdle,
		elapsed:  make(map[AIState]float64),
		table:    make(map[Transition]bool),
	}
}

// Current returns the current state.
func (m *StateMachine) Current() AIState { return m.current }

// Previous returns the state before the last transition.
func (m *StateMachine) Previous() AIState { return m.previous }

// SetTransition records whether from→to is allowed.
func (m *StateMachine) SetTransition(from, to AIState, allowed bool) {
	m.table[Transition{From: from, To: to}] = allowed
}

// Allowed reports whether from→to passes the veto table.
func (m *StateMachine) Allowed(from, to AIState) bool {
	allowed, ok := m.table[Transition{From: from, To: to}]
	return !ok || allowed
}

// Update adds dt to the time spent in the current state.
func (m *StateMachine) Update(dt float64) {
	m.elapsed[m.current] += dt
}

// TransitionTo moves to s unless s is already current or the pair is
// vetoed. It reports whether the state changed.
func (m *StateMachine) TransitionTo(s AIState) bool {
	if s == m.current {
		return false
	}
	if !m.Allowed(m.current, s) {
		return false
	}
	m.previous = m.current
	m.current = s
	m.elapsed[s] = 0
	return true
}

// TimeInCurrentState returns seconds spent in the current state.
func (m *StateMachine) TimeInCurrentState() float64 {
	return m.elapsed[m.current]
}

// TimeIn returns the seconds recorded for s since it was last entered.
func (m *StateMachine) TimeIn(s AIState) float64 {
	return m.elapsed[s]
}
