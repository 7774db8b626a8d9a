// Package statemachine implements the agent lifecycle state machine: a
// tiny finite state machine that validates transitions between offline,
// idle, and busy against a fixed transition table.
package statemachine

// AgentState is the lifecycle state of a single agent.
type AgentState int

const (
    // Unset is the zero value, used only before the machine has been
    // seeded with an initial state via SetState.
    Unset AgentState = iota
    Offline
    Idle
    Busy
)

func (s AgentState) String() string {
    switch s {
    case Offline:
        return "offline"
    case Idle:
        return "idle"
    case Busy:
        return "busy"
    default:
        return "unset"
    }
}

// Transition is an ordered (from, to) pair.
type Transition struct {
    From AgentState
    To   AgentState
}

// AgentTransitions is the fixed, legal transition table for an agent.
// Notably absent: busy->offline (logout while on a call), busy->busy,
// offline->busy, offline->offline.
var AgentTransitions = []Transition{
    {From: Offline, To: Idle},
    {From: Idle, To: Idle},
    {From: Idle, To: Busy},
    {From: Idle, To: Offline},
    {From: Busy, To: Idle},
}

// Machine is a mini finite state machine controlling a single agent's
// state. It does not throw on an illegal transition; it reports false and
// leaves the state unchanged, so the caller decides whether to log,
// repair, or ignore.
type Machine struct {
    legal   map[AgentState]map[AgentState]bool
    current AgentState
}

// New builds a machine from a transition table and an optional start
// state (Unset if the agent's prior state is not yet known).
func New(transitions []Transition, start AgentState) *Machine {
    m := &Machine{
        legal:   make(map[AgentState]map[AgentState]bool),
        current: start,
    }
    for _, t := range transitions {
        if m.legal[t.From] == nil {
            m.legal[t.From] = make(map[AgentState]bool)
        }
        m.legal[t.From][t.To] = true
    }
    return m
}

// State returns the current state.
func (m *Machine) State() AgentState {
    return m.current
}

// SetState seeds the machine's state. It only succeeds when the current
// state is Unset; every later state change must go through Transition.
func (m *Machine) SetState(s AgentState) bool {
    if m.current != Unset {
        return false
    }
    m.current = s
    return true
}

// ForceSet coerces the machine directly to s, bypassing the transition
// table. This is the explicit recovery primitive the design notes call
// for in place of reconstructing a fresh machine on every protocol
// violation; the Power Dialer decides which state to coerce to, this
// method only performs the mechanical override.
func (m *Machine) ForceSet(s AgentState) {
    m.current = s
}

// Transition attempts to move to newState. It succeeds iff (current,
// newState) is in the legal set, in which case current is updated and
// true is returned; otherwise current is left unchanged and false is
// returned.
func (m *Machine) Transition(newState AgentState) bool {
    if m.legal[m.current][newState] {
        m.current = newState
        return true
    }
    return false
}
