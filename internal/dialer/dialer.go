// Package dialer implements the Power Dialer: the per-agent session
// controller that orchestrates the state machine, agent status store,
// number manager, and call metrics recorder in response to lifecycle
// events (login, logout, call-started, call-failed, call-ended).
package dialer

import (
    "context"
    "sync/atomic"

    "github.com/hamzaKhattat/powerdialer/internal/agentstore"
    "github.com/hamzaKhattat/powerdialer/internal/callmetrics"
    "github.com/hamzaKhattat/powerdialer/internal/metrics"
    "github.com/hamzaKhattat/powerdialer/internal/numbers"
    "github.com/hamzaKhattat/powerdialer/internal/statemachine"
    "github.com/hamzaKhattat/powerdialer/pkg/logger"
)

// Dial places the outbound call. In this system dial is an abstract
// side effect; the reference implementation logs it.
type Dial func(ctx context.Context, agentID, number string)

// Config carries the policy knobs the dialer reads per event.
type Config struct {
    DialRatio int
}

// Controller is the process-wide collaborator set a Session is built
// from: the agent status store, the number manager, the call metrics
// recorder, and the dial side effect. It is constructed once at
// application start and handed to every Session, in place of the
// ambient singletons the source treats these components as (spec: 9).
type Controller struct {
    Store   agentstore.Store
    Numbers *numbers.Manager
    Metrics *callmetrics.Recorder
    Stats   metrics.Sink
    DialFn  Dial
    Config  Config

    busyAgents int64
    idleAgents int64
}

// adjustAgentGauges applies the (busy, idle) agent-count deltas a
// session's state transition produced and republishes both gauges.
func (c *Controller) adjustAgentGauges(busyDelta, idleDelta int64) {
    if busyDelta != 0 {
        n := atomic.AddInt64(&c.busyAgents, busyDelta)
        c.Stats.SetGauge("agents_busy", float64(n), nil)
    }
    if idleDelta != 0 {
        n := atomic.AddInt64(&c.idleAgents, idleDelta)
        c.Stats.SetGauge("agents_idle", float64(n), nil)
    }
}

// gaugeDeltas maps a (from, to) state transition to the (busy, idle)
// agent-count deltas it implies. offline carries no gauge of its own.
func gaugeDeltas(from, to statemachine.AgentState) (busyDelta, idleDelta int64) {
    leave := func(s statemachine.AgentState) (int64, int64) {
        switch s {
        case statemachine.Busy:
            return -1, 0
        case statemachine.Idle:
            return 0, -1
        default:
            return 0, 0
        }
    }
    enter := func(s statemachine.AgentState) (int64, int64) {
        switch s {
        case statemachine.Busy:
            return 1, 0
        case statemachine.Idle:
            return 0, 1
        default:
            return 0, 0
        }
    }
    lb, li := leave(from)
    eb, ei := enter(to)
    return lb + eb, li + ei
}

// LogDial is the reference Dial implementation: it performs no
// telephony signalling and only logs the attempt, per the system's
// explicit non-goal of not performing real call placement.
func LogDial(ctx context.Context, agentID, number string) {
    logger.WithContext(ctx).WithField("agent_id", agentID).WithField("number", number).Info("dialing")
}

// Session is a single-event scope around one agent id: it loads the
// agent's current state, runs exactly one handler, and writes the state
// back on every exit path. A Session is not safe for concurrent use and
// is not reused across events — dispatch constructs a fresh one per call.
type Session struct {
    ctx          context.Context
    ctrl         *Controller
    agentID      string
    machine      *statemachine.Machine
    initialState statemachine.AgentState
    numbers      []string
}

func newSession(ctx context.Context, ctrl *Controller, agentID string) *Session {
    current := ctrl.Store.Get(ctx, agentID)
    machine := statemachine.New(statemachine.AgentTransitions, statemachine.Unset)
    machine.SetState(current)
    return &Session{ctx: ctx, ctrl: ctrl, agentID: agentID, machine: machine, initialState: current}
}

// Numbers returns the numbers dialed during this session's handler
// invocation, in dial order. This is the audit trail a driving harness
// uses to discover generated numbers (spec: 4.G, Initiate).
func (s *Session) Numbers() []string {
    return s.numbers
}

func (s *Session) initiate() {
    number := s.ctrl.Numbers.GetNumber(s.ctx)
    s.numbers = append(s.numbers, number)
    s.ctrl.DialFn(s.ctx, s.agentID, number)
    s.ctrl.Stats.IncrementCounter("calls_initiated", map[string]string{"agent_id": s.agentID})
}

func (s *Session) initiateN(n int) {
    for i := 0; i < n; i++ {
        s.initiate()
    }
}

func (s *Session) log() *logger.Logger {
    return logger.WithContext(s.ctx).WithField("agent_id", s.agentID)
}

func (s *Session) violation(event string) {
    s.ctrl.Stats.IncrementCounter("protocol_violations", map[string]string{"event": event})
}

func (s *Session) onAgentLogin() {
    if !s.machine.Transition(statemachine.Idle) {
        s.log().WithField("state", s.machine.State().String()).Warn("login: agent already logged in")
        s.violation("agent_login")
    }
    s.initiateN(s.ctrl.Config.DialRatio)
}

func (s *Session) onAgentLogout() {
    if !s.machine.Transition(statemachine.Offline) {
        // The agent was busy: logout always wins, so the state is
        // coerced directly rather than refused (spec: 4.G).
        s.log().Warn("logout: agent was busy, forcing offline")
        s.violation("agent_logout")
        s.machine.ForceSet(statemachine.Offline)
    }
}

func (s *Session) onCallStarted(number string) {
    if s.machine.State() != statemachine.Idle {
        s.log().WithField("state", s.machine.State().String()).Warn("call started while not idle, forcing idle")
        s.violation("call_started")
        s.machine.ForceSet(statemachine.Idle)
    }
    s.ctrl.Metrics.CallStarted(s.ctx, s.agentID, number)
    s.ctrl.Stats.IncrementCounter("calls_connected", map[string]string{"agent_id": s.agentID})
    s.machine.Transition(statemachine.Busy)
}

func (s *Session) onCallFailed(number string) {
    s.log().WithField("number", number).Info("call failed")
    s.ctrl.Stats.IncrementCounter("calls_failed", map[string]string{"agent_id": s.agentID})
    switch s.machine.State() {
    case statemachine.Idle:
        s.initiate()
    case statemachine.Busy:
        // The agent is already on a connected call; this failure was a
        // sibling dial from the happy-eyes pair and is accepted as lost
        // (spec: 4.G, 9).
    }
}

func (s *Session) onCallEnded(number string) {
    if s.machine.State() != statemachine.Busy {
        s.log().WithField("state", s.machine.State().String()).Warn("call ended while not busy, forcing idle")
        // Forcing idle before recording (rather than dropping the
        // metric) keeps this handler symmetric with on_call_started's
        // recovery and lets the completed call still reach persistence
        // (spec: 9, open question on this exact path).
        s.violation("call_ended")
        s.machine.ForceSet(statemachine.Idle)
    }
    s.machine.Transition(statemachine.Idle)
    s.ctrl.Metrics.CallEnded(s.ctx, s.agentID, number)
    s.ctrl.Stats.IncrementCounter("calls_ended", map[string]string{"agent_id": s.agentID})
    s.initiateN(s.ctrl.Config.DialRatio)
}

func (s *Session) saveState() {
    final := s.machine.State()
    s.ctrl.Store.Set(s.ctx, s.agentID, final)
    s.ctrl.adjustAgentGauges(gaugeDeltas(s.initialState, final))
}

// dispatch opens a session, runs fn, and writes the resulting state back
// on every exit path including a panic inside fn — the cross-handler
// save guard the design notes call for, expressed once here instead of
// wrapping each public method (spec: 9).
func dispatch(ctx context.Context, ctrl *Controller, agentID string, fn func(*Session)) []string {
    s := newSession(ctx, ctrl, agentID)
    defer s.saveState()
    defer func() {
        if r := recover(); r != nil {
            s.log().WithField("panic", r).Error("event handler panicked, state saved and panic swallowed")
        }
    }()
    fn(s)
    return s.numbers
}

// OnAgentLogin transitions the agent to idle (or logs if already logged
// in) and initiates dial_ratio calls. Returns the numbers dialed.
func OnAgentLogin(ctx context.Context, ctrl *Controller, agentID string) []string {
    return dispatch(ctx, ctrl, agentID, (*Session).onAgentLogin)
}

// OnAgentLogout transitions the agent to offline, forcing the
// transition if the agent was busy.
func OnAgentLogout(ctx context.Context, ctrl *Controller, agentID string) []string {
    return dispatch(ctx, ctrl, agentID, (*Session).onAgentLogout)
}

// OnCallStarted records the call as in-flight and transitions the agent
// to busy.
func OnCallStarted(ctx context.Context, ctrl *Controller, agentID, number string) []string {
    return dispatch(ctx, ctrl, agentID, func(s *Session) { s.onCallStarted(number) })
}

// OnCallFailed initiates exactly one replacement call if the agent is
// idle, or does nothing if the agent is busy.
func OnCallFailed(ctx context.Context, ctrl *Controller, agentID, number string) []string {
    return dispatch(ctx, ctrl, agentID, func(s *Session) { s.onCallFailed(number) })
}

// OnCallEnded closes out the in-flight call, transitions the agent back
// to idle, and initiates dial_ratio replacement calls.
func OnCallEnded(ctx context.Context, ctrl *Controller, agentID, number string) []string {
    return dispatch(ctx, ctrl, agentID, func(s *Session) { s.onCallEnded(number) })
}
