package statemachine

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestSetStateOnlyFromUnset(t *testing.T) {
    m := New(AgentTransitions, Unset)
    require.True(t, m.SetState(Idle), "SetState should succeed from Unset")
    require.Equal(t, Idle, m.State())

    assert.False(t, m.SetState(Busy), "SetState should fail once state is already set")
    assert.Equal(t, Idle, m.State(), "state should remain unchanged after a rejected SetState")
}

func TestLegalTransitionsSucceed(t *testing.T) {
    for _, tr := range AgentTransitions {
        tr := tr
        t.Run(tr.From.String()+"->"+tr.To.String(), func(t *testing.T) {
            m := New(AgentTransitions, Unset)
            m.SetState(tr.From)
            require.True(t, m.Transition(tr.To), "expected %s->%s to succeed", tr.From, tr.To)
            assert.Equal(t, tr.To, m.State())
        })
    }
}

func TestIllegalTransitionsFailWithoutChangingState(t *testing.T) {
    illegal := []Transition{
        {From: Busy, To: Offline},
        {From: Busy, To: Busy},
        {From: Offline, To: Busy},
        {From: Offline, To: Offline},
    }
    for _, tr := range illegal {
        tr := tr
        t.Run(tr.From.String()+"->"+tr.To.String(), func(t *testing.T) {
            m := New(AgentTransitions, Unset)
            m.SetState(tr.From)
            assert.False(t, m.Transition(tr.To), "expected %s->%s to fail", tr.From, tr.To)
            assert.Equal(t, tr.From, m.State(), "state should remain unchanged after a rejected transition")
        })
    }
}

func TestForceSetBypassesTable(t *testing.T) {
    m := New(AgentTransitions, Unset)
    m.SetState(Busy)
    m.ForceSet(Offline)
    assert.Equal(t, Offline, m.State())
}

func TestAgentStateString(t *testing.T) {
    cases := map[AgentState]string{
        Unset:   "unset",
        Offline: "offline",
        Idle:    "idle",
        Busy:    "busy",
    }
    for state, want := range cases {
        assert.Equal(t, want, state.String())
    }
}
