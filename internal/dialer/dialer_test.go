package dialer

import (
    "context"
    "fmt"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/hamzaKhattat/powerdialer/internal/agentstore"
    "github.com/hamzaKhattat/powerdialer/internal/callmetrics"
    "github.com/hamzaKhattat/powerdialer/internal/metrics"
    "github.com/hamzaKhattat/powerdialer/internal/numbers"
    "github.com/hamzaKhattat/powerdialer/internal/statemachine"
)

type stubStore struct {
    appended []callmetrics.CallRecord
}

func (s *stubStore) Append(_ context.Context, record callmetrics.CallRecord) error {
    s.appended = append(s.appended, record)
    return nil
}

func newTestController(t *testing.T, dialRatio int) (*Controller, func()) {
    t.Helper()
    i := 0
    source := func() string {
        i++
        return fmt.Sprintf("(212) 555-%04d", i)
    }

    numberMgr := numbers.New(numbers.NewMemoryRecency(), source, numbers.Config{
        ExcludeWindow:    0,
        ExpirySweepEvery: 0,
        QueueTimeout:     0,
    }, metrics.NoOp{})
    metricsRec := callmetrics.New(&stubStore{}, metrics.NoOp{})

    ctrl := &Controller{
        Store:   agentstore.NewMemoryStore(),
        Numbers: numberMgr,
        Metrics: metricsRec,
        Stats:   metrics.NoOp{},
        DialFn:  func(context.Context, string, string) {},
        Config:  Config{DialRatio: dialRatio},
    }

    cleanup := func() {
        ctx := context.Background()
        numberMgr.Shutdown(ctx)
        metricsRec.Shutdown(ctx)
    }
    return ctrl, cleanup
}

func TestFreshLogin(t *testing.T) {
    ctrl, cleanup := newTestController(t, 2)
    defer cleanup()
    ctx := context.Background()

    dialed := OnAgentLogin(ctx, ctrl, "test_id")

    assert.Equal(t, statemachine.Idle, ctrl.Store.Get(ctx, "test_id"), "expected state idle after login")
    assert.Len(t, dialed, 2, "expected 2 numbers dialed on login")
}

func TestLogoutFromIdle(t *testing.T) {
    ctrl, cleanup := newTestController(t, 2)
    defer cleanup()
    ctx := context.Background()

    OnAgentLogin(ctx, ctrl, "test_id")
    OnAgentLogout(ctx, ctrl, "test_id")

    assert.Equal(t, statemachine.Offline, ctrl.Store.Get(ctx, "test_id"), "expected state offline after logout")
}

func TestLogoutWhileBusyForcesOffline(t *testing.T) {
    ctrl, cleanup := newTestController(t, 2)
    defer cleanup()
    ctx := context.Background()

    OnAgentLogin(ctx, ctrl, "test_id")
    OnCallStarted(ctx, ctrl, "test_id", "(212) 555-0100")
    OnAgentLogout(ctx, ctrl, "test_id")

    assert.Equal(t, statemachine.Offline, ctrl.Store.Get(ctx, "test_id"), "expected state offline after logout while busy")
}

func TestCallStartedTransitionsToBusy(t *testing.T) {
    ctrl, cleanup := newTestController(t, 2)
    defer cleanup()
    ctx := context.Background()

    OnAgentLogin(ctx, ctrl, "test_id")
    OnCallStarted(ctx, ctrl, "test_id", "(212) 555-0100")

    assert.Equal(t, statemachine.Busy, ctrl.Store.Get(ctx, "test_id"), "expected state busy after call started")

    call, ok := ctrl.Metrics.InFlight("test_id")
    require.True(t, ok, "expected in-flight call to be recorded")
    assert.Equal(t, "(212) 555-0100", call.Number)
}

func TestCallFailedWhileBusyDoesNothing(t *testing.T) {
    ctrl, cleanup := newTestController(t, 2)
    defer cleanup()
    ctx := context.Background()

    OnAgentLogin(ctx, ctrl, "test_id")
    OnCallStarted(ctx, ctrl, "test_id", "(212) 555-0100")

    dialed := OnCallFailed(ctx, ctrl, "test_id", "(212) 555-0101")

    assert.Empty(t, dialed, "expected 0 numbers dialed for call-failed while busy")
    assert.Equal(t, statemachine.Busy, ctrl.Store.Get(ctx, "test_id"), "expected state to remain busy")
}

func TestCallFailedWhileIdleDialsOneReplacement(t *testing.T) {
    ctrl, cleanup := newTestController(t, 2)
    defer cleanup()
    ctx := context.Background()

    OnAgentLogin(ctx, ctrl, "test_id")
    dialed := OnCallFailed(ctx, ctrl, "test_id", "(212) 555-0101")

    assert.Len(t, dialed, 1, "expected exactly 1 replacement number")
}

func TestCallEndedFromBusy(t *testing.T) {
    ctrl, cleanup := newTestController(t, 2)
    defer cleanup()
    ctx := context.Background()

    OnAgentLogin(ctx, ctrl, "test_id")
    OnCallStarted(ctx, ctrl, "test_id", "(212) 555-0100")
    dialed := OnCallEnded(ctx, ctrl, "test_id", "(212) 555-0100")

    assert.Equal(t, statemachine.Idle, ctrl.Store.Get(ctx, "test_id"), "expected state idle after call ended")
    assert.Len(t, dialed, 2, "expected 2 replacement numbers dialed")

    _, ok := ctrl.Metrics.InFlight("test_id")
    assert.False(t, ok, "expected no in-flight call after call ended")
}

func TestCallEndedWhileNotBusyForcesIdle(t *testing.T) {
    ctrl, cleanup := newTestController(t, 2)
    defer cleanup()
    ctx := context.Background()

    OnAgentLogin(ctx, ctrl, "test_id")
    // No call_started: the agent is idle, not busy, when call_ended arrives.
    OnCallEnded(ctx, ctrl, "test_id", "(212) 555-0100")

    assert.Equal(t, statemachine.Idle, ctrl.Store.Get(ctx, "test_id"), "expected state idle")
}
