package main

import (
    "context"
    "fmt"
    "math/rand"
    "sync"
    "time"

    "github.com/spf13/cobra"

    "github.com/hamzaKhattat/powerdialer/internal/config"
    "github.com/hamzaKhattat/powerdialer/internal/dialer"
    "github.com/hamzaKhattat/powerdialer/pkg/logger"
)

func newSimCommand() *cobra.Command {
    var (
        numAgents  int
        callFail   int
        callLength int
        timeToRun  int
    )

    cmd := &cobra.Command{
        Use:   "sim",
        Short: "Run a synthetic-agent simulation against the power dialer",
        RunE: func(cmd *cobra.Command, args []string) error {
            return runSim(numAgents, callFail, callLength, timeToRun)
        },
    }
    cmd.Flags().IntVarP(&numAgents, "num-agents", "n", 50, "number of agents to run")
    cmd.Flags().IntVarP(&callFail, "call-fail", "f", 50, "chance of call fail, 0-100")
    cmd.Flags().IntVarP(&callLength, "call-length", "l", 10, "average call length in seconds")
    cmd.Flags().IntVarP(&timeToRun, "time-to-run", "t", 60, "time to run the simulation, in seconds")
    return cmd
}

// simAgent drives one synthetic agent's login/dial/fail/end cycle
// against a shared Controller, mirroring a real agent's call flow
// through the public event surface only.
type simAgent struct {
    agentID    string
    ctrl       *dialer.Controller
    failRate   int
    callLength int
    rng        *rand.Rand
}

func (a *simAgent) run(ctx context.Context, done <-chan struct{}) {
    log := logger.WithField("agent_id", a.agentID)
    log.Info("logging in")

    numbers := dialer.OnAgentLogin(ctx, a.ctrl, a.agentID)
    good, failed := a.classify(numbers)

    for {
        select {
        case <-done:
            dialer.OnAgentLogout(ctx, a.ctrl, a.agentID)
            log.Info("logged out")
            return
        default:
        }

        newCalls := a.failAll(ctx, failed)

        if len(good) > 0 {
            goodNumber := good[0]
            rest := good[1:]

            dialer.OnCallStarted(ctx, a.ctrl, a.agentID, goodNumber)
            newCalls = append(newCalls, a.failAll(ctx, rest)...)

            ttl := time.Duration(float64(a.callLength)*(0.9+a.rng.Float64()*0.35)) * time.Second
            select {
            case <-time.After(ttl):
            case <-done:
                dialer.OnAgentLogout(ctx, a.ctrl, a.agentID)
                return
            }

            newCalls = append(newCalls, dialer.OnCallEnded(ctx, a.ctrl, a.agentID, goodNumber)...)
        }

        good, failed = a.classify(newCalls)
    }
}

func (a *simAgent) failAll(ctx context.Context, numbers []string) []string {
    var out []string
    for _, n := range numbers {
        out = append(out, dialer.OnCallFailed(ctx, a.ctrl, a.agentID, n)...)
    }
    return out
}

func (a *simAgent) classify(numbers []string) (good, failed []string) {
    for _, n := range numbers {
        if a.rng.Intn(100)+1 <= a.failRate {
            failed = append(failed, n)
        } else {
            good = append(good, n)
        }
    }
    return good, failed
}

func runSim(numAgents, callFail, callLength, timeToRun int) error {
    cfg, err := config.Load(configFile)
    if err != nil {
        return err
    }
    if err := logger.Init(logger.Config{Level: cfg.Monitoring.Logging.Level, Format: cfg.Monitoring.Logging.Format}); err != nil {
        return err
    }

    svc, err := build(cfg)
    if err != nil {
        return err
    }

    fmt.Printf("Starting %d agents for %d seconds\n", numAgents, timeToRun)

    ctx := context.Background()
    done := make(chan struct{})
    var wg sync.WaitGroup

    for i := 1; i <= numAgents; i++ {
        agent := &simAgent{
            agentID:    fmt.Sprintf("agent_%04d", i),
            ctrl:       svc.ctrl,
            failRate:   callFail,
            callLength: callLength,
            rng:        rand.New(rand.NewSource(int64(i))),
        }
        wg.Add(1)
        go func() {
            defer wg.Done()
            agent.run(ctx, done)
        }()
    }

    time.Sleep(time.Duration(timeToRun) * time.Second)
    close(done)
    wg.Wait()

    svc.ctrl.Numbers.Shutdown(ctx)
    svc.ctrl.Metrics.Shutdown(ctx)

    fmt.Println("Simulation complete.")
    return nil
}
