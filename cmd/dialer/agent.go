package main

import (
    "context"
    "fmt"

    "github.com/fatih/color"
    "github.com/spf13/cobra"

    "github.com/hamzaKhattat/powerdialer/internal/config"
    "github.com/hamzaKhattat/powerdialer/internal/dialer"
    "github.com/hamzaKhattat/powerdialer/pkg/logger"
)

// newAgentCommand builds the "agent" command group: one subcommand per
// public dialer event, for driving or inspecting a single agent by hand
// against the same wiring "serve" uses, without standing up a whole
// simulation.
func newAgentCommand() *cobra.Command {
    var agentID string

    cmd := &cobra.Command{
        Use:   "agent",
        Short: "Drive a single agent's lifecycle events by hand",
    }
    cmd.PersistentFlags().StringVar(&agentID, "agent-id", "", "agent id to act on (required)")
    cmd.MarkPersistentFlagRequired("agent-id")

    cmd.AddCommand(
        newAgentLoginCommand(&agentID),
        newAgentLogoutCommand(&agentID),
        newAgentCallStartedCommand(&agentID),
        newAgentCallFailedCommand(&agentID),
        newAgentCallEndedCommand(&agentID),
    )
    return cmd
}

func newAgentLoginCommand(agentID *string) *cobra.Command {
    return &cobra.Command{
        Use:   "login",
        Short: "Fire on_agent_login for this agent",
        RunE: func(cmd *cobra.Command, args []string) error {
            return runAgentEvent(*agentID, func(ctx context.Context, ctrl *dialer.Controller) []string {
                return dialer.OnAgentLogin(ctx, ctrl, *agentID)
            })
        },
    }
}

func newAgentLogoutCommand(agentID *string) *cobra.Command {
    return &cobra.Command{
        Use:   "logout",
        Short: "Fire on_agent_logout for this agent",
        RunE: func(cmd *cobra.Command, args []string) error {
            return runAgentEvent(*agentID, func(ctx context.Context, ctrl *dialer.Controller) []string {
                return dialer.OnAgentLogout(ctx, ctrl, *agentID)
            })
        },
    }
}

func newAgentCallStartedCommand(agentID *string) *cobra.Command {
    var number string
    cmd := &cobra.Command{
        Use:   "call-started",
        Short: "Fire on_call_started for this agent",
        RunE: func(cmd *cobra.Command, args []string) error {
            return runAgentEvent(*agentID, func(ctx context.Context, ctrl *dialer.Controller) []string {
                return dialer.OnCallStarted(ctx, ctrl, *agentID, number)
            })
        },
    }
    cmd.Flags().StringVar(&number, "number", "", "the number that connected (required)")
    cmd.MarkFlagRequired("number")
    return cmd
}

func newAgentCallFailedCommand(agentID *string) *cobra.Command {
    var number string
    cmd := &cobra.Command{
        Use:   "call-failed",
        Short: "Fire on_call_failed for this agent",
        RunE: func(cmd *cobra.Command, args []string) error {
            return runAgentEvent(*agentID, func(ctx context.Context, ctrl *dialer.Controller) []string {
                return dialer.OnCallFailed(ctx, ctrl, *agentID, number)
            })
        },
    }
    cmd.Flags().StringVar(&number, "number", "", "the number that failed (required)")
    cmd.MarkFlagRequired("number")
    return cmd
}

func newAgentCallEndedCommand(agentID *string) *cobra.Command {
    var number string
    cmd := &cobra.Command{
        Use:   "call-ended",
        Short: "Fire on_call_ended for this agent",
        RunE: func(cmd *cobra.Command, args []string) error {
            return runAgentEvent(*agentID, func(ctx context.Context, ctrl *dialer.Controller) []string {
                return dialer.OnCallEnded(ctx, ctrl, *agentID, number)
            })
        },
    }
    cmd.Flags().StringVar(&number, "number", "", "the number that ended (required)")
    cmd.MarkFlagRequired("number")
    return cmd
}

// runAgentEvent wires a fresh set of services, fires fn against the
// controller, prints the numbers dialed as a side effect, and shuts
// down cleanly — each invocation is a one-shot CLI process, not a
// long-lived server.
func runAgentEvent(agentID string, fn func(ctx context.Context, ctrl *dialer.Controller) []string) error {
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

    ctx := context.Background()
    dialed := fn(ctx, svc.ctrl)

    svc.ctrl.Numbers.Shutdown(ctx)
    svc.ctrl.Metrics.Shutdown(ctx)
    if svc.cache != nil {
        svc.cache.Close()
    }

    if len(dialed) == 0 {
        color.Yellow("agent %s: no numbers dialed", agentID)
        return nil
    }
    fmt.Printf("agent %s dialed:\n", agentID)
    for _, number := range dialed {
        fmt.Printf("  %s\n", color.GreenString(number))
    }
    return nil
}
