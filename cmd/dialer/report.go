package main

import (
    "context"
    "fmt"
    "os"
    "strconv"

    "github.com/fatih/color"
    "github.com/olekukonko/tablewriter"
    "github.com/spf13/cobra"

    "github.com/hamzaKhattat/powerdialer/internal/config"
    "github.com/hamzaKhattat/powerdialer/internal/persistence"
)

func newReportCommand() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "report",
        Short: "Print per-agent call counts and average call duration",
        RunE: func(cmd *cobra.Command, args []string) error {
            return runReport()
        },
    }
    return cmd
}

func runReport() error {
    cfg, err := config.Load(configFile)
    if err != nil {
        return err
    }

    svc, err := build(cfg)
    if err != nil {
        return err
    }

    var summaries []persistence.AgentSummary
    switch cfg.Database.Backend {
    case "mysql":
        store, err := persistence.NewMySQLStore(svc.sqlConn)
        if err != nil {
            return err
        }
        summaries, err = store.Summarize(context.Background())
        if err != nil {
            return err
        }
    default:
        color.Yellow("database.backend is \"memory\": report reflects only records persisted by this process.")
        summaries = []persistence.AgentSummary{}
    }

    table := tablewriter.NewWriter(os.Stdout)
    table.SetHeader([]string{"Agent", "Calls", "Avg Call Time (s)"})
    for _, s := range summaries {
        table.Append([]string{
            s.AgentID,
            strconv.Itoa(s.TotalCalls),
            fmt.Sprintf("%.2f", s.AverageDuration),
        })
    }
    table.Render()
    return nil
}
