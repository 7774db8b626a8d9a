package main

import (
    "fmt"
    "os"

    "github.com/spf13/cobra"
)

var configFile string

func main() {
    rootCmd := &cobra.Command{
        Use:   "dialer",
        Short: "Power Dialer",
        Long:  "A predictive power dialer that keeps agents maximally utilized by over-dialing relative to availability.",
    }

    rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file path")

    rootCmd.AddCommand(
        newServeCommand(),
        newSimCommand(),
        newReportCommand(),
        newAgentCommand(),
    )

    if err := rootCmd.Execute(); err != nil {
        fmt.Fprintf(os.Stderr, "Error: %v\n", err)
        os.Exit(1)
    }
}
