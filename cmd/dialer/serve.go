package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"

    "github.com/spf13/cobra"

    "github.com/hamzaKhattat/powerdialer/internal/config"
    "github.com/hamzaKhattat/powerdialer/pkg/logger"
)

func newServeCommand() *cobra.Command {
    var verbose bool

    cmd := &cobra.Command{
        Use:   "serve",
        Short: "Run the power dialer as a long-lived service",
        RunE: func(cmd *cobra.Command, args []string) error {
            return runServe(verbose)
        },
    }
    cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")
    return cmd
}

func runServe(verbose bool) error {
    cfg, err := config.Load(configFile)
    if err != nil {
        return err
    }

    logLevel := cfg.Monitoring.Logging.Level
    if verbose {
        logLevel = "debug"
    }
    if err := logger.Init(logger.Config{
        Level:  logLevel,
        Format: cfg.Monitoring.Logging.Format,
        File: logger.FileConfig{
            Enabled:    cfg.Monitoring.Logging.File.Enabled,
            Path:       cfg.Monitoring.Logging.File.Path,
            MaxSize:    cfg.Monitoring.Logging.File.MaxSize,
            MaxBackups: cfg.Monitoring.Logging.File.MaxBackups,
            MaxAge:     cfg.Monitoring.Logging.File.MaxAge,
            Compress:   cfg.Monitoring.Logging.File.Compress,
        },
    }); err != nil {
        return err
    }

    svc, err := build(cfg)
    if err != nil {
        return err
    }

    if svc.metrics != nil {
        go func() {
            if err := svc.metrics.ServeHTTP(cfg.Monitoring.Metrics.Port); err != nil {
                logger.WithError(err).Error("metrics server exited")
            }
        }()
    }

    if svc.health != nil {
        go func() {
            if err := svc.health.Start(); err != nil {
                logger.WithError(err).Error("health server exited")
            }
        }()
    }

    logger.Info("power dialer serving; waiting for events")

    sigChan := make(chan os.Signal, 1)
    signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
    <-sigChan

    logger.Info("shutting down power dialer")
    ctx := context.Background()
    svc.ctrl.Numbers.Shutdown(ctx)
    svc.ctrl.Metrics.Shutdown(ctx)
    if svc.health != nil {
        svc.health.Stop()
    }
    if svc.cache != nil {
        svc.cache.Close()
    }

    logger.Info("shutdown complete")
    return nil
}
