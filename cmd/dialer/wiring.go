package main

import (
    "fmt"

    "github.com/hamzaKhattat/powerdialer/internal/agentstore"
    "github.com/hamzaKhattat/powerdialer/internal/callmetrics"
    "github.com/hamzaKhattat/powerdialer/internal/config"
    "github.com/hamzaKhattat/powerdialer/internal/db"
    "github.com/hamzaKhattat/powerdialer/internal/dialer"
    "github.com/hamzaKhattat/powerdialer/internal/health"
    "github.com/hamzaKhattat/powerdialer/internal/leads"
    "github.com/hamzaKhattat/powerdialer/internal/metrics"
    "github.com/hamzaKhattat/powerdialer/internal/numbers"
    "github.com/hamzaKhattat/powerdialer/internal/persistence"
)

// services bundles every explicitly-constructed collaborator the
// application entry point owns, in place of the ambient singletons the
// source treats these as.
type services struct {
    cfg     *config.Config
    cache   *db.Cache
    sqlConn *db.DB
    ctrl    *dialer.Controller
    health  *health.HealthService
    metrics *metrics.PrometheusMetrics
}

// build wires every component named in the configuration into a running
// Controller: agent status store, number manager, call metrics recorder,
// and persistence, each behind the backend the config selects.
func build(cfg *config.Config) (*services, error) {
    svc := &services{cfg: cfg}

    var statsSink metrics.Sink = metrics.NoOp{}
    if cfg.Monitoring.Metrics.Enabled {
        svc.metrics = metrics.NewPrometheusMetrics()
        statsSink = svc.metrics
    }

    var cache *db.Cache
    if cfg.Numbers.Backend == "redis" || cfg.AgentStore.Backend == "redis" {
        c, err := db.OpenCache(db.CacheConfig{
            Host:         cfg.Redis.Host,
            Port:         cfg.Redis.Port,
            Password:     cfg.Redis.Password,
            DB:           cfg.Redis.DB,
            PoolSize:     cfg.Redis.PoolSize,
            MinIdleConns: cfg.Redis.MinIdleConns,
            MaxRetries:   cfg.Redis.MaxRetries,
            DialTimeout:  cfg.Redis.DialTimeout,
            ReadTimeout:  cfg.Redis.ReadTimeout,
            WriteTimeout: cfg.Redis.WriteTimeout,
        }, "powerdialer")
        if err != nil {
            return nil, fmt.Errorf("failed to connect to redis: %w", err)
        }
        cache = c
        svc.cache = c
    }

    var store agentstore.Store
    switch cfg.AgentStore.Backend {
    case "redis":
        store = agentstore.NewRedisStore(cache)
    default:
        store = agentstore.NewMemoryStore()
    }

    var recency numbers.Recency
    switch cfg.Numbers.Backend {
    case "redis":
        recency = numbers.NewRedisRecency(cache)
    default:
        recency = numbers.NewMemoryRecency()
    }
    numberMgr := numbers.New(recency, leads.Generate, numbers.Config{
        ExcludeWindow:    cfg.Numbers.ExcludeWindow,
        ExpirySweepEvery: cfg.Numbers.ExpirySweepEvery,
        QueueTimeout:     cfg.Numbers.QueueTimeout,
    }, statsSink)

    var recordStore callmetrics.Store
    switch cfg.Database.Backend {
    case "mysql":
        conn, err := db.Open(db.Config{
            Driver:          cfg.Database.Driver,
            Host:            cfg.Database.Host,
            Port:            cfg.Database.Port,
            Username:        cfg.Database.Username,
            Password:        cfg.Database.Password,
            Database:        cfg.Database.Database,
            MaxOpenConns:    cfg.Database.MaxOpenConns,
            MaxIdleConns:    cfg.Database.MaxIdleConns,
            ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
            RetryAttempts:   cfg.Database.RetryAttempts,
            RetryDelay:      cfg.Database.RetryDelay,
        })
        if err != nil {
            return nil, fmt.Errorf("failed to connect to persistence database: %w", err)
        }
        svc.sqlConn = conn
        mysqlStore, err := persistence.NewMySQLStore(conn)
        if err != nil {
            return nil, fmt.Errorf("failed to initialize persistence schema: %w", err)
        }
        recordStore = mysqlStore
    default:
        recordStore = persistence.NewMemoryStore()
    }

    metricsRecorder := callmetrics.New(recordStore, statsSink)

    svc.ctrl = &dialer.Controller{
        Store:   store,
        Numbers: numberMgr,
        Metrics: metricsRecorder,
        Stats:   statsSink,
        DialFn:  dialer.LogDial,
        Config:  dialer.Config{DialRatio: cfg.Dialer.DialRatio},
    }

    if cfg.Monitoring.Health.Enabled {
        svc.health = health.NewHealthService(cfg.Monitoring.Health.Port)
        svc.health.RegisterReadinessCheck("number_manager", health.NumberManagerChecker(numberMgr))
        if svc.sqlConn != nil {
            svc.health.RegisterReadinessCheck("persistence", health.DatabaseChecker(svc.sqlConn))
        }
    }

    return svc, nil
}
