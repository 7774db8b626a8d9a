package config

import (
    "fmt"
    "strings"
    "time"

    "github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
    App        AppConfig        `mapstructure:"app"`
    Dialer     DialerConfig     `mapstructure:"dialer"`
    Numbers    NumberConfig     `mapstructure:"numbers"`
    AgentStore AgentStoreConfig `mapstructure:"agent_store"`
    Database   DatabaseConfig   `mapstructure:"database"`
    Redis      RedisConfig      `mapstructure:"redis"`
    Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
    Name        string `mapstructure:"name"`
    Environment string `mapstructure:"environment"`
    Debug       bool   `mapstructure:"debug"`
}

// DialerConfig holds power-dialer policy configuration.
type DialerConfig struct {
    DialRatio int `mapstructure:"dial_ratio"`
}

// NumberConfig holds number-manager / recency-cache configuration.
type NumberConfig struct {
    // Backend selects the recency cache implementation: "memory" or "redis".
    Backend          string        `mapstructure:"backend"`
    ExcludeWindow    time.Duration `mapstructure:"exclude_window"`
    ExpirySweepEvery time.Duration `mapstructure:"expiry_sweep_period"`
    QueueTimeout     time.Duration `mapstructure:"queue_timeout"`
}

// AgentStoreConfig holds agent-status-store configuration.
type AgentStoreConfig struct {
    // Backend selects the agent status store implementation: "memory" or "redis".
    Backend string `mapstructure:"backend"`
}

// DatabaseConfig holds the persistence (CALL_RECORDS) database configuration.
type DatabaseConfig struct {
    // Backend selects the persistence implementation: "memory" or "mysql".
    Backend         string        `mapstructure:"backend"`
    Driver          string        `mapstructure:"driver"`
    Host            string        `mapstructure:"host"`
    Port            int           `mapstructure:"port"`
    Username        string        `mapstructure:"username"`
    Password        string        `mapstructure:"password"`
    Database        string        `mapstructure:"database"`
    MaxOpenConns    int           `mapstructure:"max_open_conns"`
    MaxIdleConns    int           `mapstructure:"max_idle_conns"`
    ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
    RetryAttempts   int           `mapstructure:"retry_attempts"`
    RetryDelay      time.Duration `mapstructure:"retry_delay"`
    Charset         string        `mapstructure:"charset"`
}

// RedisConfig holds Redis configuration, shared by the agent store and
// number manager when either is configured to use the "redis" backend.
type RedisConfig struct {
    Host         string        `mapstructure:"host"`
    Port         int           `mapstructure:"port"`
    Password     string        `mapstructure:"password"`
    DB           int           `mapstructure:"db"`
    PoolSize     int           `mapstructure:"pool_size"`
    MinIdleConns int           `mapstructure:"min_idle_conns"`
    MaxRetries   int           `mapstructure:"max_retries"`
    DialTimeout  time.Duration `mapstructure:"dial_timeout"`
    ReadTimeout  time.Duration `mapstructure:"read_timeout"`
    WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MonitoringConfig holds monitoring and observability configuration.
type MonitoringConfig struct {
    Metrics MetricsConfig `mapstructure:"metrics"`
    Health  HealthConfig  `mapstructure:"health"`
    Logging LoggingConfig `mapstructure:"logging"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
    Enabled bool   `mapstructure:"enabled"`
    Port    int    `mapstructure:"port"`
    Path    string `mapstructure:"path"`
}

// HealthConfig holds health check configuration.
type HealthConfig struct {
    Enabled bool `mapstructure:"enabled"`
    Port    int  `mapstructure:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
    Level  string        `mapstructure:"level"`
    Format string        `mapstructure:"format"`
    File   FileLogConfig `mapstructure:"file"`
}

// FileLogConfig holds file-based logging (lumberjack) configuration.
type FileLogConfig struct {
    Enabled    bool   `mapstructure:"enabled"`
    Path       string `mapstructure:"path"`
    MaxSize    int    `mapstructure:"max_size"`
    MaxBackups int    `mapstructure:"max_backups"`
    MaxAge     int    `mapstructure:"max_age"`
    Compress   bool   `mapstructure:"compress"`
}

// Load loads configuration from file and environment.
func Load(configFile string) (*Config, error) {
    if configFile != "" {
        viper.SetConfigFile(configFile)
    } else {
        viper.SetConfigName("config")
        viper.SetConfigType("yaml")
        viper.AddConfigPath("./configs")
        viper.AddConfigPath("/etc/power-dialer")
        viper.AddConfigPath(".")
    }

    viper.SetEnvPrefix("POWERDIALER")
    viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
    viper.AutomaticEnv()

    setDefaults()

    if err := viper.ReadInConfig(); err != nil {
        if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
            return nil, fmt.Errorf("failed to read config file: %w", err)
        }
    }

    var cfg Config
    if err := viper.Unmarshal(&cfg); err != nil {
        return nil, fmt.Errorf("failed to unmarshal config: %w", err)
    }

    if err := cfg.Validate(); err != nil {
        return nil, fmt.Errorf("invalid configuration: %w", err)
    }

    return &cfg, nil
}

func setDefaults() {
    viper.SetDefault("app.name", "power-dialer")
    viper.SetDefault("app.environment", "development")
    viper.SetDefault("app.debug", false)

    viper.SetDefault("dialer.dial_ratio", 2)

    viper.SetDefault("numbers.backend", "memory")
    viper.SetDefault("numbers.exclude_window", "60s")
    viper.SetDefault("numbers.expiry_sweep_period", "60s")
    viper.SetDefault("numbers.queue_timeout", "1s")

    viper.SetDefault("agent_store.backend", "memory")

    viper.SetDefault("database.backend", "memory")
    viper.SetDefault("database.driver", "mysql")
    viper.SetDefault("database.host", "localhost")
    viper.SetDefault("database.port", 3306)
    viper.SetDefault("database.username", "dialer")
    viper.SetDefault("database.password", "dialer")
    viper.SetDefault("database.database", "power_dialer")
    viper.SetDefault("database.max_open_conns", 25)
    viper.SetDefault("database.max_idle_conns", 5)
    viper.SetDefault("database.conn_max_lifetime", "5m")
    viper.SetDefault("database.retry_attempts", 3)
    viper.SetDefault("database.retry_delay", "1s")
    viper.SetDefault("database.charset", "utf8mb4")

    viper.SetDefault("redis.host", "localhost")
    viper.SetDefault("redis.port", 6379)
    viper.SetDefault("redis.db", 0)
    viper.SetDefault("redis.pool_size", 10)
    viper.SetDefault("redis.min_idle_conns", 5)
    viper.SetDefault("redis.max_retries", 3)
    viper.SetDefault("redis.dial_timeout", "5s")
    viper.SetDefault("redis.read_timeout", "3s")
    viper.SetDefault("redis.write_timeout", "3s")

    viper.SetDefault("monitoring.metrics.enabled", true)
    viper.SetDefault("monitoring.metrics.port", 9090)
    viper.SetDefault("monitoring.metrics.path", "/metrics")
    viper.SetDefault("monitoring.health.enabled", true)
    viper.SetDefault("monitoring.health.port", 8080)
    viper.SetDefault("monitoring.logging.level", "info")
    viper.SetDefault("monitoring.logging.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
    if c.Dialer.DialRatio <= 0 {
        return fmt.Errorf("dialer.dial_ratio must be positive")
    }
    if c.Numbers.ExcludeWindow <= 0 {
        return fmt.Errorf("numbers.exclude_window must be positive")
    }
    if c.Numbers.Backend != "memory" && c.Numbers.Backend != "redis" {
        return fmt.Errorf("numbers.backend must be \"memory\" or \"redis\"")
    }
    if c.AgentStore.Backend != "memory" && c.AgentStore.Backend != "redis" {
        return fmt.Errorf("agent_store.backend must be \"memory\" or \"redis\"")
    }
    if c.Database.Backend != "memory" && c.Database.Backend != "mysql" {
        return fmt.Errorf("database.backend must be \"memory\" or \"mysql\"")
    }
    if c.Database.Backend == "mysql" {
        if c.Database.Host == "" {
            return fmt.Errorf("database host is required")
        }
        if c.Database.Port <= 0 || c.Database.Port > 65535 {
            return fmt.Errorf("invalid database port: %d", c.Database.Port)
        }
    }
    if needsRedis(c) {
        if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
            return fmt.Errorf("invalid redis port: %d", c.Redis.Port)
        }
    }
    if c.Monitoring.Metrics.Enabled {
        if c.Monitoring.Metrics.Port <= 0 || c.Monitoring.Metrics.Port > 65535 {
            return fmt.Errorf("invalid metrics port: %d", c.Monitoring.Metrics.Port)
        }
    }
    if c.Monitoring.Health.Enabled {
        if c.Monitoring.Health.Port <= 0 || c.Monitoring.Health.Port > 65535 {
            return fmt.Errorf("invalid health port: %d", c.Monitoring.Health.Port)
        }
    }
    return nil
}

func needsRedis(c *Config) bool {
    return c.Numbers.Backend == "redis" || c.AgentStore.Backend == "redis"
}

// GetDSN returns the MySQL connection string.
func (c *DatabaseConfig) GetDSN() string {
    charset := c.Charset
    if charset == "" {
        charset = "utf8mb4"
    }
    return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true&loc=Local",
        c.Username, c.Password, c.Host, c.Port, c.Database, charset)
}

// GetRedisAddr returns the Redis address.
func (c *RedisConfig) GetRedisAddr() string {
    return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction returns true if running in the production environment.
func (c *AppConfig) IsProduction() bool {
    return strings.ToLower(c.Environment) == "production"
}
