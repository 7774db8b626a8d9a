package logger

import (
    "context"
    "fmt"
    "os"
    "time"

    "github.com/sirupsen/logrus"
    "gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
    *logrus.Logger
    fields logrus.Fields
}

var defaultLogger *Logger

type Config struct {
    Level  string
    Format string
    Output string
    File   FileConfig
    Fields map[string]interface{}
}

type FileConfig struct {
    Enabled    bool
    Path       string
    MaxSize    int
    MaxBackups int
    MaxAge     int
    Compress   bool
}

func init() {
    // Usable before Init is called explicitly, e.g. from tests and
    // short-lived CLI commands that never touch the config loader.
    _ = Init(Config{Level: "info", Format: "text"})
}

func Init(cfg Config) error {
    log := logrus.New()

    level, err := logrus.ParseLevel(cfg.Level)
    if err != nil {
        return fmt.Errorf("invalid log level: %w", err)
    }
    log.SetLevel(level)

    switch cfg.Format {
    case "json":
        log.SetFormatter(&logrus.JSONFormatter{
            TimestampFormat: time.RFC3339Nano,
            FieldMap: logrus.FieldMap{
                logrus.FieldKeyTime:  "@timestamp",
                logrus.FieldKeyLevel: "level",
                logrus.FieldKeyMsg:   "message",
            },
        })
    default:
        log.SetFormatter(&logrus.TextFormatter{
            FullTimestamp:   true,
            TimestampFormat: "2006-01-02 15:04:05.000",
        })
    }

    if cfg.File.Enabled {
        log.SetOutput(&lumberjack.Logger{
            Filename:   cfg.File.Path,
            MaxSize:    cfg.File.MaxSize,
            MaxBackups: cfg.File.MaxBackups,
            MaxAge:     cfg.File.MaxAge,
            Compress:   cfg.File.Compress,
        })
    } else {
        log.SetOutput(os.Stdout)
    }

    fields := logrus.Fields{
        "app": "power-dialer",
        "pid": os.Getpid(),
    }
    for k, v := range cfg.Fields {
        fields[k] = v
    }

    defaultLogger = &Logger{
        Logger: log,
        fields: fields,
    }

    return nil
}

type ctxKey string

const (
    CtxAgentID ctxKey = "agent_id"
    CtxCallID  ctxKey = "call_id"
)

// WithContext promotes well-known context values (agent id, call id) into
// log fields so every line for a given agent session carries them without
// every call site threading them through by hand.
func WithContext(ctx context.Context) *Logger {
    fields := logrus.Fields{}

    if agentID := ctx.Value(CtxAgentID); agentID != nil {
        fields["agent_id"] = agentID
    }
    if callID := ctx.Value(CtxCallID); callID != nil {
        fields["call_id"] = callID
    }

    return defaultLogger.WithFields(fields)
}

func (l *Logger) WithFields(fields logrus.Fields) *Logger {
    newFields := make(logrus.Fields, len(l.fields)+len(fields))
    for k, v := range l.fields {
        newFields[k] = v
    }
    for k, v := range fields {
        newFields[k] = v
    }

    return &Logger{
        Logger: l.Logger,
        fields: newFields,
    }
}

func (l *Logger) Debug(args ...interface{}) { l.Logger.WithFields(l.fields).Debug(args...) }
func (l *Logger) Info(args ...interface{})  { l.Logger.WithFields(l.fields).Info(args...) }
func (l *Logger) Warn(args ...interface{})  { l.Logger.WithFields(l.fields).Warn(args...) }
func (l *Logger) Error(args ...interface{}) { l.Logger.WithFields(l.fields).Error(args...) }
func (l *Logger) Fatal(args ...interface{}) { l.Logger.WithFields(l.fields).Fatal(args...) }

func (l *Logger) WithField(key string, value interface{}) *Logger {
    return l.WithFields(logrus.Fields{key: value})
}

func (l *Logger) WithError(err error) *Logger {
    return l.WithFields(logrus.Fields{
        "error":      err.Error(),
        "error_type": fmt.Sprintf("%T", err),
    })
}

func Debug(args ...interface{}) { defaultLogger.WithFields(defaultLogger.fields).Debug(args...) }
func Info(args ...interface{})  { defaultLogger.WithFields(defaultLogger.fields).Info(args...) }
func Warn(args ...interface{})  { defaultLogger.WithFields(defaultLogger.fields).Warn(args...) }
func Error(args ...interface{}) { defaultLogger.WithFields(defaultLogger.fields).Error(args...) }
func Fatal(args ...interface{}) { defaultLogger.WithFields(defaultLogger.fields).Fatal(args...) }

func WithField(key string, value interface{}) *Logger {
    return defaultLogger.WithFields(logrus.Fields{key: value})
}

func WithError(err error) *Logger {
    return defaultLogger.WithError(err)
}
