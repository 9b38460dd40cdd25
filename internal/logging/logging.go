package logging

import (
    "io"
    "log/slog"
    "os"
)

type Config struct {
    ServiceName string
    Environment string
    Level       string
}

// New builds a JSON logger tagged with service and env.
func New(cfg Config) *slog.Logger {
    return NewWithWriter(cfg, os.Stdout)
}

func NewWithWriter(cfg Config, w io.Writer) *slog.Logger {
    level := new(slog.LevelVar)

    switch cfg.Level {
    case "debug":
        level.Set(slog.LevelDebug)
    case "warn":
        level.Set(slog.LevelWarn)
    case "error":
        level.Set(slog.LevelError)
    default:
        level.Set(slog.LevelInfo)
    }

    handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
        Level: level,
    })

    return slog.New(handler).With(
        slog.String("service", cfg.ServiceName),
        slog.String("env", cfg.Environment),
    )
}
