package logger_test

import (
	"log/slog"

	"github.com/verkkograph/verkko/pkg/logger"
)

func ExampleNewDefaultLogger() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Debug("resolving adjacency index")
	log.Info("graph store initialized")
	log.Warn("statistics cache is stale")
	log.Error("store unreachable")
}

func ExampleNewLogger() {
	log := logger.NewLogger(logger.Options{Level: slog.LevelInfo, NoColor: true})

	log.Info("traversal finished", "seed", "paris", "visited", 42)
	log.Warn("explored-node cap approaching", "explored", 9500, "cap", 10000)
	log.Error("statistics upsert failed", "scope", "doc-1", "error", "timeout")
}
