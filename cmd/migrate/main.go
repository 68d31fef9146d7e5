// migrate aplica las migraciones de schema contra el Postgres configurado.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/config"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/logger"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/store/pg"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "lp-auth-migrate"})
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := pg.New(ctx, cfg.Storage.DSN)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	logger.L().Info("migrations up to date")
}
