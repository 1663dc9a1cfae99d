// Package main applies pending schema migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"matchmaking-engine/internal/config"
	"matchmaking-engine/internal/services/database"
	"matchmaking-engine/internal/utils"
)

func main() {
	list := flag.Bool("list", false, "print known migrations and exit")
	flag.Parse()

	if *list {
		for _, m := range database.Migrations() {
			fmt.Printf("%03d  %s\n", m.Version, m.Name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()
	logger := utils.GetLogger()

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	applied, err := db.Migrate(ctx)
	if err != nil {
		logger.Fatal("Migration failed", zap.Ints("applied", applied), zap.Error(err))
	}
	if len(applied) == 0 {
		logger.Info("Schema is up to date")
		return
	}
	logger.Info("Migrations applied", zap.Ints("versions", applied))
}
