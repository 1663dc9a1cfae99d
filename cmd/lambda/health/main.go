// Health Check Lambda entry point
package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"matchmaking-engine/internal/config"
	"matchmaking-engine/internal/handlers"
	"matchmaking-engine/internal/services/database"
	"matchmaking-engine/internal/utils"
)

func main() {
	_ = utils.InitLogger("info")
	defer utils.Sync()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// A failed connection is reported by the health response itself.
	handler := handlers.NewHealthHandler(nil, cfg.Stage)
	if db, err := database.New(cfg); err != nil {
		utils.Logger.Warn("Database unavailable", zap.Error(err))
	} else {
		defer db.Close()
		handler = handlers.NewHealthHandler(db, cfg.Stage)
	}

	lambda.Start(handler.Handle)
}
