// Candidate selection Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"matchmaking-engine/internal/app"
	"matchmaking-engine/internal/config"
	"matchmaking-engine/internal/handlers"
	"matchmaking-engine/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	ctx := context.Background()
	application, err := app.New(ctx, cfg, app.Options{WithCache: true})
	if err != nil {
		panic("Failed to create handler: " + err.Error())
	}
	defer application.Close(ctx)

	handler := handlers.NewCandidatesHandler(application.Matcher)
	lambda.Start(handler.Handle)
}
