// Member CSV import Lambda entry point, triggered by S3 uploads
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"matchmaking-engine/internal/app"
	"matchmaking-engine/internal/config"
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
	application, err := app.New(ctx, cfg, app.Options{WithFiles: true})
	if err != nil {
		panic("Failed to create handler: " + err.Error())
	}
	defer application.Close(ctx)
	if application.Files == nil {
		panic("Import bucket is not configured")
	}

	lambda.Start(application.Imports().Handle)
}
