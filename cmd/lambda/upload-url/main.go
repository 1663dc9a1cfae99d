// Presigned upload URL Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"matchmaking-engine/internal/config"
	"matchmaking-engine/internal/handlers"
	s3service "matchmaking-engine/internal/services/s3"
	"matchmaking-engine/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}
	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	files, err := s3service.NewService(context.Background(), cfg)
	if err != nil {
		panic("Failed to create handler: " + err.Error())
	}

	lambda.Start(handlers.NewUploadURLHandler(files).Handle)
}
