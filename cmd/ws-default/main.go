package main

import (
	"context"
	"log"

	"coursegen/internal/config"
	"coursegen/internal/db"
	"coursegen/internal/handlers"
	"coursegen/internal/logging"
	"coursegen/internal/wsapi"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.Must(cfg.LogLevel)
	defer logger.Sync()

	awsCfg, err := db.LoadAWSConfig(ctx, 0, 0)
	if err != nil {
		logger.Fatal("load aws config", zap.Error(err))
	}

	pushers := func(endpoint string) handlers.Pusher { return wsapi.New(awsCfg, endpoint) }
	h := handlers.NewDefaultRouteHandler(pushers, cfg.WebsocketEndpointURL, logger)
	lambda.Start(h.Handle)
}
