package main

import (
	"context"
	"log"

	"coursegen/internal/config"
	"coursegen/internal/connections"
	"coursegen/internal/db"
	"coursegen/internal/handlers"
	"coursegen/internal/logging"

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

	if err := config.Require("CONNECTIONS_TABLE", cfg.ConnectionsTable); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	awsCfg, err := db.LoadAWSConfig(ctx, 0, 0)
	if err != nil {
		logger.Fatal("load aws config", zap.Error(err))
	}

	reg := connections.NewRegistry(db.NewDynamoClient(awsCfg), cfg.ConnectionsTable, cfg.ConnectionTTL)
	h := handlers.NewConnectionHandler(reg, logger)
	lambda.Start(h.Connect)
}
