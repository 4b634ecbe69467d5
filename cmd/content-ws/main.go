package main

import (
	"context"
	"log"

	"coursegen/internal/config"
	"coursegen/internal/db"
	"coursegen/internal/handlers"
	"coursegen/internal/jobs"
	"coursegen/internal/logging"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
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

	if err := config.Require("CONTENT_QUEUE_URL", cfg.ContentQueueURL); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	awsCfg, err := db.LoadAWSConfig(ctx, 0, 0)
	if err != nil {
		logger.Fatal("load aws config", zap.Error(err))
	}

	store := jobs.NewStore(db.NewDynamoClient(awsCfg), cfg.JobsTable, cfg.JobTTL)
	h := handlers.NewEnqueueHandler(sqs.NewFromConfig(awsCfg), cfg.ContentQueueURL, "content", store, logger)
	lambda.Start(h.Handle)
}
