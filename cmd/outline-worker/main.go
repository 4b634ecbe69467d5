package main

import (
	"context"
	"log"

	"coursegen/internal/alerts"
	"coursegen/internal/config"
	"coursegen/internal/db"
	"coursegen/internal/documents"
	"coursegen/internal/generation"
	"coursegen/internal/jobs"
	"coursegen/internal/llm"
	"coursegen/internal/logging"
	"coursegen/internal/wsapi"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
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

	if err := config.Require("MODEL_ID", cfg.ModelID, "OUTPUT_BUCKET", cfg.OutputBucket); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	awsCfg, err := db.LoadAWSConfig(ctx, cfg.BedrockTimeout, cfg.SDKMaxAttempts)
	if err != nil {
		logger.Fatal("load aws config", zap.Error(err))
	}

	docs := documents.NewStore(s3.NewFromConfig(awsCfg), cfg.DocumentWorkers, logger)
	deps := generation.Deps{
		Runtime:   llm.NewRuntime(bedrockruntime.NewFromConfig(awsCfg)),
		Documents: docs,
		Results:   docs,
		Jobs:      jobs.NewStore(db.NewDynamoClient(awsCfg), cfg.JobsTable, cfg.JobTTL).WithLease(cfg.JobLease),
		Alerts:    alerts.NewNotifier(sns.NewFromConfig(awsCfg), cfg.AlertsTopicARN),
		Senders:   func(endpoint string) generation.Sender { return wsapi.New(awsCfg, endpoint) },
	}
	w, err := generation.NewWorker(generation.Outline(), deps, generation.Options{
		ModelID:    cfg.ModelID,
		Bucket:     cfg.OutputBucket,
		MaxRetries: cfg.MaxRetries,
		Endpoint:   cfg.WebsocketEndpointURL,
	}, logger)
	if err != nil {
		logger.Fatal("build worker", zap.Error(err))
	}
	lambda.Start(w.HandleSQS)
}
