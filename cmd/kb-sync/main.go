package main

import (
	"context"
	"log"

	"coursegen/internal/config"
	"coursegen/internal/db"
	"coursegen/internal/handlers"
	"coursegen/internal/kbsync"
	"coursegen/internal/logging"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
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

	if err := config.Require("KNOWLEDGE_BASE_ID", cfg.KnowledgeBaseID, "DATA_SOURCE_ID", cfg.DataSourceID); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	awsCfg, err := db.LoadAWSConfig(ctx, 0, 0)
	if err != nil {
		logger.Fatal("load aws config", zap.Error(err))
	}

	syncer := kbsync.NewSyncer(bedrockagent.NewFromConfig(awsCfg), cfg.KnowledgeBaseID, cfg.DataSourceID, logger)
	h := handlers.NewKBSyncHandler(syncer)
	lambda.Start(h.Handle)
}
