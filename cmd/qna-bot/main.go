package main

import (
	"context"
	"log"

	"coursegen/internal/config"
	"coursegen/internal/course"
	"coursegen/internal/db"
	"coursegen/internal/handlers"
	"coursegen/internal/logging"
	"coursegen/internal/params"
	"coursegen/internal/qna"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
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

	if err := config.Require("KB_ID", cfg.KBID, "QnA_MODEL_ID", cfg.QnAModelID); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	awsCfg, err := db.LoadAWSConfig(ctx, cfg.BedrockTimeout, cfg.SDKMaxAttempts)
	if err != nil {
		logger.Fatal("load aws config", zap.Error(err))
	}

	prompts, err := course.Prompts()
	if err != nil {
		logger.Fatal("load prompts", zap.Error(err))
	}

	var overrides qna.PromptSource
	if cfg.QnAPromptParam != "" {
		overrides = params.NewResolver(ssm.NewFromConfig(awsCfg))
	}

	svc := qna.NewService(bedrockagentruntime.NewFromConfig(awsCfg), overrides, qna.Config{
		KnowledgeBaseID:  cfg.KBID,
		ModelARN:         qna.ModelARN(awsCfg.Region, cfg.QnAModelID),
		GuardrailID:      cfg.GuardrailID,
		GuardrailVersion: cfg.GuardrailVersion,
		NumResults:       cfg.QnANumResults,
		PromptParam:      cfg.QnAPromptParam,
		DefaultPrompt:    prompts.QnA.Template,
	}, logger)
	h := handlers.NewQnAHandler(svc, logger)
	lambda.Start(h.Handle)
}
