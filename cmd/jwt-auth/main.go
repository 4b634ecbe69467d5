package main

import (
	"context"
	"log"

	"coursegen/internal/auth"
	"coursegen/internal/config"
	"coursegen/internal/logging"

	"github.com/aws/aws-lambda-go/events"
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

	if err := config.Require(
		"API_REGION", cfg.APIRegion,
		"ACCOUNT_ID", cfg.AccountID,
		"COGNITO_USER_POOL_ID", cfg.CognitoUserPoolID,
		"COGNITO_APP_CLIENT_ID", cfg.CognitoAppClientID,
		"WEBSOCKET_API_ID", cfg.WebsocketAPIID,
	); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	authCfg := auth.Config{
		Region:     cfg.APIRegion,
		AccountID:  cfg.AccountID,
		UserPoolID: cfg.CognitoUserPoolID,
		ClientID:   cfg.CognitoAppClientID,
		APIID:      cfg.WebsocketAPIID,
	}
	a := auth.NewAuthorizer(auth.NewVerifier(ctx, authCfg), authCfg, logger)

	lambda.Start(func(ctx context.Context, req auth.Request) (events.APIGatewayCustomAuthorizerResponse, error) {
		return a.Authorize(ctx, req), nil
	})
}
