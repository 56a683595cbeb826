package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"interview-agent/handler"
	"interview-agent/internal/extraction"
	"interview-agent/internal/integrations/gemini"
	"interview-agent/internal/integrations/openai"
	"interview-agent/internal/integrations/paramstore"
	"interview-agent/internal/repository"
	"interview-agent/internal/usecase"
	"interview-agent/internal/workflow"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	ratingsModel := envStr("RATINGS_MODEL", "gpt-4o-mini")
	oracleModel := envStr("ORACLE_MODEL", "gemini-1.5-pro-latest")
	maxUtteranceLen := envInt("MAX_UTTERANCE_LENGTH", 4000)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	stateClient, err := repository.New(awsdynamodb.NewFromConfig(cfg), stateTable)
	if err != nil {
		slog.Error("failed to create state client", "err", err)
		os.Exit(1)
	}

	geminiClient, err := gemini.NewClient(ssmClient, paramPrefix, gemini.WithModel(oracleModel))
	if err != nil {
		slog.Error("failed to create gemini client", "err", err)
		os.Exit(1)
	}
	openaiClient, err := openai.NewClient(ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	// ---- Core components ----
	builder, err := workflow.NewBuilder()
	if err != nil {
		slog.Error("failed to load question bank", "err", err)
		os.Exit(1)
	}
	extractor, err := extraction.New(geminiClient, extraction.DefaultFallbacks()...)
	if err != nil {
		slog.Error("failed to create extractor", "err", err)
		os.Exit(1)
	}

	turnService, err := usecase.NewTurnService(stateClient, extractor, geminiClient, builder, maxUtteranceLen)
	if err != nil {
		slog.Error("failed to create turn service", "err", err)
		os.Exit(1)
	}
	feedbackService, err := usecase.NewFeedbackService(stateClient, openaiClient, ratingsModel)
	if err != nil {
		slog.Error("failed to create feedback service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(turnService, feedbackService)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
