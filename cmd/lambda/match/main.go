// Match Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"blood-bank-matcher/internal/config"
	"blood-bank-matcher/internal/handlers"
	"blood-bank-matcher/internal/services/dataset"
	"blood-bank-matcher/internal/services/matcher"
	"blood-bank-matcher/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	_ = utils.InitLogger(cfg.LogLevel)
	defer utils.Sync()

	source, err := dataset.OpenSource(context.Background(), cfg)
	if err != nil {
		utils.GetLogger().Fatal("Failed to open table source", zap.Error(err))
	}
	defer source.Close()

	runner := handlers.NewMatchRunner(source, matcher.NewService(), cfg.DefaultTopN)

	lambda.Start(handlers.NewMatchHandler(runner).Handle)
}
