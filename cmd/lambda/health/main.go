// Health Check Lambda entry point
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"blood-bank-matcher/internal/config"
	"blood-bank-matcher/internal/handlers"
	"blood-bank-matcher/internal/services/dataset"
	"blood-bank-matcher/internal/utils"
)

func main() {
	_ = utils.InitLogger("info")
	defer utils.Sync()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// A source that fails to open is reported as degraded, not fatal
	var checker handlers.HealthChecker
	source, err := dataset.OpenSource(context.Background(), cfg)
	if err == nil {
		defer source.Close()
		checker = source
	} else {
		checker = unavailable{err: err}
	}

	lambda.Start(handlers.NewHealthHandler(checker, cfg.UsesDatabase()).Handle)
}

type unavailable struct {
	err error
}

func (u unavailable) HealthCheck(context.Context) error {
	return u.err
}
