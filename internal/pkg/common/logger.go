package common

import (
	"fmt"

	"github.com/samber/do/v2"
	"go.uber.org/zap"
)

func NewLogger(i do.Injector) (*zap.SugaredLogger, error) {
	debug := do.MustInvokeNamed[bool](i, "debug")

	config := zap.NewProductionConfig()
	if debug {
		config = zap.NewDevelopmentConfig()
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger.Sugar().Named("shiki-arena"), nil
}
