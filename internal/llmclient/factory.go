// File: internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

// NewClient builds the tiered router from the agent's LLM configuration.
func NewClient(ctx context.Context, cfg config.AgentConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	fast, err := newModelClient(ctx, cfg.LLM, cfg.LLM.DefaultFastModel, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create fast tier client: %w", err)
	}
	powerful, err := newModelClient(ctx, cfg.LLM, cfg.LLM.DefaultPowerfulModel, logger)
	if err != nil {
		_ = fast.Close()
		return nil, fmt.Errorf("failed to create powerful tier client: %w", err)
	}
	router, err := NewLLMRouter(logger, fast, powerful)
	if err != nil {
		return nil, err
	}
	return router, nil
}

func newModelClient(ctx context.Context, router config.LLMRouterConfig, name string, logger *zap.Logger) (schemas.LLMClient, error) {
	if name == "" {
		return nil, fmt.Errorf("no model name configured")
	}
	modelCfg, ok := router.Models[name]
	if !ok {
		return nil, fmt.Errorf("model '%s' not found in llm.models", name)
	}

	switch modelCfg.Provider {
	case config.ProviderGemini:
		return NewGoogleClient(ctx, modelCfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s]", modelCfg.Provider, config.ProviderGemini)
	}
}
