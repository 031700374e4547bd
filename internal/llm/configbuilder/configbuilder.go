// Package configbuilder constructs llm registries from application config.
package configbuilder

import (
	"fmt"

	"github.com/planforge/planforge/internal/config"
	"github.com/planforge/planforge/internal/llm"
	llmopenai "github.com/planforge/planforge/internal/llm/providers/openai"
)

// BuildRegistryFromConfig constructs a registry and providers from config.
func BuildRegistryFromConfig(cfg *config.Config) (*llm.Registry, error) {
	reg := llm.NewRegistry()

	for name, pCfg := range cfg.Providers {
		p, err := buildProvider(name, pCfg)
		if err != nil {
			return nil, err
		}
		reg.RegisterProvider(name, p)
	}

	for name, mCfg := range cfg.Models {
		reg.RegisterModel(name, llm.ModelRoute{
			Provider:    mCfg.Provider,
			Model:       mCfg.Model,
			Temperature: mCfg.Temperature,
			MaxTokens:   mCfg.MaxTokens,
		}, mCfg.Default)
	}

	if _, _, err := reg.Resolve(""); err != nil {
		return nil, err
	}

	return reg, nil
}

func buildProvider(name string, cfg config.ProviderConfig) (llm.Provider, error) {
	switch cfg.Type {
	case "openai", "custom":
		return llmopenai.NewProvider(name, cfg.BaseURL, cfg.APIKey, cfg.Timeout, llmopenai.Options{}), nil
	case "azure":
		return llmopenai.NewProvider(name, cfg.BaseURL, cfg.APIKey, cfg.Timeout, llmopenai.Options{
			Azure:      true,
			APIVersion: cfg.APIVersion,
			Deployment: cfg.Deployment,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q for provider %s", cfg.Type, name)
	}
}
