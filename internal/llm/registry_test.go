package llm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planforge/planforge/internal/config"
	"github.com/planforge/planforge/internal/llm"
	"github.com/planforge/planforge/internal/llm/configbuilder"
	llmmock "github.com/planforge/planforge/internal/llm/mock"
)

func TestRegistryResolve(t *testing.T) {
	reg := llm.NewRegistry()
	mockProvider := &llmmock.Provider{NameValue: "mock"}
	reg.RegisterProvider("mock", mockProvider)
	reg.RegisterModel("default", llm.ModelRoute{
		Provider:    "mock",
		Model:       "dummy",
		Temperature: 0.7,
	}, true)

	p, route, err := reg.Resolve("")
	require.NoError(t, err)
	require.Equal(t, mockProvider, p)
	require.Equal(t, "dummy", route.Model)

	_, _, err = reg.Resolve("missing")
	require.Error(t, err)
}

func TestBuildRegistryFromConfig(t *testing.T) {
	cfg := &config.Config{
		Providers: map[string]config.ProviderConfig{
			"azure": {Type: "azure", BaseURL: "https://example.openai.azure.com", Deployment: "gpt-35-turbo"},
		},
		Models: map[string]config.ModelConfig{
			"main": {Provider: "azure", Model: "gpt-35-turbo", Default: true},
		},
	}

	reg, err := configbuilder.BuildRegistryFromConfig(cfg)
	require.NoError(t, err)

	p, _, err := reg.Resolve("main")
	require.NoError(t, err)
	require.Equal(t, "azure", p.Name())
}

func TestBuildRegistryRejectsUnknownType(t *testing.T) {
	cfg := &config.Config{
		Providers: map[string]config.ProviderConfig{
			"weird": {Type: "carrier-pigeon"},
		},
		Models: map[string]config.ModelConfig{
			"main": {Provider: "weird", Default: true},
		},
	}

	_, err := configbuilder.BuildRegistryFromConfig(cfg)
	require.Error(t, err)
}
