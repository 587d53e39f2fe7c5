package providers

import (
	"os"
)

// TestConfig holds provider configurations loaded from environment variables.
// This allows tests to use the same configuration pattern as production.
type TestConfig struct {
	OpenRouterAPIKey string
	OpenAIAPIKey     string
}

// LoadTestConfig loads provider API keys from environment variables.
// Returns a TestConfig with whatever keys are available.
func LoadTestConfig() TestConfig {
	return TestConfig{
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
	}
}

// HasOpenRouter returns true if OpenRouter API key is configured.
func (c TestConfig) HasOpenRouter() bool {
	return c.OpenRouterAPIKey != ""
}

// HasOpenAI returns true if OpenAI API key is configured.
func (c TestConfig) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// HasAnyRecognition returns true if any recognition provider is configured.
func (c TestConfig) HasAnyRecognition() bool {
	return c.HasOpenRouter() || c.HasOpenAI()
}

// NewOpenRouterClient creates an OpenRouter client from test config.
// Returns nil if not configured.
func (c TestConfig) NewOpenRouterClient() *OpenRouterClient {
	if !c.HasOpenRouter() {
		return nil
	}
	return NewOpenRouterClient(OpenRouterConfig{
		APIKey: c.OpenRouterAPIKey,
	})
}

// NewOpenAIClient creates an OpenAI client from test config.
// Returns nil if not configured.
func (c TestConfig) NewOpenAIClient() *OpenAIClient {
	if !c.HasOpenAI() {
		return nil
	}
	return NewOpenAIClient(OpenAIConfig{
		APIKey: c.OpenAIAPIKey,
	})
}

// ToRegistryConfig converts test config to a RegistryConfig for the provider registry.
// Only includes providers that have API keys configured.
func (c TestConfig) ToRegistryConfig() RegistryConfig {
	cfg := RegistryConfig{
		RecognitionProviders: make(map[string]RecognitionProviderConfig),
	}

	if c.HasOpenRouter() {
		cfg.RecognitionProviders["openrouter"] = RecognitionProviderConfig{
			Type:      "openrouter",
			APIKey:    c.OpenRouterAPIKey,
			RateLimit: 2.0,
			Enabled:   true,
		}
		cfg.DefaultProvider = "openrouter"
	}
	if c.HasOpenAI() {
		cfg.RecognitionProviders["openai"] = RecognitionProviderConfig{
			Type:      "openai",
			APIKey:    c.OpenAIAPIKey,
			RateLimit: 2.0,
			Enabled:   true,
		}
		if cfg.DefaultProvider == "" {
			cfg.DefaultProvider = "openai"
		}
	}

	return cfg
}
