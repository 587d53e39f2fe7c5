package providers

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds references to recognition clients.
// It supports config-driven instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu              sync.RWMutex
	clients         map[string]LLMClient
	defaultProvider string
	logger          *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]LLMClient),
		logger:  slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register registers a recognition client by name.
func (r *Registry) Register(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	if r.logger != nil {
		r.logger.Info("registered recognition client", "name", name)
	}
}

// Unregister removes a recognition client by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, name)
	if r.logger != nil {
		r.logger.Info("unregistered recognition client", "name", name)
	}
}

// Get returns a recognition client by name.
func (r *Registry) Get(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("recognition client not found: %s", name)
	}
	return client, nil
}

// Default returns the configured default recognition client.
func (r *Registry) Default() (LLMClient, error) {
	r.mu.RLock()
	name := r.defaultProvider
	r.mu.RUnlock()
	if name == "" {
		return nil, fmt.Errorf("no default recognition provider configured")
	}
	return r.Get(name)
}

// DefaultName returns the configured default provider name.
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultProvider
}

// List returns all registered recognition client names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// Has checks if a recognition client is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[name]
	return ok
}

// Clients returns a map of all registered recognition clients.
// Used by Scheduler to create workers from providers.
func (r *Registry) Clients() map[string]LLMClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]LLMClient, len(r.clients))
	for name, client := range r.clients {
		result[name] = client
	}
	return result
}

// RegistryConfig defines the providers to instantiate from config.
// This mirrors the config.Config structure for provider setup.
type RegistryConfig struct {
	// RecognitionProviders maps provider names to their config
	RecognitionProviders map[string]RecognitionProviderConfig

	// DefaultProvider is the provider used when a job does not name one
	DefaultProvider string
}

// RecognitionProviderConfig matches config.RecognitionProviderCfg with resolved API key.
type RecognitionProviderConfig struct {
	Type      string  // "openrouter", "openai"
	Model     string  // Model name
	APIKey    string  // Resolved API key
	BaseURL   string  // Optional API base URL override
	RateLimit float64 // Requests per second
	Enabled   bool
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with valid API keys will be registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.defaultProvider = cfg.DefaultProvider
	for name, provCfg := range cfg.RecognitionProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		if client := createRecognitionClient(provCfg); client != nil {
			r.clients[name] = client
		}
	}
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-registered.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defaultProvider = cfg.DefaultProvider

	want := make(map[string]bool)
	for name, provCfg := range cfg.RecognitionProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		want[name] = true

		existing, hasExisting := r.clients[name]
		if !hasExisting || needsUpdate(existing, provCfg) {
			client := createRecognitionClient(provCfg)
			if client != nil {
				r.clients[name] = client
				if r.logger != nil {
					if hasExisting {
						r.logger.Info("updated recognition client", "name", name, "type", provCfg.Type)
					} else {
						r.logger.Info("registered recognition client", "name", name, "type", provCfg.Type)
					}
				}
			}
		}
	}

	// Remove providers that are no longer configured
	for name := range r.clients {
		if !want[name] {
			delete(r.clients, name)
			if r.logger != nil {
				r.logger.Info("unregistered recognition client", "name", name)
			}
		}
	}
}

// createRecognitionClient creates a recognition client based on provider type.
func createRecognitionClient(cfg RecognitionProviderConfig) LLMClient {
	switch cfg.Type {
	case "openrouter":
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			RPS:          cfg.RateLimit,
		})
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			RateLimit: cfg.RateLimit,
		})
	default:
		return nil
	}
}

// needsUpdate checks if a recognition client needs to be recreated.
func needsUpdate(client LLMClient, cfg RecognitionProviderConfig) bool {
	switch c := client.(type) {
	case *OpenRouterClient:
		return c.apiKey != cfg.APIKey ||
			c.defaultModel != cfg.Model ||
			c.rps != cfg.RateLimit
	case *OpenAIClient:
		return c.apiKey != cfg.APIKey ||
			c.model != cfg.Model ||
			c.rateLimit != cfg.RateLimit
	default:
		return true
	}
}
