package config

// Config holds ezmark configuration.
// Stored at: {home}/config.yaml
type Config struct {
	RecognitionProviders map[string]RecognitionProviderCfg `mapstructure:"recognition_providers" yaml:"recognition_providers"`
	Defaults             DefaultsCfg                       `mapstructure:"defaults" yaml:"defaults"`
	Defra                DefraConfig                       `mapstructure:"defra" yaml:"defra"`
	Server               ServerConfig                      `mapstructure:"server" yaml:"server"`
}

// RecognitionProviderCfg configures a vision recognition provider.
type RecognitionProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`             // "openrouter", "openai"
	Model     string  `mapstructure:"model" yaml:"model"`           // Model name
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url"`     // Override API base URL
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selection and pipeline tuning.
type DefaultsCfg struct {
	RecognitionProvider string `mapstructure:"recognition_provider" yaml:"recognition_provider"` // Default recognition provider
	MaxWorkers          int    `mapstructure:"max_workers" yaml:"max_workers"`                   // Max concurrent workers
	RasterDPI           int    `mapstructure:"raster_dpi" yaml:"raster_dpi"`                     // pdftoppm render resolution
	CropPaddingPX       int    `mapstructure:"crop_padding_px" yaml:"crop_padding_px"`           // Extra pixels around question crops
}

// DefraConfig holds DefraDB container configuration.
type DefraConfig struct {
	// ContainerName is the Docker container name (default: ezmark-defra)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: sourcenetwork/defradb:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 9181)
	Port string `mapstructure:"port" yaml:"port"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RecognitionProviders: map[string]RecognitionProviderCfg{
			"openrouter": {
				Type:      "openrouter",
				Model:     "anthropic/claude-sonnet-4",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 2.0,
				Enabled:   true,
			},
			"openai": {
				Type:      "openai",
				Model:     "gpt-4o",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 2.0,
				Enabled:   false,
			},
		},
		Defaults: DefaultsCfg{
			RecognitionProvider: "openrouter",
			MaxWorkers:          10,
			RasterDPI:           150,
			CropPaddingPX:       12,
		},
		Defra: DefraConfig{
			ContainerName: "ezmark-defra",
			Image:         "sourcenetwork/defradb:latest",
			Port:          "9181",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "8080",
		},
	}
}

// GetRecognitionProvider returns a recognition provider config by name.
func (c *Config) GetRecognitionProvider(name string) (RecognitionProviderCfg, bool) {
	cfg, ok := c.RecognitionProviders[name]
	return cfg, ok
}

// EnabledRecognitionProviders returns all enabled recognition providers.
func (c *Config) EnabledRecognitionProviders() map[string]RecognitionProviderCfg {
	result := make(map[string]RecognitionProviderCfg)
	for name, cfg := range c.RecognitionProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
