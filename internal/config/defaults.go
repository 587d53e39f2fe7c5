package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoDefault is returned when no default value exists for a config key.
var ErrNoDefault = errors.New("no default exists")

// DefaultEntries returns the default configuration entries.
// These are seeded into DefraDB on first run.
func DefaultEntries() []Entry {
	return []Entry{
		// ===================
		// Recognition Providers
		// ===================

		// Recognition Providers - OpenRouter
		{
			Key:         "providers.recognition.openrouter.type",
			Value:       "openrouter",
			Description: "Recognition provider type for OpenRouter",
		},
		{
			Key:         "providers.recognition.openrouter.model",
			Value:       "anthropic/claude-sonnet-4",
			Description: "Default vision model for OpenRouter",
		},
		{
			Key:         "providers.recognition.openrouter.api_key",
			Value:       "${OPENROUTER_API_KEY}",
			Description: "OpenRouter API key (uses environment variable)",
		},
		{
			Key:         "providers.recognition.openrouter.rate_limit",
			Value:       2.0,
			Description: "Rate limit in requests per second for OpenRouter",
		},
		{
			Key:         "providers.recognition.openrouter.enabled",
			Value:       true,
			Description: "Whether the OpenRouter recognition provider is enabled",
		},
		{
			Key:         "providers.recognition.openrouter.timeout_seconds",
			Value:       300,
			Description: "HTTP timeout in seconds for OpenRouter requests",
		},
		{
			Key:         "providers.recognition.openrouter.max_retries",
			Value:       5,
			Description: "Maximum retry attempts for failed OpenRouter requests",
		},

		// Recognition Providers - OpenAI
		{
			Key:         "providers.recognition.openai.type",
			Value:       "openai",
			Description: "Recognition provider type for OpenAI",
		},
		{
			Key:         "providers.recognition.openai.model",
			Value:       "gpt-4o",
			Description: "Default vision model for OpenAI",
		},
		{
			Key:         "providers.recognition.openai.api_key",
			Value:       "${OPENAI_API_KEY}",
			Description: "OpenAI API key (uses environment variable)",
		},
		{
			Key:         "providers.recognition.openai.rate_limit",
			Value:       2.0,
			Description: "Rate limit in requests per second for OpenAI",
		},
		{
			Key:         "providers.recognition.openai.enabled",
			Value:       false,
			Description: "Whether the OpenAI recognition provider is enabled",
		},

		// ===================
		// Pipeline Defaults
		// ===================
		{
			Key:         "defaults.recognition_provider",
			Value:       "openrouter",
			Description: "Default recognition provider used for header, objective and subjective stages",
		},
		{
			Key:         "defaults.max_workers",
			Value:       10,
			Description: "Maximum concurrent workers per pipeline stage",
		},
		{
			Key:         "defaults.raster_dpi",
			Value:       150,
			Description: "pdftoppm render resolution for scan pages",
		},
		{
			Key:         "defaults.crop_padding_px",
			Value:       12,
			Description: "Extra pixels added around question crops",
		},
	}
}

// SeedDefaults seeds default configuration entries into the store.
// This is idempotent - existing entries are not overwritten.
func SeedDefaults(ctx context.Context, store Store, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultEntries()
	seeded := 0
	skipped := 0

	for _, entry := range defaults {
		// Check if key already exists
		existing, err := store.Get(ctx, entry.Key)
		if err != nil {
			return fmt.Errorf("failed to check key %q: %w", entry.Key, err)
		}

		if existing != nil {
			skipped++
			continue
		}

		// Create the entry
		if err := store.Set(ctx, entry.Key, entry.Value, entry.Description); err != nil {
			return fmt.Errorf("failed to seed key %q: %w", entry.Key, err)
		}
		seeded++
	}

	if seeded > 0 {
		logger.Info("seeded default config entries", "seeded", seeded, "skipped", skipped)
	}
	return nil
}

// GetDefault returns the default value for a config key.
// Returns nil if no default exists for the key.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// ResetToDefault resets a config key to its default value.
// Returns ErrNoDefault if no default exists for the key.
func ResetToDefault(ctx context.Context, store Store, key string) error {
	def := GetDefault(key)
	if def == nil {
		return fmt.Errorf("%w for key %q", ErrNoDefault, key)
	}
	return store.Set(ctx, key, def.Value, def.Description)
}
