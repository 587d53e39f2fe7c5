package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Extazy1/ezmark/internal/defra"
)

// mockDefraServer creates a test server that simulates DefraDB responses.
func mockDefraServer(t *testing.T, handler func(query string) map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health-check" {
			w.WriteHeader(http.StatusOK)
			return
		}

		var req defra.GQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		data := handler(req.Query)
		resp := defra.GQLResponse{Data: data}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestDefraStore_Get(t *testing.T) {
	server := mockDefraServer(t, func(query string) map[string]any {
		if strings.Contains(query, `name: {_eq: "providers.recognition.openrouter.type"}`) {
			return map[string]any{
				"Config": []any{
					map[string]any{
						"_docID":      "doc123",
						"name":        "providers.recognition.openrouter.type",
						"value":       `"openrouter"`,
						"description": "Recognition provider type",
					},
				},
			}
		}
		return map[string]any{"Config": []any{}}
	})
	defer server.Close()

	client := defra.NewClient(server.URL)
	store := NewStore(client)

	t.Run("existing_key", func(t *testing.T) {
		entry, err := store.Get(t.Context(), "providers.recognition.openrouter.type")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if entry == nil {
			t.Fatal("Get() returned nil for existing key")
		}
		if entry.Key != "providers.recognition.openrouter.type" {
			t.Errorf("Key = %q, want %q", entry.Key, "providers.recognition.openrouter.type")
		}
		if entry.Value != "openrouter" {
			t.Errorf("Value = %v, want %q", entry.Value, "openrouter")
		}
	})

	t.Run("non_existent_key", func(t *testing.T) {
		entry, err := store.Get(t.Context(), "does.not.exist")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if entry != nil {
			t.Errorf("Get() = %v, want nil for non-existent key", entry)
		}
	})
}

func TestDefraStore_GetAll(t *testing.T) {
	server := mockDefraServer(t, func(query string) map[string]any {
		return map[string]any{
			"Config": []any{
				map[string]any{
					"_docID":      "doc1",
					"name":        "providers.recognition.openrouter.type",
					"value":       `"openrouter"`,
					"description": "Recognition provider type",
				},
				map[string]any{
					"_docID":      "doc2",
					"name":        "providers.recognition.openai.model",
					"value":       `"gpt-4o"`,
					"description": "Vision model name",
				},
			},
		}
	})
	defer server.Close()

	client := defra.NewClient(server.URL)
	store := NewStore(client)

	entries, err := store.GetAll(t.Context())
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}

	if len(entries) != 2 {
		t.Errorf("GetAll() returned %d entries, want 2", len(entries))
	}

	if _, ok := entries["providers.recognition.openrouter.type"]; !ok {
		t.Error("GetAll() missing key 'providers.recognition.openrouter.type'")
	}
	if _, ok := entries["providers.recognition.openai.model"]; !ok {
		t.Error("GetAll() missing key 'providers.recognition.openai.model'")
	}
}

func TestDefraStore_GetByPrefix(t *testing.T) {
	server := mockDefraServer(t, func(query string) map[string]any {
		return map[string]any{
			"Config": []any{
				map[string]any{
					"_docID": "doc1",
					"name":   "providers.recognition.openrouter.type",
					"value":  `"openrouter"`,
				},
				map[string]any{
					"_docID": "doc2",
					"name":   "providers.recognition.openai.type",
					"value":  `"openai"`,
				},
				map[string]any{
					"_docID": "doc3",
					"name":   "defaults.max_workers",
					"value":  `10`,
				},
			},
		}
	})
	defer server.Close()

	client := defra.NewClient(server.URL)
	store := NewStore(client)

	entries, err := store.GetByPrefix(t.Context(), "providers.recognition.")
	if err != nil {
		t.Fatalf("GetByPrefix() error = %v", err)
	}

	if len(entries) != 2 {
		t.Errorf("GetByPrefix('providers.recognition.') returned %d entries, want 2", len(entries))
	}

	// Should not include pipeline defaults
	if _, ok := entries["defaults.max_workers"]; ok {
		t.Error("GetByPrefix() should not include non-matching prefix")
	}
}

func TestExtractProviders(t *testing.T) {
	entries := map[string]Entry{
		"providers.recognition.openrouter.type":       {Key: "providers.recognition.openrouter.type", Value: "openrouter"},
		"providers.recognition.openrouter.api_key":    {Key: "providers.recognition.openrouter.api_key", Value: "${OPENROUTER_API_KEY}"},
		"providers.recognition.openrouter.rate_limit": {Key: "providers.recognition.openrouter.rate_limit", Value: float64(2)},
		"providers.recognition.openrouter.enabled":    {Key: "providers.recognition.openrouter.enabled", Value: true},
		"providers.recognition.openai.type":           {Key: "providers.recognition.openai.type", Value: "openai"},
		"defaults.max_workers":                        {Key: "defaults.max_workers", Value: float64(10)},
	}

	t.Run("extract_recognition_providers", func(t *testing.T) {
		result := extractProviders(entries, "providers.recognition.")

		if len(result) != 2 {
			t.Errorf("extractProviders() returned %d providers, want 2", len(result))
		}

		openrouter, ok := result["openrouter"]
		if !ok {
			t.Fatal("extractProviders() missing 'openrouter' provider")
		}
		if openrouter["type"] != "openrouter" {
			t.Errorf("openrouter.type = %v, want %q", openrouter["type"], "openrouter")
		}
		if openrouter["enabled"] != true {
			t.Errorf("openrouter.enabled = %v, want true", openrouter["enabled"])
		}
	})

	t.Run("no_matching_prefix", func(t *testing.T) {
		result := extractProviders(entries, "nonexistent.")
		if len(result) != 0 {
			t.Errorf("extractProviders() with non-matching prefix should return empty map")
		}
	})
}

func TestGetHelpers(t *testing.T) {
	m := map[string]any{
		"string_val": "hello",
		"float_val":  3.14,
		"int_val":    42,
		"bool_val":   true,
	}

	if got := getString(m, "string_val"); got != "hello" {
		t.Errorf("getString() = %q, want %q", got, "hello")
	}
	if got := getString(m, "missing"); got != "" {
		t.Errorf("getString() for missing = %q, want empty", got)
	}

	if got := getFloat(m, "float_val"); got != 3.14 {
		t.Errorf("getFloat() = %v, want %v", got, 3.14)
	}
	if got := getFloat(m, "int_val"); got != 42 {
		t.Errorf("getFloat() for int = %v, want %v", got, 42)
	}

	if got := getBool(m, "bool_val"); got != true {
		t.Errorf("getBool() = %v, want true", got)
	}
	if got := getBool(m, "missing"); got != false {
		t.Errorf("getBool() for missing = %v, want false", got)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid simple key", "foo", false},
		{"valid dotted key", "providers.recognition.openrouter.type", false},
		{"valid with underscore", "defaults.max_workers", false},
		{"valid with hyphen", "my-setting", false},
		{"valid with numbers", "provider1.config2", false},
		{"empty key", "", true},
		{"starts with dot", ".foo", true},
		{"ends with dot", "foo.", true},
		{"contains space", "foo bar", true},
		{"contains special char", "foo@bar", true},
		{"contains slash", "foo/bar", true},
		{"contains colon", "foo:bar", true},
		{"contains quote", "foo\"bar", true},
		{"contains curly brace", "foo{bar}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("ValidateKey(%q) error should wrap ErrInvalidKey, got %v", tt.key, err)
			}
		})
	}
}
