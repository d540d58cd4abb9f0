// internal/llm/factory/factory_test.go
package factory

import (
	"errors"
	"testing"

	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/core"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LLMConfig
		wantName string
		wantErr  error
	}{
		{
			name:     "claude",
			cfg:      config.LLMConfig{Provider: "claude", Claude: config.ClaudeConfig{APIKey: "test-key"}},
			wantName: "claude",
		},
		{
			name:     "openai",
			cfg:      config.LLMConfig{Provider: "openai", OpenAI: config.OpenAIConfig{APIKey: "test-key", Model: "gpt-4o"}},
			wantName: "openai",
		},
		{
			name:     "ollama",
			cfg:      config.LLMConfig{Provider: "ollama", Ollama: config.OllamaConfig{Endpoint: "http://localhost:11434", Model: "llama3"}},
			wantName: "ollama",
		},
		{
			name:    "claude missing key",
			cfg:     config.LLMConfig{Provider: "claude"},
			wantErr: core.ErrConfigMissing,
		},
		{
			name:    "unknown",
			cfg:     config.LLMConfig{Provider: "unknown"},
			wantErr: core.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("expected %s provider, got %s", tt.wantName, p.Name())
			}
		})
	}
}
