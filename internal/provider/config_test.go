package provider

import (
	"errors"
	"testing"

	"github.com/54b3r/docq-go/internal/rag"
)

func Test_Config_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "ollama needs nothing",
			cfg:  Config{Backend: BackendOllama},
		},
		{
			name: "openai with key",
			cfg:  Config{Backend: BackendOpenAI, APIKey: "sk-test", Model: "gpt-4o"},
		},
		{
			name:    "openai without key",
			cfg:     Config{Backend: BackendOpenAI, Model: "gpt-4o"},
			wantErr: true,
		},
		{
			name: "azure fully configured",
			cfg: Config{
				Backend:         BackendAzure,
				APIKey:          "azure-key",
				BaseURL:         "https://resource.openai.azure.com",
				AzureDeployment: "gpt-4.1",
			},
		},
		{
			name: "azure without endpoint",
			cfg: Config{
				Backend:         BackendAzure,
				APIKey:          "azure-key",
				AzureDeployment: "gpt-4.1",
			},
			wantErr: true,
		},
		{
			name: "azure without deployment",
			cfg: Config{
				Backend: BackendAzure,
				APIKey:  "azure-key",
				BaseURL: "https://resource.openai.azure.com",
			},
			wantErr: true,
		},
		{
			name: "gemini with key",
			cfg:  Config{Backend: BackendGemini, APIKey: "g-key", Model: "gemini-1.5-pro"},
		},
		{
			name:    "gemini without key",
			cfg:     Config{Backend: BackendGemini, Model: "gemini-1.5-pro"},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "watson"},
			wantErr: true,
		},
		{
			name:    "empty backend",
			cfg:     Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, rag.ErrConfig) {
					t.Errorf("want ErrConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func Test_ModelNameFromEnv(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "")
	t.Setenv("OLLAMA_MODEL", "")

	if got := ModelNameFromEnv(); got != "llama3" {
		t.Errorf("default: got %q, want llama3", got)
	}

	t.Setenv("MODEL_PROVIDER", "gemini")
	t.Setenv("GEMINI_MODEL", "gemini-2.0-flash")
	if got := ModelNameFromEnv(); got != "gemini-2.0-flash" {
		t.Errorf("gemini: got %q, want gemini-2.0-flash", got)
	}

	t.Setenv("MODEL_PROVIDER", "azure")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT", "gpt-4.1")
	if got := ModelNameFromEnv(); got != "gpt-4.1" {
		t.Errorf("azure: got %q, want the deployment name", got)
	}
}
