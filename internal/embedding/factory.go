package embedding

import "fmt"

// Config selects and configures an embedding provider. The provider is chosen
// once at startup from configuration, never by runtime feature detection.
type Config struct {
	// Provider is one of: ollama, openai, deterministic.
	Provider string

	// OllamaURL is the Ollama base URL (ollama provider).
	OllamaURL string

	// APIKey is the API key (openai provider).
	APIKey string

	// Model is the embedding model name.
	Model string

	// BaseURL overrides the API base URL (openai provider).
	BaseURL string

	// Dimensions is the output vector dimensionality. Zero means the
	// provider default.
	Dimensions int
}

// NewProvider creates the appropriate Provider based on config.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		}), nil
	case "ollama", "":
		return NewOllamaClient(OllamaConfig{
			BaseURL:    cfg.OllamaURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil
	case "deterministic":
		return NewDeterministicProvider(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}
}
