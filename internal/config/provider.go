package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when the hosted provider has no API key.
var ErrMissingAPIKey = errors.New("missing API key")

// Provider is the validated provider selection: either HostedProvider or LocalProvider.
type Provider interface {
	Name() string
	isProvider()
}

// HostedProvider calls the Google Gemini API.
type HostedProvider struct {
	APIKey         string
	Generation     GenerationConfig
	EmbeddingModel string
}

// LocalProvider calls an Ollama server.
type LocalProvider struct {
	BaseURL        *url.URL
	Generation     GenerationConfig
	EmbeddingModel string
	Timeout        time.Duration
}

func (HostedProvider) Name() string { return VariantHosted }
func (LocalProvider) Name() string  { return VariantLocal }
func (HostedProvider) isProvider()  {}
func (LocalProvider) isProvider()   {}

// ResolveProvider validates the variant's settings and resolves secrets.
// A .env file in the working directory is loaded first if present.
func (c *AppConfig) ResolveProvider() (Provider, error) {
	switch c.Variant {
	case VariantHosted:
		_ = godotenv.Load()
		key := os.Getenv(c.Hosted.APIKeyEnv)
		if key == "" {
			secrets, err := LoadSecrets(c.SecretsFile)
			if err != nil {
				return nil, err
			}
			key = secrets.Get(c.Hosted.SecretNamespace, c.Hosted.SecretKey)
		}
		if key == "" {
			return nil, fmt.Errorf("%w: set %s or %s.%s in %s", ErrMissingAPIKey,
				c.Hosted.APIKeyEnv, c.Hosted.SecretNamespace, c.Hosted.SecretKey, c.SecretsFile)
		}
		if err := validateGeneration(c.Hosted.Generation); err != nil {
			return nil, err
		}
		return HostedProvider{APIKey: key, Generation: c.Hosted.Generation, EmbeddingModel: c.Hosted.EmbeddingModel}, nil
	case VariantLocal:
		u, err := url.Parse(c.Local.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid local base_url %q", c.Local.BaseURL)
		}
		if err := validateGeneration(c.Local.Generation); err != nil {
			return nil, err
		}
		return LocalProvider{
			BaseURL:        u,
			Generation:     c.Local.Generation,
			EmbeddingModel: c.Local.EmbeddingModel,
			Timeout:        time.Duration(c.Local.TimeoutSecs) * time.Second,
		}, nil
	default:
		return nil, fmt.Errorf("unknown variant: %s", c.Variant)
	}
}

func validateGeneration(g GenerationConfig) error {
	if g.Model == "" {
		return errors.New("generation model is required")
	}
	if g.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", g.MaxTokens)
	}
	if t := g.Temp(); t < 0 || t > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %g", t)
	}
	return nil
}
