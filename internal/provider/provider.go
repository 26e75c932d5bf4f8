// Package provider turns a resolved config.Provider into a chat model and an
// embedder backed by langchaingo.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"

	"docchat/internal/config"
	"docchat/internal/domain"
)

// Sink receives streamed answer fragments as they arrive.
type Sink func(ctx context.Context, chunk string) error

// Provider bundles what the knowledge base needs from a model backend.
type Provider struct {
	Name      string
	Generator *Generator
	Embedder  embeddings.Embedder
}

// New builds the generator and embedder for p.
func New(ctx context.Context, p config.Provider, embedBatch int, log *zap.Logger) (*Provider, error) {
	var (
		chat    llms.Model
		embedCl embeddings.EmbedderClient
		gen     config.GenerationConfig
		timeout time.Duration
	)
	switch p := p.(type) {
	case config.HostedProvider:
		client, err := googleai.New(ctx,
			googleai.WithAPIKey(p.APIKey),
			googleai.WithDefaultModel(p.Generation.Model),
			googleai.WithDefaultEmbeddingModel(p.EmbeddingModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create googleai client: %w", err)
		}
		chat, embedCl, gen = client, client, p.Generation
	case config.LocalProvider:
		server := p.BaseURL.String()
		client, err := ollama.New(ollama.WithModel(p.Generation.Model), ollama.WithServerURL(server))
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}
		embedModel := client
		if p.EmbeddingModel != "" && p.EmbeddingModel != p.Generation.Model {
			embedModel, err = ollama.New(ollama.WithModel(p.EmbeddingModel), ollama.WithServerURL(server))
			if err != nil {
				return nil, fmt.Errorf("create ollama embedder: %w", err)
			}
		}
		chat, embedCl, gen, timeout = client, embedModel, p.Generation, p.Timeout
	case nil:
		return nil, errors.New("provider is required")
	default:
		return nil, fmt.Errorf("unsupported provider: %s", p.Name())
	}

	opts := []embeddings.Option{}
	if embedBatch > 0 {
		opts = append(opts, embeddings.WithBatchSize(embedBatch))
	}
	emb, err := embeddings.NewEmbedder(embedCl, opts...)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	log.Info("provider ready", zap.String("provider", p.Name()), zap.String("model", gen.Model))
	return &Provider{
		Name:      p.Name(),
		Generator: NewGenerator(chat, gen, timeout, log),
		Embedder:  emb,
	}, nil
}

// Generator sends a grounded conversation to a chat model.
type Generator struct {
	model   llms.Model
	cfg     config.GenerationConfig
	timeout time.Duration
	log     *zap.Logger
}

func NewGenerator(model llms.Model, cfg config.GenerationConfig, timeout time.Duration, log *zap.Logger) *Generator {
	return &Generator{model: model, cfg: cfg, timeout: timeout, log: log}
}

// Generate asks the model to answer prompt after system and history. When
// streaming is enabled and sink is non-nil, fragments are delivered to sink
// while the full answer is still returned.
func (g *Generator) Generate(ctx context.Context, system string, history []domain.Turn, prompt string, sink Sink) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	messages := make([]llms.MessageContent, 0, len(history)+2)
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	for _, t := range history {
		role := llms.ChatMessageTypeHuman
		if t.Role == domain.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, t.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	opts := []llms.CallOption{llms.WithTemperature(g.cfg.Temp())}
	if g.cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.cfg.MaxTokens))
	}
	if g.cfg.Stream && sink != nil {
		opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return sink(ctx, string(chunk))
		}))
	}

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		g.log.Warn("generation failed", zap.String("model", g.cfg.Model), zap.Error(err))
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response choices")
	}
	g.log.Debug("generation complete",
		zap.String("model", g.cfg.Model),
		zap.Int("history", len(history)),
		zap.Duration("took", time.Since(start)))
	return resp.Choices[0].Content, nil
}
