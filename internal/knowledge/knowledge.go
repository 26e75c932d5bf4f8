// Package knowledge is the knowledge base a chat session talks to: it ingests
// documents into a vector store and answers prompts grounded in them.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap"

	"docchat/internal/domain"
	"docchat/internal/provider"
	"docchat/internal/summarizer"
)

// ErrEmptyPrompt is returned by Chat for blank prompts.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Base is the capability a session needs: ingest a source and answer a prompt.
type Base interface {
	Add(ctx context.Context, source string, kind domain.Kind, opts ...AddOption) (Report, error)
	Chat(ctx context.Context, prompt string, opts ...ChatOption) (string, error)
	Close() error
}

// Loader turns a path or URL into a document.
type Loader interface {
	Load(ctx context.Context, source string, kind domain.Kind) (domain.Document, error)
}

// Generator produces an answer for a prompt given a system message and history.
type Generator interface {
	Generate(ctx context.Context, system string, history []domain.Turn, prompt string, sink provider.Sink) (string, error)
}

// Deps are the collaborators of a Client.
type Deps struct {
	Loader     Loader
	Chunker    domain.Chunker
	Embedder   embeddings.Embedder
	Store      domain.VectorStore
	Summarizer summarizer.Summarizer
	Generator  Generator
	Log        *zap.Logger
}

// Options tune retrieval and reporting.
type Options struct {
	TopK             int
	HistoryTurns     int
	SummarySentences int
}

// Report describes the outcome of Add.
type Report struct {
	DocumentID string
	Source     string
	Chunks     int
	Gist       string
	// Skipped is set when the document was already indexed.
	Skipped bool
}

// Client implements Base over a vector store and a chat model.
type Client struct {
	deps Deps
	opts Options
}

var _ Base = (*Client)(nil)

func New(deps Deps, opts Options) *Client {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.HistoryTurns < 0 {
		opts.HistoryTurns = 0
	}
	if deps.Summarizer == nil {
		deps.Summarizer = summarizer.Nop{}
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Client{deps: deps, opts: opts}
}

type addOptions struct {
	name string
}

// AddOption customizes a single Add call.
type AddOption func(*addOptions)

// WithDisplayName records name as the chunk source instead of the path,
// which for uploads is a throwaway temp file.
func WithDisplayName(name string) AddOption {
	return func(o *addOptions) { o.name = name }
}

// Add loads, chunks, embeds and stores source. The steps are not
// transactional; a failure part way may leave chunks behind.
func (c *Client) Add(ctx context.Context, source string, kind domain.Kind, opts ...AddOption) (Report, error) {
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}
	log := c.deps.Log.With(zap.String("source", source), zap.String("kind", string(kind)))
	start := time.Now()

	doc, err := c.deps.Loader.Load(ctx, source, kind)
	if err != nil {
		return Report{}, err
	}
	if o.name != "" {
		doc.Source = o.name
	}
	report := Report{DocumentID: doc.ID, Source: doc.Source}

	exists, err := c.deps.Store.HasDocument(ctx, doc.ID)
	if err != nil {
		return Report{}, fmt.Errorf("lookup document: %w", err)
	}
	if exists {
		log.Info("document already indexed", zap.String("document_id", doc.ID))
		report.Skipped = true
		return report, nil
	}

	chunks, err := c.deps.Chunker.Chunk(doc)
	if err != nil {
		return Report{}, fmt.Errorf("chunk: %w", err)
	}
	if len(chunks) == 0 {
		return Report{}, errors.New("document produced no chunks")
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := c.deps.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return Report{}, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(chunks) || len(vectors[0]) == 0 {
		return Report{}, fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	if err := c.deps.Store.Init(ctx, len(vectors[0])); err != nil {
		return Report{}, fmt.Errorf("init store: %w", err)
	}
	if err := c.deps.Store.Upsert(ctx, chunks, vectors); err != nil {
		return Report{}, fmt.Errorf("store: %w", err)
	}
	report.Chunks = len(chunks)

	gist, err := c.deps.Summarizer.Summarize(doc.Content, c.opts.SummarySentences)
	if err != nil {
		log.Warn("summarize failed", zap.Error(err))
	}
	report.Gist = gist

	log.Info("document indexed",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)),
		zap.Duration("took", time.Since(start)))
	return report, nil
}

type chatOptions struct {
	history []domain.Turn
	sink    provider.Sink
}

// ChatOption customizes a single Chat call.
type ChatOption func(*chatOptions)

// WithHistory passes earlier turns of the conversation; only the most recent
// ones are sent to the model.
func WithHistory(turns []domain.Turn) ChatOption {
	return func(o *chatOptions) { o.history = turns }
}

// WithSink streams answer fragments to sink when the model streams.
func WithSink(sink provider.Sink) ChatOption {
	return func(o *chatOptions) { o.sink = sink }
}

// Chat answers prompt using the passages closest to it.
func (c *Client) Chat(ctx context.Context, prompt string, opts ...ChatOption) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	var o chatOptions
	for _, opt := range opts {
		opt(&o)
	}

	qv, err := c.deps.Embedder.EmbedQuery(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	results, err := c.deps.Store.Search(ctx, qv, c.opts.TopK)
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	c.deps.Log.Debug("retrieved context", zap.Int("passages", len(results)))

	history := o.history
	if n := c.opts.HistoryTurns; len(history) > n {
		history = history[len(history)-n:]
	}
	return c.deps.Generator.Generate(ctx, SystemPrompt(results), history, prompt, o.sink)
}

func (c *Client) Close() error { return c.deps.Store.Close() }
