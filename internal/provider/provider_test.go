package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"docchat/internal/config"
	"docchat/internal/domain"
)

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	chunks   []string
	answer   string
	err      error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.opts.StreamingFunc != nil {
		for _, c := range f.chunks {
			if err := f.opts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.answer}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func text(m llms.MessageContent) string {
	return m.Parts[0].(llms.TextContent).Text
}

func TestGenerateBuildsConversation(t *testing.T) {
	fm := &fakeModel{answer: "Seventeen."}
	g := NewGenerator(fm, config.GenerationConfig{Model: "m", MaxTokens: 250, Temperature: config.Float(0.5)}, 0, zap.NewNop())

	history := []domain.Turn{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
	}
	got, err := g.Generate(context.Background(), "be brief", history, "which title?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Seventeen.", got)

	require.Len(t, fm.messages, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, fm.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, fm.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, fm.messages[2].Role)
	assert.Equal(t, "which title?", text(fm.messages[3]))
	assert.Equal(t, 250, fm.opts.MaxTokens)
	assert.InDelta(t, 0.5, fm.opts.Temperature, 1e-9)
	assert.Nil(t, fm.opts.StreamingFunc)
}

func TestGenerateStreamsToSink(t *testing.T) {
	fm := &fakeModel{chunks: []string{"Sev", "enteen."}, answer: "Seventeen."}
	g := NewGenerator(fm, config.GenerationConfig{Model: "m", Stream: true}, time.Minute, zap.NewNop())

	var got []string
	answer, err := g.Generate(context.Background(), "", nil, "q", func(_ context.Context, c string) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Seventeen.", answer)
	assert.Equal(t, []string{"Sev", "enteen."}, got)
	require.Len(t, fm.messages, 1, "no system message when empty")
	assert.Zero(t, fm.opts.MaxTokens)
}

func TestGenerateError(t *testing.T) {
	boom := errors.New("boom")
	g := NewGenerator(&fakeModel{err: boom}, config.GenerationConfig{Model: "m"}, 0, zap.NewNop())
	_, err := g.Generate(context.Background(), "", nil, "q", nil)
	assert.ErrorIs(t, err, boom)
}

func TestNewRequiresProvider(t *testing.T) {
	_, err := New(context.Background(), nil, 0, zap.NewNop())
	assert.Error(t, err)
}

func TestNewLocal(t *testing.T) {
	u, _ := url.Parse("http://localhost:11434")
	p, err := New(context.Background(), config.LocalProvider{
		BaseURL:    u,
		Generation: config.GenerationConfig{Model: "llama3.2:latest"},
	}, 8, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, config.VariantLocal, p.Name)
	assert.NotNil(t, p.Generator)
	assert.NotNil(t, p.Embedder)
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:latest","model":"llama3.2:latest"}]}`))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)

	require.NoError(t, Probe(context.Background(), u, "llama3.2:latest"))
	require.NoError(t, Probe(context.Background(), u, "llama3.2"))
	assert.ErrorContains(t, Probe(context.Background(), u, "mistral"), "ollama pull mistral")
}

func TestProbeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u, _ := url.Parse(srv.URL)
	srv.Close()
	assert.ErrorContains(t, Probe(context.Background(), u, "m"), "not reachable")
}
