package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Variant names select a provider preset.
const (
	VariantHosted = "hosted"
	VariantLocal  = "local"
)

// CopyrightLawURL is the document the hosted variant preloads.
const CopyrightLawURL = "https://www.copyright.gov/title17/title17.pdf"

// GenerationConfig holds the knobs passed to the generative model on every call.
type GenerationConfig struct {
	Model       string  `yaml:"model"`
	MaxTokens int `yaml:"max_tokens"`
	// Temperature is a pointer so that an explicit 0 survives defaulting.
	Temperature *float64 `yaml:"temperature,omitempty"`
	Stream      bool     `yaml:"stream"`
}

// Temp returns the sampling temperature, 0 when unset.
func (g GenerationConfig) Temp() float64 {
	if g.Temperature == nil {
		return 0
	}
	return *g.Temperature
}

// Float returns a pointer to v, for literal temperatures.
func Float(v float64) *float64 { return &v }

// HostedConfig configures the Google Gemini provider.
type HostedConfig struct {
	Generation     GenerationConfig `yaml:"generation"`
	EmbeddingModel string           `yaml:"embedding_model"`
	// APIKeyEnv names the environment variable that overrides the secrets file.
	APIKeyEnv string `yaml:"api_key_env"`
	// SecretNamespace and SecretKey locate the key inside the secrets file.
	SecretNamespace string `yaml:"secret_namespace"`
	SecretKey       string `yaml:"secret_key"`
}

// LocalConfig configures a locally served Ollama model.
type LocalConfig struct {
	BaseURL        string           `yaml:"base_url"`
	Generation     GenerationConfig `yaml:"generation"`
	EmbeddingModel string           `yaml:"embedding_model"`
	// TimeoutSecs bounds one chat call. Zero waits for the model indefinitely.
	TimeoutSecs int `yaml:"timeout_secs"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	ChunkSize         int    `yaml:"chunk_size"`
	ChunkOverlap      int    `yaml:"chunk_overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type string `yaml:"type"`
	// Dir is the on-disk location of the sqlite index. Ignored when Ephemeral is set.
	Dir string `yaml:"dir"`
	// Ephemeral stores live in a fresh temp directory removed on close.
	Ephemeral bool          `yaml:"ephemeral"`
	Qdrant    *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
	UseTLS     bool   `yaml:"use_tls"`
}

// RetrievalConfig tunes how answers are grounded.
type RetrievalConfig struct {
	TopK         int `yaml:"top_k"`
	HistoryTurns int `yaml:"history_turns"`
	EmbedBatch   int `yaml:"embed_batch"`
	// FetchTimeout bounds a URL download. Zero means no limit.
	FetchTimeout  int `yaml:"fetch_timeout_secs"`
	MaxFetchBytes int `yaml:"max_fetch_bytes"`
}

// SummarizerConfig configures the gist shown after ingestion.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// PreloadConfig names a document ingested once at session start.
type PreloadConfig struct {
	URL   string `yaml:"url"`
	Kind  string `yaml:"kind"`
	Title string `yaml:"title"`
}

// LogConfig configures the rotating log file.
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Variant     string            `yaml:"variant"`
	Hosted      HostedConfig      `yaml:"hosted"`
	Local       LocalConfig       `yaml:"local"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Preload     PreloadConfig     `yaml:"preload"`
	Log         LogConfig         `yaml:"log"`
	SecretsFile string            `yaml:"secrets_file"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(VariantHosted), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/docchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default(VariantHosted)
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WithVariant switches the config to another variant, resetting the
// variant-dependent store lifecycle and preload to that variant's preset.
func (c *AppConfig) WithVariant(variant string) *AppConfig {
	if variant == "" || variant == c.Variant {
		return c
	}
	out := *c
	preset := Default(variant)
	out.Variant = variant
	out.VectorStore.Ephemeral = preset.VectorStore.Ephemeral
	if out.VectorStore.Dir == "" {
		out.VectorStore.Dir = preset.VectorStore.Dir
	}
	out.Preload = preset.Preload
	return &out
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docchat", "config.yaml"), nil
}

// Default returns the preset for a variant. Unknown variants get the hosted preset
// with the variant name preserved so validation can reject it.
func Default(variant string) *AppConfig {
	cfg := &AppConfig{Variant: variant}
	switch variant {
	case VariantLocal:
		cfg.VectorStore = VectorStoreConfig{Type: "sqlite", Ephemeral: true}
	default:
		cfg.VectorStore = VectorStoreConfig{Type: "sqlite", Dir: "./kb_db"}
		cfg.Preload = PreloadConfig{URL: CopyrightLawURL, Kind: "pdf", Title: "the Copyright Law"}
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Variant == "" {
		cfg.Variant = VariantHosted
	}

	h := &cfg.Hosted
	if h.Generation.Model == "" {
		h.Generation.Model = "gemini-1.5-flash"
	}
	if h.Generation.MaxTokens == 0 {
		h.Generation.MaxTokens = 1000
	}
	if h.Generation.Temperature == nil {
		h.Generation.Temperature = Float(0.5)
	}
	if h.EmbeddingModel == "" {
		h.EmbeddingModel = "text-embedding-004"
	}
	if h.APIKeyEnv == "" {
		h.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if h.SecretNamespace == "" {
		h.SecretNamespace = "google"
	}
	if h.SecretKey == "" {
		h.SecretKey = "api_key"
	}

	l := &cfg.Local
	if l.BaseURL == "" {
		l.BaseURL = "http://localhost:11434"
	}
	if l.Generation.Model == "" {
		l.Generation.Model = "llama3.2:latest"
		// the stock local preset streams
		l.Generation.Stream = true
	}
	if l.Generation.MaxTokens == 0 {
		l.Generation.MaxTokens = 250
	}
	if l.Generation.Temperature == nil {
		l.Generation.Temperature = Float(0.5)
	}
	if l.EmbeddingModel == "" {
		l.EmbeddingModel = l.Generation.Model
	}

	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "recursive"
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 2000
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = 200
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		q := cfg.VectorStore.Qdrant
		if q.Host == "" {
			q.Host = "localhost"
		}
		if q.Port == 0 {
			q.Port = 6334
		}
		if q.Collection == "" {
			q.Collection = "docchat"
		}
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.HistoryTurns == 0 {
		cfg.Retrieval.HistoryTurns = 6
	}
	if cfg.Retrieval.EmbedBatch == 0 {
		cfg.Retrieval.EmbedBatch = 32
	}
	if cfg.Retrieval.MaxFetchBytes == 0 {
		cfg.Retrieval.MaxFetchBytes = 64 << 20
	}

	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 2
	}

	if cfg.Preload.URL != "" && cfg.Preload.Kind == "" {
		cfg.Preload.Kind = "pdf"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}

	if cfg.SecretsFile == "" {
		cfg.SecretsFile = "secrets.yaml"
	}
}
