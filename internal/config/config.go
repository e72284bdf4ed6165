package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI      = "openai"
	ProviderOllama      = "ollama"
	ProviderGoogleAI    = "googleai"
	ProviderHuggingface = "huggingface"
	ProviderHashing     = "hashing"

	BackendMemory   = "memory"
	BackendPgvector = "pgvector"

	SplitterWindow    = "window"
	SplitterRecursive = "recursive"

	TTSOpenAI = "openai"
	TTSEdge   = "edge"
)

type Config struct {
	LogLevel   string           `yaml:"log_level"`
	LLM        LLMConfig        `yaml:"llm"`
	EmbedLLM   LLMConfig        `yaml:"embed_llm"`
	RAG        RAGConfig        `yaml:"rag"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Database   DatabaseConfig   `yaml:"database"`
	Speech     SpeechConfig     `yaml:"speech"`
	Vision     VisionConfig     `yaml:"vision"`
	Server     ServerConfig     `yaml:"server"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	KeyEnv      string  `yaml:"key_env"`
	Temperature float64 `yaml:"temperature"`
	// Dimension is only read by the hashing embedder.
	Dimension int `yaml:"dimension"`

	Key string `yaml:"-"`
}

type RAGConfig struct {
	Splitter     string        `yaml:"splitter"`
	ChunkSize    int           `yaml:"chunk_size"`
	ChunkOverlap int           `yaml:"chunk_overlap"`
	TopK         int           `yaml:"top_k"`
	Backend      string        `yaml:"backend"`
	StreamDelay  time.Duration `yaml:"stream_delay"`
}

type SummarizerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
	Debug  bool   `yaml:"debug"`
}

type SpeechConfig struct {
	BaseURL            string `yaml:"base_url"`
	KeyEnv             string `yaml:"key_env"`
	TranscriptionModel string `yaml:"transcription_model"`
	Language           string `yaml:"language"`
	TTSProvider        string `yaml:"tts_provider"`
	TTSModel           string `yaml:"tts_model"`
	Voice              string `yaml:"voice"`
	EdgeVoice          string `yaml:"edge_voice"`
	ClipDir            string `yaml:"clip_dir"`

	Key string `yaml:"-"`
}

type VisionConfig struct {
	BaseURL   string `yaml:"base_url"`
	KeyEnv    string `yaml:"key_env"`
	Model     string `yaml:"model"`
	Prompt    string `yaml:"prompt"`
	MaxTokens int    `yaml:"max_tokens"`

	Key string `yaml:"-"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
	MaxUploadMB int64    `yaml:"max_upload_mb"`
}

// unsetOverlap marks a chunk_overlap the file left out, so an explicit 0
// survives defaulting.
const unsetOverlap = -1

func newConfig() Config {
	return Config{
		RAG:        RAGConfig{ChunkOverlap: unsetOverlap},
		Summarizer: SummarizerConfig{ChunkOverlap: unsetOverlap},
	}
}

// LoadConfig reads the YAML file at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := newConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	cfg.resolveKeys()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated config with every default applied.
func Default() *Config {
	cfg := newConfig()
	cfg.applyDefaults()
	cfg.resolveKeys()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "debug"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModel(c.LLM.Provider)
	}
	if c.LLM.KeyEnv == "" {
		c.LLM.KeyEnv = defaultKeyEnv(c.LLM.Provider)
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.1
	}

	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = ProviderOpenAI
	}
	if c.EmbedLLM.Model == "" && c.EmbedLLM.Provider == ProviderOpenAI {
		c.EmbedLLM.Model = "text-embedding-3-small"
	}
	if c.EmbedLLM.KeyEnv == "" {
		c.EmbedLLM.KeyEnv = defaultKeyEnv(c.EmbedLLM.Provider)
	}
	if c.EmbedLLM.Dimension == 0 {
		c.EmbedLLM.Dimension = 256
	}

	if c.RAG.Splitter == "" {
		c.RAG.Splitter = SplitterWindow
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = 1000
	}
	if c.RAG.ChunkOverlap == unsetOverlap {
		c.RAG.ChunkOverlap = defaultOverlap(c.RAG.ChunkSize, 100)
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 6
	}
	if c.RAG.Backend == "" {
		c.RAG.Backend = BackendMemory
	}
	if c.RAG.StreamDelay == 0 {
		c.RAG.StreamDelay = 100 * time.Millisecond
	}

	if c.Summarizer.ChunkSize == 0 {
		c.Summarizer.ChunkSize = 4000
	}
	if c.Summarizer.ChunkOverlap == unsetOverlap {
		c.Summarizer.ChunkOverlap = defaultOverlap(c.Summarizer.ChunkSize, 200)
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "pgdriver"
	}

	if c.Speech.KeyEnv == "" {
		c.Speech.KeyEnv = "OPENAI_API_KEY"
	}
	if c.Speech.TranscriptionModel == "" {
		c.Speech.TranscriptionModel = "whisper-1"
	}
	if c.Speech.Language == "" {
		c.Speech.Language = "en"
	}
	if c.Speech.TTSProvider == "" {
		c.Speech.TTSProvider = TTSOpenAI
	}
	if c.Speech.EdgeVoice == "" {
		c.Speech.EdgeVoice = "en-US-AriaNeural"
	}
	if c.Speech.TTSModel == "" {
		c.Speech.TTSModel = "tts-1"
	}
	if c.Speech.Voice == "" {
		c.Speech.Voice = "alloy"
	}
	if c.Speech.ClipDir == "" {
		c.Speech.ClipDir = os.TempDir()
	}

	if c.Vision.KeyEnv == "" {
		c.Vision.KeyEnv = "OPENAI_API_KEY"
	}
	if c.Vision.Model == "" {
		c.Vision.Model = "gpt-4o-mini"
	}
	if c.Vision.Prompt == "" {
		c.Vision.Prompt = "Write a short caption for this image."
	}
	if c.Vision.MaxTokens == 0 {
		c.Vision.MaxTokens = 60
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 32
	}
}

// defaultOverlap keeps small chunks without overlap.
func defaultOverlap(size, overlap int) int {
	if size > overlap {
		return overlap
	}
	return 0
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderOllama:
		return "llama3.2"
	case ProviderGoogleAI:
		return "gemini-1.5-flash"
	default:
		return "gpt-4o-mini"
	}
}

func defaultKeyEnv(provider string) string {
	switch provider {
	case ProviderGoogleAI:
		return "GOOGLE_API_KEY"
	case ProviderHuggingface:
		return "HUGGINGFACEHUB_API_TOKEN"
	default:
		return "OPENAI_API_KEY"
	}
}

func (c *Config) resolveKeys() {
	c.LLM.Key = os.Getenv(c.LLM.KeyEnv)
	c.EmbedLLM.Key = os.Getenv(c.EmbedLLM.KeyEnv)
	c.Speech.Key = os.Getenv(c.Speech.KeyEnv)
	c.Vision.Key = os.Getenv(c.Vision.KeyEnv)
}

func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, %d), got %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.Summarizer.ChunkOverlap < 0 || c.Summarizer.ChunkOverlap >= c.Summarizer.ChunkSize {
		return fmt.Errorf("summarizer.chunk_overlap must be in [0, %d), got %d", c.Summarizer.ChunkSize, c.Summarizer.ChunkOverlap)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK)
	}
	if c.RAG.StreamDelay < 0 {
		return fmt.Errorf("rag.stream_delay must not be negative")
	}
	switch c.RAG.Splitter {
	case SplitterWindow, SplitterRecursive:
	default:
		return fmt.Errorf("unknown rag.splitter %q", c.RAG.Splitter)
	}
	switch c.RAG.Backend {
	case BackendMemory:
	case BackendPgvector:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the pgvector backend")
		}
	default:
		return fmt.Errorf("unknown rag.backend %q", c.RAG.Backend)
	}
	switch c.Speech.TTSProvider {
	case TTSOpenAI, TTSEdge:
	default:
		return fmt.Errorf("unknown speech.tts_provider %q", c.Speech.TTSProvider)
	}
	switch c.Database.Driver {
	case "pgdriver", "pq":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	return nil
}

// RequireKey fails when the provider needs an API key and none was found.
func (c *LLMConfig) RequireKey() error {
	switch c.Provider {
	case ProviderOllama, ProviderHashing:
		return nil
	}
	if c.Key == "" {
		return fmt.Errorf("missing API key for provider %s: set %s", c.Provider, c.KeyEnv)
	}
	return nil
}

func (c *SpeechConfig) RequireKey() error {
	if c.Key == "" {
		return fmt.Errorf("missing API key for speech: set %s", c.KeyEnv)
	}
	return nil
}

func (c *VisionConfig) RequireKey() error {
	if c.Key == "" {
		return fmt.Errorf("missing API key for vision: set %s", c.KeyEnv)
	}
	return nil
}
