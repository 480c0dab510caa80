package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	BackendLocal  = "local"
	BackendQdrant = "qdrant"

	// FileEnv names an optional YAML file with the same keys as the
	// environment. Environment values win over file values.
	FileEnv = "DOCCHAT_CONFIG_FILE"
)

type Config struct {
	APIPort  string
	LogLevel string

	LLMProvider       string
	LLMAPIKey         string
	LLMBaseURL        string
	LLMChatModel      string
	LLMEmbedModel     string
	LLMTimeoutSeconds int
	EmbedBatchSize    int

	VectorBackend          string
	IndexRoot              string
	QdrantURL              string
	QdrantCollectionPrefix string

	ChunkSize     int
	ChunkOverlap  int
	RetrieverTopK int

	MaxUploadMB       int
	SessionTTLMinutes int
	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int
	APIQueueWaitMS    int

	BreakerEnabled bool

	PostgresDSN string
	NATSURL     string
	NATSSubject string
}

// HasCredential reports whether the provider credential is present. Ollama
// runs without one.
func (c Config) HasCredential() bool {
	if c.LLMProvider == ProviderOllama {
		return true
	}
	return strings.TrimSpace(c.LLMAPIKey) != ""
}

func Load() (Config, error) {
	src, err := newSource(os.Getenv(FileEnv))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIPort:  src.mustEnv("API_PORT", "8080"),
		LogLevel: src.mustEnv("LOG_LEVEL", "info"),

		LLMProvider:       strings.ToLower(src.mustEnv("LLM_PROVIDER", ProviderOpenAI)),
		LLMAPIKey:         src.mustEnv("LLM_API_KEY", src.mustEnv("GOOGLE_API_KEY", "")),
		LLMBaseURL:        src.mustEnv("LLM_BASE_URL", ""),
		LLMChatModel:      src.mustEnv("LLM_CHAT_MODEL", ""),
		LLMEmbedModel:     src.mustEnv("LLM_EMBED_MODEL", ""),
		LLMTimeoutSeconds: src.mustEnvInt("LLM_TIMEOUT_SECONDS", 120),
		EmbedBatchSize:    src.mustEnvInt("EMBED_BATCH_SIZE", 100),

		VectorBackend:          strings.ToLower(src.mustEnv("VECTOR_BACKEND", BackendLocal)),
		IndexRoot:              src.mustEnv("INDEX_ROOT", "vectordbs"),
		QdrantURL:              src.mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollectionPrefix: src.mustEnv("QDRANT_COLLECTION_PREFIX", "docchat_"),

		ChunkSize:     src.mustEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:  src.mustEnvInt("CHUNK_OVERLAP", 200),
		RetrieverTopK: src.mustEnvInt("RETRIEVER_TOP_K", 4),

		MaxUploadMB:       src.mustEnvInt("MAX_UPLOAD_MB", 50),
		SessionTTLMinutes: src.mustEnvInt("SESSION_TTL_MINUTES", 60),
		APIRateLimitRPS:   src.mustEnvFloat("API_RATE_LIMIT_RPS", 10),
		APIRateLimitBurst: src.mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIMaxInFlight:    src.mustEnvInt("API_MAX_IN_FLIGHT", 32),
		APIQueueWaitMS:    src.mustEnvInt("API_QUEUE_WAIT_MS", 2000),

		BreakerEnabled: src.mustEnvBool("BREAKER_ENABLED", true),

		PostgresDSN: src.mustEnv("POSTGRES_DSN", ""),
		NATSURL:     src.mustEnv("NATS_URL", ""),
		NATSSubject: src.mustEnv("NATS_SUBJECT", "docchat.index.created"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderOllama, c.LLMProvider))
	}
	switch c.VectorBackend {
	case BackendLocal, BackendQdrant:
	default:
		errs = append(errs, fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", BackendLocal, BackendQdrant, c.VectorBackend))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive"))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)"))
	}
	if c.RetrieverTopK <= 0 {
		errs = append(errs, fmt.Errorf("RETRIEVER_TOP_K must be positive"))
	}
	if len(errs) > 0 {
		return domain.WrapError(domain.ErrConfiguration, "validate config", errors.Join(errs...))
	}
	return nil
}

// source resolves a key from the environment, then the config file, then
// the fallback.
type source struct {
	file map[string]string
}

func newSource(path string) (source, error) {
	if strings.TrimSpace(path) == "" {
		return source{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return source{}, domain.WrapError(domain.ErrConfiguration, "read config file", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return source{}, domain.WrapError(domain.ErrConfiguration, "parse config file", err)
	}
	file := make(map[string]string, len(values))
	for k, v := range values {
		if v == nil {
			continue
		}
		file[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return source{file: file}, nil
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) mustEnv(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) mustEnvInt(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvFloat(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func (s source) mustEnvBool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
