package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// KnownProviders lists the provider names accepted in providers.order.
var KnownProviders = []string{"groq", "deepseek", "gemini", "openai", "ollama", "placeholder"}

type ProviderConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level string `yaml:"level"`
		Mode  string `yaml:"mode"`
	} `yaml:"log"`
	Auth struct {
		SigningKey string `yaml:"signing_key"`
		Issuer     string `yaml:"issuer"`
		Audience   string `yaml:"audience"`
	} `yaml:"auth"`
	Providers struct {
		Order        []string       `yaml:"order"`
		ProbeTimeout time.Duration  `yaml:"probe_timeout"`
		Groq         ProviderConfig `yaml:"groq"`
		DeepSeek     ProviderConfig `yaml:"deepseek"`
		Gemini       ProviderConfig `yaml:"gemini"`
		OpenAI       ProviderConfig `yaml:"openai"`
		Ollama       ProviderConfig `yaml:"ollama"`
		Placeholder  struct {
			Enabled bool `yaml:"enabled"`
		} `yaml:"placeholder"`
	} `yaml:"providers"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"redis"`
	Qdrant struct {
		URL        string `yaml:"url"`
		Collection string `yaml:"collection"`
	} `yaml:"qdrant"`
	Embedding struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		Dim      int    `yaml:"dim"`
	} `yaml:"embedding"`
	Chunking struct {
		Size    int `yaml:"size"`
		Overlap int `yaml:"overlap"`
	} `yaml:"chunking"`
	Retrieval struct {
		LessonResults int `yaml:"lesson_results"`
		MinChunkChars int `yaml:"min_chunk_chars"`
	} `yaml:"retrieval"`
}

func Default() Config {
	var cfg Config
	cfg.HTTP.Addr = ":8090"
	cfg.Log.Level = "info"
	cfg.Log.Mode = "dev"
	cfg.Providers.Order = []string{"groq", "deepseek", "gemini", "openai", "ollama"}
	cfg.Providers.ProbeTimeout = 5 * time.Second
	cfg.Providers.Groq.Timeout = 60 * time.Second
	cfg.Providers.DeepSeek.Timeout = 60 * time.Second
	cfg.Providers.Gemini.Timeout = 60 * time.Second
	cfg.Providers.OpenAI.Timeout = 60 * time.Second
	cfg.Providers.Ollama.BaseURL = "http://localhost:11434"
	cfg.Providers.Ollama.Timeout = 120 * time.Second
	cfg.Redis.Queue = "coursegen:index"
	cfg.Qdrant.Collection = "course_chunks"
	cfg.Embedding.Provider = "noop"
	cfg.Embedding.Dim = 768
	cfg.Chunking.Size = 1000
	cfg.Chunking.Overlap = 200
	cfg.Retrieval.LessonResults = 10
	cfg.Retrieval.MinChunkChars = 50
	return cfg
}

// Load reads the yaml file at path (a missing file is not an error) over
// Default, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.Providers.Order) == 0 {
		return errors.New("missing providers.order (or CG_PROVIDERS_ORDER)")
	}
	seen := make(map[string]bool, len(c.Providers.Order))
	for _, name := range c.Providers.Order {
		if !known(name) {
			return fmt.Errorf("unknown provider %q in providers.order", name)
		}
		if seen[name] {
			return fmt.Errorf("provider %q listed twice in providers.order", name)
		}
		seen[name] = true
	}
	if c.Chunking.Size <= 0 {
		return errors.New("chunking.size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return errors.New("chunking.overlap must be in [0, chunking.size)")
	}
	return nil
}

func known(name string) bool {
	for _, k := range KnownProviders {
		if k == name {
			return true
		}
	}
	return false
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CG_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("CG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CG_LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}
	if v := os.Getenv("CG_AUTH_SIGNING_KEY"); v != "" {
		cfg.Auth.SigningKey = v
	}
	if v := os.Getenv("CG_AUTH_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
	if v := os.Getenv("CG_AUTH_AUDIENCE"); v != "" {
		cfg.Auth.Audience = v
	}
	if v := os.Getenv("CG_PROVIDERS_ORDER"); v != "" {
		cfg.Providers.Order = splitCSV(strings.ToLower(v))
	}
	if v := os.Getenv("CG_PROBE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Providers.ProbeTimeout = d
		}
	}
	applyProviderEnv(&cfg.Providers.Groq, "GROQ", "GROQ_API_KEY")
	applyProviderEnv(&cfg.Providers.DeepSeek, "DEEPSEEK", "DEEPSEEK_API_KEY")
	applyProviderEnv(&cfg.Providers.Gemini, "GEMINI", "GOOGLE_API_KEY")
	applyProviderEnv(&cfg.Providers.OpenAI, "OPENAI", "OPENAI_API_KEY")
	applyProviderEnv(&cfg.Providers.Ollama, "OLLAMA", "")
	if v := os.Getenv("CG_OLLAMA_URL"); v != "" {
		cfg.Providers.Ollama.BaseURL = v
	}
	if v := os.Getenv("CG_PLACEHOLDER_ENABLED"); v != "" {
		cfg.Providers.Placeholder.Enabled = parseBool(v, cfg.Providers.Placeholder.Enabled)
	}
	if v := os.Getenv("CG_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("CG_REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("CG_REDIS_QUEUE"); v != "" {
		cfg.Redis.Queue = v
	}
	if v := os.Getenv("CG_QDRANT_URL"); v != "" {
		cfg.Qdrant.URL = v
	}
	if v := os.Getenv("CG_QDRANT_COLLECTION"); v != "" {
		cfg.Qdrant.Collection = v
	}
	if v := os.Getenv("CG_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("CG_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	setInt(&cfg.Embedding.Dim, "CG_EMBED_DIM")
	setInt(&cfg.Chunking.Size, "CG_CHUNK_SIZE")
	setInt(&cfg.Chunking.Overlap, "CG_CHUNK_OVERLAP")
	setInt(&cfg.Retrieval.LessonResults, "CG_LESSON_RESULTS")
	setInt(&cfg.Retrieval.MinChunkChars, "CG_MIN_CHUNK_CHARS")
}

// applyProviderEnv reads CG_<PREFIX>_* and, for the key, the service's
// conventional variable when the CG_ one is unset.
func applyProviderEnv(pc *ProviderConfig, prefix string, plainKey string) {
	if v := os.Getenv("CG_" + prefix + "_API_KEY"); v != "" {
		pc.APIKey = v
	} else if plainKey != "" {
		if v := os.Getenv(plainKey); v != "" {
			pc.APIKey = v
		}
	}
	if v := os.Getenv("CG_" + prefix + "_MODEL"); v != "" {
		pc.Model = v
	}
	if v := os.Getenv("CG_" + prefix + "_BASE_URL"); v != "" {
		pc.BaseURL = v
	}
	if v := os.Getenv("CG_" + prefix + "_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			pc.Timeout = d
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func parseBool(input string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		val := strings.TrimSpace(part)
		if val == "" {
			continue
		}
		out = append(out, val)
	}
	return out
}
