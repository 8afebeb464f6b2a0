package config

import (
	"errors"
	"strings"
	"time"

	ragerr "github.com/perbu/groundrag/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level groundrag configuration.
type Config struct {
	DocsDir   string          `mapstructure:"docs_dir"`
	Index     IndexConfig     `mapstructure:"index"`
	Chunk     ChunkConfig     `mapstructure:"chunk"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Provider  string          `mapstructure:"provider"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Models    ModelsConfig    `mapstructure:"models"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// IndexConfig locates the persisted vector index and corpus.
type IndexConfig struct {
	Dir string `mapstructure:"dir"`
}

// ChunkConfig controls how documents are split.
type ChunkConfig struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// OpenAIConfig is used for any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// ModelsConfig names the embedding and generation models.
type ModelsConfig struct {
	Embed    string `mapstructure:"embed"`
	Generate string `mapstructure:"generate"`
}

// TimeoutsConfig bounds each external call. A call that times out is not
// retried.
type TimeoutsConfig struct {
	Embed    time.Duration `mapstructure:"embed"`
	Generate time.Duration `mapstructure:"generate"`
}

// CacheConfig sizes the query embedding cache. Size 0 disables it.
type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("docs_dir", "data")
	v.SetDefault("index.dir", "index")
	v.SetDefault("chunk.size", 300)
	v.SetDefault("chunk.overlap", 50)
	v.SetDefault("retrieval.top_k", 4)
	v.SetDefault("provider", "ollama")
	v.SetDefault("ollama.base_url", "http://127.0.0.1:11434")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("models.embed", "nomic-embed-text")
	v.SetDefault("models.generate", "llama3:latest")
	v.SetDefault("timeouts.embed", "60s")
	v.SetDefault("timeouts.generate", "120s")
	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// setupEnv maps GROUNDRAG_* variables onto keys, with "." replaced by "_".
// The OpenAI key also falls back to the conventional OPENAI_API_KEY.
func setupEnv(v *viper.Viper) {
	v.SetEnvPrefix("GROUNDRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("openai.api_key", "GROUNDRAG_OPENAI_API_KEY", "OPENAI_API_KEY")
}

// Load resolves the configuration so that override > env > file > defaults
// holds for every key. A non-empty path must name a readable file. With an
// empty path, groundrag.yaml is looked up in the working directory and then
// in $HOME/.config/groundrag, and a missing file is not an error.
//
// overrides run after the file is read; the CLI uses them to bind flags.
func Load(path string, overrides ...func(*viper.Viper) error) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	setupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, ragerr.Errorf(ragerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	} else {
		// No SetConfigType: with a type set, viper also tries the bare
		// name, which is the groundrag binary itself.
		v.SetConfigName("groundrag")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/groundrag")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, ragerr.Errorf(ragerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
		}
	}

	for _, override := range overrides {
		if err := override(v); err != nil {
			return nil, err
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// Validate returns every problem found rather than stopping at the first.
func (c *Config) Validate() []error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, ragerr.Errorf(ragerr.CodeConfigValidateInvalidValue, "config: "+format, args...))
	}

	if c.DocsDir == "" {
		invalid("docs_dir must not be empty")
	}
	if c.Index.Dir == "" {
		invalid("index.dir must not be empty")
	}
	if c.Chunk.Size <= 0 {
		invalid("chunk.size must be positive, got %d", c.Chunk.Size)
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		invalid("chunk.overlap must be in [0, chunk.size), got %d", c.Chunk.Overlap)
	}
	if c.Retrieval.TopK <= 0 {
		invalid("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}

	switch c.Provider {
	case "ollama":
		if c.Ollama.BaseURL == "" {
			invalid("ollama.base_url must not be empty")
		}
	case "openai":
		if c.OpenAI.APIKey == "" && c.OpenAI.BaseURL == "" {
			invalid("openai.api_key or openai.base_url is required for provider openai")
		}
	default:
		invalid("provider must be one of [ollama, openai], got %q", c.Provider)
	}

	if c.Models.Embed == "" {
		invalid("models.embed must not be empty")
	}
	if c.Models.Generate == "" {
		invalid("models.generate must not be empty")
	}
	if c.Timeouts.Embed <= 0 {
		invalid("timeouts.embed must be positive, got %s", c.Timeouts.Embed)
	}
	if c.Timeouts.Generate <= 0 {
		invalid("timeouts.generate must be positive, got %s", c.Timeouts.Generate)
	}
	if c.Cache.Size < 0 {
		invalid("cache.size must not be negative, got %d", c.Cache.Size)
	}
	if c.Cache.Size > 0 && c.Cache.TTL <= 0 {
		invalid("cache.ttl must be positive when the cache is enabled, got %s", c.Cache.TTL)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		invalid("log.format must be one of [console, json], got %q", c.Log.Format)
	}

	return errs
}
