// Package config loads service configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the whole application configuration. Load returns it as an
// explicit value handed to constructors; there is no global instance.
type Config struct {
	Server      Server      `mapstructure:"server"`
	Index       Index       `mapstructure:"index"`
	Qdrant      Qdrant      `mapstructure:"qdrant"`
	OpenAI      OpenAI      `mapstructure:"openai"`
	Translation Translation `mapstructure:"translation"`
	Chunking    Chunking    `mapstructure:"chunking"`
	Log         Log         `mapstructure:"log"`
}

type Server struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type Index struct {
	// Store selects the index backend: "file" (exact, local artifacts)
	// or "qdrant" (approximate, external).
	Store string `mapstructure:"store"`
	// Dir holds the file store's companion artifacts.
	Dir             string `mapstructure:"dir"`
	TopK            int    `mapstructure:"top_k"`
	MaxContextChars int    `mapstructure:"max_context_chars"`
}

type Qdrant struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

type OpenAI struct {
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url"`
	EmbeddingModel     string        `mapstructure:"embedding_model"`
	EmbeddingDimension int           `mapstructure:"embedding_dimension"`
	ChatModel          string        `mapstructure:"chat_model"`
	EmbedTimeout       time.Duration `mapstructure:"embed_timeout"`
	ChatTimeout        time.Duration `mapstructure:"chat_timeout"`
}

type Translation struct {
	CacheSize int `mapstructure:"cache_size"`
}

type Chunking struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from path. A missing file is not an error:
// defaults plus environment variables (prefix LEGALQA_, dots as
// underscores; OPENAI_API_KEY is also honored directly) still yield a
// usable configuration.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("index.store", "file")
	v.SetDefault("index.dir", "data/vector_store")
	v.SetDefault("index.top_k", 5)
	v.SetDefault("index.max_context_chars", 2048)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "legal_chunks")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.embedding_dimension", 384)
	v.SetDefault("openai.chat_model", "gpt-4o-mini")
	v.SetDefault("openai.embed_timeout", "30s")
	v.SetDefault("openai.chat_timeout", "60s")
	v.SetDefault("translation.cache_size", 1000)
	v.SetDefault("chunking.size", 500)
	v.SetDefault("chunking.overlap", 50)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("LEGALQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("openai.api_key", "LEGALQA_OPENAI_API_KEY", "OPENAI_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
