// Package config loads the story-history configuration: built-in defaults,
// then an optional YAML file, then STORY_HISTORY_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/story-history/internal/history"
	"github.com/rcliao/story-history/internal/summarizer"
)

// EnvPrefix prefixes every environment override, e.g. STORY_HISTORY_DB_PATH.
const EnvPrefix = "STORY_HISTORY"

type ArchiveConfig struct {
	Threshold         int    `yaml:"threshold" split_words:"true"`
	Method            string `yaml:"method" split_words:"true"`
	PreviousSummaries int    `yaml:"previous_summaries" split_words:"true"`
}

type LayeredConfig struct {
	Enabled          bool `yaml:"enabled" split_words:"true"`
	Threshold        int  `yaml:"threshold" split_words:"true"`
	MaxLayers        int  `yaml:"max_layers" split_words:"true"`
	MaxProcessTokens int  `yaml:"max_process_tokens" split_words:"true"`
	AnalyzeChunks    bool `yaml:"analyze_chunks" split_words:"true"`
	ChunkSize        int  `yaml:"chunk_size" split_words:"true"`
	ResponseLength   int  `yaml:"response_length" split_words:"true"`
}

type LLMConfig struct {
	Provider  string `yaml:"provider" split_words:"true"`
	Model     string `yaml:"model" split_words:"true"`
	APIKey    string `yaml:"api_key" split_words:"true"`
	BaseURL   string `yaml:"base_url" split_words:"true"`
	MaxTokens int    `yaml:"max_tokens" split_words:"true"`
}

// Config holds every setting of the tool.
type Config struct {
	Archive ArchiveConfig `yaml:"archive" split_words:"true"`
	Layered LayeredConfig `yaml:"layered" split_words:"true"`
	LLM     LLMConfig     `yaml:"llm" split_words:"true"`

	Tokenizer string `yaml:"tokenizer" split_words:"true"`
	Encoding  string `yaml:"encoding" split_words:"true"`

	DBPath    string `yaml:"db_path" split_words:"true"`
	LogLevel  string `yaml:"log_level" split_words:"true"`
	LogPretty bool   `yaml:"log_pretty" split_words:"true"`
}

// Default returns the built-in configuration.
func Default() Config {
	h := history.DefaultConfig()
	return Config{
		Archive: ArchiveConfig{
			Threshold:         h.ArchiveThreshold,
			Method:            h.ArchiveMethod,
			PreviousSummaries: h.PreviousSummaries,
		},
		Layered: LayeredConfig{
			Enabled:          h.LayeredEnabled,
			Threshold:        h.LayeredThreshold,
			MaxLayers:        h.MaxLayers,
			MaxProcessTokens: h.MaxProcessTokens,
			AnalyzeChunks:    h.AnalyzeChunks,
			ChunkSize:        h.ChunkSize,
			ResponseLength:   h.ResponseLength,
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Tokenizer: "estimate",
		Encoding:  "cl100k_base",
		DBPath:    "story-history.db",
		LogLevel:  "info",
	}
}

// Load builds the configuration. path may be empty; a missing file is only
// an error when path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the history engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Archive.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("archive.threshold must be positive, got %d", c.Archive.Threshold))
	}
	if !validMethod(c.Archive.Method) {
		errs = append(errs, fmt.Errorf("archive.method %q is not one of %v", c.Archive.Method, summarizer.ValidMethods()))
	}
	if c.Archive.PreviousSummaries < 0 {
		errs = append(errs, fmt.Errorf("archive.previous_summaries must not be negative"))
	}
	if c.Layered.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("layered.threshold must be positive, got %d", c.Layered.Threshold))
	}
	if c.Layered.MaxLayers < 1 {
		errs = append(errs, fmt.Errorf("layered.max_layers must be at least 1, got %d", c.Layered.MaxLayers))
	}
	if c.Layered.MaxProcessTokens <= 0 {
		errs = append(errs, fmt.Errorf("layered.max_process_tokens must be positive, got %d", c.Layered.MaxProcessTokens))
	}
	switch c.Tokenizer {
	case "estimate", "words", "tiktoken":
	default:
		errs = append(errs, fmt.Errorf("tokenizer %q is not supported", c.Tokenizer))
	}
	return errors.Join(errs...)
}

func validMethod(m string) bool {
	for _, v := range summarizer.ValidMethods() {
		if v == m {
			return true
		}
	}
	return false
}

// History returns the engine settings.
func (c *Config) History() history.Config {
	return history.Config{
		ArchiveThreshold:  c.Archive.Threshold,
		ArchiveMethod:     c.Archive.Method,
		PreviousSummaries: c.Archive.PreviousSummaries,
		LayeredEnabled:    c.Layered.Enabled,
		LayeredThreshold:  c.Layered.Threshold,
		MaxLayers:         c.Layered.MaxLayers,
		MaxProcessTokens:  c.Layered.MaxProcessTokens,
		AnalyzeChunks:     c.Layered.AnalyzeChunks,
		ChunkSize:         c.Layered.ChunkSize,
		ResponseLength:    c.Layered.ResponseLength,
	}
}
