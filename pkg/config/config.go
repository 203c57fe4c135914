// Package config loads the autoprompt configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/germanamz/autoprompt/pkg/logging"
	"github.com/germanamz/autoprompt/pkg/providers/ollama"
	"github.com/germanamz/autoprompt/pkg/session"
)

// HostEnv overrides Ollama.BaseURL when set.
const HostEnv = "OLLAMA_HOST"

// Config is the top-level configuration.
type Config struct {
	Ollama       OllamaConfig  `yaml:"ollama"`
	Model        string        `yaml:"model"`
	Temperature  float64       `yaml:"temperature"`
	MaxTokens    int           `yaml:"max_tokens"`
	ShowThinking bool          `yaml:"show_thinking"`
	Catalog      string        `yaml:"catalog"` // Prompt catalog loaded at start (optional).
	History      HistoryConfig `yaml:"history"`
	LogLevel     string        `yaml:"log_level"` // debug, info, warn, error or off.
	LogFile      string        `yaml:"log_file"`
	Markdown     bool          `yaml:"markdown"` // Render final answers as markdown.
}

// OllamaConfig holds the model server settings.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
}

// HistoryConfig holds the message history settings.
type HistoryConfig struct {
	Path string `yaml:"path"` // SQLite database file.
}

// Default returns the configuration used when no file is present.
func Default() Config {
	s := session.DefaultSettings("")

	return Config{
		Ollama:       OllamaConfig{BaseURL: ollama.DefaultBaseURL},
		Model:        s.Model,
		Temperature:  s.Temperature,
		MaxTokens:    s.MaxTokens,
		ShowThinking: s.ShowThinking,
		History:      HistoryConfig{Path: "chat_history.db"},
		LogLevel:     "info",
		LogFile:      "autoprompt.log",
	}
}

// Load reads a YAML file over Default. Environment variables referenced as
// ${VAR} or $VAR are expanded before parsing, so the file can pick up values
// from a .env file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("config: load: %w", err)
	}

	return Parse(os.ExpandEnv(string(data)))
}

// LoadOptional is Load, but a missing file yields Default.
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes an already expanded YAML document over Default.
func Parse(doc string) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if host := strings.TrimSpace(os.Getenv(HostEnv)); host != "" {
		c.Ollama.BaseURL = host
	}
}

// Settings converts the model fields into session settings.
func (c Config) Settings(sessionID string) session.Settings {
	return session.Settings{
		SessionID:    sessionID,
		Model:        c.Model,
		Temperature:  c.Temperature,
		MaxTokens:    c.MaxTokens,
		ShowThinking: c.ShowThinking,
	}
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("config: model is required")
	}
	if !(c.Temperature > 0 && c.Temperature <= session.MaxTemperature) {
		return fmt.Errorf("config: temperature %v out of range (0, %v]", c.Temperature, session.MaxTemperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("config: max_tokens must be positive, got %d", c.MaxTokens)
	}
	if strings.TrimSpace(c.History.Path) == "" {
		return fmt.Errorf("config: history.path is required")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
