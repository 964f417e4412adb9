// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Chat   ChatConfig   `toml:"chat"`
	Quiz   QuizConfig   `toml:"quiz"`
	Ollama OllamaConfig `toml:"ollama"`
}

// ChatConfig maps chat-related settings.
type ChatConfig struct {
	Model   *string `toml:"model"`
	Session *string `toml:"session"`
	Student *string `toml:"student"`
}

// QuizConfig maps quiz-related settings.
type QuizConfig struct {
	Subject    *string `toml:"subject"`
	Difficulty *string `toml:"difficulty"`
}

// OllamaConfig maps inference-server settings.
type OllamaConfig struct {
	BaseURL        *string `toml:"base-url"`
	TimeoutSeconds *int    `toml:"timeout-seconds"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
