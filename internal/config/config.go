package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP listener settings. The shared-secret token
// is read from the environment, never from the file.
type ServerConfig struct {
	Listen      string `yaml:"listen"`
	APITokenEnv string `yaml:"api_token_env"`
}

// GeminiConfig configures the embedding and generation models.
type GeminiConfig struct {
	APIKeyEnv       string `yaml:"api_key_env"`
	EmbeddingModel  string `yaml:"embedding_model"`
	GenerationModel string `yaml:"generation_model"`
}

// PineconeConfig contains connection details for a Pinecone index.
type PineconeConfig struct {
	Host        string `yaml:"host"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Namespace   string `yaml:"namespace"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LocalStoreConfig configures the embedded store. An empty path keeps
// everything in memory.
type LocalStoreConfig struct {
	Path string `yaml:"path"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	Type     string            `yaml:"type"`
	Pinecone *PineconeConfig   `yaml:"pinecone,omitempty"`
	Local    *LocalStoreConfig `yaml:"local,omitempty"`
}

// ChunkerConfig configures how extracted text is windowed.
type ChunkerConfig struct {
	MaxChunkLen int `yaml:"max_chunk_len"`
}

// AskConfig configures retrieval.
type AskConfig struct {
	TopK int `yaml:"top_k"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Ask         AskConfig         `yaml:"ask"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
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
	cfg := defaultConfig()
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

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Server:      ServerConfig{Listen: ":8080", APITokenEnv: "DOCCHAT_API_TOKEN"},
		Gemini:      GeminiConfig{APIKeyEnv: "GEMINI_API_KEY"},
		VectorStore: VectorStoreConfig{Type: "local", Local: &LocalStoreConfig{}},
		Chunker:     ChunkerConfig{MaxChunkLen: 1000},
		Ask:         AskConfig{TopK: 4},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.APITokenEnv == "" {
		cfg.Server.APITokenEnv = "DOCCHAT_API_TOKEN"
	}
	if cfg.Gemini.APIKeyEnv == "" {
		cfg.Gemini.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Chunker.MaxChunkLen == 0 {
		cfg.Chunker.MaxChunkLen = 1000
	}
	if cfg.Ask.TopK == 0 {
		cfg.Ask.TopK = 4
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "local"
	}
	if cfg.VectorStore.Type == "local" && cfg.VectorStore.Local == nil {
		cfg.VectorStore.Local = &LocalStoreConfig{}
	}
	if cfg.VectorStore.Type == "pinecone" && cfg.VectorStore.Pinecone != nil {
		if cfg.VectorStore.Pinecone.APIKeyEnv == "" {
			cfg.VectorStore.Pinecone.APIKeyEnv = "PINECONE_API_KEY"
		}
		if cfg.VectorStore.Pinecone.TimeoutSecs == 0 {
			cfg.VectorStore.Pinecone.TimeoutSecs = 30
		}
	}
}
