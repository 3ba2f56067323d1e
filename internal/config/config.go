// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables with the VOXPI_ prefix (runtime override)
//  2. Config file (~/.voxpi/config.yaml, or --config)
//  3. Default values tuned for a Raspberry Pi 5
//
// Validation uses sentinel errors so callers can match with errors.Is().
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidChunking indicates chunk size/overlap are inconsistent.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top-k")

	// ErrInvalidMaxTokens indicates a token limit is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidTemperature indicates the sampling temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidWindow indicates the conversation rolling window is invalid.
	ErrInvalidWindow = errors.New("invalid conversation window")

	// ErrInvalidDisplayDriver indicates an unknown display driver name.
	ErrInvalidDisplayDriver = errors.New("invalid display driver")

	// ErrInvalidOllamaHost indicates the ollama server address is missing.
	ErrInvalidOllamaHost = errors.New("invalid ollama host")
)

// Display driver identifiers used in Config.DisplayDriver.
const (
	DisplayOLED    = "oled"
	DisplayConsole = "console"
)

// Config stores the voxpi application configuration.
type Config struct {
	// Local model configuration (served by ollama)
	ModelName     string  `mapstructure:"model_name"`
	EmbedderModel string  `mapstructure:"embedder_model"`
	OllamaHost    string  `mapstructure:"ollama_host"`
	Temperature   float64 `mapstructure:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	DetectTokens  int     `mapstructure:"detect_tokens"`

	// RAG configuration
	KnowledgeDir     string `mapstructure:"knowledge_dir"`
	StoreDir         string `mapstructure:"store_dir"`
	ChunkSize        int    `mapstructure:"chunk_size"`
	ChunkOverlap     int    `mapstructure:"chunk_overlap"`
	RetrievalTopK    int    `mapstructure:"retrieval_top_k"`
	MaxConversations int    `mapstructure:"max_conversations"`

	// Audio configuration
	WakePhrase    string  `mapstructure:"wake_phrase"`
	ListenSeconds float64 `mapstructure:"listen_seconds"`
	WhisperBinary string  `mapstructure:"whisper_binary"`
	WhisperModel  string  `mapstructure:"whisper_model"`
	TTSVoice      string  `mapstructure:"tts_voice"`

	// Vision configuration
	CameraWidth  int    `mapstructure:"camera_width"`
	CameraHeight int    `mapstructure:"camera_height"`
	DetectorURL  string `mapstructure:"detector_url"`

	// Display configuration
	DisplayDriver string `mapstructure:"display_driver"`
	I2CBus        string `mapstructure:"i2c_bus"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// Load reads configuration from defaults, the config file and environment.
// path may be empty, in which case ~/.voxpi/config.yaml is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VOXPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".voxpi"))
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			// Missing config file is fine; defaults apply.
			if err := v.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, fmt.Errorf("reading config file: %w", err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".voxpi")

	v.SetDefault("model_name", "gemma2:2b")
	v.SetDefault("embedder_model", "nomic-embed-text")
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 256)
	v.SetDefault("detect_tokens", 128)

	v.SetDefault("knowledge_dir", filepath.Join(base, "knowledge_base"))
	v.SetDefault("store_dir", filepath.Join(base, "store"))
	v.SetDefault("chunk_size", 500)
	v.SetDefault("chunk_overlap", 100)
	v.SetDefault("retrieval_top_k", 3)
	v.SetDefault("max_conversations", 100)

	v.SetDefault("wake_phrase", "hey pi")
	v.SetDefault("listen_seconds", 5.0)
	v.SetDefault("whisper_binary", "whisper-cli")
	v.SetDefault("whisper_model", filepath.Join(base, "models", "ggml-tiny.en.bin"))
	v.SetDefault("tts_voice", "en")

	v.SetDefault("camera_width", 640)
	v.SetDefault("camera_height", 480)
	v.SetDefault("detector_url", "http://localhost:8500")

	v.SetDefault("display_driver", DisplayConsole)
	v.SetDefault("i2c_bus", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}
