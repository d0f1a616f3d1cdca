package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the prepcoach API configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Auth          AuthConfig          `yaml:"auth"`
	Data          DataConfig          `yaml:"data"`
	Oracle        OracleConfig        `yaml:"oracle"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Judge         JudgeConfig         `yaml:"judge"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Evaluation    EvaluationConfig    `yaml:"evaluation"`
	Cache         CacheConfig         `yaml:"cache"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// DataConfig points at the seeded corpus and theory bank files.
type DataConfig struct {
	CorpusPath     string   `yaml:"corpus_path"`
	TheoryDir      string   `yaml:"theory_dir"`
	TheorySubjects []string `yaml:"theory_subjects"`
}

// OracleConfig holds the shared provider credentials. All three oracles
// (embedding, judge, transcription) speak the OpenAI-compatible API of
// one provider, like the original deployment used a single key.
type OracleConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// EmbeddingConfig holds embedding settings. QueryInstruction and
// DocumentInstruction must be set together or left empty together:
// the seed tool prefixes corpus texts with the document instruction
// and the server prefixes queries with the query instruction, and a
// one-sided prefix puts the two in different vector spaces.
type EmbeddingConfig struct {
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
}

// JudgeConfig holds scoring oracle settings.
type JudgeConfig struct {
	Model           string  `yaml:"model"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

// TranscriptionConfig holds speech-to-text settings.
type TranscriptionConfig struct {
	Model    string `yaml:"model"`
	Language string `yaml:"language"`
}

// EvaluationConfig holds submission pipeline settings.
type EvaluationConfig struct {
	TempDir        string `yaml:"temp_dir"`
	MaxAudioSizeMB int    `yaml:"max_audio_size_mb"`
	FFmpegPath     string `yaml:"ffmpeg_path"`
}

// CacheConfig holds the optional Redis embedding cache settings.
// No addrs means the cache decorator is skipped entirely.
type CacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLHours int      `yaml:"ttl_hours"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 15
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Evaluation requests shell out to ffmpeg and wait on two
		// oracles; the write timeout has to cover the whole pipeline.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Data.CorpusPath == "" {
		c.Data.CorpusPath = filepath.Join("data", "questions_with_vectors.json")
	}
	if c.Data.TheoryDir == "" {
		c.Data.TheoryDir = "data"
	}
	if len(c.Data.TheorySubjects) == 0 {
		c.Data.TheorySubjects = []string{"OS", "DBMS", "OOPS"}
	}
	if c.Judge.Temperature <= 0 {
		c.Judge.Temperature = 0.3
	}
	if c.Judge.MaxOutputTokens <= 0 {
		c.Judge.MaxOutputTokens = 1024
	}
	if c.Transcription.Model == "" {
		c.Transcription.Model = "whisper-1"
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = "en"
	}
	if c.Evaluation.TempDir == "" {
		c.Evaluation.TempDir = os.TempDir()
	}
	if c.Evaluation.MaxAudioSizeMB <= 0 {
		c.Evaluation.MaxAudioSizeMB = 10
	}
	if c.Evaluation.FFmpegPath == "" {
		c.Evaluation.FFmpegPath = "ffmpeg"
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Oracle.APIKey == "" {
		return fmt.Errorf("oracle.api_key is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Judge.Model == "" {
		return fmt.Errorf("judge.model is required")
	}
	if (c.Embedding.QueryInstruction == "") != (c.Embedding.DocumentInstruction == "") {
		return fmt.Errorf("embedding.query_instruction and embedding.document_instruction must be set together")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
