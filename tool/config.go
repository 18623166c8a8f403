package tool

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/moyoez/corpus-uploader/types"
)

const (
	EnvBaseURL = "CORPUS_API_BASE_URL"
	EnvToken   = "CORPUS_API_TOKEN"

	DefaultChunkSizeBytes = 5 * 1024 * 1024
)

var (
	ConfigPath    = "config.yaml" // be aware that it can be changed, default to ./config.yaml
	CurrentConfig types.AppConfig
)

// DefaultConfig returns the configuration written when no config file exists.
func DefaultConfig() types.AppConfig {
	return types.AppConfig{
		BaseURL:                "http://localhost:8000/api/v1",
		ChunkSizeBytes:         DefaultChunkSizeBytes,
		MaxAttempts:            3,
		BackoffBaseMs:          500,
		ChunkTimeoutSeconds:    60,
		FinalizeTimeoutSeconds: 60,
		ChunksPerSecond:        0,
		UseUidFilename:         false,
		Port:                   53318,
		NotifyWebsocket:        true,
	}
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error; variables already set are kept.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %v", path, err)
	}
	DefaultLogger.Debugf("Loaded environment from %s", path)
	return nil
}

// LoadConfig reads the yaml config at path, creating it with defaults when missing,
// then applies environment overrides for the base URL and bearer token.
// Callers run ValidateConfig after flag overrides.
func LoadConfig(fsys afero.Fs, path string) (types.AppConfig, error) {
	if path == "" {
		path = ConfigPath
	}
	ConfigPath = path

	cfg := DefaultConfig()

	info, err := fsys.Stat(path)
	switch {
	case err != nil && os.IsNotExist(err):
		if writeErr := writeConfig(fsys, path, cfg); writeErr != nil {
			return cfg, fmt.Errorf("config file not found, and failed to generate default config: %v", writeErr)
		}
		DefaultLogger.Infof("Created new config file at %s", path)
	case err != nil:
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	case info.IsDir():
		return cfg, fmt.Errorf("config file path is a directory: %s", path)
	default:
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	applyEnv(&cfg)
	normalizeConfig(&cfg)

	CurrentConfig = cfg
	return cfg, nil
}

// ApplyFlagOverrides copies non-empty CLI overrides onto cfg.
func ApplyFlagOverrides(cfg *types.AppConfig, flags types.Config) {
	if flags.UseBaseURL != "" {
		cfg.BaseURL = flags.UseBaseURL
	}
	if flags.UseToken != "" {
		cfg.Token = flags.UseToken
	}
	if flags.UsePort > 0 {
		cfg.Port = flags.UsePort
	}
	if flags.SkipNotify {
		cfg.NotifySocket = ""
		cfg.NotifyWebsocket = false
	}
	CurrentConfig = *cfg
}

// ValidateConfig rejects configurations the uploader cannot work with.
func ValidateConfig(cfg types.AppConfig) error {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return fmt.Errorf("baseUrl is required (config or %s)", EnvBaseURL)
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return fmt.Errorf("baseUrl must start with http:// or https://: %s", cfg.BaseURL)
	}
	if cfg.ChunkSizeBytes <= 0 {
		return fmt.Errorf("chunkSizeBytes must be > 0")
	}
	if cfg.MaxAttempts <= 0 {
		return fmt.Errorf("maxAttempts must be > 0")
	}
	return nil
}

func GetCurrentConfig() *types.AppConfig {
	return &CurrentConfig
}

func applyEnv(cfg *types.AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		cfg.Token = v
	}
}

// zero values in a partial config file fall back to defaults
func normalizeConfig(cfg *types.AppConfig) {
	def := DefaultConfig()
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.ChunkSizeBytes == 0 {
		cfg.ChunkSizeBytes = def.ChunkSizeBytes
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffBaseMs == 0 {
		cfg.BackoffBaseMs = def.BackoffBaseMs
	}
	if cfg.ChunkTimeoutSeconds == 0 {
		cfg.ChunkTimeoutSeconds = def.ChunkTimeoutSeconds
	}
	if cfg.FinalizeTimeoutSeconds == 0 {
		cfg.FinalizeTimeoutSeconds = def.FinalizeTimeoutSeconds
	}
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
}

func writeConfig(fsys afero.Fs, path string, cfg types.AppConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return afero.WriteFile(fsys, path, data, 0o600)
}
