package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Sampler contains frame sampling configuration.
type Sampler struct {
	// Stride is the frame interval between sharpness evaluations.
	Stride int `toml:"stride"`
	// HolisticStride replaces Stride in holistic mode (sparser coverage).
	HolisticStride int `toml:"holistic_stride"`
	// MaxFrames bounds how many frames are retained per job.
	MaxFrames int `toml:"max_frames"`
	// SharpnessThreshold is the minimum Laplacian variance for inclusion.
	SharpnessThreshold float64 `toml:"sharpness_threshold"`
	// SharpnessFilterEnabled toggles the sharpness gate.
	SharpnessFilterEnabled bool `toml:"sharpness_filter_enabled"`
}

// Enhance contains CLAHE contrast-enhancement configuration.
type Enhance struct {
	ClipLimit    float64 `toml:"clip_limit"`
	TileGridSize int     `toml:"tile_grid_size"`
}

// OCR contains text extraction engine configuration.
type OCR struct {
	// PrimaryURL is the fast detection engine endpoint.
	PrimaryURL string `toml:"primary_url"`
	// FallbackURL is the slower recognition engine endpoint.
	FallbackURL string `toml:"fallback_url"`
	// FallbackThreshold is the primary confidence below which the fallback
	// engine re-reads a region.
	FallbackThreshold float64 `toml:"fallback_threshold"`
	// RequestTimeoutSeconds bounds a single engine call.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// Transcriber contains speech-to-text configuration.
type Transcriber struct {
	Model       string `toml:"model"`
	Language    string `toml:"language"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
}

// Classifier contains vision-language model configuration. APIKey is read
// from OPTISCAM_VLM_API_KEY when set, so the secret stays out of the file.
type Classifier struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	Mode           string `toml:"mode"`
	MaxFrames      int    `toml:"max_frames"`
	MaxConcurrent  int    `toml:"max_concurrent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains daemon timing and concurrency configuration.
type Workflow struct {
	QueuePollInterval   int `toml:"queue_poll_interval"`
	ErrorRetryInterval  int `toml:"error_retry_interval"`
	HeartbeatInterval   int `toml:"heartbeat_interval"`
	HeartbeatTimeout    int `toml:"heartbeat_timeout"`
	Workers             int `toml:"workers"`
	StageTimeoutSeconds int `toml:"stage_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Sampler     Sampler     `toml:"sampler"`
	Enhance     Enhance     `toml:"enhance"`
	OCR         OCR         `toml:"ocr"`
	Transcriber Transcriber `toml:"transcriber"`
	Classifier  Classifier  `toml:"classifier"`
	Workflow    Workflow    `toml:"workflow"`
	Logging     Logging     `toml:"logging"`
}

// ClassifierModeSampled reasons over the bounded frame subset plus timeline context.
const ClassifierModeSampled = "sampled"

// ClassifierModeHolistic reasons over sparser whole-video coverage plus full text.
const ClassifierModeHolistic = "holistic"

// DefaultConfigPath returns the canonical config file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "optiscam", "config.toml"), nil
}

// Load reads configuration from path, merging the file over defaults.
// A missing file at the default location yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved := strings.TrimSpace(path)
	explicit := resolved != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		resolved = defaultPath
	}

	data, err := os.ReadFile(expandPath(resolved))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			cfg.applyEnv()
			cfg.normalize()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", resolved, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if key := strings.TrimSpace(os.Getenv("OPTISCAM_VLM_API_KEY")); key != "" {
		c.Classifier.APIKey = key
	}
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded := expandPath(path)
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.StagingDir(), c.LogDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// StagingDir returns the expanded staging directory.
func (c *Config) StagingDir() string { return expandPath(c.Paths.StagingDir) }

// LogDir returns the expanded log directory.
func (c *Config) LogDir() string { return expandPath(c.Paths.LogDir) }

// JobDir returns the staging directory for a single job token.
func (c *Config) JobDir(token string) string {
	return filepath.Join(c.StagingDir(), token)
}

func (c *Config) normalize() {
	c.Classifier.Mode = strings.ToLower(strings.TrimSpace(c.Classifier.Mode))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Transcriber.Language = strings.TrimSpace(c.Transcriber.Language)
}

func expandPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	if trimmed == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return trimmed
	}
	if strings.HasPrefix(trimmed, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, trimmed[2:])
		}
	}
	return trimmed
}
