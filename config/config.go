// Package config loads the YAML configuration file. API keys never live
// here; they are resolved from the environment by the components that use
// them.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the recording pipeline.
type Config struct {
	// Device is a substring matched against capture device names; empty
	// means prompt interactively.
	Device string `yaml:"device"`

	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`

	// OutputDir is the root under which per-session directories are created.
	OutputDir string `yaml:"output_dir"`

	// Model and Language are passed through to the transcription service.
	Model    string `yaml:"model"`
	Language string `yaml:"language"`

	// FLACUpload compresses the audio payload before upload. The durable
	// recording stays WAV either way.
	FLACUpload bool `yaml:"flac_upload"`

	// SummaryModel selects the LLM used for the summary document.
	SummaryModel string `yaml:"summary_model"`

	RetryAttempts int           `yaml:"retry_attempts"`
	RetryBase     time.Duration `yaml:"retry_base"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		SampleRate:    16000,
		Channels:      1,
		OutputDir:     "sessions",
		Model:         "nova-2",
		FLACUpload:    true,
		SummaryModel:  "gpt-4o-mini",
		RetryAttempts: 5,
		RetryBase:     time.Second,
	}
}

// Load reads the YAML configuration file at path. A missing file is not an
// error; defaults apply.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of the defaults and
// validates the result. Useful in tests where configs are string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values, returning a
// joined error listing every failure found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.SampleRate < 8000 || cfg.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate %d out of range [8000, 192000]", cfg.SampleRate))
	}
	if cfg.Channels != 1 && cfg.Channels != 2 {
		errs = append(errs, fmt.Errorf("channels must be 1 or 2, got %d", cfg.Channels))
	}
	if cfg.OutputDir == "" {
		errs = append(errs, fmt.Errorf("output_dir must not be empty"))
	}
	if cfg.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry_attempts must be at least 1, got %d", cfg.RetryAttempts))
	}
	if cfg.RetryBase < 0 {
		errs = append(errs, fmt.Errorf("retry_base must not be negative"))
	}

	return errors.Join(errs...)
}
