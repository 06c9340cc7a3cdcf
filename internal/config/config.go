package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds shotspectre configuration loaded from .shotspectre.yaml.
type Config struct {
	Model          string   `yaml:"model"`
	BaseURL        string   `yaml:"base_url"`
	Workers        int      `yaml:"workers"`
	Format         string   `yaml:"format"`
	Timeout        string   `yaml:"timeout"`
	RequestTimeout string   `yaml:"request_timeout"`
	Extensions     []string `yaml:"extensions"`
	Upload         Upload   `yaml:"upload"`
}

// Upload configures the optional report upload to S3-compatible storage.
// Credentials left empty fall back to the environment.
type Upload struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// TimeoutDuration parses the timeout string as a duration.
func (c Config) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout)
}

// RequestTimeoutDuration parses the per-request timeout string as a duration.
func (c Config) RequestTimeoutDuration() time.Duration {
	return parseDuration(c.RequestTimeout)
}

func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, _ := time.ParseDuration(s)
	return d
}

// Load searches for .shotspectre.yaml or .shotspectre.yml in the given directory
// and returns the parsed config. Returns an empty Config if no file is found.
func Load(dir string) (Config, error) {
	candidates := []string{
		filepath.Join(dir, ".shotspectre.yaml"),
		filepath.Join(dir, ".shotspectre.yml"),
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}

		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		return cfg, nil
	}

	return Config{}, nil
}
