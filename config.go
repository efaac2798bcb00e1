package main

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the .protoxref.toml configuration file.
type Config struct {
	Sink ConfigSink `toml:"sink"`
	S3   ConfigS3   `toml:"s3"`
	Log  ConfigLog  `toml:"log"`
}

// ConfigSink holds sink-backend configuration.
type ConfigSink struct {
	Backend     string `toml:"backend"` // "memory", "json" or "postgres"
	JSONPath    string `toml:"json_path"`
	PostgresDSN string `toml:"postgres_dsn"`
}

// ConfigS3 holds configuration for the S3-backed remote file loader.
type ConfigS3 struct {
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	BaseEndpoint string `toml:"base_endpoint"`
	UsePathStyle *bool  `toml:"use_path_style"`
	KeyPrefix    string `toml:"key_prefix"`
}

// ConfigLog holds logging configuration.
type ConfigLog struct {
	Level string `toml:"level"`
}

// findConfigFile walks up from the current directory to find
// .protoxref.toml, stopping at the repository root (directory
// containing .git).
func findConfigFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ".protoxref.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "" // reached repo root without finding config
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "" // reached filesystem root
		}
		dir = parent
	}
}

// LoadConfig reads and parses a .protoxref.toml file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MergeConfig applies config file values to opts, but only for fields
// not explicitly set via CLI flags. The setFlags map contains flag
// names that were explicitly passed on the command line.
func MergeConfig(opts *Options, cfg *Config, setFlags map[string]bool) {
	if cfg == nil {
		return
	}

	if cfg.Sink.Backend != "" && !setFlags["sink"] {
		opts.SinkBackend = cfg.Sink.Backend
	}
	if cfg.Sink.JSONPath != "" && !setFlags["json-out"] {
		opts.JSONOutPath = cfg.Sink.JSONPath
	}
	if cfg.Sink.PostgresDSN != "" && !setFlags["postgres-dsn"] {
		opts.PostgresDSN = cfg.Sink.PostgresDSN
	}

	if cfg.S3.Bucket != "" && !setFlags["s3-bucket"] {
		opts.S3.Bucket = cfg.S3.Bucket
	}
	if cfg.S3.Region != "" && !setFlags["s3-region"] {
		opts.S3.Region = cfg.S3.Region
	}
	if cfg.S3.AccessKey != "" && !setFlags["s3-access-key"] {
		opts.S3.AccessKey = cfg.S3.AccessKey
	}
	if cfg.S3.SecretKey != "" && !setFlags["s3-secret-key"] {
		opts.S3.SecretKey = cfg.S3.SecretKey
	}
	if cfg.S3.BaseEndpoint != "" && !setFlags["s3-endpoint"] {
		opts.S3.BaseEndpoint = cfg.S3.BaseEndpoint
	}
	if cfg.S3.UsePathStyle != nil && !setFlags["s3-path-style"] {
		opts.S3.UsePathStyle = *cfg.S3.UsePathStyle
	}
	if cfg.S3.KeyPrefix != "" && !setFlags["s3-key-prefix"] {
		opts.S3.KeyPrefix = cfg.S3.KeyPrefix
	}

	if cfg.Log.Level != "" && !setFlags["log-level"] {
		opts.LogLevel = cfg.Log.Level
	}
}
