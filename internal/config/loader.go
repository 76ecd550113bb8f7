package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by Defaults in Merge.
type Config struct {
	Addr                string   `json:"addr" yaml:"addr" toml:"addr"`
	Port                int      `json:"port" yaml:"port" toml:"port"`
	ModelsDir           string   `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	TempDir             string   `json:"temp_dir" yaml:"temp_dir" toml:"temp_dir"`
	MaxUploadMB         int      `json:"max_upload_mb" yaml:"max_upload_mb" toml:"max_upload_mb"`
	Workers             int      `json:"workers" yaml:"workers" toml:"workers"`
	QueueDepth          int      `json:"queue_depth" yaml:"queue_depth" toml:"queue_depth"`
	MaxWaitSeconds      int      `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds"`
	InferTimeoutSeconds int      `json:"infer_timeout_seconds" yaml:"infer_timeout_seconds" toml:"infer_timeout_seconds"`
	LoadTimeoutSeconds  int      `json:"load_timeout_seconds" yaml:"load_timeout_seconds" toml:"load_timeout_seconds"`
	StaleUploadMinutes  int      `json:"stale_upload_minutes" yaml:"stale_upload_minutes" toml:"stale_upload_minutes"`
	LogLevel            string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat           string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	CORSOrigins         []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	HistoryDSN          string   `json:"history_dsn" yaml:"history_dsn" toml:"history_dsn"`
	RedisAddr           string   `json:"redis_addr" yaml:"redis_addr" toml:"redis_addr"`
	RedisChannel        string   `json:"redis_channel" yaml:"redis_channel" toml:"redis_channel"`
	TongueModel         string   `json:"tongue_model" yaml:"tongue_model" toml:"tongue_model"`
	NailModel           string   `json:"nail_model" yaml:"nail_model" toml:"nail_model"`
	Preload             []string `json:"preload" yaml:"preload" toml:"preload"`
}

// Defaults returns the configuration used when nothing else is specified.
func Defaults() Config {
	return Config{
		Addr:               "0.0.0.0",
		Port:               8000,
		ModelsDir:          "models",
		TempDir:            "temp",
		MaxUploadMB:        10,
		Workers:            runtime.NumCPU(),
		QueueDepth:         32,
		MaxWaitSeconds:     30,
		LoadTimeoutSeconds: 60,
		StaleUploadMinutes: 60,
		LogLevel:           "info",
		LogFormat:          "json",
		CORSOrigins:        []string{"*"},
		RedisChannel:       "predictd-events",
		TongueModel:        "lidah_model",
		NailModel:          "kuku_model",
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Merge overlays the non-zero fields of over onto base.
func Merge(base, over Config) Config {
	out := base
	setStr(&out.Addr, over.Addr)
	setInt(&out.Port, over.Port)
	setStr(&out.ModelsDir, over.ModelsDir)
	setStr(&out.TempDir, over.TempDir)
	setInt(&out.MaxUploadMB, over.MaxUploadMB)
	setInt(&out.Workers, over.Workers)
	setInt(&out.QueueDepth, over.QueueDepth)
	setInt(&out.MaxWaitSeconds, over.MaxWaitSeconds)
	setInt(&out.InferTimeoutSeconds, over.InferTimeoutSeconds)
	setInt(&out.LoadTimeoutSeconds, over.LoadTimeoutSeconds)
	setInt(&out.StaleUploadMinutes, over.StaleUploadMinutes)
	setStr(&out.LogLevel, over.LogLevel)
	setStr(&out.LogFormat, over.LogFormat)
	setStr(&out.HistoryDSN, over.HistoryDSN)
	setStr(&out.RedisAddr, over.RedisAddr)
	setStr(&out.RedisChannel, over.RedisChannel)
	setStr(&out.TongueModel, over.TongueModel)
	setStr(&out.NailModel, over.NailModel)
	if len(over.CORSOrigins) > 0 {
		out.CORSOrigins = append([]string(nil), over.CORSOrigins...)
	}
	if len(over.Preload) > 0 {
		out.Preload = append([]string(nil), over.Preload...)
	}
	return out
}

// ApplyEnv overlays environment variables onto cfg. PORT is honored for
// container platforms that inject it; everything else uses the PREDICTD_ prefix.
func ApplyEnv(cfg Config, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	var env Config
	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &env.Port},
		{"PREDICTD_PORT", &env.Port},
		{"PREDICTD_MAX_UPLOAD_MB", &env.MaxUploadMB},
		{"PREDICTD_WORKERS", &env.Workers},
		{"PREDICTD_QUEUE_DEPTH", &env.QueueDepth},
		{"PREDICTD_MAX_WAIT_SECONDS", &env.MaxWaitSeconds},
		{"PREDICTD_INFER_TIMEOUT_SECONDS", &env.InferTimeoutSeconds},
	}
	for _, kv := range ints {
		v := strings.TrimSpace(getenv(kv.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s=%q: %w", kv.key, v, err)
		}
		*kv.dst = n
	}
	env.Addr = getenv("PREDICTD_ADDR")
	env.ModelsDir = getenv("PREDICTD_MODELS_DIR")
	env.TempDir = getenv("PREDICTD_TEMP_DIR")
	env.LogLevel = getenv("PREDICTD_LOG_LEVEL")
	env.LogFormat = getenv("PREDICTD_LOG_FORMAT")
	env.HistoryDSN = getenv("PREDICTD_HISTORY_DSN")
	env.RedisAddr = getenv("PREDICTD_REDIS_ADDR")
	env.TongueModel = getenv("PREDICTD_TONGUE_MODEL")
	env.NailModel = getenv("PREDICTD_NAIL_MODEL")
	env.CORSOrigins = SplitCSV(getenv("PREDICTD_CORS_ORIGINS"))
	env.Preload = SplitCSV(getenv("PREDICTD_PRELOAD"))
	return Merge(cfg, env), nil
}

// Resolve builds the effective configuration: defaults, then the optional
// file at path, then the environment.
func Resolve(path string, getenv func(string) string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		fileCfg, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = Merge(cfg, fileCfg)
	}
	return ApplyEnv(cfg, getenv)
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if strings.TrimSpace(c.ModelsDir) == "" {
		return fmt.Errorf("models_dir is required")
	}
	if strings.TrimSpace(c.TempDir) == "" {
		return fmt.Errorf("temp_dir is required")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	return nil
}

// ListenAddr joins Addr and Port into a dialable listen address.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Addr, strconv.Itoa(c.Port))
}

// MaxUploadBytes is the per-file upload limit.
func (c Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

// MaxWait is the inference queue admission timeout.
func (c Config) MaxWait() time.Duration { return time.Duration(c.MaxWaitSeconds) * time.Second }

// InferTimeout bounds a single prediction; zero disables it.
func (c Config) InferTimeout() time.Duration {
	return time.Duration(c.InferTimeoutSeconds) * time.Second
}

// LoadTimeout bounds a single model load.
func (c Config) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutSeconds) * time.Second
}

// StaleUploadAge is the age after which untracked files in the temp root are swept.
func (c Config) StaleUploadAge() time.Duration {
	return time.Duration(c.StaleUploadMinutes) * time.Minute
}

// SplitCSV splits a comma-separated list, dropping empty items.
func SplitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setStr(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
