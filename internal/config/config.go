package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 8000
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "astroia"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultRedisURL   = "redis://localhost:6379/0"

	defaultAstroBaseURL    = "https://best-astrology-api.p.rapidapi.com"
	defaultLunarReturnPath = "/api/v3/charts/lunar_return"
	defaultNatalChartPath  = "/api/v3/charts/natal"
	defaultAstroTimeoutSec = 10

	defaultGenerationTimeoutSec = 30
	defaultMinLength            = 900
	defaultMaxLength            = 1400
	defaultTargetMin            = 1000
	defaultTargetMax            = 1200
	defaultLang                 = "fr"
	defaultSchemaVersion        = 2
	defaultCacheTTLSeconds      = 300
)

// Load reads and validates the YAML config file, applying defaults and
// environment overrides for provider credentials.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := defaultAppConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d in %q, expected 1-65535", cfg.Port, path)
	}
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return nil, fmt.Errorf("invalid database.port %d in %q, expected 1-65535", cfg.Database.Port, path)
	}
	if cfg.Interpretation.MinLength >= cfg.Interpretation.MaxLength {
		return nil, fmt.Errorf("interpretation.min_length must be below max_length in %q", path)
	}

	if cfg.DSN == "" {
		cfg.DSN = buildMySQLDSN(cfg.Database)
	}

	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:     defaultPort,
		Env:      defaultEnv,
		RedisURL: defaultRedisURL,
		Database: DatabaseConfig{
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Astro: AstroProviderConfig{
			BaseURL:         defaultAstroBaseURL,
			LunarReturnPath: defaultLunarReturnPath,
			NatalChartPath:  defaultNatalChartPath,
			TimeoutSeconds:  defaultAstroTimeoutSec,
		},
		AI: AIConfig{
			EnableGeneration:     true,
			GenerationTimeoutSec: defaultGenerationTimeoutSec,
		},
		Interpretation: InterpretationConfig{
			MinLength:       defaultMinLength,
			MaxLength:       defaultMaxLength,
			TargetMin:       defaultTargetMin,
			TargetMax:       defaultTargetMax,
			DefaultLang:     defaultLang,
			Version:         defaultSchemaVersion,
			CacheTTLSeconds: defaultCacheTTLSeconds,
		},
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.Astro.Host == "" {
		cfg.Astro.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.Astro.BaseURL, "https://"), "http://")
	}
	if cfg.Astro.TimeoutSeconds <= 0 {
		cfg.Astro.TimeoutSeconds = defaultAstroTimeoutSec
	}
	if cfg.AI.GenerationTimeoutSec <= 0 {
		cfg.AI.GenerationTimeoutSec = defaultGenerationTimeoutSec
	}
	if cfg.Interpretation.DefaultLang == "" {
		cfg.Interpretation.DefaultLang = defaultLang
	}
	if cfg.Interpretation.Version <= 0 {
		cfg.Interpretation.Version = defaultSchemaVersion
	}
	if cfg.Interpretation.CacheTTLSeconds <= 0 {
		cfg.Interpretation.CacheTTLSeconds = defaultCacheTTLSeconds
	}
}

// applyEnvOverrides lets deployments keep provider secrets out of the YAML file.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("RAPIDAPI_KEY"); v != "" {
		cfg.Astro.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		for i := range cfg.AI.Providers {
			if strings.EqualFold(cfg.AI.Providers[i].Type, "anthropic") && cfg.AI.Providers[i].APIKey == "" {
				cfg.AI.Providers[i].APIKey = v
			}
		}
	}
	if v := os.Getenv("ASTROIA_API_TOKEN"); v != "" {
		cfg.APIToken = v
	}
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}
