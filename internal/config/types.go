package config

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                  `yaml:"port"`
	DSN            string               `yaml:"dsn"` // MySQL DSN, overrides the database block
	RedisURL       string               `yaml:"redis_url"`
	Database       DatabaseConfig       `yaml:"database"`
	Env            string               `yaml:"env"` // "development" | "production"
	AllowedOrigins []string             `yaml:"allowed_origins"`
	APIToken       string               `yaml:"api_token"` // bearer credential for admin endpoints
	Timezone       string               `yaml:"timezone"`
	Astro          AstroProviderConfig  `yaml:"astro"`
	AI             AIConfig             `yaml:"ai"`
	Interpretation InterpretationConfig `yaml:"interpretation"`
}

type DatabaseConfig struct {
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

// AstroProviderConfig points at the external fact-computation provider
// (RapidAPI Best Astrology API shape).
type AstroProviderConfig struct {
	BaseURL         string `yaml:"base_url"`
	Host            string `yaml:"host"`
	APIKey          string `yaml:"api_key"`
	LunarReturnPath string `yaml:"lunar_return_path"`
	NatalChartPath  string `yaml:"natal_chart_path"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

type AIConfig struct {
	Providers            []AIProvider       `yaml:"providers"`
	InterpretationModel  *AIModelAssignment `yaml:"interpretation_model"`
	FallbackModel        *AIModelAssignment `yaml:"fallback_model"`
	EnableGeneration     bool               `yaml:"enable_generation"`
	GenerationTimeoutSec int                `yaml:"generation_timeout_seconds"`
}

type AIModelAssignment struct {
	ProviderID string `yaml:"provider_id"`
	Model      string `yaml:"model"`
}

type AIProvider struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Type         string `yaml:"type"` // Anthropic | OpenAI | OpenAI-Compatible
	APIKey       string `yaml:"api_key"`
	Endpoint     string `yaml:"endpoint"`
	DefaultModel string `yaml:"default_model"`
	Enabled      bool   `yaml:"enabled"`
}

// InterpretationConfig carries the content-validation window and cache tuning.
// The length bounds are a product decision, kept injectable on purpose.
type InterpretationConfig struct {
	MinLength       int    `yaml:"min_length"`
	MaxLength       int    `yaml:"max_length"`
	TargetMin       int    `yaml:"target_min"`
	TargetMax       int    `yaml:"target_max"`
	DefaultLang     string `yaml:"default_lang"`
	Version         int    `yaml:"version"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}
