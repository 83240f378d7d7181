package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Runtime RuntimeConfig `koanf:"runtime" validate:"required"`
	Storage StorageConfig `koanf:"storage" validate:"required"`
	List    ListConfig    `koanf:"list"    validate:"required"`
	Remote  RemoteConfig  `koanf:"remote"`
	Server  ServerConfig  `koanf:"server"`
	CLI     CLIConfig     `koanf:"cli"`
}

type RuntimeConfig struct {
	LogLevel  string `koanf:"log_level"  validate:"oneof=debug info warn error disabled"`
	LogJSON   bool   `koanf:"log_json"`
	LogSource bool   `koanf:"log_source"`
}

// StorageConfig selects the slot backend and its connection settings.
type StorageConfig struct {
	Driver      string          `koanf:"driver"       validate:"oneof=memory file sqlite postgres redis sugardb"`
	Dir         string          `koanf:"dir"`
	FileLock    bool            `koanf:"file_lock"`
	SQLitePath  string          `koanf:"sqlite_path"`
	PostgresDSN SensitiveString `koanf:"postgres_dsn"`
	RedisAddr   string          `koanf:"redis_addr"`
	RedisDB     int             `koanf:"redis_db"     validate:"min=0"`
	RedisPass   SensitiveString `koanf:"redis_pass"`
	KeyPrefix   string          `koanf:"key_prefix"`
}

// ListConfig holds view defaults shared by every list.
type ListConfig struct {
	PageSize int    `koanf:"page_size" validate:"min=1,max=500"`
	Locale   string `koanf:"locale"    validate:"required"`
	MemoSize int    `koanf:"memo_size" validate:"min=0"`
}

// RemoteConfig describes the catalog endpoint used to seed remote lists.
type RemoteConfig struct {
	BaseURL      string        `koanf:"base_url"      validate:"omitempty,url"`
	ProductsPath string        `koanf:"products_path"`
	ItemsPath    string        `koanf:"items_path"`
	TotalPath    string        `koanf:"total_path"`
	Limit        int           `koanf:"limit"         validate:"min=1"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxRetries   uint64        `koanf:"max_retries"`
	Cache        bool          `koanf:"cache"`
}

type ServerConfig struct {
	Host      string          `koanf:"host"       validate:"required"`
	Port      int             `koanf:"port"       validate:"min=1,max=65535"`
	Metrics   bool            `koanf:"metrics"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig caps requests per client IP over a period.
type RateLimitConfig struct {
	Enabled bool          `koanf:"enabled"`
	Limit   int64         `koanf:"limit"   validate:"min=1"`
	Period  time.Duration `koanf:"period"`
}

// CLIConfig controls how commands print results.
type CLIConfig struct {
	Format  string `koanf:"format"   validate:"oneof=auto table json"`
	NoColor bool   `koanf:"no_color"`
}

// SensitiveString hides its value when printed or marshaled.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s SensitiveString) MarshalYAML() (any, error) {
	return s.String(), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Runtime: RuntimeConfig{
			LogLevel: "info",
		},
		Storage: StorageConfig{
			Driver:     "file",
			Dir:        ".listview",
			FileLock:   true,
			SQLitePath: ".listview/slots.db",
			RedisAddr:  "localhost:6379",
			KeyPrefix:  "listview",
		},
		List: ListConfig{
			PageSize: 4,
			Locale:   "en",
			MemoSize: 128,
		},
		Remote: RemoteConfig{
			BaseURL:      "https://dummyjson.com",
			ProductsPath: "/products",
			ItemsPath:    "products",
			TotalPath:    "total",
			Limit:        12,
			Timeout:      15 * time.Second,
			MaxRetries:   3,
			Cache:        true,
		},
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    5080,
			Metrics: true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				Limit:   300,
				Period:  time.Minute,
			},
		},
		CLI: CLIConfig{
			Format: "auto",
		},
	}
}
