package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Server         ServerConfig         `mapstructure:"server"`
	Store          StoreConfig          `mapstructure:"store"`
	Cache          CacheConfig          `mapstructure:"cache"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	Scrape         ScrapeConfig         `mapstructure:"scrape"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	DedupWindow    time.Duration        `mapstructure:"dedup_window"`
	LogLevel       string               `mapstructure:"log_level"`
	LogDir         string               `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env            string   `mapstructure:"env"`
	Debug          bool     `mapstructure:"debug"`
	Version        string   `mapstructure:"version"`
	Name           string   `mapstructure:"name"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// 儲存驅動
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverSupabase = "supabase"
	DriverMemory   = "memory"
)

// StoreConfig 資料儲存設定
type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	SupabaseURL string `mapstructure:"supabase_url"`
	SupabaseKey string `mapstructure:"supabase_key"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ScrapeConfig 菜單抓取設定
type ScrapeConfig struct {
	FeedURL   string        `mapstructure:"feed_url"`
	Workers   int           `mapstructure:"workers"`
	Timeout   time.Duration `mapstructure:"timeout"`
	DaysAhead int           `mapstructure:"days_ahead"`
	Days      int           `mapstructure:"days"`
	MealTypes []string      `mapstructure:"meal_types"`
}

// RecommendationConfig 推薦設定
type RecommendationConfig struct {
	Limit       int    `mapstructure:"limit"`
	DefaultType string `mapstructure:"default_type"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// .env 不存在時改用環境變數
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	bindings := map[string]string{
		"store.driver":        "STORE_DRIVER",
		"store.dsn":           "DATABASE_URL",
		"store.supabase_url":  "SUPABASE_URL",
		"store.supabase_key":  "SUPABASE_KEY",
		"cache.enabled":       "CACHE_ENABLED",
		"cache.backend":       "CACHE_BACKEND",
		"cache.redis_addr":    "REDIS_ADDR",
		"rate_limit.enabled":  "RATE_LIMIT_ENABLED",
		"rate_limit.requests": "RATE_LIMIT_REQUESTS",
		"rate_limit.window":   "RATE_LIMIT_WINDOW",
		"scrape.feed_url":     "MENU_FEED_URL",
		"scrape.workers":      "SCRAPE_WORKERS",
		"dedup_window":        "DEDUP_WINDOW",
		"log_level":           "LOG_LEVEL",
		"server.port":         "PORT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	// 設定設定檔名稱和路徑
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fmt.Println("Loading configuration", "store_driver:", config.Store.Driver, "supabase_key:", MaskKey(config.Store.SupabaseKey))

	return &config, nil
}

// MaskKey 遮罩金鑰，只顯示前後各 4 個字符
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "illineats")
	v.SetDefault("app.allowed_origins", []string{"http://localhost:3000", "https://illineats.com"})

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.max_body_bytes", 10<<20) // 10MB
	v.SetDefault("server.shutdown_timeout", "5s")

	// 儲存設定
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.dsn", "illineats.db")
	v.SetDefault("store.auto_migrate", true)

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.max_size", 100)
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.cleanup_interval", "5m")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	// 抓取設定
	v.SetDefault("scrape.workers", 4)
	v.SetDefault("scrape.timeout", "30s")
	v.SetDefault("scrape.days_ahead", 7)
	v.SetDefault("scrape.days", 1)
	v.SetDefault("scrape.meal_types", []string{"Breakfast", "Lunch", "Dinner"})

	// 推薦設定
	v.SetDefault("recommendation.limit", 20)
	v.SetDefault("recommendation.default_type", "dashboard")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}
	if config.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid server shutdown timeout")
	}

	switch config.Store.Driver {
	case DriverPostgres, DriverSQLite:
		if config.Store.DSN == "" {
			return fmt.Errorf("store dsn is required for driver %s", config.Store.Driver)
		}
	case DriverSupabase:
		if config.Store.SupabaseURL == "" || config.Store.SupabaseKey == "" {
			return fmt.Errorf("supabase url and key are required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", config.Store.Driver)
	}

	if config.Cache.Enabled {
		switch config.Cache.Backend {
		case "memory":
			if config.Cache.MaxSize <= 0 {
				return fmt.Errorf("invalid cache max size")
			}
			if config.Cache.CleanupInterval <= 0 {
				return fmt.Errorf("invalid cache cleanup interval")
			}
		case "redis":
			if config.Cache.RedisAddr == "" {
				return fmt.Errorf("redis address is required")
			}
		default:
			return fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	if config.Scrape.Workers <= 0 {
		return fmt.Errorf("invalid scrape workers")
	}
	if config.Scrape.Days <= 0 {
		return fmt.Errorf("invalid scrape days")
	}
	if config.Recommendation.Limit <= 0 {
		return fmt.Errorf("invalid recommendation limit")
	}
	if config.Recommendation.DefaultType == "" {
		return fmt.Errorf("recommendation default type is required")
	}

	return nil
}
