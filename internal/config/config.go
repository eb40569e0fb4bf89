package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Драйверы хранилища
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	LLM       LLMConfig
	Selection SelectionConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int // секунды
	WriteTimeout int // секунды, должен покрывать таймаут генерации
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	MaxRetries      int `mapstructure:"max_retries"`
	MinRetryBackoff int `mapstructure:"min_retry_backoff"` // мс
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"` // мс
}

// StorageConfig выбирает реализацию пула и журнала показов
type StorageConfig struct {
	// Driver: "postgres" (по умолчанию) или "memory" (локальная разработка, без Postgres/Redis)
	Driver string
}

// LLMConfig содержит настройки провайдера генерации вопросов
type LLMConfig struct {
	Provider      string  // "openai" (также Perplexity и другие совместимые API через BaseURL) или "gemini"
	APIKey        string  `mapstructure:"api_key"`
	BaseURL       string  `mapstructure:"base_url"`
	Model         string
	Temperature   float64
	MaxTokens     int `mapstructure:"max_tokens"`
	RetryAttempts int `mapstructure:"retry_attempts"`
}

// SelectionConfig содержит таймауты и лимиты движка выбора вопросов.
// Нулевые значения заменяются значениями из questionpool.DefaultConfig().
type SelectionConfig struct {
	GenerateTimeoutSec int `mapstructure:"generate_timeout_sec"`
	WriteTimeoutMs     int `mapstructure:"write_timeout_ms"`
	MaxPoolAttempts    int `mapstructure:"max_pool_attempts"`
	PoolCandidates     int `mapstructure:"pool_candidates"`
	StatsTimeoutMs     int `mapstructure:"stats_timeout_ms"`
}

// AuthConfig содержит настройки проверки токенов (выпуск токенов - во внешнем сервисе)
type AuthConfig struct {
	Enabled   bool
	JWTSecret string `mapstructure:"jwt_secret"`
}

// RateLimitConfig содержит настройки ограничения частоты генерации
type RateLimitConfig struct {
	GeneratePerMinute int `mapstructure:"generate_per_minute"`
}

// CORSConfig содержит разрешенные источники
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// UsesMemoryStorage сообщает, что сервис работает без Postgres/Redis
func (c *Config) UsesMemoryStorage() bool {
	return strings.EqualFold(c.Storage.Driver, StorageDriverMemory)
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.readtimeout", 10)
	vip.SetDefault("server.writetimeout", 60)
	vip.SetDefault("storage.driver", StorageDriverPostgres)
	vip.SetDefault("llm.provider", "openai")
	vip.SetDefault("llm.model", "gpt-4o-mini")
	vip.SetDefault("llm.temperature", 0.7)
	vip.SetDefault("llm.max_tokens", 1200)
	vip.SetDefault("llm.retry_attempts", 2)
	vip.SetDefault("rate_limit.generate_per_minute", 20)

	// 2. Привязываем переменные окружения ЯВНО
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")
	vip.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	vip.BindEnv("storage.driver", "STORAGE_DRIVER")

	vip.BindEnv("llm.provider", "LLM_PROVIDER")
	vip.BindEnv("llm.api_key", "LLM_API_KEY")
	vip.BindEnv("llm.base_url", "LLM_BASE_URL")
	vip.BindEnv("llm.model", "LLM_MODEL")

	vip.BindEnv("selection.generate_timeout_sec", "SELECTION_GENERATE_TIMEOUT_SEC")
	vip.BindEnv("selection.write_timeout_ms", "SELECTION_WRITE_TIMEOUT_MS")
	vip.BindEnv("selection.max_pool_attempts", "SELECTION_MAX_POOL_ATTEMPTS")
	vip.BindEnv("selection.pool_candidates", "SELECTION_POOL_CANDIDATES")

	vip.BindEnv("auth.enabled", "AUTH_ENABLED")
	vip.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")

	vip.BindEnv("rate_limit.generate_per_minute", "RATE_LIMIT_GENERATE_PER_MINUTE")

	vip.BindEnv("server.port", "SERVER_PORT")

	// 3. Читаем файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим конфигурацию
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Логирование конфигурации (только в debug режиме)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Storage Driver: %s", cfg.Storage.Driver)
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("LLM Provider: %s", cfg.LLM.Provider)
		log.Printf("LLM Model: %s", cfg.LLM.Model)
		log.Printf("LLM API Key Set: %t", cfg.LLM.APIKey != "")
		log.Printf("Auth Enabled: %t", cfg.Auth.Enabled)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	// 6. Проверка обязательных параметров
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case StorageDriverPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
			return fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
		}
		if len(c.Redis.Addrs) == 0 && c.Redis.Addr == "" {
			return fmt.Errorf("redis configuration is incomplete (check REDIS_ADDR or REDIS_ADDRS env vars)")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unsupported storage driver: %q", c.Storage.Driver)
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported llm provider: %q", c.LLM.Provider)
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth is enabled but jwt secret is empty (check AUTH_JWT_SECRET env var)")
	}
	if c.LLM.APIKey == "" {
		log.Println("Warning: LLM API key is not set, every request will be served from the pool or by the fallback question.")
	}
	return nil
}
