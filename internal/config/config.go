package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Accounting AccountingConfig
	Scheduler  SchedulerConfig
	Usage      UsageConfig
	Mimir      MimirConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	URL           string
	MigrationsDir string
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type AccountingConfig struct {
	URL      string
	APIToken string
	Timeout  time.Duration
}

type SchedulerConfig struct {
	WorkerCount    int
	HealthInterval time.Duration
	UsageInterval  time.Duration
	ProbeTimeout   time.Duration
	ProbeRate      float64
	ProbeBurst     int
}

// UsageConfig holds the read-only credentials the usage collector uses
// against tenant instance databases.
type UsageConfig struct {
	DBUser     string
	DBPassword string
	Timeout    time.Duration
}

type MimirConfig struct {
	URL           string
	TenantHeader  string
	BatchSize     int
	FlushInterval time.Duration
	AuthToken     string
}

func Load() (*Config, error) {
	// Best effort; the environment wins over the file either way.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("FLEET")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.migrationsdir", "migrations")
	viper.SetDefault("auth.tokenttl", "24h")
	viper.SetDefault("accounting.timeout", "10s")
	viper.SetDefault("scheduler.workercount", 10)
	viper.SetDefault("scheduler.healthinterval", "1m")
	viper.SetDefault("scheduler.usageinterval", "15m")
	viper.SetDefault("scheduler.probetimeout", "5s")
	viper.SetDefault("scheduler.proberate", 50.0)
	viper.SetDefault("scheduler.probeburst", 10)
	viper.SetDefault("usage.timeout", "10s")
	viper.SetDefault("mimir.tenantheader", "X-Scope-OrgID")
	viper.SetDefault("mimir.batchsize", 1000)
	viper.SetDefault("mimir.flushinterval", "10s")

	var cfg Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if url := os.Getenv("ACCOUNTING_URL"); url != "" {
		cfg.Accounting.URL = url
	}
	if token := os.Getenv("ACCOUNTING_API_TOKEN"); token != "" {
		cfg.Accounting.APIToken = token
	}
	if user := os.Getenv("TENANT_DB_USER"); user != "" {
		cfg.Usage.DBUser = user
	}
	if password := os.Getenv("TENANT_DB_PASSWORD"); password != "" {
		cfg.Usage.DBPassword = password
	}
	if url := os.Getenv("MIMIR_URL"); url != "" {
		cfg.Mimir.URL = url
	}
	if token := os.Getenv("MIMIR_AUTH_TOKEN"); token != "" {
		cfg.Mimir.AuthToken = token
	}

	return &cfg, nil
}
