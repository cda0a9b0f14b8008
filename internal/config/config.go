package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	S3        S3Config
	Auth      AuthConfig
	Evolution EvolutionConfig
	Market    MarketConfig
	Ontology  OntologyConfig
	Log       LogConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
	WSPort      string
	BodyLimitMB int
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration

	MigrationsDir string
}

// Enabled reports whether a Postgres backend is configured. Without one the
// service runs on the in-memory store.
func (c DatabaseConfig) Enabled() bool { return c.DBHost != "" }

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

func (c RedisConfig) Enabled() bool { return c.Host != "" }

func (c RedisConfig) Addr() string { return c.Host + ":" + c.Port }

type RabbitMQConfig struct {
	URL   string
	Queue string
}

func (c RabbitMQConfig) Enabled() bool { return c.URL != "" }

type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

func (c S3Config) Enabled() bool { return c.Bucket != "" }

type AuthConfig struct {
	JWTSecret         string
	JWTExpiresIn      time.Duration
	AdminPassword     string
	AdminPasswordHash string
}

type EvolutionConfig struct {
	Enabled          bool
	Interval         time.Duration
	DepreciationStep int
	FlagThreshold    int
	StaleAfterDays   int
	IncrementMin     int
	IncrementMax     int
	NewSkillSample   int
	NewRoleSample    int
	LockTTL          time.Duration
}

type MarketConfig struct {
	URLs     []string
	Selector string
	Headless bool
	Workers  int
	Timeout  time.Duration
}

type OntologyConfig struct {
	SeedFile string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

var errMissingRequiredEnv = errors.New("missing required environment variables")
var errInvalidEnv = errors.New("invalid environment variables")

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	v.SetDefault("DB_POOL_MAX_CONNS", "10")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", "0")
	v.SetDefault("REDIS_TTL", "600s")
	v.SetDefault("RABBITMQ_QUEUE", "ontology.evolution")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("JWT_EXPIRES_IN", "24h")
	v.SetDefault("WS_PORT", "8081")
	v.SetDefault("BODY_LIMIT_MB", "10")
	v.SetDefault("EVOLUTION_ENABLED", "true")
	v.SetDefault("EVOLUTION_INTERVAL", "168h")
	v.SetDefault("EVOLUTION_DEPRECIATION_STEP", "10")
	v.SetDefault("EVOLUTION_FLAG_THRESHOLD", "100")
	v.SetDefault("EVOLUTION_STALE_DAYS", "180")
	v.SetDefault("EVOLUTION_INCREMENT_MIN", "50")
	v.SetDefault("EVOLUTION_INCREMENT_MAX", "150")
	v.SetDefault("EVOLUTION_NEW_SKILL_SAMPLE", "1")
	v.SetDefault("EVOLUTION_NEW_ROLE_SAMPLE", "1")
	v.SetDefault("EVOLUTION_LOCK_TTL", "10m")
	v.SetDefault("MARKET_SELECTOR", "body")
	v.SetDefault("MARKET_WORKERS", "4")
	v.SetDefault("MARKET_TIMEOUT", "30s")
	v.SetDefault("ONTOLOGY_SEED_FILE", "data/ontology.json")
}

// Load reads configuration from the process environment, after loading a
// .env file when one exists. The env file path may be overridden with the
// "env-file" viper key.
func Load() (Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (Config, error) {
	envFile := strings.TrimSpace(v.GetString("env-file"))
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{}

	var missing, invalid []string
	req := func(key string) string {
		s := strings.TrimSpace(v.GetString(key))
		if s == "" {
			missing = append(missing, key)
		}
		return s
	}
	opt := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}
	optInt := func(key string) int {
		s := opt(key)
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			invalid = append(invalid, key)
		}
		return n
	}
	optBool := func(key string) bool {
		s := opt(key)
		if s == "" {
			return false
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			invalid = append(invalid, key)
		}
		return b
	}
	optDuration := func(key string) time.Duration {
		s := opt(key)
		if s == "" {
			return 0
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			invalid = append(invalid, key)
		}
		return d
	}
	optList := func(key string) []string {
		var out []string
		for _, p := range strings.Split(opt(key), ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}

	cfg.App = AppConfig{
		AppName:     req("APP_NAME"),
		Environment: req("APP_ENV"),
		HTTPPort:    req("HTTP_PORT"),
		WSPort:      opt("WS_PORT"),
		BodyLimitMB: optInt("BODY_LIMIT_MB"),
	}

	cfg.Database = DatabaseConfig{
		DBHost:     opt("DB_HOST"),
		DBPort:     opt("DB_PORT"),
		DBName:     opt("DB_NAME"),
		DBUser:     opt("DB_USER"),
		DBPassword: opt("DB_PASSWORD"),
		DBSSLMode:  opt("DB_SSL_MODE"),

		ConnectTimeout:        optDuration("DB_CONNECT_TIMEOUT"),
		PoolMaxConns:          int32(optInt("DB_POOL_MAX_CONNS")),
		PoolMinConns:          int32(optInt("DB_POOL_MIN_CONNS")),
		PoolMaxConnLifetime:   optDuration("DB_POOL_MAX_CONN_LIFETIME"),
		PoolMaxConnIdleTime:   optDuration("DB_POOL_MAX_CONN_IDLE_TIME"),
		PoolHealthCheckPeriod: optDuration("DB_POOL_HEALTH_CHECK_PERIOD"),

		MigrationsDir: opt("MIGRATIONS_DIR"),
	}

	cfg.Redis = RedisConfig{
		Host:     opt("REDIS_HOST"),
		Port:     opt("REDIS_PORT"),
		Password: opt("REDIS_PASSWORD"),
		DB:       optInt("REDIS_DB"),
		TTL:      optDuration("REDIS_TTL"),
	}

	cfg.RabbitMQ = RabbitMQConfig{
		URL:   opt("RABBITMQ_URL"),
		Queue: opt("RABBITMQ_QUEUE"),
	}

	cfg.S3 = S3Config{
		Endpoint:     opt("S3_ENDPOINT"),
		Region:       opt("S3_REGION"),
		Bucket:       opt("S3_BUCKET"),
		AccessKey:    opt("S3_ACCESS_KEY"),
		SecretKey:    opt("S3_SECRET_KEY"),
		UsePathStyle: optBool("S3_USE_PATH_STYLE"),
	}

	cfg.Auth = AuthConfig{
		JWTSecret:         req("JWT_SECRET"),
		JWTExpiresIn:      optDuration("JWT_EXPIRES_IN"),
		AdminPassword:     opt("ADMIN_PASSWORD"),
		AdminPasswordHash: opt("ADMIN_PASSWORD_HASH"),
	}

	cfg.Evolution = EvolutionConfig{
		Enabled:          optBool("EVOLUTION_ENABLED"),
		Interval:         optDuration("EVOLUTION_INTERVAL"),
		DepreciationStep: optInt("EVOLUTION_DEPRECIATION_STEP"),
		FlagThreshold:    optInt("EVOLUTION_FLAG_THRESHOLD"),
		StaleAfterDays:   optInt("EVOLUTION_STALE_DAYS"),
		IncrementMin:     optInt("EVOLUTION_INCREMENT_MIN"),
		IncrementMax:     optInt("EVOLUTION_INCREMENT_MAX"),
		NewSkillSample:   optInt("EVOLUTION_NEW_SKILL_SAMPLE"),
		NewRoleSample:    optInt("EVOLUTION_NEW_ROLE_SAMPLE"),
		LockTTL:          optDuration("EVOLUTION_LOCK_TTL"),
	}
	if cfg.Evolution.IncrementMax < cfg.Evolution.IncrementMin {
		invalid = append(invalid, "EVOLUTION_INCREMENT_MAX")
	}

	cfg.Market = MarketConfig{
		URLs:     optList("MARKET_URLS"),
		Selector: opt("MARKET_SELECTOR"),
		Headless: optBool("MARKET_HEADLESS"),
		Workers:  optInt("MARKET_WORKERS"),
		Timeout:  optDuration("MARKET_TIMEOUT"),
	}

	cfg.Ontology = OntologyConfig{SeedFile: opt("ONTOLOGY_SEED_FILE")}

	cfg.Log = LogConfig{
		JSON:  optBool("LOG_JSON"),
		Debug: optBool("LOG_DEBUG"),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errInvalidEnv, strings.Join(invalid, ", "))
	}

	return cfg, nil
}
