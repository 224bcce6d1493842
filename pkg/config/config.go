package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable consumed by the backend.
const EnvPrefix = "CLIENTPULSE"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names shared by Load and the test helpers.
const (
	EnvAppEnv     = "CLIENTPULSE_APP_ENV"
	EnvPort       = "CLIENTPULSE_APP_PORT"
	EnvDBDSN      = "CLIENTPULSE_DB_DSN"
	EnvDBHost     = "CLIENTPULSE_DB_HOST"
	EnvDBUser     = "CLIENTPULSE_DB_USER"
	EnvDBName     = "CLIENTPULSE_DB_NAME"
	EnvRedisURL   = "CLIENTPULSE_REDIS_URL"
	EnvJWTSecret  = "CLIENTPULSE_JWT_SECRET"
	EnvJWTIssuer  = "CLIENTPULSE_JWT_ISSUER"
	EnvJWTExpMins = "CLIENTPULSE_JWT_EXPIRATION_MINUTES"
	EnvStripeKey  = "CLIENTPULSE_STRIPE_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Stripe        StripeConfig
	Frontend      FrontendConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CLIENTPULSE_APP_ENV" required:"true"`
	Port         string `envconfig:"CLIENTPULSE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CLIENTPULSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CLIENTPULSE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CLIENTPULSE_DB_DSN"`
	Driver string `envconfig:"CLIENTPULSE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CLIENTPULSE_DB_HOST"`
	LegacyPort     int    `envconfig:"CLIENTPULSE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CLIENTPULSE_DB_USER"`
	LegacyPassword string `envconfig:"CLIENTPULSE_DB_PASSWORD"`
	LegacyName     string `envconfig:"CLIENTPULSE_DB_NAME"`
	LegacySSLMode  string `envconfig:"CLIENTPULSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CLIENTPULSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CLIENTPULSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CLIENTPULSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CLIENTPULSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CLIENTPULSE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CLIENTPULSE_REDIS_ADDR"`
	Password     string        `envconfig:"CLIENTPULSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CLIENTPULSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CLIENTPULSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CLIENTPULSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CLIENTPULSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CLIENTPULSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CLIENTPULSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CLIENTPULSE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CLIENTPULSE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CLIENTPULSE_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CLIENTPULSE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CLIENTPULSE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CLIENTPULSE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CLIENTPULSE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CLIENTPULSE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CLIENTPULSE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CLIENTPULSE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CLIENTPULSE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CLIENTPULSE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CLIENTPULSE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CLIENTPULSE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CLIENTPULSE_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	// APIKey is required at startup; the webhook signing Secret is only
	// enforced when the webhook handler first executes.
	APIKey string `envconfig:"CLIENTPULSE_STRIPE_API_KEY"`
	Secret string `envconfig:"CLIENTPULSE_STRIPE_SECRET"`
	Env    string `envconfig:"CLIENTPULSE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type FrontendConfig struct {
	BaseURL string `envconfig:"CLIENTPULSE_FRONTEND_URL" default:"http://localhost:3000"`
}

// BillingURL returns the frontend billing page used for default redirects.
func (f FrontendConfig) BillingURL() string {
	return strings.TrimRight(f.BaseURL, "/") + "/billing"
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
