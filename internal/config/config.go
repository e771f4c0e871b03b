package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Postgres  PostgresConfig  `env:",prefix=POSTGRES_"`
	Redis     RedisConfig     `env:",prefix=REDIS_"`
	Auth      AuthConfig      `env:",prefix=AUTH_"`
	LLM       LLMConfig       `env:",prefix=LLM_"`
	Stripe    StripeConfig    `env:",prefix=STRIPE_"`
	Retry     RetryConfig     `env:",prefix=RETRY_"`
	Cache     CacheConfig     `env:",prefix=CACHE_"`
	Security  SecurityConfig  `env:",prefix="`
	CORS      CORSConfig      `env:",prefix=CORS_"`
	Extension ExtensionConfig `env:",prefix=EXTENSION_"`
	Env       string          `env:"ENV,default=development"`
}

// ServerConfig holds HTTP listener settings. TrustedProxies lists the proxy
// addresses or CIDRs whose X-Forwarded-For entries are believed; when empty
// the client IP is always the connection's remote address.
type ServerConfig struct {
	Port           string   `env:"PORT,default=8080"`
	Host           string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout    Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout   Duration `env:"WRITE_TIMEOUT,default=45s"`
	FrontendURL    string   `env:"FRONTEND_URL,default=https://postoptima.com"`
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

type PostgresConfig struct {
	URL          string   `env:"URL"`
	Host         string   `env:"HOST,default=localhost"`
	Port         string   `env:"PORT,default=5432"`
	User         string   `env:"USER,default=postoptima"`
	Password     string   `env:"PASSWORD,default=postoptima_password"`
	DBName       string   `env:"DB,default=postoptima_db"`
	SSLMode      string   `env:"SSLMODE,default=disable"`
	RLSRole      string   `env:"RLS_ROLE,default=authenticated"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=5s"`
	AutoMigrate  bool     `env:"AUTO_MIGRATE,default=false"`
}

type RedisConfig struct {
	URL      string `env:"URL"`
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

// AuthConfig describes how bearer tokens issued by the hosted auth provider
// are verified. Exactly one of JWTSecret or JWKSURL has to be set.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
	JWKSURL   string `env:"JWKS_URL"`
	Audience  string `env:"AUDIENCE,default=authenticated"`
}

type LLMConfig struct {
	APIKey      string   `env:"API_KEY,required"`
	BaseURL     string   `env:"BASE_URL,default=https://api.groq.com/openai/v1"`
	Model       string   `env:"MODEL,default=llama3-8b-8192"`
	Temperature float32  `env:"TEMPERATURE,default=0.7"`
	MaxTokens   int      `env:"MAX_TOKENS,default=800"`
	Timeout     Duration `env:"TIMEOUT,default=30s"`
}

type StripeConfig struct {
	SecretKey     string `env:"SECRET_KEY,required"`
	WebhookSecret string `env:"WEBHOOK_SECRET,required"`
	PriceID       string `env:"PRICE_ID,required"`
}

type RetryConfig struct {
	InitialInterval Duration `env:"INITIAL_INTERVAL,default=250ms"`
	MaxInterval     Duration `env:"MAX_INTERVAL,default=2s"`
	MaxRetries      uint64   `env:"MAX_RETRIES,default=2"`
}

type CacheConfig struct {
	LatestResultTTL Duration `env:"LATEST_RESULT_TTL,default=15m"`
	LoginAttemptTTL Duration `env:"LOGIN_ATTEMPT_TTL,default=10m"`
}

type SecurityConfig struct {
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=https://postoptima.com,chrome-extension://efafmcpoifmcmdlmklojkgnicanegjli"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

type ExtensionConfig struct {
	LoginURL string `env:"LOGIN_URL,default=https://postoptima.com/login"`
}

// ClientConfig configures the extension command line client. It is loaded
// on its own with LoadSection("POSTOPTIMA_", ...).
type ClientConfig struct {
	APIURL          string   `env:"API_URL,default=https://postoptima.com"`
	AuthProviderURL string   `env:"AUTH_PROVIDER_URL"`
	AnonKey         string   `env:"ANON_KEY"`
	StorePath       string   `env:"STORE_PATH,default=.postoptima/storage.json"`
	PricingURL      string   `env:"PRICING_URL,default=https://postoptima.com/pricing"`
	PollInterval    Duration `env:"POLL_INTERVAL,default=2s"`
	PollTimeout     Duration `env:"POLL_TIMEOUT,default=5m"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables, reading a .env file
// first when one is present in the working directory.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.Auth.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadSection fills a single config section from variables carrying prefix.
// Tools that need one section use it instead of Load.
func LoadSection(prefix string, target any) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env file: %w", err)
	}

	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   target,
		Lookuper: envconfig.PrefixLookuper(prefix, envconfig.OsLookuper()),
	})
	if err != nil {
		return fmt.Errorf("failed to load %s configuration: %w", prefix, err)
	}
	return nil
}

func (a AuthConfig) validate() error {
	if a.JWTSecret == "" && a.JWKSURL == "" {
		return fmt.Errorf("one of AUTH_JWT_SECRET or AUTH_JWKS_URL must be set")
	}
	if a.JWTSecret != "" && len(a.JWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least 32 characters long")
	}
	return nil
}
