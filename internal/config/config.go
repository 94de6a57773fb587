package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment    string
	HTTPPort       string
	ServiceName    string
	ProviderBaseURL string
	// AuthorizeURL is the browser-facing page where the provider asks the
	// user to approve access.
	AuthorizeURL string

	// Application (consumer) credential with the LMS provider.
	ConsumerKey    string
	ConsumerSecret string
	// Optional elevated credential used for impersonated requests.
	AdminKey    string
	AdminSecret string

	// CallbackBaseURL is the externally reachable origin the provider
	// redirects back to after user authorization.
	CallbackBaseURL string

	// DemoMode serves canned data without contacting the provider. Decided
	// once at startup; consumer credentials are not required when set.
	DemoMode bool

	// ForwardVerifier includes oauth_verifier in the signed access-token
	// exchange parameters. Provider-specific; the default follows the
	// protocol.
	ForwardVerifier bool

	TokenStore     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	DatabaseURL    string
	RequestTokenTTL time.Duration

	SessionSecret []byte
	SessionTTL    time.Duration
	SecureCookies bool

	ProviderTimeout time.Duration
	RateLimitRPM    int

	TelemetryEndpoint string
	TelemetryInsecure bool

	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
}

// Token store backends.
const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Load reads configuration from environment variables with sane defaults.
// Missing credentials fail here, before any network call is made.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:     getEnv("APP_ENV", "development"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ServiceName:     getEnv("SERVICE_NAME", "gradewise"),
		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://api.schoology.com/v1"),
		AuthorizeURL:    getEnv("PROVIDER_AUTHORIZE_URL", "https://app.schoology.com/oauth/authorize"),
		ConsumerKey:     strings.TrimSpace(os.Getenv("SCHOOLOGY_CONSUMER_KEY")),
		ConsumerSecret:  strings.TrimSpace(os.Getenv("SCHOOLOGY_CONSUMER_SECRET")),
		AdminKey:        strings.TrimSpace(os.Getenv("SCHOOLOGY_ADMIN_KEY")),
		AdminSecret:     strings.TrimSpace(os.Getenv("SCHOOLOGY_ADMIN_SECRET")),
		CallbackBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("CALLBACK_BASE_URL")), "/"),
		DemoMode:        getBool("DEMO_MODE", false),
		ForwardVerifier: getBool("OAUTH_FORWARD_VERIFIER", true),
		TokenStore:      strings.ToLower(getEnv("TOKEN_STORE", StoreRedis)),
		RedisAddr:       getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getInt("REDIS_DB", 0),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RequestTokenTTL: getDuration("REQUEST_TOKEN_TTL", 10*time.Minute),
		SessionSecret:   []byte(os.Getenv("SESSION_SECRET")),
		SessionTTL:      getDuration("SESSION_TTL", 24*time.Hour),
		ProviderTimeout: getDuration("PROVIDER_TIMEOUT", 10*time.Second),
		RateLimitRPM:    getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure: getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "DELETE", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
	}
	cfg.SecureCookies = cfg.Environment != "development"

	if !cfg.DemoMode {
		if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
			return Config{}, fmt.Errorf("SCHOOLOGY_CONSUMER_KEY and SCHOOLOGY_CONSUMER_SECRET are required")
		}
		if cfg.CallbackBaseURL == "" {
			return Config{}, fmt.Errorf("CALLBACK_BASE_URL is required")
		}
	}
	if (cfg.AdminKey == "") != (cfg.AdminSecret == "") {
		return Config{}, fmt.Errorf("SCHOOLOGY_ADMIN_KEY and SCHOOLOGY_ADMIN_SECRET must be set together")
	}
	if len(cfg.SessionSecret) == 0 {
		return Config{}, fmt.Errorf("SESSION_SECRET is required")
	}
	if len(cfg.SessionSecret) < 32 {
		return Config{}, fmt.Errorf("SESSION_SECRET must be at least 32 bytes")
	}

	switch cfg.TokenStore {
	case StoreRedis, StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when TOKEN_STORE=postgres")
		}
	default:
		return Config{}, fmt.Errorf("TOKEN_STORE must be one of redis, postgres, memory")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
