package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brightdoor/listing-studio/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	LogLevel       logging.Level

	// DBURL empty selects the in-memory store with seeded dev data.
	DBURL string

	APIKey             string
	InternalToken      string
	CORSAllowedOrigins []string

	CacheEnabled bool
	CacheTTL     time.Duration

	BreakerFailureThreshold int
	BreakerRecoveryTimeout  time.Duration
	BreakerSuccessThreshold int
	BreakerCallTimeout      time.Duration

	ScriptGenBaseURL    string
	ScriptGenAPIKey     string
	ScriptGenModel      string
	ScriptGenTimeout    time.Duration
	ScriptGenMaxRetries int

	RenderBaseURL     string
	RenderToken       string
	RenderTimeout     time.Duration
	RenderMaxRetries  int
	RenderWorkerCount int

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled       bool
	PyroscopeServerAddress string
	PyroscopeAppName       string
	PyroscopeAuthToken     string
	PyroscopeUploadRate    time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	breakerFailureThreshold, err := getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse BREAKER_FAILURE_THRESHOLD: %w", err)
	}
	if breakerFailureThreshold < 1 {
		return Config{}, fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be >= 1")
	}
	breakerRecoveryTimeout, err := time.ParseDuration(getEnv("BREAKER_RECOVERY_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BREAKER_RECOVERY_TIMEOUT: %w", err)
	}
	if breakerRecoveryTimeout <= 0 {
		return Config{}, fmt.Errorf("BREAKER_RECOVERY_TIMEOUT must be > 0")
	}
	breakerSuccessThreshold, err := getEnvAsInt("BREAKER_SUCCESS_THRESHOLD", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse BREAKER_SUCCESS_THRESHOLD: %w", err)
	}
	if breakerSuccessThreshold < 1 {
		return Config{}, fmt.Errorf("BREAKER_SUCCESS_THRESHOLD must be >= 1")
	}
	breakerCallTimeout, err := time.ParseDuration(getEnv("BREAKER_CALL_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BREAKER_CALL_TIMEOUT: %w", err)
	}
	if breakerCallTimeout <= 0 {
		return Config{}, fmt.Errorf("BREAKER_CALL_TIMEOUT must be > 0")
	}

	scriptGenTimeout, err := time.ParseDuration(getEnv("SCRIPTGEN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCRIPTGEN_TIMEOUT: %w", err)
	}
	if scriptGenTimeout <= 0 {
		return Config{}, fmt.Errorf("SCRIPTGEN_TIMEOUT must be > 0")
	}
	scriptGenMaxRetries, err := getEnvAsInt("SCRIPTGEN_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCRIPTGEN_MAX_RETRIES: %w", err)
	}
	if scriptGenMaxRetries < 0 {
		return Config{}, fmt.Errorf("SCRIPTGEN_MAX_RETRIES must be >= 0")
	}

	renderTimeout, err := time.ParseDuration(getEnv("RENDER_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse RENDER_TIMEOUT: %w", err)
	}
	if renderTimeout <= 0 {
		return Config{}, fmt.Errorf("RENDER_TIMEOUT must be > 0")
	}
	renderMaxRetries, err := getEnvAsInt("RENDER_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse RENDER_MAX_RETRIES: %w", err)
	}
	if renderMaxRetries < 0 {
		return Config{}, fmt.Errorf("RENDER_MAX_RETRIES must be >= 0")
	}
	renderWorkerCount, err := getEnvAsInt("RENDER_WORKER_COUNT", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse RENDER_WORKER_COUNT: %w", err)
	}
	if renderWorkerCount < 1 {
		return Config{}, fmt.Errorf("RENDER_WORKER_COUNT must be >= 1")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	cfg := Config{
		AppEnv:         appEnv,
		ServiceName:    getEnv("APP_SERVICE_NAME", "listing-studio-api"),
		ServiceVersion: getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:       getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		LogLevel:       parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),

		DBURL: strings.TrimSpace(getEnv("DB_URL", "")),

		APIKey:             strings.TrimSpace(getEnv("APP_API_KEY", "")),
		InternalToken:      strings.TrimSpace(getEnv("INTERNAL_TOKEN", "")),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		CacheEnabled: cacheEnabled,
		CacheTTL:     cacheTTL,

		BreakerFailureThreshold: breakerFailureThreshold,
		BreakerRecoveryTimeout:  breakerRecoveryTimeout,
		BreakerSuccessThreshold: breakerSuccessThreshold,
		BreakerCallTimeout:      breakerCallTimeout,

		ScriptGenBaseURL:    strings.TrimSpace(getEnv("SCRIPTGEN_BASE_URL", "")),
		ScriptGenAPIKey:     strings.TrimSpace(getEnv("SCRIPTGEN_API_KEY", "")),
		ScriptGenModel:      strings.TrimSpace(getEnv("SCRIPTGEN_MODEL", "")),
		ScriptGenTimeout:    scriptGenTimeout,
		ScriptGenMaxRetries: scriptGenMaxRetries,

		RenderBaseURL:     strings.TrimSpace(getEnv("RENDER_BASE_URL", "")),
		RenderToken:       strings.TrimSpace(getEnv("RENDER_TOKEN", "")),
		RenderTimeout:     renderTimeout,
		RenderMaxRetries:  renderMaxRetries,
		RenderWorkerCount: renderWorkerCount,

		UptraceEnabled: uptraceEnabled,
		UptraceDSN:     uptraceDSN,

		PyroscopeEnabled:       pyroscopeEnabled,
		PyroscopeServerAddress: pyroscopeServerAddress,
		PyroscopeAuthToken:     strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeUploadRate:    pyroscopeUploadRate,
	}

	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if cfg.AppEnv == EnvProd {
		if cfg.DBURL == "" {
			return Config{}, fmt.Errorf("DB_URL is required when APP_ENV=prod")
		}
		if cfg.APIKey == "" {
			return Config{}, fmt.Errorf("APP_API_KEY is required when APP_ENV=prod")
		}
	}

	return cfg, nil
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}
