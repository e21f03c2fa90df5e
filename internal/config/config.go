package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/granada-os/personalization/internal/platform/logging"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// CircuitConfig holds the breaker knobs shared by every outbound client.
type CircuitConfig struct {
	Enabled        bool
	FailureCount   int
	OpenTimeout    time.Duration
	HalfOpenMaxReq int
}

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	LogLevel                   logging.Level
	CORSAllowedOrigins         []string
	SwaggerEnabled             bool
	StorageDriver              string
	DBURL                      string
	DBDisablePreparedBinary    bool
	CacheEnabled               bool
	CacheTTL                   time.Duration
	LocationCacheTTL           time.Duration
	LocationDetectBudget       time.Duration
	GeoIPEnabled               bool
	GeoIPTimeout               time.Duration
	GeoIPIPGeolocationAPIKey   string
	GeoIPCircuit               CircuitConfig
	LatencyProbeEnabled        bool
	LatencyProbeTimeout        time.Duration
	LatencyProbeWorkers        int
	ContentAIEnabled           bool
	ContentAIBaseURL           string
	ContentAITimeout           time.Duration
	ContentAICircuit           CircuitConfig
	AccountsBaseURL            string
	AccountsRegisterPath       string
	AccountsTimeout            time.Duration
	AccountsCircuit            CircuitConfig
	ProgressCookieSecure       bool
	ProgressMaxAge             time.Duration
	SessionTTL                 time.Duration
	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceCaptureRequestBody  bool
	UptraceRequestBodyMaxBytes int
	BetterStackEnabled         bool
	BetterStackEndpoint        string
	BetterStackToken           string
	BetterStackTimeout         time.Duration
	BetterStackMinLevel        logging.Level
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

// Load reads the environment, after merging a .env file when one exists.
// Variables already set in the process win over the file.
func Load() (Config, error) {
	if err := loadDotEnv(getEnv("APP_ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}

	swaggerEnabled, err := strconv.ParseBool(getEnv("SWAGGER_ENABLED", swaggerDefault))
	if err != nil {
		return Config{}, fmt.Errorf("parse SWAGGER_ENABLED: %w", err)
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}

	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceCaptureRequestBody, err := strconv.ParseBool(getEnv("UPTRACE_CAPTURE_REQUEST_BODY", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_CAPTURE_REQUEST_BODY: %w", err)
	}
	uptraceRequestBodyMaxBytes, err := getEnvAsInt("UPTRACE_REQUEST_BODY_MAX_BYTES", 4096)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_REQUEST_BODY_MAX_BYTES: %w", err)
	}
	if uptraceRequestBodyMaxBytes <= 0 {
		return Config{}, fmt.Errorf("UPTRACE_REQUEST_BODY_MAX_BYTES must be > 0")
	}

	betterStackEnabled, err := strconv.ParseBool(getEnv("BETTERSTACK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_ENABLED: %w", err)
	}
	betterStackEndpoint := strings.TrimSpace(getEnv("BETTERSTACK_ENDPOINT", ""))
	if betterStackEnabled && betterStackEndpoint == "" {
		return Config{}, fmt.Errorf("BETTERSTACK_ENDPOINT is required when BETTERSTACK_ENABLED=true")
	}
	betterStackTimeout, err := getEnvAsPositiveDuration("BETTERSTACK_TIMEOUT", "3s")
	if err != nil {
		return Config{}, err
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := getEnvAsPositiveDuration("PYROSCOPE_UPLOAD_RATE", "15s")
	if err != nil {
		return Config{}, err
	}

	storageDriver := strings.ToLower(strings.TrimSpace(getEnv("STORAGE_DRIVER", StorageMemory)))
	if storageDriver != StorageMemory && storageDriver != StoragePostgres {
		return Config{}, fmt.Errorf("invalid STORAGE_DRIVER %q: valid values are %s, %s", storageDriver, StorageMemory, StoragePostgres)
	}
	dbURL := strings.TrimSpace(getEnv("DB_URL", ""))
	if storageDriver == StoragePostgres && dbURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required when STORAGE_DRIVER=postgres")
	}
	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := getEnvAsPositiveDuration("CACHE_TTL", "60s")
	if err != nil {
		return Config{}, err
	}
	locationCacheTTL, err := getEnvAsPositiveDuration("LOCATION_CACHE_TTL", "15m")
	if err != nil {
		return Config{}, err
	}
	locationDetectBudget, err := getEnvAsPositiveDuration("LOCATION_DETECT_BUDGET", "5s")
	if err != nil {
		return Config{}, err
	}

	geoIPEnabled, err := strconv.ParseBool(getEnv("GEOIP_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse GEOIP_ENABLED: %w", err)
	}
	geoIPTimeout, err := getEnvAsPositiveDuration("GEOIP_TIMEOUT", "3s")
	if err != nil {
		return Config{}, err
	}
	geoIPCircuit, err := loadCircuit("GEOIP")
	if err != nil {
		return Config{}, err
	}

	latencyProbeEnabled, err := strconv.ParseBool(getEnv("LATENCY_PROBE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LATENCY_PROBE_ENABLED: %w", err)
	}
	latencyProbeTimeout, err := getEnvAsPositiveDuration("LATENCY_PROBE_TIMEOUT", "2s")
	if err != nil {
		return Config{}, err
	}
	latencyProbeWorkers, err := getEnvAsInt("LATENCY_PROBE_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse LATENCY_PROBE_WORKERS: %w", err)
	}
	if latencyProbeWorkers <= 0 {
		return Config{}, fmt.Errorf("LATENCY_PROBE_WORKERS must be > 0")
	}

	contentAIEnabled, err := strconv.ParseBool(getEnv("CONTENT_AI_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CONTENT_AI_ENABLED: %w", err)
	}
	contentAIBaseURL := strings.TrimSpace(getEnv("CONTENT_AI_BASE_URL", ""))
	if contentAIEnabled && contentAIBaseURL == "" {
		return Config{}, fmt.Errorf("CONTENT_AI_BASE_URL is required when CONTENT_AI_ENABLED=true")
	}
	contentAITimeout, err := getEnvAsPositiveDuration("CONTENT_AI_TIMEOUT", "8s")
	if err != nil {
		return Config{}, err
	}
	contentAICircuit, err := loadCircuit("CONTENT_AI")
	if err != nil {
		return Config{}, err
	}

	accountsTimeout, err := getEnvAsPositiveDuration("ACCOUNTS_TIMEOUT", "5s")
	if err != nil {
		return Config{}, err
	}
	accountsCircuit, err := loadCircuit("ACCOUNTS")
	if err != nil {
		return Config{}, err
	}

	progressCookieSecure, err := strconv.ParseBool(getEnv("PROGRESS_COOKIE_SECURE", strconv.FormatBool(appEnv != EnvDev)))
	if err != nil {
		return Config{}, fmt.Errorf("parse PROGRESS_COOKIE_SECURE: %w", err)
	}
	progressMaxAge, err := getEnvAsPositiveDuration("PROGRESS_MAX_AGE", "720h")
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := getEnvAsPositiveDuration("SESSION_TTL", "24h")
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "granada-personalization"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:                readTimeout,
		WriteTimeout:               writeTimeout,
		LogLevel:                   parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SwaggerEnabled:             swaggerEnabled,
		StorageDriver:              storageDriver,
		DBURL:                      dbURL,
		DBDisablePreparedBinary:    dbDisablePreparedBinary,
		CacheEnabled:               cacheEnabled,
		CacheTTL:                   cacheTTL,
		LocationCacheTTL:           locationCacheTTL,
		LocationDetectBudget:       locationDetectBudget,
		GeoIPEnabled:               geoIPEnabled,
		GeoIPTimeout:               geoIPTimeout,
		GeoIPIPGeolocationAPIKey:   strings.TrimSpace(getEnv("GEOIP_IPGEOLOCATION_API_KEY", "free")),
		GeoIPCircuit:               geoIPCircuit,
		LatencyProbeEnabled:        latencyProbeEnabled,
		LatencyProbeTimeout:        latencyProbeTimeout,
		LatencyProbeWorkers:        latencyProbeWorkers,
		ContentAIEnabled:           contentAIEnabled,
		ContentAIBaseURL:           contentAIBaseURL,
		ContentAITimeout:           contentAITimeout,
		ContentAICircuit:           contentAICircuit,
		AccountsBaseURL:            strings.TrimSpace(getEnv("ACCOUNTS_BASE_URL", "")),
		AccountsRegisterPath:       strings.TrimSpace(getEnv("ACCOUNTS_REGISTER_PATH", "/api/users/comprehensive-register")),
		AccountsTimeout:            accountsTimeout,
		AccountsCircuit:            accountsCircuit,
		ProgressCookieSecure:       progressCookieSecure,
		ProgressMaxAge:             progressMaxAge,
		SessionTTL:                 sessionTTL,
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  strings.TrimSpace(getEnv("PPROF_ADDR", ":6060")),
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		UptraceCaptureRequestBody:  uptraceCaptureRequestBody,
		UptraceRequestBodyMaxBytes: uptraceRequestBodyMaxBytes,
		BetterStackEnabled:         betterStackEnabled,
		BetterStackEndpoint:        betterStackEndpoint,
		BetterStackToken:           strings.TrimSpace(getEnv("BETTERSTACK_TOKEN", "")),
		BetterStackTimeout:         betterStackTimeout,
		BetterStackMinLevel:        parseLogLevel(getEnv("BETTERSTACK_MIN_LEVEL", "error")),
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadCircuit reads <PREFIX>_CIRCUIT_ENABLED, _FAILURE_COUNT, _OPEN_TIMEOUT and _HALF_OPEN_MAX_REQ.
func loadCircuit(prefix string) (CircuitConfig, error) {
	key := prefix + "_CIRCUIT_"

	enabled, err := strconv.ParseBool(getEnv(key+"ENABLED", "true"))
	if err != nil {
		return CircuitConfig{}, fmt.Errorf("parse %sENABLED: %w", key, err)
	}
	failureCount, err := getEnvAsInt(key+"FAILURE_COUNT", 5)
	if err != nil {
		return CircuitConfig{}, fmt.Errorf("parse %sFAILURE_COUNT: %w", key, err)
	}
	if failureCount <= 0 {
		return CircuitConfig{}, fmt.Errorf("%sFAILURE_COUNT must be > 0", key)
	}
	openTimeout, err := getEnvAsPositiveDuration(key+"OPEN_TIMEOUT", "30s")
	if err != nil {
		return CircuitConfig{}, err
	}
	halfOpenMaxReq, err := getEnvAsInt(key+"HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return CircuitConfig{}, fmt.Errorf("parse %sHALF_OPEN_MAX_REQ: %w", key, err)
	}
	if halfOpenMaxReq <= 0 {
		return CircuitConfig{}, fmt.Errorf("%sHALF_OPEN_MAX_REQ must be > 0", key)
	}

	return CircuitConfig{
		Enabled:        enabled,
		FailureCount:   failureCount,
		OpenTimeout:    openTimeout,
		HalfOpenMaxReq: halfOpenMaxReq,
	}, nil
}

func parseLogLevel(v string) logging.Level {
	return logging.ParseLevel(v)
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

func getEnvAsPositiveDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
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

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	for _, item := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(value), "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
