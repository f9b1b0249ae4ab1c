package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/clanforge/war-tracker/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	LogLevel           logging.Level
	CORSAllowedOrigins []string
	SwaggerEnabled     bool

	// ClanTag is the clan whose wars are collected. Everything orients
	// around it.
	ClanTag string `validate:"required,startswith=#"`

	ClashBaseURL               string `validate:"required,url"`
	ClashAPIToken              string `validate:"required"`
	ClashTimeout               time.Duration
	ClashMaxRetries            int
	ClashRetryBaseDelay        time.Duration
	ClashCircuitEnabled        bool
	ClashCircuitFailureCount   int
	ClashCircuitOpenTimeout    time.Duration
	ClashCircuitHalfOpenMaxReq int

	WarSweepInterval    time.Duration
	LeagueSweepInterval time.Duration
	WarEndLead          time.Duration
	LeagueFetchWorkers  int
	LeagueFetchPause    time.Duration

	DataDir                 string
	DBURL                   string
	DBDisablePreparedBinary bool
	CacheEnabled            bool
	CacheTTL                time.Duration

	InternalJobToken string

	PprofEnabled bool
	PprofAddr    string

	UptraceEnabled     bool
	UptraceDSN         string
	UptraceLogsEnabled bool

	BetterStackEnabled  bool
	BetterStackEndpoint string
	BetterStackToken    string
	BetterStackTimeout  time.Duration
	BetterStackMinLevel logging.Level

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

func Load() (Config, error) {
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

	clashTimeout, err := time.ParseDuration(getEnv("CLASH_HTTP_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_HTTP_TIMEOUT: %w", err)
	}
	if clashTimeout <= 0 {
		return Config{}, fmt.Errorf("CLASH_HTTP_TIMEOUT must be > 0")
	}
	clashMaxRetries, err := getEnvAsInt("CLASH_MAX_RETRIES", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_MAX_RETRIES: %w", err)
	}
	if clashMaxRetries < 1 {
		return Config{}, fmt.Errorf("CLASH_MAX_RETRIES must be >= 1")
	}
	clashRetryBaseDelay, err := time.ParseDuration(getEnv("CLASH_RETRY_BASE_DELAY", "1s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_RETRY_BASE_DELAY: %w", err)
	}
	if clashRetryBaseDelay <= 0 {
		return Config{}, fmt.Errorf("CLASH_RETRY_BASE_DELAY must be > 0")
	}
	clashCircuitEnabled, err := strconv.ParseBool(getEnv("CLASH_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_CIRCUIT_ENABLED: %w", err)
	}
	clashCircuitFailureCount, err := getEnvAsInt("CLASH_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if clashCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("CLASH_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	clashCircuitOpenTimeout, err := time.ParseDuration(getEnv("CLASH_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if clashCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("CLASH_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	clashCircuitHalfOpenMaxReq, err := getEnvAsInt("CLASH_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse CLASH_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if clashCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("CLASH_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	warSweepInterval, err := time.ParseDuration(getEnv("WAR_SWEEP_INTERVAL", "2h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse WAR_SWEEP_INTERVAL: %w", err)
	}
	if warSweepInterval <= 0 {
		return Config{}, fmt.Errorf("WAR_SWEEP_INTERVAL must be > 0")
	}
	leagueSweepInterval, err := time.ParseDuration(getEnv("LEAGUE_SWEEP_INTERVAL", "6h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_SWEEP_INTERVAL: %w", err)
	}
	if leagueSweepInterval <= 0 {
		return Config{}, fmt.Errorf("LEAGUE_SWEEP_INTERVAL must be > 0")
	}
	warEndLead, err := time.ParseDuration(getEnv("WAR_END_LEAD", "1m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse WAR_END_LEAD: %w", err)
	}
	if warEndLead <= 0 {
		return Config{}, fmt.Errorf("WAR_END_LEAD must be > 0")
	}
	leagueFetchWorkers, err := getEnvAsInt("LEAGUE_FETCH_WORKERS", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_FETCH_WORKERS: %w", err)
	}
	if leagueFetchWorkers < 1 {
		return Config{}, fmt.Errorf("LEAGUE_FETCH_WORKERS must be >= 1")
	}
	leagueFetchPause, err := time.ParseDuration(getEnv("LEAGUE_FETCH_PAUSE", "200ms"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LEAGUE_FETCH_PAUSE: %w", err)
	}
	if leagueFetchPause < 0 {
		return Config{}, fmt.Errorf("LEAGUE_FETCH_PAUSE must be >= 0")
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
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}

	betterStackEnabled, err := strconv.ParseBool(getEnv("BETTERSTACK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_ENABLED: %w", err)
	}
	betterStackEndpoint := strings.TrimSpace(getEnv("BETTERSTACK_ENDPOINT", ""))
	if betterStackEnabled && betterStackEndpoint == "" {
		return Config{}, fmt.Errorf("BETTERSTACK_ENDPOINT is required when BETTERSTACK_ENABLED=true")
	}
	betterStackTimeout, err := time.ParseDuration(getEnv("BETTERSTACK_TIMEOUT", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_TIMEOUT: %w", err)
	}
	if betterStackTimeout <= 0 {
		return Config{}, fmt.Errorf("BETTERSTACK_TIMEOUT must be > 0")
	}
	betterStackMinLevel := parseLogLevel(getEnv("BETTERSTACK_MIN_LEVEL", "error"))

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
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

	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
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
		AppEnv:             appEnv,
		ServiceName:        getEnv("APP_SERVICE_NAME", "war-tracker-api"),
		ServiceVersion:     getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:           getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		LogLevel:           parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SwaggerEnabled:     swaggerEnabled,

		ClanTag: strings.ToUpper(strings.TrimSpace(getEnv("CLAN_TAG", ""))),

		ClashBaseURL:               strings.TrimRight(strings.TrimSpace(getEnv("CLASH_BASE_URL", "https://api.clashofclans.com/v1")), "/"),
		ClashAPIToken:              strings.TrimSpace(getEnv("CLASH_API_TOKEN", "")),
		ClashTimeout:               clashTimeout,
		ClashMaxRetries:            clashMaxRetries,
		ClashRetryBaseDelay:        clashRetryBaseDelay,
		ClashCircuitEnabled:        clashCircuitEnabled,
		ClashCircuitFailureCount:   clashCircuitFailureCount,
		ClashCircuitOpenTimeout:    clashCircuitOpenTimeout,
		ClashCircuitHalfOpenMaxReq: clashCircuitHalfOpenMaxReq,

		WarSweepInterval:    warSweepInterval,
		LeagueSweepInterval: leagueSweepInterval,
		WarEndLead:          warEndLead,
		LeagueFetchWorkers:  leagueFetchWorkers,
		LeagueFetchPause:    leagueFetchPause,

		DataDir:                 strings.TrimSpace(getEnv("DATA_DIR", "./data")),
		DBURL:                   strings.TrimSpace(getEnv("DB_URL", "")),
		DBDisablePreparedBinary: dbDisablePreparedBinary,
		CacheEnabled:            cacheEnabled,
		CacheTTL:                cacheTTL,

		InternalJobToken: strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),

		PprofEnabled: pprofEnabled,
		PprofAddr:    pprofAddr,

		UptraceEnabled:     uptraceEnabled,
		UptraceDSN:         uptraceDSN,
		UptraceLogsEnabled: uptraceLogsEnabled,

		BetterStackEnabled:  betterStackEnabled,
		BetterStackEndpoint: betterStackEndpoint,
		BetterStackToken:    strings.TrimSpace(getEnv("BETTERSTACK_TOKEN", "")),
		BetterStackTimeout:  betterStackTimeout,
		BetterStackMinLevel: betterStackMinLevel,

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

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config (CLAN_TAG, CLASH_API_TOKEN, CLASH_BASE_URL): %w", err)
	}

	return cfg, nil
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

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
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
