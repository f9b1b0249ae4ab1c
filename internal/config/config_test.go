package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("CLAN_TAG", "#2PP0JCCL")
	t.Setenv("CLASH_API_TOKEN", "test-token")
}

func TestLoad_AppEnvValidation(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_ClanTagRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLAN_TAG", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when CLAN_TAG is empty")
	}
}

func TestLoad_ClanTagMustStartWithHash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLAN_TAG", "2PP0JCCL")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for clan tag without leading #")
	}
}

func TestLoad_ClanTagUppercased(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLAN_TAG", " #2pp0jccl ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ClanTag != "#2PP0JCCL" {
		t.Fatalf("unexpected clan tag: %q", cfg.ClanTag)
	}
}

func TestLoad_ClashAPITokenRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLASH_API_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when CLASH_API_TOKEN is empty")
	}
}

func TestLoad_ClashDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ClashBaseURL != "https://api.clashofclans.com/v1" {
		t.Fatalf("unexpected clash base url: %q", cfg.ClashBaseURL)
	}
	if cfg.ClashTimeout != 10*time.Second {
		t.Fatalf("unexpected clash timeout: %s", cfg.ClashTimeout)
	}
	if cfg.ClashMaxRetries != 3 {
		t.Fatalf("unexpected clash max retries: %d", cfg.ClashMaxRetries)
	}
	if cfg.ClashRetryBaseDelay != time.Second {
		t.Fatalf("unexpected clash retry base delay: %s", cfg.ClashRetryBaseDelay)
	}
	if !cfg.ClashCircuitEnabled {
		t.Fatalf("expected circuit breaker enabled by default")
	}
	if cfg.ClashCircuitFailureCount != 5 {
		t.Fatalf("unexpected circuit failure count: %d", cfg.ClashCircuitFailureCount)
	}
	if cfg.ClashCircuitOpenTimeout != 15*time.Second {
		t.Fatalf("unexpected circuit open timeout: %s", cfg.ClashCircuitOpenTimeout)
	}
}

func TestLoad_ClashMaxRetriesMustAllowOneAttempt(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLASH_MAX_RETRIES", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when CLASH_MAX_RETRIES is 0")
	}
}

func TestLoad_ClashBaseURLTrailingSlashTrimmed(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CLASH_BASE_URL", "https://proxy.example.com/v1/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ClashBaseURL != "https://proxy.example.com/v1" {
		t.Fatalf("unexpected clash base url: %q", cfg.ClashBaseURL)
	}
}

func TestLoad_SweepDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.WarSweepInterval != 2*time.Hour {
		t.Fatalf("unexpected war sweep interval: %s", cfg.WarSweepInterval)
	}
	if cfg.LeagueSweepInterval != 6*time.Hour {
		t.Fatalf("unexpected league sweep interval: %s", cfg.LeagueSweepInterval)
	}
	if cfg.WarEndLead != time.Minute {
		t.Fatalf("unexpected war end lead: %s", cfg.WarEndLead)
	}
	if cfg.LeagueFetchWorkers != 1 {
		t.Fatalf("unexpected league fetch workers: %d", cfg.LeagueFetchWorkers)
	}
	if cfg.LeagueFetchPause != 200*time.Millisecond {
		t.Fatalf("unexpected league fetch pause: %s", cfg.LeagueFetchPause)
	}
}

func TestLoad_SweepIntervalValidation(t *testing.T) {
	setRequiredEnv(t)

	t.Run("invalid duration", func(t *testing.T) {
		t.Setenv("WAR_SWEEP_INTERVAL", "bad")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid WAR_SWEEP_INTERVAL")
		}
	})

	t.Run("non positive", func(t *testing.T) {
		t.Setenv("WAR_SWEEP_INTERVAL", "0s")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for zero WAR_SWEEP_INTERVAL")
		}
	})
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "uptrace-dsn=https://token@api.uptrace.dev?grpc=4317")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected uptrace dsn: %q", cfg.UptraceDSN)
	}
}

func TestLoad_BetterStackRequiresEndpointWhenEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BETTERSTACK_ENABLED", "true")
	t.Setenv("BETTERSTACK_ENDPOINT", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when BETTERSTACK_ENABLED=true without BETTERSTACK_ENDPOINT")
	}
}

func TestLoad_BetterStackConfigParsing(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BETTERSTACK_ENABLED", "true")
	t.Setenv("BETTERSTACK_ENDPOINT", "s1765114.eu-fsn-3.betterstackdata.com")
	t.Setenv("BETTERSTACK_TOKEN", "token-123")
	t.Setenv("BETTERSTACK_TIMEOUT", "4s")
	t.Setenv("BETTERSTACK_MIN_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.BetterStackEnabled {
		t.Fatalf("expected BetterStackEnabled=true")
	}
	if cfg.BetterStackEndpoint != "s1765114.eu-fsn-3.betterstackdata.com" {
		t.Fatalf("unexpected BetterStackEndpoint: %q", cfg.BetterStackEndpoint)
	}
	if cfg.BetterStackToken != "token-123" {
		t.Fatalf("unexpected BetterStackToken")
	}
	if cfg.BetterStackTimeout != 4*time.Second {
		t.Fatalf("unexpected BetterStackTimeout: %s", cfg.BetterStackTimeout)
	}
	if cfg.BetterStackMinLevel.String() != "warn" {
		t.Fatalf("unexpected BetterStackMinLevel: %s", cfg.BetterStackMinLevel.String())
	}
}

func TestLoad_DefaultsByEnv(t *testing.T) {
	t.Run("prod disables swagger by default", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("APP_ENV", EnvProd)
		t.Setenv("SWAGGER_ENABLED", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.SwaggerEnabled {
			t.Fatalf("expected SwaggerEnabled=false in prod by default")
		}
	})

	t.Run("dev enables swagger by default", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("SWAGGER_ENABLED", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.SwaggerEnabled {
			t.Fatalf("expected SwaggerEnabled=true in dev by default")
		}
	})
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeRequiresServerAddressWhenEnabled(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without PYROSCOPE_SERVER_ADDRESS")
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_SERVICE_NAME", "war-tracker-api-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "war-tracker-api-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CORSOriginsDefaultAndParsing(t *testing.T) {
	t.Run("default wildcard", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("CORS_ALLOWED_ORIGINS", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
			t.Fatalf("unexpected default CORS origins: %+v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("comma separated parsing", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, http://localhost:5173 ")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.CORSAllowedOrigins) != 2 {
			t.Fatalf("unexpected CORS origins length: %d", len(cfg.CORSAllowedOrigins))
		}
		if cfg.CORSAllowedOrigins[0] != "https://a.example.com" {
			t.Fatalf("unexpected first CORS origin: %s", cfg.CORSAllowedOrigins[0])
		}
		if cfg.CORSAllowedOrigins[1] != "http://localhost:5173" {
			t.Fatalf("unexpected second CORS origin: %s", cfg.CORSAllowedOrigins[1])
		}
	})
}

func TestLoad_StorageDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATA_DIR", "")
	t.Setenv("DB_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DataDir != "./data" {
		t.Fatalf("unexpected data dir: %q", cfg.DataDir)
	}
	if cfg.DBURL != "" {
		t.Fatalf("expected empty DB_URL by default, got %q", cfg.DBURL)
	}
}

func TestLoad_DBDisablePreparedBinaryResultParsing(t *testing.T) {
	t.Run("default true", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.DBDisablePreparedBinary {
			t.Fatalf("expected DBDisablePreparedBinary=true by default")
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "not-bool")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid DB_DISABLE_PREPARED_BINARY_RESULT")
		}
	})
}

func TestLoad_CacheConfigParsing(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("CACHE_ENABLED", "")
		t.Setenv("CACHE_TTL", "")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.CacheEnabled {
			t.Fatalf("expected cache enabled by default")
		}
		if cfg.CacheTTL != 60*time.Second {
			t.Fatalf("unexpected default cache ttl: %s", cfg.CacheTTL)
		}
	})

	t.Run("invalid ttl", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("CACHE_TTL", "bad")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid CACHE_TTL")
		}
	})
}

func TestLoad_InternalJobToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INTERNAL_JOB_TOKEN", " internal-job-token ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.InternalJobToken != "internal-job-token" {
		t.Fatalf("unexpected internal job token: %q", cfg.InternalJobToken)
	}
}
