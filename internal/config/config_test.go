package config

import (
	"testing"
	"time"
)

func TestLoadLockConfigDefaults(t *testing.T) {
	t.Setenv("LOCK_TIMEOUT", "")
	t.Setenv("LOCK_TTL", "")
	t.Setenv("LOCK_PREFIX", "")
	cfg := LoadLockConfig()
	if cfg.Timeout != 2*time.Second || cfg.TTL != 10*time.Second || cfg.Prefix != "lock" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadLockConfigKeepsTTLAboveTimeout(t *testing.T) {
	t.Setenv("LOCK_TIMEOUT", "3s")
	t.Setenv("LOCK_TTL", "1s")
	cfg := LoadLockConfig()
	if cfg.TTL != 15*time.Second {
		t.Fatalf("expected TTL raised to 15s, got %s", cfg.TTL)
	}
}

func TestLoadRateLimitConfigBurstOverride(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 5 || cfg.RefillTokens != 1 || cfg.RefillInterval != 2*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.TTL < 10*time.Second {
		t.Fatalf("TTL %s shorter than five refill intervals", cfg.TTL)
	}
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	if !cfg.Methods["GET"] || !cfg.Methods["HEAD"] || cfg.Methods["POST"] {
		t.Fatalf("unexpected methods %v", cfg.Methods)
	}
}

func TestEnvBoolParsing(t *testing.T) {
	t.Setenv("X_FLAG", "yes")
	if !envBool("X_FLAG", false) {
		t.Fatal("yes should be true")
	}
	t.Setenv("X_FLAG", "garbage")
	if envBool("X_FLAG", false) {
		t.Fatal("unparseable value should fall back to default")
	}
}

func TestIsProduction(t *testing.T) {
	if !(Config{Env: "prod"}).IsProduction() || (Config{Env: "dev"}).IsProduction() {
		t.Fatal("IsProduction mismatch")
	}
}

func TestLoadRedisConfigHostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_TLS", "on")
	cfg := LoadRedisConfig()
	if cfg.Addr != "redis:6379" {
		t.Fatalf("expected host:port address, got %q", cfg.Addr)
	}
	opts := cfg.Options()
	if opts.TLSConfig == nil || opts.TLSConfig.InsecureSkipVerify {
		t.Fatalf("expected verified TLS, got %+v", opts.TLSConfig)
	}
}

func TestNewRedisClientDisabled(t *testing.T) {
	t.Setenv("REDIS_DISABLED", "true")
	if NewRedisClient() != nil {
		t.Fatal("disabled redis must yield a nil client")
	}
}
