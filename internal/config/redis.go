package config

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server shared by the vendor lock, the
// availability read cache and rate limiting.
type RedisConfig struct {
	Disabled    bool
	Addr        string
	Password    string
	DB          int
	TLS         bool
	InsecureTLS bool
}

// LoadRedisConfig reads REDIS_* variables. REDIS_HOST and REDIS_PORT
// together take precedence over REDIS_ADDR.
func LoadRedisConfig() RedisConfig {
	cfg := RedisConfig{
		Disabled:    envBool("REDIS_DISABLED", false),
		Addr:        envStr("REDIS_ADDR", "localhost:6379"),
		Password:    envStr("REDIS_PASSWORD", ""),
		DB:          envInt("REDIS_DB", 0),
		TLS:         envBool("REDIS_TLS", false),
		InsecureTLS: envBool("REDIS_TLS_INSECURE", false),
	}
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		cfg.Addr = host + ":" + port
	}
	return cfg
}

// Options converts the config into go-redis client options.
func (c RedisConfig) Options() *redis.Options {
	opts := &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
	if c.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.InsecureTLS}
	}
	return opts
}

// NewRedisClient connects using LoadRedisConfig. It returns nil when Redis
// is disabled or does not answer a ping within two seconds; callers then
// fall back to an in-process lock with caching and rate limiting off.
func NewRedisClient() *redis.Client {
	cfg := LoadRedisConfig()
	if cfg.Disabled {
		return nil
	}
	client := redis.NewClient(cfg.Options())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
