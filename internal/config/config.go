package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	AccountsFile  string        // path to the accounts.yaml file (empty = start without any session)
	WatchAccounts bool          // reload accounts.yaml when it changes on disk
	WatchDebounce time.Duration // quiet period before a changed accounts file is reloaded

	// Lemmy API client
	LemmyTimeout   time.Duration // per-request timeout against the instance (ex: 10s)
	LemmyUserAgent string        // User-Agent sent to the instance

	// Community data
	TrendingInterval time.Duration // interval between trending refreshes (default: 30m)
	TrendingLimit    int           // number of trending communities to fetch (default: 6)
	DefaultSort      string        // sort used when a community has no stored preference (default: Active)

	// Preference write-through
	SettingsBackend string        // "redis" | "sqlite"
	SQLitePath      string        // path of the sqlite settings file (sqlite backend only)
	WriteQueueSize  int           // pending durable writes before new ones are dropped
	WriteTimeout    time.Duration // timeout of each durable write

	// Redis (redis backend only)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	RateLimitBurst     int // requests allowed in a burst per client IP
	RateLimitPerMinute int // token refill per client IP per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("LEMCACHE_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("LEMCACHE_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("LEMCACHE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LEMCACHE_PRETTY_LOG", true),

		AccountsFile:  getenv("LEMCACHE_ACCOUNTS_FILE", ""),
		WatchAccounts: mustBool("LEMCACHE_WATCH_ACCOUNTS", true),
		WatchDebounce: mustDuration("LEMCACHE_WATCH_DEBOUNCE", 500*time.Millisecond),

		LemmyTimeout:   mustDuration("LEMCACHE_LEMMY_TIMEOUT", 10*time.Second),
		LemmyUserAgent: getenv("LEMCACHE_LEMMY_USER_AGENT", "lemcache"),

		TrendingInterval: mustDuration("LEMCACHE_TRENDING_INTERVAL", 30*time.Minute),
		TrendingLimit:    getenvInt("LEMCACHE_TRENDING_LIMIT", 6),
		DefaultSort:      getenv("LEMCACHE_DEFAULT_SORT", "Active"),

		SettingsBackend: strings.ToLower(getenv("LEMCACHE_SETTINGS_BACKEND", BackendSQLite)),
		SQLitePath:      getenv("LEMCACHE_SQLITE_PATH", "/data/settings.db"),
		WriteQueueSize:  getenvInt("LEMCACHE_WRITE_QUEUE_SIZE", 256),
		WriteTimeout:    mustDuration("LEMCACHE_WRITE_TIMEOUT", 3*time.Second),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("LEMCACHE_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("LEMCACHE_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("LEMCACHE_TRUST_PROXY", false),

		RateLimitBurst:     getenvInt("LEMCACHE_RATE_LIMIT_BURST", 30),
		RateLimitPerMinute: getenvInt("LEMCACHE_RATE_LIMIT_PER_MINUTE", 120),
	}

	switch cfg.SettingsBackend {
	case BackendRedis:
		loadRedis(cfg)
	case BackendSQLite:
		if cfg.SQLitePath == "" {
			panic("❌ FATAL: LEMCACHE_SQLITE_PATH must not be empty with the sqlite backend")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: Unknown LEMCACHE_SETTINGS_BACKEND %q (want %q or %q)",
			cfg.SettingsBackend, BackendRedis, BackendSQLite))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// loadRedis fills the Redis settings, which are only required by the redis backend.
func loadRedis(cfg *Config) {
	cfg.RedisAddr = requireEnv("LEMCACHE_REDIS_ADDR")
	cfg.RedisUser = getenv("LEMCACHE_REDIS_USERNAME", "default")
	cfg.RedisPasswordRequired = mustBool("LEMCACHE_REDIS_PASSWORD_REQUIRED", true)
	cfg.RedisPassword = getenv("LEMCACHE_REDIS_PASSWORD", "")
	cfg.RedisDB = requireEnvInt("LEMCACHE_REDIS_DB")
	cfg.RedisDT = mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.RedisRT = mustDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.RedisWT = mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	cfg.RedisMaxWait = mustDuration("REDIS_MAX_WAIT", 10*time.Second)
	cfg.RedisPingTimeout = mustDuration("REDIS_PING_TIMEOUT", 5*time.Second)
	cfg.RedisPoolSize = getenvInt("REDIS_POOL_SIZE", 10)
	cfg.RedisConnectTimeout = mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second)
	cfg.RedisRetryInterval = mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second)
	cfg.RedisWarnThreshold = getenvInt("REDIS_WARN_THRESHOLD", 3)

	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: LEMCACHE_REDIS_PASSWORD is required when LEMCACHE_REDIS_PASSWORD_REQUIRED=true")
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
