package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/medic/internal/domain"
)

type Config struct {
	ListenPort      string        // ex: ":5001"
	ShutdownTimeout time.Duration // ex: 10s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Targets
	TargetsFile    string        // optional YAML file; empty => single inline target below
	TargetName     string        // inline target name (ex: "webapp")
	HealthURL      string        // inline target health endpoint
	InstancePrefix string        // inline target instance name prefix
	DefaultTarget  string        // target used for alerts that name none
	ReloadInterval time.Duration // interval to reload the targets file (0 = off)
	WatchTargets   bool          // reload the targets file when it changes

	// Remediation
	DockerHost      string        // optional, overrides DOCKER_HOST
	ProbeTimeout    time.Duration // single health probe bound
	ActionTimeout   time.Duration // single platform call bound
	MaxCycles       int           // inspect/plan/act cycles per run
	ParallelActions int           // concurrent actions within a cycle
	LogTail         int           // log lines collected per instance
	RunTimeout      time.Duration // whole run bound

	// Dispatch
	Workers       int           // concurrent runs (distinct targets)
	QueueSize     int           // pending runs
	SweepInterval time.Duration // proactive probe of every target (0 = off)
	HistoryLimit  int           // in-memory run history capacity

	// Redis (optional history backend)
	RedisAddr             string        // ex: "localhost:6379", empty => memory history
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
	RedisRunTTL           time.Duration // how long run records are kept

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers

	WebhookBurst        int // webhook token bucket size
	WebhookRefillPerMin int // webhook tokens added per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MEDIC_LISTEN_PORT", ":5001"),
		ShutdownTimeout: mustDuration("MEDIC_SHUTDOWN_TIMEOUT", 10*time.Second),

		// Logging
		LogLevel:  getenv("MEDIC_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MEDIC_PRETTY_LOG", true),

		// Targets
		TargetsFile:    getenv("MEDIC_TARGETS_FILE", ""),
		TargetName:     getenv("MEDIC_TARGET_NAME", "webapp"),
		HealthURL:      getenv("MEDIC_HEALTH_URL", "http://webapp:8000/"),
		InstancePrefix: getenv("MEDIC_INSTANCE_PREFIX", "devopsagent-webapp-"),
		DefaultTarget:  getenv("MEDIC_DEFAULT_TARGET", ""),
		ReloadInterval: mustDuration("MEDIC_RELOAD_INTERVAL", time.Hour),
		WatchTargets:   mustBool("MEDIC_WATCH_TARGETS", true),

		// Remediation
		DockerHost:      getenv("MEDIC_DOCKER_HOST", ""),
		ProbeTimeout:    mustDuration("MEDIC_PROBE_TIMEOUT", 5*time.Second),
		ActionTimeout:   mustDuration("MEDIC_ACTION_TIMEOUT", 30*time.Second),
		MaxCycles:       getenvInt("MEDIC_MAX_CYCLES", 3),
		ParallelActions: getenvInt("MEDIC_PARALLEL_ACTIONS", 1),
		LogTail:         getenvInt("MEDIC_LOG_TAIL", 20),
		RunTimeout:      mustDuration("MEDIC_RUN_TIMEOUT", 5*time.Minute),

		// Dispatch
		Workers:       getenvInt("MEDIC_WORKERS", 2),
		QueueSize:     getenvInt("MEDIC_QUEUE_SIZE", 32),
		SweepInterval: mustDuration("MEDIC_SWEEP_INTERVAL", 0),
		HistoryLimit:  getenvInt("MEDIC_HISTORY_LIMIT", 200),

		// Redis settings
		RedisAddr:             getenv("MEDIC_REDIS_ADDR", ""),
		RedisUser:             getenv("MEDIC_REDIS_USERNAME", ""),
		RedisPasswordRequired: mustBool("MEDIC_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("MEDIC_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("MEDIC_REDIS_DB", 0),
		RedisDT:               mustDuration("MEDIC_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("MEDIC_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("MEDIC_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("MEDIC_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("MEDIC_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("MEDIC_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("MEDIC_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("MEDIC_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("MEDIC_REDIS_WARN_THRESHOLD", 3),
		RedisRunTTL:           mustDuration("MEDIC_REDIS_RUN_TTL", 7*24*time.Hour),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("MEDIC_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("MEDIC_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("MEDIC_TRUST_PROXY", false),

		WebhookBurst:        getenvInt("MEDIC_WEBHOOK_BURST", 10),
		WebhookRefillPerMin: getenvInt("MEDIC_WEBHOOK_REFILL_PER_MIN", 30),
	}

	// Validate Redis password configuration
	if cfg.RedisAddr != "" && cfg.RedisPasswordRequired {
		cfg.RedisPassword = requireEnv("MEDIC_REDIS_PASSWORD")
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// Validate rejects settings the remediation loop cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.MaxCycles < 1:
		return fmt.Errorf("MEDIC_MAX_CYCLES must be >= 1, got %d", c.MaxCycles)
	case c.ParallelActions < 1:
		return fmt.Errorf("MEDIC_PARALLEL_ACTIONS must be >= 1, got %d", c.ParallelActions)
	case c.Workers < 1:
		return fmt.Errorf("MEDIC_WORKERS must be >= 1, got %d", c.Workers)
	case c.QueueSize < 0:
		return fmt.Errorf("MEDIC_QUEUE_SIZE must be >= 0, got %d", c.QueueSize)
	case c.ProbeTimeout <= 0:
		return fmt.Errorf("MEDIC_PROBE_TIMEOUT must be > 0, got %v", c.ProbeTimeout)
	case c.ActionTimeout <= 0:
		return fmt.Errorf("MEDIC_ACTION_TIMEOUT must be > 0, got %v", c.ActionTimeout)
	case c.TargetsFile == "" && (c.TargetName == "" || c.HealthURL == "" || c.InstancePrefix == ""):
		return fmt.Errorf("MEDIC_TARGETS_FILE or MEDIC_TARGET_NAME, MEDIC_HEALTH_URL and MEDIC_INSTANCE_PREFIX must be set")
	}
	return nil
}

// InlineTarget is the single target described by environment variables.
func (c *Config) InlineTarget() domain.ServiceTarget {
	return domain.ServiceTarget{
		Name:           c.TargetName,
		HealthURL:      c.HealthURL,
		InstancePrefix: c.InstancePrefix,
		ProbeTimeout:   c.ProbeTimeout,
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
