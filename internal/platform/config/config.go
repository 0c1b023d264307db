package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration shared by the worker, server and CLIs.
type Config struct {
	Temporal   TemporalConfig
	ClaimCheck ClaimCheckConfig
	Redis      RedisConfig
	Database   DatabaseConfig
	Opening    OpeningConfig
	Notify     NotifyConfig
	Accounts   AccountsConfig
	Server     ServerConfig
	LogLevel   string
}

// TemporalConfig locates the Temporal frontend.
type TemporalConfig struct {
	Address              string
	Namespace            string
	TaskQueue            string
	OpenAccountTaskQueue string
	CertPath             string
	KeyPath              string
}

// TLSEnabled reports whether a client certificate pair is configured.
func (t TemporalConfig) TLSEnabled() bool {
	return t.CertPath != "" && t.KeyPath != ""
}

// ClaimCheckConfig controls payload offloading.
type ClaimCheckConfig struct {
	Enabled        bool
	Store          string // redis, postgres or memory
	ThresholdBytes int
	TTL            time.Duration
	Timeout        time.Duration
	// RedisPrefix is prepended to Redis keys; empty stores bare keys.
	RedisPrefix string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL          string
	Host         string
	Port         int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Address returns URL, or a URL built from Host and Port when URL is unset.
func (r RedisConfig) Address() string {
	if r.URL != "" {
		return r.URL
	}
	return fmt.Sprintf("redis://%s:%d/0", r.Host, r.Port)
}

// DatabaseConfig holds the Postgres DSN.
type DatabaseConfig struct {
	URL string
}

// OpeningConfig configures the account opening workflow.
type OpeningConfig struct {
	MissingParent   string
	ActivityTimeout time.Duration
}

// NotifyConfig configures the state relay.
type NotifyConfig struct {
	Timeout     time.Duration
	MaxAttempts int
}

// AccountsConfig points at the remote wealth-management API. An empty URL selects
// the in-memory demo backend.
type AccountsConfig struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

// ServerConfig captures HTTP server settings.
type ServerConfig struct {
	Addr          string
	WorkerAddr    string
	Environment   string
	JWTSigningKey string
}

var envBindings = map[string][]string{
	"temporal.address":                 {"TEMPORAL_ADDRESS"},
	"temporal.namespace":               {"TEMPORAL_NAMESPACE"},
	"temporal.task_queue":              {"TEMPORAL_TASK_QUEUE"},
	"temporal.open_account_task_queue": {"TEMPORAL_TASK_QUEUE_OPEN_ACCOUNT"},
	"temporal.cert_path":               {"TEMPORAL_CERT_PATH"},
	"temporal.key_path":                {"TEMPORAL_KEY_PATH", "TEMPORAL_KEY_PKCS8_PATH"},
	"claim_check.enabled":              {"USE_CLAIM_CHECK"},
	"claim_check.store":                {"CLAIM_CHECK_STORE"},
	"claim_check.threshold_bytes":      {"CLAIM_CHECK_THRESHOLD_BYTES"},
	"claim_check.ttl":                  {"CLAIM_CHECK_TTL"},
	"claim_check.timeout":              {"CLAIM_CHECK_TIMEOUT"},
	"claim_check.redis_prefix":         {"CLAIM_CHECK_REDIS_PREFIX"},
	"redis.url":                        {"REDIS_URL"},
	"redis.host":                       {"REDIS_HOST"},
	"redis.port":                       {"REDIS_PORT"},
	"database.url":                     {"DATABASE_URL"},
	"opening.missing_parent":           {"OPENING_MISSING_PARENT"},
	"opening.activity_timeout":         {"OPENING_ACTIVITY_TIMEOUT"},
	"notify.timeout":                   {"NOTIFY_TIMEOUT"},
	"notify.max_attempts":              {"NOTIFY_MAX_ATTEMPTS"},
	"accounts.api_url":                 {"ACCOUNTS_API_URL"},
	"accounts.api_key":                 {"ACCOUNTS_API_KEY"},
	"accounts.timeout":                 {"ACCOUNTS_API_TIMEOUT"},
	"server.addr":                      {"SERVER_ADDR"},
	"server.worker_addr":               {"WORKER_ADDR"},
	"server.environment":               {"ENVIRONMENT"},
	"server.jwt_signing_key":           {"JWT_SIGNING_KEY"},
	"log_level":                        {"LOG_LEVEL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("temporal.address", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "Supervisor")
	v.SetDefault("claim_check.enabled", "false")
	v.SetDefault("claim_check.store", "redis")
	v.SetDefault("claim_check.threshold_bytes", 0)
	v.SetDefault("claim_check.ttl", "0s")
	v.SetDefault("claim_check.timeout", "10s")
	v.SetDefault("claim_check.redis_prefix", "claimcheck:")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("opening.missing_parent", "skip")
	v.SetDefault("opening.activity_timeout", "5s")
	v.SetDefault("notify.timeout", "5s")
	v.SetDefault("notify.max_attempts", 5)
	v.SetDefault("accounts.timeout", "5s")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.worker_addr", ":9090")
	v.SetDefault("server.environment", "development")
	v.SetDefault("log_level", "info")
}

// Load reads defaults, an optional file named by WEALTH_CONFIG, and the environment.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	// viper treats an empty variable as unset; an explicit empty prefix must
	// still override the default.
	if prefix, ok := os.LookupEnv("CLAIM_CHECK_REDIS_PREFIX"); ok && prefix == "" {
		v.Set("claim_check.redis_prefix", "")
	}
	if err := v.BindEnv("config_file", "WEALTH_CONFIG"); err != nil {
		return Config{}, fmt.Errorf("bind config_file: %w", err)
	}
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	useClaimCheck, err := ParseBool(v.GetString("claim_check.enabled"))
	if err != nil {
		return Config{}, fmt.Errorf("USE_CLAIM_CHECK: %w", err)
	}

	cfg := Config{
		Temporal: TemporalConfig{
			Address:              v.GetString("temporal.address"),
			Namespace:            v.GetString("temporal.namespace"),
			TaskQueue:            v.GetString("temporal.task_queue"),
			OpenAccountTaskQueue: v.GetString("temporal.open_account_task_queue"),
			CertPath:             v.GetString("temporal.cert_path"),
			KeyPath:              v.GetString("temporal.key_path"),
		},
		ClaimCheck: ClaimCheckConfig{
			Enabled:        useClaimCheck,
			Store:          strings.ToLower(v.GetString("claim_check.store")),
			ThresholdBytes: v.GetInt("claim_check.threshold_bytes"),
			TTL:            v.GetDuration("claim_check.ttl"),
			Timeout:        v.GetDuration("claim_check.timeout"),
			RedisPrefix:    v.GetString("claim_check.redis_prefix"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			Host:         v.GetString("redis.host"),
			Port:         v.GetInt("redis.port"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Database: DatabaseConfig{URL: v.GetString("database.url")},
		Opening: OpeningConfig{
			MissingParent:   v.GetString("opening.missing_parent"),
			ActivityTimeout: v.GetDuration("opening.activity_timeout"),
		},
		Notify: NotifyConfig{
			Timeout:     v.GetDuration("notify.timeout"),
			MaxAttempts: v.GetInt("notify.max_attempts"),
		},
		Accounts: AccountsConfig{
			APIURL:  strings.TrimRight(v.GetString("accounts.api_url"), "/"),
			APIKey:  v.GetString("accounts.api_key"),
			Timeout: v.GetDuration("accounts.timeout"),
		},
		Server: ServerConfig{
			Addr:          v.GetString("server.addr"),
			WorkerAddr:    v.GetString("server.worker_addr"),
			Environment:   v.GetString("server.environment"),
			JWTSigningKey: v.GetString("server.jwt_signing_key"),
		},
		LogLevel: v.GetString("log_level"),
	}

	if cfg.Temporal.OpenAccountTaskQueue == "" {
		cfg.Temporal.OpenAccountTaskQueue = cfg.Temporal.TaskQueue
	}
	switch cfg.ClaimCheck.Store {
	case "redis", "postgres", "memory":
	default:
		return Config{}, fmt.Errorf("CLAIM_CHECK_STORE: unknown store %q", cfg.ClaimCheck.Store)
	}
	if cfg.ClaimCheck.Enabled && cfg.ClaimCheck.Store == "postgres" && cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("CLAIM_CHECK_STORE=postgres requires DATABASE_URL")
	}
	return cfg, nil
}

// ParseBool accepts true/t/yes/y/1 and false/f/no/n/0 in any case. Empty is false.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %s", strconv.Quote(s))
	}
}
