// Package redis provides a Redis client with OpenTelemetry tracing and
// structured error handling for the TOSCA platform. Its primary consumer
// is the session store, which keeps browser login sessions in Redis.
//
// The client wraps go-redis (github.com/redis/go-redis/v9). Connection
// pooling, reconnection, and command retry are handled by go-redis.
//
// Create a client with [NewClient]:
//
//	cfg := redis.DefaultConfig()
//	cfg.Password = redis.Secret(os.Getenv("REDIS_PASSWORD"))
//	client, err := redis.NewClient(ctx, *cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// For testing, inject a mock with [NewFromClient].
package redis

import (
	"fmt"
	"net/url"
	"time"
)

// maxStatementTruncateLen is the maximum length for Redis command
// statements recorded in trace spans, so key contents never leak into
// telemetry.
const maxStatementTruncateLen = 100

// Default connection settings for a TOSCA deployment, where Redis runs
// as the "redis" service next to the API containers.
const (
	// DefaultHost is the service name of Redis in the TOSCA deployment.
	DefaultHost = "redis"

	// DefaultPort is the standard Redis port.
	DefaultPort = 6379

	// DefaultDB is the Redis database index used for sessions.
	DefaultDB = 0

	// DefaultPoolSize is the maximum number of pooled connections.
	DefaultPoolSize = 25

	// DefaultMinIdleConns keeps a few connections warm for login bursts.
	DefaultMinIdleConns = 5

	// DefaultMaxRetries is the number of command retries for transient
	// network failures.
	DefaultMaxRetries = 3

	// DefaultDialTimeout bounds new connection establishment.
	DefaultDialTimeout = 10 * time.Second

	// DefaultReadTimeout bounds a single read from Redis.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds a single write to Redis.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultHealthTimeout is applied to a health check ping when the
	// caller's context has no deadline.
	DefaultHealthTimeout = 5 * time.Second
)

// Secret is a string type that prevents accidental logging of sensitive
// values such as Redis passwords. Use [Secret.Value] for the actual value.
type Secret string

// redacted is the placeholder returned by Secret's string methods.
const redacted = "[REDACTED]"

// String returns "[REDACTED]" to prevent accidental logging of the secret.
func (s Secret) String() string { return redacted }

// GoString returns "[REDACTED]" for fmt.Sprintf("%#v", secret) safety.
func (s Secret) GoString() string { return redacted }

// Value returns the actual secret string.
func (s Secret) Value() string { return string(s) }

// MarshalText implements encoding.TextMarshaler, returning "[REDACTED]".
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Config holds the Redis connection configuration. When [Config.URI] is
// set it takes precedence over Host/Port/Password/DB.
type Config struct {
	// URI is a Redis connection string (e.g., "redis://:pass@host:6379/0").
	// Environment variable: REDIS_URI
	URI string `json:"uri,omitempty" env:"REDIS_URI"`

	// Host is the Redis hostname. Default: "redis".
	// Environment variable: REDIS_HOST
	Host string `json:"host,omitempty" env:"REDIS_HOST"`

	// Port is the Redis port. Default: 6379.
	// Environment variable: REDIS_PORT
	Port int `json:"port,omitempty" env:"REDIS_PORT"`

	// Password is the Redis password. Uses [Secret] to prevent
	// accidental logging.
	// Environment variable: REDIS_PASSWORD
	Password Secret `json:"-" env:"REDIS_PASSWORD"`

	// DB is the Redis database index. Default: 0.
	// Environment variable: REDIS_DB
	DB int `json:"db,omitempty" env:"REDIS_DB"`

	// PoolSize is the maximum number of pooled connections. Default: 25.
	// Environment variable: REDIS_POOL_SIZE
	PoolSize int `json:"pool_size,omitempty" env:"REDIS_POOL_SIZE"`

	// MinIdleConns is the minimum number of idle connections. Default: 5.
	// Environment variable: REDIS_MIN_IDLE_CONNS
	MinIdleConns int `json:"min_idle_conns,omitempty" env:"REDIS_MIN_IDLE_CONNS"`

	// MaxRetries is the number of command retries. Default: 3.
	// Environment variable: REDIS_MAX_RETRIES
	MaxRetries int `json:"max_retries,omitempty" env:"REDIS_MAX_RETRIES"`

	// DialTimeout bounds new connection establishment. Default: 10s.
	// Environment variable: REDIS_DIAL_TIMEOUT
	DialTimeout time.Duration `json:"dial_timeout,omitempty" env:"REDIS_DIAL_TIMEOUT"`

	// ReadTimeout bounds a single read. Default: 5s.
	// Environment variable: REDIS_READ_TIMEOUT
	ReadTimeout time.Duration `json:"read_timeout,omitempty" env:"REDIS_READ_TIMEOUT"`

	// WriteTimeout bounds a single write. Default: 5s.
	// Environment variable: REDIS_WRITE_TIMEOUT
	WriteTimeout time.Duration `json:"write_timeout,omitempty" env:"REDIS_WRITE_TIMEOUT"`

	// TLSEnabled turns on TLS for the connection. Default: false,
	// matching the private-network deployment.
	// Environment variable: REDIS_TLS_ENABLED
	TLSEnabled bool `json:"tls_enabled,omitempty" env:"REDIS_TLS_ENABLED"`
}

// DefaultConfig returns a Config with defaults for a TOSCA deployment.
func DefaultConfig() *Config {
	return &Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		DB:           DefaultDB,
		PoolSize:     DefaultPoolSize,
		MinIdleConns: DefaultMinIdleConns,
		MaxRetries:   DefaultMaxRetries,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Validate checks the configuration and applies defaults for zero-valued
// fields. When [Config.URI] is set, only the URI is validated.
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.URI != "" {
		if _, err := url.Parse(c.URI); err != nil {
			return fmt.Errorf("redis: config URI is invalid: %w", err)
		}
		return nil
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("redis: config port must be between 1 and 65535, got %d", c.Port)
	}
	if c.DB < 0 || c.DB > 15 {
		return fmt.Errorf("redis: config db must be between 0 and 15, got %d", c.DB)
	}

	return nil
}

// applyDefaults sets defaults for zero-valued pool and timeout fields.
func (c *Config) applyDefaults() {
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = DefaultMinIdleConns
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// truncateStatement truncates a command statement to
// [maxStatementTruncateLen] characters for inclusion in trace spans.
func truncateStatement(statement string) string {
	if len(statement) <= maxStatementTruncateLen {
		return statement
	}
	return statement[:maxStatementTruncateLen] + "..."
}
