package authtokens

import (
	"errors"
	"fmt"
	"time"
)

// Config defines a public type used by authtokens APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT     JWTConfig
	Store   StoreConfig
	Cookie  CookieConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by authtokens APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	// Secret is the HS256 HMAC key. Minimum 16 bytes.
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Leeway is the clock-skew grace window on verification. [0, 2m].
	Leeway time.Duration
	Issuer string
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig defines a public type used by authtokens APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	RedisPrefix string
	// OpTimeout bounds every Redis round trip. 0 disables the deadline.
	OpTimeout time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig defines a public type used by authtokens APIs.
//
// CookieConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

// AuditConfig defines a public type used by authtokens APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes audit emission non-blocking; dropped events are
	// counted and reported via Engine.AuditDropped.
	DropIfFull bool
}

// MetricsConfig defines a public type used by authtokens APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

const (
	minSecretLen = 16
	maxLeeway    = 2 * time.Minute
)

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Leeway:     2 * time.Second,
		},
		Store: StoreConfig{
			RedisPrefix: "rt",
			OpTimeout:   2 * time.Second,
		},
		Cookie: CookieConfig{
			Name:   "refreshToken",
			Path:   "/",
			Secure: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if len(c.JWT.Secret) < minSecretLen {
		return fmt.Errorf("authtokens: jwt secret must be at least %d bytes", minSecretLen)
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("authtokens: access ttl must be positive")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("authtokens: refresh ttl must be positive")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > maxLeeway {
		return fmt.Errorf("authtokens: leeway must be within [0, %s]", maxLeeway)
	}
	if c.Store.RedisPrefix == "" {
		return errors.New("authtokens: redis prefix must not be empty")
	}
	if c.Store.OpTimeout < 0 {
		return errors.New("authtokens: store op timeout must not be negative")
	}
	if c.Cookie.Name == "" {
		return errors.New("authtokens: cookie name must not be empty")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("authtokens: audit buffer size must be positive when audit is enabled")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.JWT.Secret = cloneBytes(c.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
