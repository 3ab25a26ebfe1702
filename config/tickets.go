package config

import (
	"fmt"
	"strings"
	"time"
)

// RegistryBackend selects where tickets are stored.
type RegistryBackend string

const (
	// BackendMemory stores tickets in process memory.
	BackendMemory RegistryBackend = "memory"
	// BackendRedis stores tickets in Redis.
	BackendRedis RegistryBackend = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *RegistryBackend) UnmarshalText(text []byte) error {
	switch v := RegistryBackend(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case BackendMemory, BackendRedis, "":
		if v == "" {
			v = BackendMemory
		}
		*b = v
		return nil
	default:
		return fmt.Errorf("unknown ticket registry backend %q", string(text))
	}
}

// TicketsConfig configures ticket expiration policies and the registry.
type TicketsConfig struct {
	// TGTMaxIdle is the sliding idle timeout for granting tickets.
	TGTMaxIdle time.Duration `env:"TICKETS_TGT_MAX_IDLE" envDefault:"2h"`
	// TGTMaxLifetime is the hard maximum lifetime for granting tickets.
	TGTMaxLifetime time.Duration `env:"TICKETS_TGT_MAX_LIFETIME" envDefault:"8h"`

	// STTimeToLive bounds how long a service ticket stays redeemable.
	STTimeToLive time.Duration `env:"TICKETS_ST_TTL" envDefault:"10s"`
	// STMaxUses bounds validations per service ticket; 1 means single use.
	STMaxUses int `env:"TICKETS_ST_MAX_USES" envDefault:"1"`

	// Backend selects the registry implementation.
	Backend RegistryBackend `env:"TICKETS_BACKEND" envDefault:"memory"`

	// LockingEnabled serializes grants per granting ticket. Disabling it
	// trades exact child bookkeeping for throughput.
	LockingEnabled bool `env:"TICKETS_LOCKING_ENABLED" envDefault:"true"`
	// LockStripes is the stripe count for the in-process lock factory.
	LockStripes int `env:"TICKETS_LOCK_STRIPES" envDefault:"64"`

	// EncryptionKey enables AES-256-GCM encryption of tickets at rest in
	// remote registries; must be 32 bytes when set.
	EncryptionKey string `env:"TICKETS_ENCRYPTION_KEY"`

	// SweepInterval is the period of the expired-ticket sweeper; zero or
	// negative disables sweeping.
	SweepInterval time.Duration `env:"TICKETS_SWEEP_INTERVAL" envDefault:"1m"`
}

// Sanitize applies guardrails to ticket configuration.
func (c *TicketsConfig) Sanitize() {
	if c.TGTMaxIdle <= 0 {
		c.TGTMaxIdle = 2 * time.Hour
	}
	if c.TGTMaxLifetime <= 0 {
		c.TGTMaxLifetime = 8 * time.Hour
	}
	if c.STTimeToLive <= 0 {
		c.STTimeToLive = 10 * time.Second
	}
	if c.STMaxUses <= 0 {
		c.STMaxUses = 1
	}
	if c.LockStripes <= 0 {
		c.LockStripes = 64
	}
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
}
