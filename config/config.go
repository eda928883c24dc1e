package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Locations  []Location       `yaml:"locations"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Location describes one dining location's pickup operation. Operating
// hours and capacity are static configuration supplied to the engine, never
// computed by it.
type Location struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Disabled bool   `yaml:"disabled"`
	// Open and Close are local wall-clock times, e.g. "08:00" and "20:00".
	Open     string `yaml:"open"`
	Close    string `yaml:"close"`
	Timezone string `yaml:"timezone"`
	// SlotMinutes is the pickup window granularity.
	SlotMinutes int `yaml:"slot_minutes"`
	// Zones is the number of pickup zones congestion is spread across.
	Zones int `yaml:"zones"`
	// ZoneCapacity is how many reservations one zone accepts per slot.
	ZoneCapacity int `yaml:"zone_capacity"`
	// SeedContainers is how many containers to provision on first start.
	SeedContainers int `yaml:"seed_containers"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if len(cfg.Locations) == 0 {
		return nil, fmt.Errorf("at least one location must be configured")
	}
	for i := range cfg.Locations {
		loc := &cfg.Locations[i]
		if loc.ID == "" {
			return nil, fmt.Errorf("location %d has no id", i)
		}
		if loc.Open == "" {
			loc.Open = "08:00"
		}
		if loc.Close == "" {
			loc.Close = "20:00"
		}
		if loc.Timezone == "" {
			loc.Timezone = "UTC"
		}
		if loc.SlotMinutes <= 0 {
			loc.SlotMinutes = 15
		}
		if loc.Zones <= 0 {
			loc.Zones = 4
		}
		if loc.ZoneCapacity <= 0 {
			loc.ZoneCapacity = 5
		}
	}

	return &cfg, nil
}

// LocationByID looks up a configured location. The second return is false
// for unknown ids.
func (c *Config) LocationByID(id string) (Location, bool) {
	for _, loc := range c.Locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return Location{}, false
}
