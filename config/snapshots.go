package config

import "time"

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:""`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:""`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// IsConfigured returns true when a Redis endpoint has been provided.
func (r *RedisConfig) IsConfigured() bool {
	return r.URI != "" || (r.UseSentinel && len(r.SentinelNodes) > 0) ||
		(r.UseCluster && len(r.ClusterNodes) > 0)
}

// SnapshotsConfig contains snapshot artifact store configuration.
//
// Snapshots are stored in Redis when a Redis endpoint is configured and
// in process memory otherwise.
type SnapshotsConfig struct {
	// Redis connection settings for the snapshot store.
	Redis RedisConfig `envPrefix:"REDIS_"`

	// TTL is how long stored snapshot images are retained.
	TTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"24h"`
}

// Sanitize applies guardrails to snapshot configuration values.
func (s *SnapshotsConfig) Sanitize() {
	if s.TTL <= 0 {
		s.TTL = 24 * time.Hour
	}
}
