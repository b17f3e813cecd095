package config

// Package config provides a reusable loader for carbon's node configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"carbon/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a carbon replica, broker or
// client process: protocol-level parameters plus the usual network and
// logging knobs. It mirrors the structure of the YAML files passed via
// --parameters.
type Config struct {
	Network struct {
		ListenAddr     string   `mapstructure:"listen_addr" json:"listen_addr"`
		RendezvousAddr string   `mapstructure:"rendezvous_addr" json:"rendezvous_addr"`
		DiscoveryAddr  string   `mapstructure:"discovery_addr" json:"discovery_addr"`
		BootstrapPeers []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
	} `mapstructure:"network" json:"network"`

	// Protocol holds the parameters spec.md leaves as named constants:
	// work_difficulty, priority_attempts, reduction_timeout, ping_interval,
	// supports_capacity, plus the sponge's capacity/timeout pair.
	Protocol struct {
		WorkDifficulty   uint8         `mapstructure:"work_difficulty" json:"work_difficulty"`
		PriorityAttempts int           `mapstructure:"priority_attempts" json:"priority_attempts"`
		ReductionTimeout time.Duration `mapstructure:"reduction_timeout" json:"reduction_timeout"`
		PingInterval     time.Duration `mapstructure:"ping_interval" json:"ping_interval"`
		SupportsCapacity int           `mapstructure:"supports_capacity" json:"supports_capacity"`
		SpongeCapacity   int           `mapstructure:"sponge_capacity" json:"sponge_capacity"`
		SpongeTimeout    time.Duration `mapstructure:"sponge_timeout" json:"sponge_timeout"`
		BroadcastRetries int           `mapstructure:"broadcast_retries" json:"broadcast_retries"`
		FullBroadcast    bool          `mapstructure:"full_broadcast" json:"full_broadcast"`
	} `mapstructure:"protocol" json:"protocol"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// Default returns the protocol defaults spec.md names explicitly:
// reduction_timeout=1s, ping_interval=60s, supports_capacity=8.
func Default() Config {
	var c Config
	c.Protocol.WorkDifficulty = 20
	c.Protocol.PriorityAttempts = 8
	c.Protocol.ReductionTimeout = time.Second
	c.Protocol.PingInterval = 60 * time.Second
	c.Protocol.SupportsCapacity = 8
	c.Protocol.SpongeCapacity = 256
	c.Protocol.SpongeTimeout = 200 * time.Millisecond
	c.Protocol.BroadcastRetries = 3
	c.Logging.Level = "info"
	return c
}

// AppConfig holds the configuration loaded via Load.
var AppConfig Config

// Load reads the parameters file at path (if non-empty) over Default(),
// then applies any environment variable overrides. The resulting
// configuration is stored in AppConfig and returned.
func Load(path string) (*Config, error) {
	AppConfig = Default()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("load config %s", path))
		}
	}
	v.AutomaticEnv()

	if err := v.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}
