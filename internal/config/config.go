package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is the orchestrator's complete runtime configuration.
type Config struct {
	// ListenAddr is the TCP address the node-facing peer transport
	// accepts connections on.
	ListenAddr string `yaml:"listenAddr" envconfig:"LISTEN_ADDR"`

	// BusName is the well-known name the orchestrator requests on the
	// session bus for its public facade.
	BusName string `yaml:"busName" envconfig:"BUS_NAME"`

	// StatusAddr is the loopback-bound address the read-only HTTP
	// status surface listens on. Empty disables it.
	StatusAddr string `yaml:"statusAddr" envconfig:"STATUS_ADDR"`

	// CallTimeout is the per-node deadline for an IsolateAll fan-out
	// call. Zero selects job.DefaultIsolateTimeout.
	CallTimeout time.Duration `yaml:"callTimeout" envconfig:"CALL_TIMEOUT"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `yaml:"logLevel" envconfig:"LOG_LEVEL"`
}

// defaults returns the built-in configuration used when neither a
// config file nor the environment sets a value. envconfig's own
// "default" tag isn't used here because it would apply unconditionally
// whenever an environment variable is absent, clobbering whatever a
// YAML overlay had already set.
func defaults() Config {
	return Config{
		// Port 1999 is the well-known port node agents dial: it is not
		// negotiable at the protocol level, only overridable here for
		// unusual deployments.
		ListenAddr:  ":1999",
		BusName:     "org.fleetkit.Orchestrator",
		StatusAddr:  "127.0.0.1:7358",
		CallTimeout: 30 * time.Second,
		LogLevel:    "info",
	}
}

// Load builds a Config from built-in defaults, an optional YAML file at
// path (skipped entirely if path is empty or does not exist), and
// finally environment variables prefixed ORCH_, which take precedence
// over both.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// No file at path is not an error: environment and
			// defaults are enough on their own.
		default:
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if err := envconfig.Process("orch", &cfg); err != nil {
		return nil, fmt.Errorf("config: processing environment: %w", err)
	}
	return &cfg, nil
}
