package facilitator

import (
	"fmt"
	"os"

	"github.com/stellar/go/keypair"
	"gopkg.in/yaml.v3"

	"github.com/vorpalengineering/x402-stellar/types"
)

// signingKeyEnv holds the optional fee-sponsorship secret.
// ex: export X402_FACILITATOR_SIGNING_KEY=S...
const signingKeyEnv = "X402_FACILITATOR_SIGNING_KEY"

type FacilitatorConfig struct {
	Server     ServerConfig             `yaml:"server"`
	Networks   map[string]NetworkConfig `yaml:"networks"`
	Supported  []types.SupportedKind    `yaml:"supported"`
	Store      StoreConfig              `yaml:"store"`
	Log        LogConfig                `yaml:"log"`
	Metrics    MetricsConfig            `yaml:"metrics"`
	SigningKey *keypair.Full            `yaml:"-"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// NetworkConfig overrides the built-in endpoints for a network tag. Empty
// fields fall back to the defaults for the tag.
type NetworkConfig struct {
	HorizonURL    string `yaml:"horizon_url"`
	SorobanRPCURL string `yaml:"soroban_rpc_url"`
}

type StoreConfig struct {
	// ConnString selects the replay/discovery store: "redis://..." for a
	// shared store, "memory://" for the in-process fallback.
	ConnString string `yaml:"conn_string"`

	// AllowMemoryStore permits the in-process fallback. Production
	// deployments must leave this off.
	AllowMemoryStore bool `yaml:"allow_memory_store"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

func LoadConfig(configPath string) (*FacilitatorConfig, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var facilitatorConfig FacilitatorConfig
	if err := yaml.Unmarshal(data, &facilitatorConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Load secrets from environment variables
	if err := loadEnvVars(&facilitatorConfig); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// Validate config
	if err := facilitatorConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &facilitatorConfig, nil
}

// NetworkParams resolves a network tag through the built-in table, applying
// any configured endpoint overrides.
func (config *FacilitatorConfig) NetworkParams(tag string) (types.NetworkParams, error) {
	params, err := types.LookupNetwork(tag)
	if err != nil {
		return types.NetworkParams{}, err
	}

	if override, ok := config.Networks[tag]; ok {
		if override.HorizonURL != "" {
			params.HorizonURL = override.HorizonURL
		}
		if override.SorobanRPCURL != "" {
			params.SorobanRPCURL = override.SorobanRPCURL
		}
	}
	return params, nil
}

func (config *FacilitatorConfig) IsSupported(scheme, network string) bool {
	for _, kind := range config.Supported {
		if kind.Scheme == scheme && kind.Network == network {
			return true
		}
	}
	return false
}

func (config *FacilitatorConfig) Validate() error {
	// Validate server config
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", config.Server.Port)
	}

	// Validate supported kinds reference known networks
	if len(config.Supported) == 0 {
		return fmt.Errorf("at least one supported scheme/network pair must be configured")
	}
	for _, kind := range config.Supported {
		if kind.Scheme != types.SchemeExact {
			return fmt.Errorf("unsupported scheme: %s", kind.Scheme)
		}
		if _, err := types.LookupNetwork(kind.Network); err != nil {
			return err
		}
	}

	// Validate network overrides reference known tags
	for tag := range config.Networks {
		if _, err := types.LookupNetwork(tag); err != nil {
			return err
		}
	}

	// Validate store config
	if config.Store.ConnString == "" {
		return fmt.Errorf("store conn_string must be set")
	}

	// Validate log config
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Log.Level)
	}

	return nil
}

func loadEnvVars(config *FacilitatorConfig) error {
	// The signing key is optional: without it, native settlements submit
	// the caller's transaction directly instead of fee-bumping it.
	secret := os.Getenv(signingKeyEnv)
	if secret == "" {
		return nil
	}

	kp, err := keypair.ParseFull(secret)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", signingKeyEnv, err)
	}
	config.SigningKey = kp
	return nil
}
