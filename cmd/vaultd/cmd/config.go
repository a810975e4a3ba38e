package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/paw-chain/vaultbook/api"
	"github.com/paw-chain/vaultbook/app"
)

const (
	envPrefix      = "VAULTD"
	configFileName = "config.yaml"
	genesisName    = "genesis.json"
	dataDirName    = "data"
)

// Config is the daemon configuration read from $HOME/config/config.yaml,
// VAULTD_* environment variables and command line flags, in increasing
// precedence.
type Config struct {
	LogLevel  string              `mapstructure:"log-level"`
	LogFormat string              `mapstructure:"log-format"`
	Ledger    LedgerConfig        `mapstructure:"ledger"`
	Gateway   api.Config          `mapstructure:"gateway"`
	Metrics   MetricsConfig       `mapstructure:"metrics"`
	Telemetry app.TelemetryConfig `mapstructure:"telemetry"`
}

// LedgerConfig configures the state machine and its database.
type LedgerConfig struct {
	ChainID              string `mapstructure:"chain-id"`
	DBBackend            string `mapstructure:"db-backend"`
	InvariantCheckPeriod uint   `mapstructure:"invariant-check-period"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// DefaultConfig returns the configuration `vaultd init` writes.
func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "plain",
		Ledger: LedgerConfig{
			ChainID:              app.DefaultChainID,
			DBBackend:            "goleveldb",
			InvariantCheckPeriod: 1,
		},
		Gateway: *api.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:26660",
		},
		Telemetry: app.TelemetryConfig{
			SampleRate: 1.0,
		},
	}
}

func configPath(home string) string {
	return filepath.Join(home, "config", configFileName)
}

func genesisPath(home string) string {
	return filepath.Join(home, "config", genesisName)
}

func dataPath(home string) string {
	return filepath.Join(home, dataDirName)
}

// newViper returns a viper instance seeded with the defaults and bound to the
// environment and the given flags.
func newViper(home string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	for key, value := range configValues(DefaultConfig()) {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(configPath(home))
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, flag := range flagKeys {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", configPath(home), err)
		}
	}
	return v, nil
}

// flagKeys maps config keys onto the command line flags that override them.
var flagKeys = map[string]string{
	"log-level":                     flagLogLevel,
	"ledger.chain-id":               flagChainID,
	"ledger.invariant-check-period": flagInvariantPeriod,
	"gateway.host":                  flagHost,
	"gateway.port":                  flagPort,
}

// loadConfig resolves the effective configuration.
func loadConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}

	if rl := cfg.Gateway.RateLimit; rl != nil {
		rl.EndpointLimits = normalizeEndpointKeys(rl.EndpointLimits)
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for values the daemon cannot run with.
func (c Config) Validate() error {
	if c.Ledger.ChainID == "" {
		return errors.New("ledger.chain-id is required")
	}
	if c.Gateway.Port == "" {
		return errors.New("gateway.port is required")
	}
	if c.Gateway.RateLimit != nil {
		if err := c.Gateway.RateLimit.Validate(); err != nil {
			return fmt.Errorf("gateway.rate-limit: %w", err)
		}
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample-rate must be in [0, 1], got %v", c.Telemetry.SampleRate)
	}
	return nil
}

// normalizeEndpointKeys restores the upper case HTTP method of endpoint limit
// keys, which viper folds to lower case.
func normalizeEndpointKeys(limits map[string]*api.EndpointLimit) map[string]*api.EndpointLimit {
	out := make(map[string]*api.EndpointLimit, len(limits))
	for key, limit := range limits {
		method, route, ok := strings.Cut(key, " ")
		if !ok {
			out[key] = limit
			continue
		}
		out[strings.ToUpper(method)+" "+route] = limit
	}
	return out
}

// configValues flattens cfg into viper keys.
func configValues(cfg Config) map[string]interface{} {
	values := map[string]interface{}{
		"log-level":  cfg.LogLevel,
		"log-format": cfg.LogFormat,

		"ledger.chain-id":               cfg.Ledger.ChainID,
		"ledger.db-backend":             cfg.Ledger.DBBackend,
		"ledger.invariant-check-period": cfg.Ledger.InvariantCheckPeriod,

		"gateway.host":              cfg.Gateway.Host,
		"gateway.port":              cfg.Gateway.Port,
		"gateway.cors-origins":      cfg.Gateway.CORSOrigins,
		"gateway.read-timeout":      cfg.Gateway.ReadTimeout.String(),
		"gateway.write-timeout":     cfg.Gateway.WriteTimeout.String(),
		"gateway.shutdown-timeout":  cfg.Gateway.ShutdownTimeout.String(),
		"gateway.request-timeout":   cfg.Gateway.RequestTimeout.String(),
		"gateway.max-ws-clients":    cfg.Gateway.MaxWSClients,
		"gateway.audit-log-dir":     cfg.Gateway.AuditLogDir,
		"gateway.audit-enabled":     cfg.Gateway.AuditEnabled,
		"gateway.faucet-enabled":    cfg.Gateway.FaucetEnabled,
		"gateway.faucet-max-amount": cfg.Gateway.FaucetMaxAmount,

		"metrics.enabled": cfg.Metrics.Enabled,
		"metrics.addr":    cfg.Metrics.Addr,

		"telemetry.enabled":            cfg.Telemetry.Enabled,
		"telemetry.trace-endpoint":     cfg.Telemetry.TraceEndpoint,
		"telemetry.prometheus-enabled": cfg.Telemetry.PrometheusEnabled,
		"telemetry.sample-rate":        cfg.Telemetry.SampleRate,
	}

	if rl := cfg.Gateway.RateLimit; rl != nil {
		values["gateway.rate-limit.enabled"] = rl.Enabled
		values["gateway.rate-limit.default-rps"] = rl.DefaultRPS
		values["gateway.rate-limit.default-burst"] = rl.DefaultBurst
		values["gateway.rate-limit.cleanup-interval"] = rl.CleanupInterval.String()
		values["gateway.rate-limit.idle-timeout"] = rl.IdleTimeout.String()
		limits := make(map[string]interface{}, len(rl.EndpointLimits))
		for endpoint, limit := range rl.EndpointLimits {
			limits[endpoint] = map[string]interface{}{
				"rps":            limit.RPS,
				"burst":          limit.Burst,
				"custom-message": limit.CustomMessage,
			}
		}
		values["gateway.rate-limit.endpoint-limits"] = limits
	}
	return values
}

// writeConfig writes cfg as YAML to the config file under home.
func writeConfig(home string, cfg Config) error {
	path := configPath(home)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for key, value := range configValues(cfg) {
		v.Set(key, value)
	}
	return v.WriteConfigAs(path)
}

// shutdownGrace bounds how long the daemon waits on telemetry exporters.
const shutdownGrace = 5 * time.Second
