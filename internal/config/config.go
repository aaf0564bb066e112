// Package config loads the gateway's process-level configuration: listen
// address, the credential directory, deploy-platform flag, and heartbeat
// defaults. It follows the teacher's layered precedence (default → YAML
// file → environment) but is scoped to what the gateway itself needs —
// provider/session/agent tuning lives in the services this core composes,
// not here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the gateway's complete configuration structure.
type Config struct {
	Server    ServerConfig    `yaml:"server" env:"SERVER"`
	Gateway   GatewayConfig   `yaml:"gateway" env:"GATEWAY"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat" env:"HEARTBEAT"`
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	TickInterval    time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
}

// GatewayConfig configures core gateway behavior.
type GatewayConfig struct {
	// ConfigDir holds provider_keys.json, oauth_tokens.json, disabled_hooks.json.
	// Empty means resolve at startup: $MOLTIS_CONFIG_DIR, else ~/.config/moltis.
	ConfigDir string `yaml:"config_dir" env:"CONFIG_DIR"`
	// DeployPlatform, when non-empty, hides local-only providers (§4.3).
	DeployPlatform string `yaml:"deploy_platform" env:"DEPLOY_PLATFORM"`
	// OfferedProviders is the operator-owner's offered allow-list ordering
	// override for available() (§4.3 ordering rule 1).
	OfferedProviders []string `yaml:"offered_providers" env:"OFFERED_PROVIDERS"`
	// HookRoots are filesystem roots walked during hook discovery (§3).
	HookRoots []string `yaml:"hook_roots" env:"HOOK_ROOTS"`
	// OperatorTokens are static bearer credentials accepted as full-scope
	// operator identities by the wire transport's TokenAuthenticator.
	OperatorTokens []string `yaml:"operator_tokens" env:"OPERATOR_TOKENS"`
	// DeviceTokenSecret signs/verifies paired-device bearer tokens. Empty
	// means a random secret is generated at startup (device tokens from a
	// prior process then stop verifying, forcing re-pairing).
	DeviceTokenSecret string `yaml:"device_token_secret" env:"DEVICE_TOKEN_SECRET"`
}

// HeartbeatConfig holds the defaults for the reserved __heartbeat__ cron job.
type HeartbeatConfig struct {
	Enabled       bool          `yaml:"enabled" env:"ENABLED"`
	Every         time.Duration `yaml:"every" env:"EVERY"`
	Prompt        string        `yaml:"prompt" env:"PROMPT"`
	Model         string        `yaml:"model" env:"MODEL"`
	SandboxEnabled bool         `yaml:"sandbox_enabled" env:"SANDBOX_ENABLED"`
	SandboxImage  string        `yaml:"sandbox_image" env:"SANDBOX_IMAGE"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"` // "json" | "console"
}

// TelemetryConfig configures the optional OTel tracer.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate  float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// DefaultConfig returns the gateway's default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":7890",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			TickInterval:    5 * time.Second,
		},
		Gateway: GatewayConfig{
			HookRoots: []string{"~/.moltis/hooks", "./.moltis/hooks"},
		},
		Heartbeat: HeartbeatConfig{
			Enabled: false,
			Every:   time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "moltis-gateway",
			SampleRate:  0.0,
		},
	}
}

// ResolveConfigDir returns the effective configuration directory following
// the precedence documented on GatewayConfig.ConfigDir.
func (c *Config) ResolveConfigDir() (string, error) {
	if c.Gateway.ConfigDir != "" {
		return expandHome(c.Gateway.ConfigDir)
	}
	if v := os.Getenv("MOLTIS_CONFIG_DIR"); v != "" {
		return expandHome(v)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(home, ".config", "moltis"), nil
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// Loader loads a Config from defaults, an optional YAML file, and an
// environment-variable override pass, mirroring the teacher's
// default → file → env precedence.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a Loader with no file path and the default env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "MOLTIS"}
}

// WithConfigPath sets the YAML file to load, if any.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the final Config.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", l.configPath, err)
		}
	}

	applyEnvOverrides(reflect.ValueOf(cfg).Elem(), l.envPrefix)

	return cfg, nil
}

// applyEnvOverrides walks struct fields tagged `env:"..."` and overwrites
// scalar/slice/duration values found in the process environment, joining
// nested struct prefixes with "_" (e.g. MOLTIS_SERVER_ADDR).
func applyEnvOverrides(v reflect.Value, prefix string) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("env")
		if tag == "" {
			continue
		}
		fv := v.Field(i)
		name := prefix + "_" + tag

		if fv.Kind() == reflect.Struct {
			applyEnvOverrides(fv, name)
			continue
		}

		raw, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		setFromEnv(fv, raw)
	}
}

func setFromEnv(fv reflect.Value, raw string) {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			fv.SetBool(b)
		}
	case reflect.Int64:
		if fv.Type() == reflect.TypeOf(time.Duration(0)) {
			if d, err := time.ParseDuration(raw); err == nil {
				fv.SetInt(int64(d))
			}
			return
		}
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			fv.SetInt(n)
		}
	case reflect.Int:
		if n, err := strconv.Atoi(raw); err == nil {
			fv.SetInt(int64(n))
		}
	case reflect.Float64:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			fv.SetFloat(f)
		}
	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(raw, ",")
			for i, p := range parts {
				parts[i] = strings.TrimSpace(p)
			}
			fv.Set(reflect.ValueOf(parts))
		}
	}
}
