// Package procconfig loads the gateway's process configuration: listen
// addresses, timeouts, and filesystem resource paths. This is distinct from
// the JSON API/Origin definitions (internal/definitions) -- it configures
// the process, not the catalog. Grounded on the teacher's
// internal/config/config.go (YAML + ${VAR} env expansion via
// go.yaml.in/yaml/v3), generalized from the teacher's provider/route/key
// seed fields to the gateway's listener/timeout/resource-path fields.
package procconfig

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config is the top-level gateway process configuration.
type Config struct {
	Proxy       ProxyConfig       `yaml:"proxy"`
	Management  ManagementConfig  `yaml:"management"`
	Definitions DefinitionsConfig `yaml:"definitions"`
	TLS         TLSConfig         `yaml:"tls"`
	Log         LogConfig         `yaml:"log"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// TelemetryConfig holds observability settings beyond the always-on
// request logging and Prometheus metrics.
type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig controls OpenTelemetry tracing. Tracing is off by default;
// enabling it requires a reachable OTLP gRPC collector at Endpoint.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate"`
}

// ProxyConfig configures the plaintext and TLS proxy listeners.
type ProxyConfig struct {
	PlaintextAddr        string `yaml:"plaintext_addr"`
	TLSAddr              string `yaml:"tls_addr"`
	TLSEnabled           bool   `yaml:"tls_enabled"`
	ShutdownGraceSeconds int    `yaml:"shutdown_grace_seconds"`
}

// ManagementConfig configures the status/metrics listener.
type ManagementConfig struct {
	Addr string `yaml:"addr"`
}

// DefinitionsConfig points at the catalog directories. Relative paths are
// used as given, so they resolve against the process's working directory,
// not the executable's directory.
type DefinitionsConfig struct {
	APIDefDir    string `yaml:"api_def_dir"`
	OriginDefDir string `yaml:"origin_def_dir"`
}

// TLSConfig points at the certificate chain and private key files.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// LogConfig configures the slog handler. Level is one of "debug", "info",
// "warn", "error"; anything else falls back to "info".
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ShutdownGrace returns the configured shutdown grace period as a
// time.Duration, defaulting to 30s when unset or non-positive.
func (p ProxyConfig) ShutdownGrace() time.Duration {
	if p.ShutdownGraceSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.ShutdownGraceSeconds) * time.Second
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values,
// leaving the pattern untouched when the variable is unset.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(name); ok {
			return []byte(val)
		}
		return match
	})
}

// defaults mirrors the reference implementation's hardcoded ports and
// fixed resource paths (§6), used whenever the YAML file omits a field.
func defaults() *Config {
	return &Config{
		Proxy: ProxyConfig{
			PlaintextAddr:        "127.0.0.1:8080",
			TLSAddr:              "127.0.0.1:8443",
			TLSEnabled:           true,
			ShutdownGraceSeconds: 30,
		},
		Management: ManagementConfig{
			Addr: "127.0.0.1:8888",
		},
		Definitions: DefinitionsConfig{
			APIDefDir:    "resources/definitions/api_def",
			OriginDefDir: "resources/definitions/origin_def",
		},
		TLS: TLSConfig{
			CertFile: "resources/certs/proxy/certificate.crt",
			KeyFile:  "resources/certs/proxy/private.key",
		},
		Log: LogConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			Tracing: TracingConfig{
				Enabled:    false,
				Endpoint:   "localhost:4317",
				SampleRate: 0.1,
			},
		},
	}
}

// Load reads and parses the YAML file at path, expanding ${VAR} references
// against the process environment, and filling any field the file omits
// with the reference defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read process config: %w", err)
	}
	data = expandEnv(data)

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse process config: %w", err)
	}
	return cfg, nil
}
