// Package config provides configuration management for the garagescan application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/platinummonkey/garagescan/internal/types"
)

// Config holds all configuration settings for the garagescan application.
// Configuration precedence: CLI flags > Environment variables > .env file > Config file > Defaults
type Config struct {
	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// LogFormat selects console or json log output
	LogFormat string

	// Providers is the ordered provider preference list; earlier entries are tried first
	Providers []types.ProviderConfig

	// Endpoints overrides provider base URLs (mostly for proxies and tests)
	Endpoints map[types.ProviderType]string

	// RequestTimeout bounds one whole extraction call, fallbacks included
	RequestTimeout time.Duration

	// TrackerURL is the base URL of the vehicle tracker (empty disables submission)
	TrackerURL string

	// TrackerAPIKey authenticates against the tracker
	TrackerAPIKey string

	// GarageFile is the YAML file listing vehicles and extra fields for offline use
	GarageFile string

	// TraceDB is the SQLite file debug events are recorded into (empty disables tracing)
	TraceDB string

	// UseKeychain enables macOS Keychain lookup for API keys (macOS only)
	UseKeychain bool

	// KeychainServicePrefix is the prefix for keychain service names
	// Service names will be: {prefix}-{provider} (e.g., "garagescan-openai")
	KeychainServicePrefix string
}

// Load reads configuration from env vars, the .env file, the config file and defaults
func Load(configFile string) (*Config, error) {
	return LoadWithFlags(configFile, nil)
}

// LoadWithFlags reads configuration from multiple sources and returns a Config instance.
// Flags whose names match configuration keys take precedence when set on the command line.
// Sources are checked in this order: CLI flags > env vars > .env file > config file > defaults
func LoadWithFlags(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".garagescan")
			v.SetConfigType("yaml")
		}
	}

	// Read config file if it exists (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := loadEnvFile(os.Getenv("GARAGESCAN_ENV_FILE")); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("GARAGESCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	config := &Config{
		LogLevel:              v.GetString("log-level"),
		LogFormat:             v.GetString("log-format"),
		Endpoints:             make(map[types.ProviderType]string),
		RequestTimeout:        v.GetDuration("request-timeout"),
		TrackerURL:            v.GetString("tracker-url"),
		TrackerAPIKey:         v.GetString("tracker-api-key"),
		GarageFile:            v.GetString("garage-file"),
		TraceDB:               v.GetString("trace-db"),
		UseKeychain:           v.GetBool("use-keychain"),
		KeychainServicePrefix: v.GetString("keychain-service-prefix"),
	}

	names := splitList(v.GetStringSlice("providers"))
	for _, name := range names {
		p, err := types.ParseProviderType(name)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		config.Providers = append(config.Providers, types.ProviderConfig{
			Provider: p,
			APIKey:   loadAPIKeyForProvider(v, p, config.UseKeychain, config.KeychainServicePrefix),
			Model:    strings.TrimSpace(v.GetString(string(p) + "-model")),
		})
		if endpoint := strings.TrimSpace(v.GetString(string(p) + "-endpoint")); endpoint != "" {
			config.Endpoints[p] = endpoint
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("providers", []string{"anthropic", "openai", "google"})
	v.SetDefault("request-timeout", 3*time.Minute)
	v.SetDefault("tracker-url", "")
	v.SetDefault("tracker-api-key", "")
	v.SetDefault("garage-file", filepath.Join(home, ".garagescan-garage.yaml"))
	v.SetDefault("trace-db", "")
	v.SetDefault("use-keychain", false)
	v.SetDefault("keychain-service-prefix", "garagescan")

	for _, p := range types.ProviderTypes {
		v.SetDefault(string(p)+"-model", "")
		v.SetDefault(string(p)+"-endpoint", "")
		v.SetDefault(string(p)+"-api-key", "")
	}
}

// loadEnvFile loads KEY=value pairs into the process environment without overriding it.
// An empty path means ".env" in the working directory; a missing file is not an error.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// splitList flattens comma-separated entries; env vars arrive as a single comma-joined string
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks that the configuration is valid and internally consistent
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log-level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	switch strings.ToLower(c.LogFormat) {
	case "", "console":
		c.LogFormat = "console"
	case "json":
		c.LogFormat = "json"
	default:
		return fmt.Errorf("invalid log-format %q, must be one of: console, json", c.LogFormat)
	}

	seen := make(map[types.ProviderType]bool)
	for _, p := range c.Providers {
		if _, err := types.ParseProviderType(string(p.Provider)); err != nil {
			return err
		}
		if seen[p.Provider] {
			return fmt.Errorf("provider %s is listed more than once", p.Provider)
		}
		seen[p.Provider] = true
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request-timeout must be positive, got %s", c.RequestTimeout)
	}

	if c.TrackerURL != "" {
		u, err := url.Parse(c.TrackerURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid tracker-url %q, must be an http(s) URL", c.TrackerURL)
		}
		c.TrackerURL = strings.TrimRight(c.TrackerURL, "/")
	}

	var err error
	if c.GarageFile, err = expandHome(c.GarageFile, "garage-file"); err != nil {
		return err
	}
	if c.TraceDB, err = expandHome(c.TraceDB, "trace-db"); err != nil {
		return err
	}

	return nil
}

func expandHome(path, key string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand home directory in %s: %w", key, err)
	}
	return filepath.Join(home, path[2:]), nil
}

// ActiveProviders returns the configured providers that have an API key, in preference order
func (c *Config) ActiveProviders() []types.ProviderConfig {
	out := make([]types.ProviderConfig, 0, len(c.Providers))
	for _, p := range c.Providers {
		if strings.TrimSpace(p.APIKey) != "" {
			out = append(out, p)
		}
	}
	return out
}

// TrackerEnabled reports whether records can be submitted to the tracker
func (c *Config) TrackerEnabled() bool {
	return c.TrackerURL != ""
}

// loadAPIKeyForProvider resolves a provider key from config, the keychain, then the vendor env var
func loadAPIKeyForProvider(v *viper.Viper, provider types.ProviderType, useKeychain bool, keychainPrefix string) string {
	if key := strings.TrimSpace(v.GetString(string(provider) + "-api-key")); key != "" {
		return key
	}

	// Try keychain first if enabled (macOS only)
	if useKeychain {
		if key := loadFromKeychain(string(provider), keychainPrefix); key != "" {
			return key
		}
	}

	switch provider {
	case types.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case types.ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case types.ProviderGoogle:
		if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GEMINI_API_KEY")
	default:
		return ""
	}
}

// loadFromKeychain attempts to retrieve an API key from macOS Keychain
// Service name format: {prefix}-{provider} (e.g., "garagescan-openai")
// Returns empty string if not found or on non-macOS platforms
func loadFromKeychain(provider, prefix string) string {
	if !isMacOS() {
		return ""
	}

	serviceName := fmt.Sprintf("%s-%s", prefix, strings.ToLower(provider))

	// security find-generic-password -s "service-name" -w
	cmd := exec.Command("security", "find-generic-password", "-s", serviceName, "-w")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(output))
}

// isMacOS checks if the current platform is macOS
func isMacOS() bool {
	return runtime.GOOS == "darwin"
}

// String returns a string representation of the configuration (with sensitive data redacted)
func (c *Config) String() string {
	var providers []string
	for _, p := range c.Providers {
		entry := p.String()
		if endpoint := c.Endpoints[p.Provider]; endpoint != "" {
			entry += " @ " + endpoint
		}
		providers = append(providers, entry)
	}
	if len(providers) == 0 {
		providers = []string{"none"}
	}

	return fmt.Sprintf(`Configuration:
  LogLevel: %s
  LogFormat: %s
  Providers:
    %s
  RequestTimeout: %s
  TrackerURL: %s
  TrackerAPIKey: %s
  GarageFile: %s
  TraceDB: %s
  UseKeychain: %t
  KeychainServicePrefix: %s`,
		c.LogLevel,
		c.LogFormat,
		strings.Join(providers, "\n    "),
		c.RequestTimeout,
		c.TrackerURL,
		types.RedactSecret(c.TrackerAPIKey),
		c.GarageFile,
		c.TraceDB,
		c.UseKeychain,
		c.KeychainServicePrefix,
	)
}
