package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/platinummonkey/garagescan/internal/types"
)

// isolate points HOME at a temp dir and clears every provider key source
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("GARAGESCAN_ENV_FILE", "")
	for _, key := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(key, "")
	}
	return tmpDir
}

func TestLoad_Defaults(t *testing.T) {
	tmpDir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel = info, got %s", cfg.LogLevel)
	}

	if cfg.LogFormat != "console" {
		t.Errorf("expected LogFormat = console, got %s", cfg.LogFormat)
	}

	if cfg.RequestTimeout != 3*time.Minute {
		t.Errorf("expected RequestTimeout = 3m, got %s", cfg.RequestTimeout)
	}

	want := []types.ProviderType{types.ProviderAnthropic, types.ProviderOpenAI, types.ProviderGoogle}
	if len(cfg.Providers) != len(want) {
		t.Fatalf("expected %d providers, got %d", len(want), len(cfg.Providers))
	}
	for i, p := range want {
		if cfg.Providers[i].Provider != p {
			t.Errorf("provider %d = %s, want %s", i, cfg.Providers[i].Provider, p)
		}
	}

	if len(cfg.ActiveProviders()) != 0 {
		t.Errorf("expected no active providers without keys, got %v", cfg.ActiveProviders())
	}

	if cfg.GarageFile != filepath.Join(tmpDir, ".garagescan-garage.yaml") {
		t.Errorf("unexpected GarageFile %s", cfg.GarageFile)
	}

	if cfg.TrackerEnabled() {
		t.Error("tracker should be disabled by default")
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	isolate(t)

	t.Setenv("GARAGESCAN_LOG_LEVEL", "debug")
	t.Setenv("GARAGESCAN_LOG_FORMAT", "json")
	t.Setenv("GARAGESCAN_PROVIDERS", "openai, anthropic")
	t.Setenv("GARAGESCAN_OPENAI_MODEL", "gpt-4.1-mini")
	t.Setenv("GARAGESCAN_ANTHROPIC_ENDPOINT", "http://localhost:9999")
	t.Setenv("GARAGESCAN_REQUEST_TIMEOUT", "45s")
	t.Setenv("GARAGESCAN_TRACKER_URL", "https://tracker.example.com/")
	t.Setenv("OPENAI_API_KEY", "sk-openai-test-1234")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("expected debug/json logging, got %s/%s", cfg.LogLevel, cfg.LogFormat)
	}

	if len(cfg.Providers) != 2 || cfg.Providers[0].Provider != types.ProviderOpenAI || cfg.Providers[1].Provider != types.ProviderAnthropic {
		t.Fatalf("unexpected provider order %v", cfg.Providers)
	}

	if cfg.Providers[0].Model != "gpt-4.1-mini" || cfg.Providers[0].APIKey != "sk-openai-test-1234" {
		t.Errorf("unexpected openai entry %+v", cfg.Providers[0])
	}

	if cfg.Endpoints[types.ProviderAnthropic] != "http://localhost:9999" {
		t.Errorf("unexpected endpoints %v", cfg.Endpoints)
	}

	if cfg.RequestTimeout != 45*time.Second {
		t.Errorf("expected RequestTimeout = 45s, got %s", cfg.RequestTimeout)
	}

	if cfg.TrackerURL != "https://tracker.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.TrackerURL)
	}

	active := cfg.ActiveProviders()
	if len(active) != 1 || active[0].Provider != types.ProviderOpenAI {
		t.Errorf("expected only openai active, got %v", active)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	tmpDir := isolate(t)
	configFile := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
log-level: warn
providers:
  - google
  - anthropic
anthropic-api-key: sk-ant-from-file-5678
google-model: gemini-2.5-pro
garage-file: ~/garage.yaml
trace-db: ` + filepath.Join(tmpDir, "trace.db") + `
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("GOOGLE_API_KEY", "google-key-0000")

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("expected LogLevel = warn, got %s", cfg.LogLevel)
	}

	active := cfg.ActiveProviders()
	if len(active) != 2 || active[0].Provider != types.ProviderGoogle || active[1].Provider != types.ProviderAnthropic {
		t.Fatalf("unexpected active providers %v", active)
	}
	if active[0].Model != "gemini-2.5-pro" || active[0].APIKey != "google-key-0000" {
		t.Errorf("unexpected google entry %+v", active[0])
	}
	if active[1].APIKey != "sk-ant-from-file-5678" {
		t.Errorf("expected config file key to win, got %s", active[1].APIKey)
	}

	if cfg.GarageFile != filepath.Join(tmpDir, "garage.yaml") {
		t.Errorf("expected home expansion, got %s", cfg.GarageFile)
	}
	if cfg.TraceDB != filepath.Join(tmpDir, "trace.db") {
		t.Errorf("unexpected TraceDB %s", cfg.TraceDB)
	}
}

func TestLoadWithFlags(t *testing.T) {
	isolate(t)
	t.Setenv("GARAGESCAN_LOG_LEVEL", "warn")
	t.Setenv("GARAGESCAN_REQUEST_TIMEOUT", "10s")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-flags-0001")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.StringSlice("providers", nil, "")
	flags.Duration("request-timeout", 0, "")
	flags.String("trace-db", "", "")
	if err := flags.Parse([]string{"--log-level", "debug", "--providers", "anthropic"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWithFlags("", flags)
	if err != nil {
		t.Fatalf("LoadWithFlags() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected flag to win over env, got %s", cfg.LogLevel)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("expected env value for an unset flag, got %s", cfg.RequestTimeout)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].APIKey != "sk-ant-flags-0001" {
		t.Errorf("unexpected providers %v", cfg.Providers)
	}
}

func TestLoad_UnknownProvider(t *testing.T) {
	isolate(t)
	t.Setenv("GARAGESCAN_PROVIDERS", "anthropic,mistral")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "unsupported provider") {
		t.Errorf("expected unsupported provider error, got %v", err)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	tmpDir := isolate(t)
	envFile := filepath.Join(tmpDir, "garagescan.env")

	content := "GARAGESCAN_OPENAI_API_KEY=sk-dotenv-key-4321\nGARAGESCAN_TRACKER_API_KEY=tracker-secret-9876\n"
	if err := os.WriteFile(envFile, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Setenv("GARAGESCAN_ENV_FILE", envFile)
	t.Cleanup(func() {
		_ = os.Unsetenv("GARAGESCAN_OPENAI_API_KEY")
		_ = os.Unsetenv("GARAGESCAN_TRACKER_API_KEY")
	})

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	active := cfg.ActiveProviders()
	if len(active) != 1 || active[0].APIKey != "sk-dotenv-key-4321" {
		t.Errorf("expected openai key from env file, got %v", active)
	}
	if cfg.TrackerAPIKey != "tracker-secret-9876" {
		t.Errorf("expected tracker key from env file, got %q", cfg.TrackerAPIKey)
	}
}

func TestLoad_MissingExplicitEnvFile(t *testing.T) {
	tmpDir := isolate(t)
	t.Setenv("GARAGESCAN_ENV_FILE", filepath.Join(tmpDir, "missing.env"))

	if _, err := Load(""); err == nil {
		t.Error("expected error for a missing explicit env file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LogLevel:       "INFO",
			LogFormat:      "",
			RequestTimeout: time.Minute,
			Providers: []types.ProviderConfig{
				{Provider: types.ProviderAnthropic, APIKey: "a"},
				{Provider: types.ProviderOpenAI},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"invalid log level", func(c *Config) { c.LogLevel = "verbose" }, "invalid log-level"},
		{"invalid log format", func(c *Config) { c.LogFormat = "xml" }, "invalid log-format"},
		{"duplicate provider", func(c *Config) {
			c.Providers = append(c.Providers, types.ProviderConfig{Provider: types.ProviderAnthropic})
		}, "listed more than once"},
		{"unknown provider", func(c *Config) {
			c.Providers = []types.ProviderConfig{{Provider: "ollama"}}
		}, "unsupported provider"},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, "request-timeout must be positive"},
		{"tracker without scheme", func(c *Config) { c.TrackerURL = "tracker.local" }, "invalid tracker-url"},
		{"tracker ftp", func(c *Config) { c.TrackerURL = "ftp://tracker.local" }, "invalid tracker-url"},
		{"tracker ok", func(c *Config) { c.TrackerURL = "http://tracker.local:8080" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid configuration, got error: %v", err)
				}
				if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
					t.Errorf("expected normalized info/console, got %s/%s", cfg.LogLevel, cfg.LogFormat)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := &Config{
		LogLevel:       "info",
		LogFormat:      "console",
		RequestTimeout: time.Minute,
		Providers: []types.ProviderConfig{
			{Provider: types.ProviderAnthropic, APIKey: "sk-ant-secret-12345", Model: "claude-sonnet-4-5"},
			{Provider: types.ProviderOpenAI},
		},
		Endpoints:     map[types.ProviderType]string{types.ProviderAnthropic: "http://proxy.local"},
		TrackerAPIKey: "tracker-secret-98765",
	}

	str := cfg.String()

	for _, secret := range []string{"sk-ant-secret-12345", "tracker-secret-98765"} {
		if strings.Contains(str, secret) {
			t.Errorf("String() should redact %s", secret)
		}
	}
	for _, want := range []string{"***2345", "***8765", "not set", "http://proxy.local", "claude-sonnet-4-5"} {
		if !strings.Contains(str, want) {
			t.Errorf("String() should contain %q:\n%s", want, str)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList([]string{"anthropic, openai", " ", "google"})
	want := []string{"anthropic", "openai", "google"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("splitList() = %v, want %v", got, want)
	}
}

func TestLoadFromKeychain_NonMacOS(t *testing.T) {
	if isMacOS() {
		t.Skip("keychain lookup is live on macOS")
	}
	if key := loadFromKeychain("openai", "garagescan"); key != "" {
		t.Errorf("expected empty key off macOS, got %q", key)
	}
}
