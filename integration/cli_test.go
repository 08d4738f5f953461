package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// buildCLI compiles the garagescan binary into a temp dir
func buildCLI(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping CLI test in short mode")
	}

	binaryPath := filepath.Join(t.TempDir(), "garagescan-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/garagescan")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build CLI: %v\nOutput: %s", err, output)
	}
	return binaryPath
}

// isolatedEnv runs the binary without the user's config, .env or API keys
func isolatedEnv(home string, extra ...string) []string {
	env := []string{"HOME=" + home, "PATH=" + os.Getenv("PATH")}
	return append(env, extra...)
}

// TestCLIBuild tests that the CLI binary can be built
func TestCLIBuild(t *testing.T) {
	binaryPath := buildCLI(t)

	info, err := os.Stat(binaryPath)
	if err != nil {
		t.Fatalf("Failed to stat binary: %v", err)
	}

	if info.Mode()&0111 == 0 {
		t.Error("Binary should be executable")
	}
}

// TestCLIVersion tests the version command
func TestCLIVersion(t *testing.T) {
	binaryPath := buildCLI(t)

	output, err := exec.Command(binaryPath, "version").CombinedOutput()
	if err != nil {
		t.Fatalf("Version command failed: %v\nOutput: %s", err, output)
	}

	if !strings.Contains(string(output), "garagescan version") {
		t.Errorf("Version output should name the binary\nOutput: %s", output)
	}
}

// TestCLIHelp tests the help command and flag
func TestCLIHelp(t *testing.T) {
	binaryPath := buildCLI(t)

	tests := []struct {
		name string
		args []string
	}{
		{"help command", []string{"help"}},
		{"help flag", []string{"--help"}},
		{"fuel help", []string{"fuel", "--help"}},
		{"service help", []string{"service", "--help"}},
		{"providers check help", []string{"providers", "check", "--help"}},
		{"vehicles help", []string{"vehicles", "--help"}},
		{"traces help", []string{"traces", "--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, _ := exec.Command(binaryPath, tt.args...).CombinedOutput()
			if !strings.Contains(string(output), "Usage:") {
				t.Errorf("Help output should contain usage information\nOutput: %s", output)
			}
		})
	}
}

// TestCLIFlags tests that global and command flags are recognized
func TestCLIFlags(t *testing.T) {
	binaryPath := buildCLI(t)

	tests := []struct {
		name  string
		flags []string
	}{
		{"debug flag", []string{"fuel", "--debug", "--help"}},
		{"progress flag", []string{"service", "--progress", "--help"}},
		{"providers flag", []string{"service", "--providers", "openai,anthropic", "--help"}},
		{"timeout flag", []string{"fuel", "--request-timeout", "90s", "--help"}},
		{"submit flags", []string{"fuel", "--submit", "--vehicle", "3", "--help"}},
		{"trace flag", []string{"traces", "--trace-db", "/tmp/trace.db", "--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, _ := exec.Command(binaryPath, tt.flags...).CombinedOutput()
			if strings.Contains(string(output), "unknown flag") {
				t.Errorf("Flag should be recognized\nOutput: %s", output)
			}
		})
	}
}

// TestCLINoProvider tests that extraction without API keys fails before any network call
func TestCLINoProvider(t *testing.T) {
	binaryPath := buildCLI(t)
	home := t.TempDir()

	pump := filepath.Join(home, "pump.jpg")
	if err := os.WriteFile(pump, []byte("\xff\xd8\xffpump"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(binaryPath, "fuel", "--pump", pump, "--odometer", pump)
	cmd.Dir = home
	cmd.Env = isolatedEnv(home)
	output, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected failure without providers\nOutput: %s", output)
	}
	if !strings.Contains(string(output), "no provider configured") {
		t.Errorf("expected no provider error\nOutput: %s", output)
	}
}

// TestCLIInvalidConfig tests that a bad provider name is reported
func TestCLIInvalidConfig(t *testing.T) {
	binaryPath := buildCLI(t)
	home := t.TempDir()

	cmd := exec.Command(binaryPath, "providers")
	cmd.Dir = home
	cmd.Env = isolatedEnv(home, "GARAGESCAN_PROVIDERS=anthropic,ollama")
	output, err := cmd.CombinedOutput()
	if err == nil || !strings.Contains(string(output), "unsupported provider") {
		t.Errorf("expected unsupported provider error, got %v\nOutput: %s", err, output)
	}
}

// TestCLIInvalidCommand tests error handling for invalid commands
func TestCLIInvalidCommand(t *testing.T) {
	binaryPath := buildCLI(t)

	output, _ := exec.Command(binaryPath, "invalid-command").CombinedOutput()
	if !strings.Contains(string(output), "unknown command") && !strings.Contains(string(output), "Error") {
		t.Errorf("Should show error for invalid command\nOutput: %s", output)
	}
}
