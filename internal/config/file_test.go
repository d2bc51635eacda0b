package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// createTempConfigFile creates a config file under dir/.kshell
func createTempConfigFile(t *testing.T, dir, content string) string {
	t.Helper()

	configDir := filepath.Join(dir, ".kshell")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	return configPath
}

func boolPtr(b bool) *bool { return &b }

func TestLoadConfigFromPath_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configContent := `
log_level: info
log_format: json
max_jobs_per_tab: 4

history:
  file: /var/tmp/h.db
  max_entries: 50
  persist: false

local_access: false
prompt: "$ "
render: false

shell:
  allow:
    - git:*
  deny:
    - rm*
  dangerous_enabled: true
  pass_through: false
`
	configPath := createTempConfigFile(t, tmpDir, configContent)

	cfg, err := loadConfigFromPath(configPath)
	if err != nil {
		t.Fatalf("loadConfigFromPath() error = %v", err)
	}

	want := &FileConfig{
		LogLevel:      "info",
		LogFormat:     "json",
		MaxJobsPerTab: 4,
		History:       &HistoryConfig{File: "/var/tmp/h.db", MaxEntries: 50, Persist: boolPtr(false)},
		LocalAccess:   boolPtr(false),
		Prompt:        "$ ",
		Render:        boolPtr(false),
		Shell: &ShellConfig{
			Allow:            []string{"git:*"},
			Deny:             []string{"rm*"},
			DangerousEnabled: true,
			PassThrough:      boolPtr(false),
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("FileConfig mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigFromPath_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := createTempConfigFile(t, tmpDir, "history: [unclosed")

	_, err := loadConfigFromPath(configPath)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("loadConfigFromPath() error = %v, want parse error", err)
	}
}

func TestLoadConfigFromPath_Missing(t *testing.T) {
	_, err := loadConfigFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("loadConfigFromPath() error = %v, want read error", err)
	}
}

func TestLoadConfigFile_SearchesCurrentDir(t *testing.T) {
	clearAllEnvVars(t)
	dir := runInTempDir(t)
	createTempConfigFile(t, dir, "prompt: \"local> \"\n")

	fc, err := LoadConfigFile()
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}
	if fc.Prompt != "local> " {
		t.Errorf("Prompt = %q, want %q", fc.Prompt, "local> ")
	}
}

func TestLoadConfigFile_NoneFound(t *testing.T) {
	clearAllEnvVars(t)
	runInTempDir(t)

	fc, err := LoadConfigFile()
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}
	if diff := cmp.Diff(&FileConfig{}, fc); diff != "" {
		t.Errorf("expected empty config (-want +got):\n%s", diff)
	}
}

func TestGetConfigPaths(t *testing.T) {
	dir := runInTempDir(t)

	want := []string{
		filepath.Join(".", ".kshell", ConfigFileName),
		filepath.Join(dir, ".config", "kshell", ConfigFileName),
		filepath.Join(dir, ".config", "kshell", ConfigFileName),
	}
	if diff := cmp.Diff(want, GetConfigPaths()); diff != "" {
		t.Errorf("GetConfigPaths() mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyFileConfig_Precedence(t *testing.T) {
	cfg := NewConfig()
	cfg.LogFormat = "text"
	cfg.ShellAllow = []string{"ls*"}

	cfg.ApplyFileConfig(&FileConfig{
		LogLevel:  "info",
		LogFormat: "json",
		Spinner:   boolPtr(false),
		History:   &HistoryConfig{MaxEntries: 10},
		Shell:     &ShellConfig{Allow: []string{"git:*"}, AutoAllowSafe: boolPtr(false)},
	})

	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, already-set value should win", cfg.LogFormat)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Spinner || cfg.AutoAllowSafe {
		t.Error("explicit false in the file should override defaults")
	}
	if !cfg.Render || !cfg.PersistHistory {
		t.Error("unset file values should keep defaults")
	}
	if cfg.HistoryMaxEntries != 10 {
		t.Errorf("HistoryMaxEntries = %d, want 10", cfg.HistoryMaxEntries)
	}
	if diff := cmp.Diff([]string{"ls*", "git:*"}, cfg.ShellAllow); diff != "" {
		t.Errorf("ShellAllow mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyFileConfig_Nil(t *testing.T) {
	cfg := NewConfig()
	cfg.ApplyFileConfig(nil)
	if diff := cmp.Diff(NewConfig(), cfg); diff != "" {
		t.Errorf("nil file config changed Config (-want +got):\n%s", diff)
	}
}

func TestValidate_ExplicitConfigPath(t *testing.T) {
	clearAllEnvVars(t)
	dir := runInTempDir(t)
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("max_jobs_per_tab: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig()
	cfg.ConfigPath = path
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.MaxJobsPerTab != 7 {
		t.Errorf("MaxJobsPerTab = %d, want 7", cfg.MaxJobsPerTab)
	}

	cfg = NewConfig()
	cfg.ConfigPath = filepath.Join(dir, "missing.yaml")
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for a missing explicit config file")
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	dir := runInTempDir(t)

	path, err := CreateDefaultConfigFile()
	if err != nil {
		t.Fatalf("CreateDefaultConfigFile() error = %v", err)
	}
	if want := filepath.Join(dir, ".config", "kshell", ConfigFileName); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	// The template is entirely commented out and must parse to an empty config
	fc, err := loadConfigFromPath(path)
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if diff := cmp.Diff(&FileConfig{}, fc); diff != "" {
		t.Errorf("template should be all comments (-want +got):\n%s", diff)
	}

	if _, err := CreateDefaultConfigFile(); err == nil {
		t.Error("second CreateDefaultConfigFile() should report an existing file")
	}
}
