package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if err := SaveGlobal(KeyNotionToken, "secret_abc"); err != nil {
		t.Fatalf("SaveGlobal() error = %v", err)
	}

	configPath := filepath.Join(home, ".config", GlobalConfigDir, GlobalConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "notion_token: secret_abc") {
		t.Errorf("config = %q, want notion_token entry", data)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perm = %o, want 600", perm)
	}
}

func TestSaveGlobalPreservesExisting(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if err := SaveGlobal(KeyNotionToken, "secret_abc"); err != nil {
		t.Fatal(err)
	}
	if err := SaveGlobal(KeyAnthropicAPIKey, "sk-ant"); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(home, ".config", GlobalConfigDir, GlobalConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"notion_token: secret_abc", "anthropic_api_key: sk-ant"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("config missing %q:\n%s", want, data)
		}
	}
}

func TestSaveGlobalUnknownKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	err := SaveGlobal("briefs_database_id", "db_123")
	if err == nil {
		t.Fatal("SaveGlobal() error = nil, want unknown-key error (local key in global config)")
	}
	if !strings.Contains(err.Error(), "unknown global config key") {
		t.Errorf("error = %v, want unknown-key message", err)
	}
}

func TestSaveLocal(t *testing.T) {
	gitRoot := t.TempDir()

	if err := SaveLocal(gitRoot, KeyStore, "frontmatter"); err != nil {
		t.Fatalf("SaveLocal() error = %v", err)
	}
	if err := SaveLocal(gitRoot, KeyAutoPush, "true"); err != nil {
		t.Fatalf("SaveLocal() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(gitRoot, LocalConfigName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "store: frontmatter") {
		t.Errorf("config missing store entry:\n%s", data)
	}
	// Booleans are written unquoted
	if !strings.Contains(string(data), "auto_push: true") {
		t.Errorf("config missing auto_push entry:\n%s", data)
	}
}

func TestSaveLocalNoGitRoot(t *testing.T) {
	if err := SaveLocal("", KeyStore, "notion"); err == nil {
		t.Fatal("SaveLocal() error = nil, want git-root error")
	}
}

func TestSaveLocalUnknownKey(t *testing.T) {
	err := SaveLocal(t.TempDir(), KeyNotionToken, "secret")
	if err == nil {
		t.Fatal("SaveLocal() error = nil, want unknown-key error (secret in local config)")
	}
}

func TestDeleteGlobalKey(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if err := SaveGlobal(KeyNotionToken, "secret_abc"); err != nil {
		t.Fatal(err)
	}
	if err := SaveGlobal(KeyAnthropicAPIKey, "sk-ant"); err != nil {
		t.Fatal(err)
	}

	if err := DeleteGlobalKey(KeyNotionToken); err != nil {
		t.Fatalf("DeleteGlobalKey() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(home, ".config", GlobalConfigDir, GlobalConfigFile))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "notion_token") {
		t.Errorf("config still contains deleted key:\n%s", data)
	}
	if !strings.Contains(string(data), "anthropic_api_key") {
		t.Errorf("config lost unrelated key:\n%s", data)
	}
}

func TestDeleteGlobalKeyMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := DeleteGlobalKey(KeyNotionToken); err != nil {
		t.Errorf("DeleteGlobalKey() error = %v, want nil when no config exists", err)
	}
}
