package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MainFolder != "~/.librarian" {
		t.Errorf("MainFolder = %q", cfg.MainFolder)
	}
	if cfg.Telegram.Timeout != 300 {
		t.Errorf("Timeout = %d", cfg.Telegram.Timeout)
	}
	if cfg.Components.Wiki.Language != "en" || cfg.Components.Wiki.SummarySize != 1024 {
		t.Errorf("Wiki defaults = %+v", cfg.Components.Wiki)
	}
	if len(cfg.Components.System.Commands) == 0 {
		t.Error("no default system commands")
	}
}

func TestMainIDAndIsAllowed(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MainID() != 0 {
		t.Errorf("MainID with no chats = %d", cfg.MainID())
	}
	if cfg.IsAllowed(1) {
		t.Error("empty allow-list must reject everyone")
	}

	cfg.Telegram.ChatIDs = []int64{11, 22}
	if cfg.MainID() != 11 {
		t.Errorf("MainID = %d, want the first chat id", cfg.MainID())
	}
	if !cfg.IsAllowed(11) || !cfg.IsAllowed(22) {
		t.Error("listed chats must be allowed")
	}
	if cfg.IsAllowed(33) {
		t.Error("unlisted chat must be rejected")
	}
}

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.Timeout != 300 {
		t.Errorf("defaults not applied: %+v", cfg.Telegram)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.ChatIDs = []int64{77}
	cfg.Telegram.Chivato = true
	cfg.Components.Weather.APIKey = "owm-key"
	cfg.Components.Arxiv.Categories = []string{"hep-ph"}

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config saved with mode %o, the token must stay private", perm)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Telegram.Token != "123:abc" || !loaded.Telegram.Chivato {
		t.Errorf("telegram section = %+v", loaded.Telegram)
	}
	if loaded.MainID() != 77 {
		t.Errorf("MainID = %d", loaded.MainID())
	}
	if loaded.Components.Weather.APIKey != "owm-key" {
		t.Errorf("weather section = %+v", loaded.Components.Weather)
	}
	// Fields absent from the file keep their defaults.
	if loaded.Components.Wiki.Language != "en" {
		t.Errorf("wiki defaults lost: %+v", loaded.Components.Wiki)
	}
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	partial := `{"telegram": {"token": "tok"}}`
	if err := os.WriteFile(path, []byte(partial), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.Token != "tok" {
		t.Errorf("Token = %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.Timeout != 300 {
		t.Errorf("Timeout default lost: %d", cfg.Telegram.Timeout)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got := expandPath("~/.librarian")
	if !strings.HasPrefix(got, home) {
		t.Errorf("expandPath = %q, want prefix %q", got, home)
	}
	if got := expandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path mangled: %q", got)
	}
}
