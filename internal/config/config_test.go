package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Defaults()
	cfg.Telegram.Token = "123456:ABCDEF"
	cfg.Telegram.SupportGroupID = -1001234567890
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Telegram.Token != "123456:ABCDEF" {
		t.Fatalf("token lost in round trip: %q", loaded.Telegram.Token)
	}
	if loaded.Telegram.SupportGroupID != -1001234567890 {
		t.Fatalf("group ID lost: %d", loaded.Telegram.SupportGroupID)
	}
	if loaded.Relay.Workers != 4 {
		t.Fatalf("defaults not applied, workers=%d", loaded.Relay.Workers)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("SUPPORTBOT_TEST_TOKEN", "999:XYZ")
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{"telegram": {"token": "${SUPPORTBOT_TEST_TOKEN}", "supportGroupId": -100}}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "999:XYZ" {
		t.Fatalf("env var not expanded, got %q", cfg.Telegram.Token)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cfg := Defaults()
	cfg.Relay.Workers = 0
	cfg.Cleaner.MaxRange = 99999
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "relay.workers") || !strings.Contains(err.Error(), "cleaner.maxRange") {
		t.Fatalf("expected both violations listed, got: %v", err)
	}
}

func TestSanitize_MasksTokens(t *testing.T) {
	cfg := Defaults()
	cfg.Telegram.Token = "123456789:AAHHsecretsecretsecret"
	out := Sanitize(cfg)
	if strings.Contains(out.Telegram.Token, "secret") {
		t.Fatalf("token not masked: %q", out.Telegram.Token)
	}
	if cfg.Telegram.Token == out.Telegram.Token {
		t.Fatal("sanitize must not return the raw token")
	}
}

func TestLoadReplies_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.yaml")
	raw := "autoAck: \"Got it!\"\nhelp: \"Ask away.\"\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	replies, err := LoadReplies(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if replies.AutoAck != "Got it!" || replies.Help != "Ask away." {
		t.Fatalf("overrides not applied: %+v", replies)
	}
	if replies.Welcome == "" || replies.RelayFailure == "" {
		t.Fatal("unset fields must keep defaults")
	}
}

func TestLoadReplies_MissingFileUsesDefaults(t *testing.T) {
	replies, err := LoadReplies(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if replies.AutoAck == "" {
		t.Fatal("expected default auto-ack text")
	}
}
