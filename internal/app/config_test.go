package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `
telegram:
  token: "123:abc"
  run_mode: longpoll
logging:
  level: info
  format: kv
database:
  host: localhost
  port: "5432"
  user: sellbot
  name: sellbot
api:
  port: 9000
  webhook_secret: s3cret
handoff:
  base_url: https://sell.example.com/
  ttl_hours: 24
verification:
  base_url: https://api.paystack.co
banks:
  max_distance: 2
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token: %q", cfg.Telegram.Token)
	}
	if cfg.API.Port != 9000 || cfg.API.WebhookSecret != "s3cret" {
		t.Errorf("api config: %+v", cfg.API)
	}
	// Trailing slash trimmed during normalization.
	if cfg.Handoff.BaseURL != "https://sell.example.com" {
		t.Errorf("handoff base: %q", cfg.Handoff.BaseURL)
	}
	if cfg.Handoff.TTL() != 24*time.Hour {
		t.Errorf("handoff ttl: %v", cfg.Handoff.TTL())
	}
	if cfg.Banks.MaxDistance != 2 {
		t.Errorf("banks.max_distance: %d", cfg.Banks.MaxDistance)
	}
	if cfg.CoreConfig() == nil {
		t.Error("core config missing")
	}
}

func TestLoadRejectsMissingHandoffBase(t *testing.T) {
	cfg := `
telegram:
  token: "123:abc"
verification:
  base_url: https://api.paystack.co
`
	if _, err := Load(writeConfig(t, cfg)); err == nil {
		t.Fatal("expected an error for missing handoff.base_url")
	}
}

func TestLoadRejectsRelativeHandoffBase(t *testing.T) {
	cfg := `
telegram:
  token: "123:abc"
handoff:
  base_url: sell.example.com
verification:
  base_url: https://api.paystack.co
`
	if _, err := Load(writeConfig(t, cfg)); err == nil {
		t.Fatal("expected an error for a non-absolute handoff.base_url")
	}
}

func TestLoadRejectsMissingVerification(t *testing.T) {
	cfg := `
telegram:
  token: "123:abc"
handoff:
  base_url: https://sell.example.com
`
	if _, err := Load(writeConfig(t, cfg)); err == nil {
		t.Fatal("expected an error for missing verification.base_url")
	}
}

func TestLoadDefaultAPIPort(t *testing.T) {
	cfg := `
telegram:
  token: "123:abc"
handoff:
  base_url: https://sell.example.com
verification:
  base_url: https://api.paystack.co
`
	loaded, err := Load(writeConfig(t, cfg))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.API.Port != 8080 {
		t.Errorf("default api port: %d", loaded.API.Port)
	}
}
