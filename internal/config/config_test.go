package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
	}
	if cfg.ListenHost != "127.0.0.1" {
		t.Errorf("ListenHost = %q, want 127.0.0.1", cfg.ListenHost)
	}
	if cfg.DatabaseURL != "pragma.db" {
		t.Errorf("DatabaseURL = %q, want pragma.db", cfg.DatabaseURL)
	}
	if cfg.Addr() != "127.0.0.1:8000" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LISTEN_HOST", "0.0.0.0")
	t.Setenv("DATABASE_URL", "/var/lib/pragma/data.db")
	t.Setenv("AUTH_TOKEN", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.ListenHost != "0.0.0.0" {
		t.Errorf("ListenHost = %q, want 0.0.0.0", cfg.ListenHost)
	}
	if cfg.DatabaseURL != "/var/lib/pragma/data.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.AuthToken != "secret" {
		t.Errorf("AuthToken = %q, want secret", cfg.AuthToken)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "70000")

	if _, err := Load(); err == nil {
		t.Error("Expected error for out-of-range port")
	}
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken()
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	b, err := RandomToken()
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if len(a) != 32 {
		t.Errorf("Token length = %d, want 32", len(a))
	}
	if a == b {
		t.Error("Two tokens must differ")
	}
}
