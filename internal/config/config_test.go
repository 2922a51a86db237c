package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port == 0 {
		t.Error("expected default port to be set")
	}
	if cfg.SendBuffer <= 0 {
		t.Error("expected positive send buffer default")
	}
	if cfg.PingPeriod <= 0 {
		t.Error("expected positive ping period default")
	}
	if cfg.TokenTTL <= 0 {
		t.Error("expected positive token ttl default")
	}
}
