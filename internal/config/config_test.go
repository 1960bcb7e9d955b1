package config

import (
	"testing"
	"time"
)

func TestLoadAPIRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadAPI(); err == nil {
		t.Fatal("LoadAPI must fail without DATABASE_URL")
	}
}

func TestLoadAPIPortOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pocketbank")
	t.Setenv("POCKETBANK_ADDR", ":9000")
	t.Setenv("PORT", "3000")

	cfg, err := LoadAPI()
	if err != nil {
		t.Fatalf("LoadAPI: %v", err)
	}
	if cfg.Addr != ":3000" {
		t.Errorf("Addr = %q, want PORT to win", cfg.Addr)
	}
}

func TestLoadBotDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pocketbank")
	t.Setenv("POCKETBANK_BOT_CYCLE_EVERY", "")
	t.Setenv("POCKETBANK_BOT_RUN_ONCE", "")

	cfg, err := LoadBot()
	if err != nil {
		t.Fatalf("LoadBot: %v", err)
	}
	if cfg.CycleEvery != 30*time.Second {
		t.Errorf("CycleEvery = %v, want 30s default", cfg.CycleEvery)
	}
	if cfg.RunOnce {
		t.Error("RunOnce must default to false")
	}
}

func TestLoadBotParsesOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pocketbank")
	t.Setenv("POCKETBANK_BOT_CYCLE_EVERY", "2m")
	t.Setenv("POCKETBANK_BOT_RUN_ONCE", "true")

	cfg, err := LoadBot()
	if err != nil {
		t.Fatalf("LoadBot: %v", err)
	}
	if cfg.CycleEvery != 2*time.Minute {
		t.Errorf("CycleEvery = %v, want 2m", cfg.CycleEvery)
	}
	if !cfg.RunOnce {
		t.Error("RunOnce = false, want true")
	}

	t.Setenv("POCKETBANK_BOT_CYCLE_EVERY", "soon")
	if _, err := LoadBot(); err == nil {
		t.Error("LoadBot must reject unparseable durations")
	}
}
