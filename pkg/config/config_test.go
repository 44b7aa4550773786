package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SAXO_CLIENT_ID", "app-id")
	t.Setenv("SAXO_CLIENT_SECRET", "app-secret")
	t.Setenv("SAXO_ACCOUNT_KEY", "acct")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Environment != EnvSim {
		t.Fatalf("environment got=%q want=sim", cfg.Environment)
	}
	if cfg.SafetyMargin != 60*time.Second {
		t.Fatalf("safety margin got=%s", cfg.SafetyMargin)
	}
	if cfg.DefaultExpiry != 1200*time.Second {
		t.Fatalf("default expiry got=%s", cfg.DefaultExpiry)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr got=%q", cfg.ListenAddr)
	}
	if cfg.MaxConsecutiveFailures != 5 {
		t.Fatalf("max failures got=%d", cfg.MaxConsecutiveFailures)
	}

	ger, ok := cfg.Symbols["GER40"]
	if !ok || ger.Uic != 4910 || ger.AssetType != "CfdOnIndex" {
		t.Fatalf("GER40 spec got=%+v ok=%v", ger, ok)
	}
	if fx := cfg.Symbols["EURUSD"]; fx.Uic != 21 || fx.AssetType != "FxSpot" {
		t.Fatalf("EURUSD spec got=%+v", fx)
	}
}

func TestEnvironmentSelectsEndpoints(t *testing.T) {
	setRequiredEnv(t)

	t.Run("sim", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if cfg.TokenEndpoint() != "https://sim.logonvalidation.net/token" {
			t.Fatalf("token endpoint got=%q", cfg.TokenEndpoint())
		}
		if cfg.APIBaseURL() != "https://gateway.saxobank.com/sim/openapi" {
			t.Fatalf("api base got=%q", cfg.APIBaseURL())
		}
	})

	t.Run("live", func(t *testing.T) {
		t.Setenv("SAXO_ENVIRONMENT", "live")
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if cfg.TokenEndpoint() != "https://live.logonvalidation.net/token" {
			t.Fatalf("token endpoint got=%q", cfg.TokenEndpoint())
		}
		if cfg.APIBaseURL() != "https://gateway.saxobank.com/openapi" {
			t.Fatalf("api base got=%q", cfg.APIBaseURL())
		}
	})

	t.Run("explicit override wins", func(t *testing.T) {
		t.Setenv("SAXO_API_BASE", "http://127.0.0.1:9999/openapi")
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if cfg.APIBaseURL() != "http://127.0.0.1:9999/openapi" {
			t.Fatalf("api base got=%q", cfg.APIBaseURL())
		}
	})
}

func TestLoadRejectsBadEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SAXO_ENVIRONMENT", "staging")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation failure")
	}
}

func TestLoadRequiresCredentials(t *testing.T) {
	t.Setenv("SAXO_CLIENT_ID", "app-id")
	t.Setenv("SAXO_CLIENT_SECRET", "")
	t.Setenv("SAXO_ACCOUNT_KEY", "acct")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation failure for missing client secret")
	}
}

func TestLoadYAMLFileOverridesEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LISTEN_ADDR", ":9999")

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	content := `
environment: live
listen_addr: ":7777"
safety_margin_seconds: 90
symbols:
  spx500:
    uic: 4913
    asset_type: CfdOnIndex
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Environment != EnvLive {
		t.Fatalf("environment got=%q", cfg.Environment)
	}
	if cfg.ListenAddr != ":7777" {
		t.Fatalf("file value must beat env, got=%q", cfg.ListenAddr)
	}
	if cfg.SafetyMargin != 90*time.Second {
		t.Fatalf("safety margin got=%s", cfg.SafetyMargin)
	}

	// File symbols extend the built-in table, upper-cased.
	if spec, ok := cfg.Symbols["SPX500"]; !ok || spec.Uic != 4913 {
		t.Fatalf("file symbol got=%+v ok=%v", spec, ok)
	}
	if _, ok := cfg.Symbols["GER40"]; !ok {
		t.Fatal("built-in symbols must survive a file merge")
	}
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "gateway.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected unsupported-format error")
	}
}
