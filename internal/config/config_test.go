// config_test.go — Tests for the env-driven configuration cascade.
package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	// Clear everything the loader reads so defaults win.
	for _, k := range []string{"HEADLESS", "AETHERIA_OUT_DIR", "PORT", "SUPABASE_URL",
		"SUPABASE_SERVICE_KEY", "SUPABASE_ANON_KEY", "DEFAULT_COUNTRY_CODE", "AETHERIA_BANDS_FILE"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Headless {
		t.Error("default Headless should be false")
	}
	if cfg.OutDir != "captures" {
		t.Errorf("OutDir = %q, want captures", cfg.OutDir)
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
	}
	if cfg.DefaultCountryCode != "91" {
		t.Errorf("DefaultCountryCode = %q, want 91", cfg.DefaultCountryCode)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HEADLESS", "1")
	t.Setenv("AETHERIA_OUT_DIR", "/tmp/evidence")
	t.Setenv("PORT", "9001")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Headless {
		t.Error("HEADLESS=1 should enable headless")
	}
	if cfg.OutDir != "/tmp/evidence" {
		t.Errorf("OutDir = %q", cfg.OutDir)
	}
	if cfg.Port != 9001 {
		t.Errorf("Port = %d, want 9001", cfg.Port)
	}
	if cfg.SupabaseKey != "anon-key" {
		t.Errorf("SupabaseKey = %q, want anon fallback", cfg.SupabaseKey)
	}
}

func TestServiceKeyWinsOverAnon(t *testing.T) {
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SupabaseKey != "service-key" {
		t.Errorf("SupabaseKey = %q, want service-key", cfg.SupabaseKey)
	}
}

func TestValidate(t *testing.T) {
	t.Run("empty out dir", func(t *testing.T) {
		cfg := Defaults()
		cfg.OutDir = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for empty out dir")
		}
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := Defaults()
		cfg.Port = 70000
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for out-of-range port")
		}
	})
}
