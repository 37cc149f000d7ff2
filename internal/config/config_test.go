package config

import (
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	t.Run("variable set", func(t *testing.T) {
		t.Setenv("LEMCACHE_TEST_VAR", "test_value")
		if got := requireEnv("LEMCACHE_TEST_VAR"); got != "test_value" {
			t.Errorf("requireEnv() = %v, want %v", got, "test_value")
		}
	})

	t.Run("variable not set", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("requireEnv() should have panicked")
			}
		}()
		requireEnv("LEMCACHE_TEST_VAR_MISSING")
	})
}

func TestRequireEnvInt(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		expected  int
		wantPanic bool
	}{
		{name: "valid integer", value: "42", expected: 42},
		{name: "invalid integer", value: "not_a_number", wantPanic: true},
		{name: "missing variable", value: "", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LEMCACHE_TEST_INT", tt.value)

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnvInt() should have panicked")
					}
				}()
			}

			result := requireEnvInt("LEMCACHE_TEST_INT")
			if !tt.wantPanic && result != tt.expected {
				t.Errorf("requireEnvInt() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: nil},
		{name: "single value", input: "lemcache.local", expected: []string{"lemcache.local"}},
		{name: "spaces and quotes", input: ` "a.local" , 'b.local',, c.local `, expected: []string{"a.local", "b.local", "c.local"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitAndTrim(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("splitAndTrim() length = %v, want %v", len(result), len(tt.expected))
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("splitAndTrim()[%d] = %v, want %v", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{name: "valid duration", value: "5s", def: time.Second, expected: 5 * time.Second},
		{name: "invalid duration uses default", value: "invalid", def: 10 * time.Second, expected: 10 * time.Second},
		{name: "missing variable uses default", value: "", def: 15 * time.Second, expected: 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LEMCACHE_TEST_DURATION", tt.value)
			if result := mustDuration("LEMCACHE_TEST_DURATION", tt.def); result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", value: "true", def: false, expected: true},
		{name: "false value", value: "false", def: true, expected: false},
		{name: "invalid value uses default", value: "invalid", def: true, expected: true},
		{name: "missing variable uses default", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LEMCACHE_TEST_BOOL", tt.value)
			if result := mustBool("LEMCACHE_TEST_BOOL", tt.def); result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEMCACHE_SETTINGS_BACKEND", "")
	t.Setenv("LEMCACHE_SQLITE_PATH", "/tmp/lemcache-test.db")

	cfg := Load()

	if cfg.SettingsBackend != BackendSQLite {
		t.Errorf("SettingsBackend = %q, want %q", cfg.SettingsBackend, BackendSQLite)
	}
	if cfg.TrendingLimit != 6 {
		t.Errorf("TrendingLimit = %d, want 6", cfg.TrendingLimit)
	}
	if cfg.DefaultSort != "Active" {
		t.Errorf("DefaultSort = %q, want Active", cfg.DefaultSort)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr should stay empty with the sqlite backend, got %q", cfg.RedisAddr)
	}
}

func TestLoadRedisBackend(t *testing.T) {
	t.Run("requires address", func(t *testing.T) {
		t.Setenv("LEMCACHE_SETTINGS_BACKEND", "redis")
		t.Setenv("LEMCACHE_REDIS_ADDR", "")

		defer func() {
			if r := recover(); r == nil {
				t.Errorf("Load() should have panicked without LEMCACHE_REDIS_ADDR")
			}
		}()
		Load()
	})

	t.Run("password optional when not required", func(t *testing.T) {
		t.Setenv("LEMCACHE_SETTINGS_BACKEND", "Redis")
		t.Setenv("LEMCACHE_REDIS_ADDR", "localhost:6379")
		t.Setenv("LEMCACHE_REDIS_DB", "2")
		t.Setenv("LEMCACHE_REDIS_PASSWORD_REQUIRED", "false")

		cfg := Load()
		if cfg.RedisAddr != "localhost:6379" || cfg.RedisDB != 2 {
			t.Errorf("unexpected redis settings: addr=%q db=%d", cfg.RedisAddr, cfg.RedisDB)
		}
	})
}

func TestLoadUnknownBackend(t *testing.T) {
	t.Setenv("LEMCACHE_SETTINGS_BACKEND", "etcd")

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Load() should have panicked on an unknown backend")
		}
	}()
	Load()
}
