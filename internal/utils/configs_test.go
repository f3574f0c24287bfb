package utils

import (
	"testing"
	"time"
)

func TestGetConfigWithDefault(t *testing.T) {
	cm := NewConfigManager("")

	cm.SetConfig("test_key", "value")
	if got := cm.GetConfigWithDefault("test_key", "fallback"); got != "value" {
		t.Errorf("Expected value, got %s", got)
	}

	if got := cm.GetConfigWithDefault("test_missing_key", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback, got %s", got)
	}
}

func TestGetConfigEnvOverride(t *testing.T) {
	cm := NewConfigManager("")

	cm.SetConfig("test_env_key", "from-file")
	t.Setenv("TEST_ENV_KEY", "from-env")

	if got := cm.GetConfigWithDefault("test_env_key", ""); got != "from-env" {
		t.Errorf("Expected environment to override config, got %s", got)
	}
}

func TestGetConfigInt(t *testing.T) {
	cm := NewConfigManager("")

	cm.SetConfig("test_int", "42")
	if got := cm.GetConfigInt("test_int", 0, 0, 100); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}

	// Out of range falls back to default
	cm.SetConfig("test_int", "5000")
	if got := cm.GetConfigInt("test_int", 7, 0, 100); got != 7 {
		t.Errorf("Expected default for out-of-range value, got %d", got)
	}

	cm.SetConfig("test_int", "not-a-number")
	if got := cm.GetConfigInt("test_int", 7, 0, 100); got != 7 {
		t.Errorf("Expected default for unparseable value, got %d", got)
	}
}

func TestGetConfigFloat64(t *testing.T) {
	cm := NewConfigManager("")

	cm.SetConfig("test_float", "10.5")
	if got := cm.GetConfigFloat64("test_float", 0, 0, 100); got != 10.5 {
		t.Errorf("Expected 10.5, got %v", got)
	}
}

func TestGetConfigDuration(t *testing.T) {
	cm := NewConfigManager("")

	cm.SetConfig("test_duration", "30s")
	if got := cm.GetConfigDuration("test_duration", time.Minute); got != 30*time.Second {
		t.Errorf("Expected 30s, got %v", got)
	}

	if got := cm.GetConfigDuration("test_missing_duration", time.Minute); got != time.Minute {
		t.Errorf("Expected default duration, got %v", got)
	}
}

func TestGetConfigSlice(t *testing.T) {
	cm := NewConfigManager("")

	cm.SetConfig("test_slice", "a, b ,c")
	got := cm.GetConfigSlice("test_slice", nil)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Expected [a b c], got %v", got)
	}
}

func TestGetConfigBool(t *testing.T) {
	cm := NewConfigManager("")

	cm.SetConfig("test_bool", "true")
	if !cm.GetConfigBool("test_bool", false) {
		t.Error("Expected true")
	}

	cm.SetConfig("test_bool", "false")
	if cm.GetConfigBool("test_bool", true) {
		t.Error("Expected false")
	}

	if !cm.GetConfigBool("test_missing_bool", true) {
		t.Error("Expected default true")
	}
}
