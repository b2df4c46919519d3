package utils

import (
	"testing"
	"time"
)

func TestGetEnvDefault(t *testing.T) {
	t.Setenv("TANZBOT_TEST_ADDR", "")
	if got := GetEnvDefault("TANZBOT_TEST_ADDR", "localhost"); got != "localhost" {
		t.Errorf("GetEnvDefault = %q, want %q", got, "localhost")
	}
	t.Setenv("TANZBOT_TEST_ADDR", "0.0.0.0")
	if got := GetEnvDefault("TANZBOT_TEST_ADDR", "localhost"); got != "0.0.0.0" {
		t.Errorf("GetEnvDefault = %q, want %q", got, "0.0.0.0")
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TANZBOT_TEST_INT", "12")
	if got := GetEnvInt("TANZBOT_TEST_INT", 3); got != 12 {
		t.Errorf("GetEnvInt = %d, want %d", got, 12)
	}
	t.Setenv("TANZBOT_TEST_INT", "twelve")
	if got := GetEnvInt("TANZBOT_TEST_INT", 3); got != 3 {
		t.Errorf("GetEnvInt(invalid) = %d, want %d", got, 3)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TANZBOT_TEST_DUR", "250ms")
	if got := GetEnvDuration("TANZBOT_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("GetEnvDuration = %v, want %v", got, 250*time.Millisecond)
	}
	t.Setenv("TANZBOT_TEST_DUR", "soon")
	if got := GetEnvDuration("TANZBOT_TEST_DUR", time.Second); got != time.Second {
		t.Errorf("GetEnvDuration(invalid) = %v, want %v", got, time.Second)
	}
}
