package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	// GoVersion should match runtime
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %s, want %s", info.GoVersion, runtime.Version())
	}

	// Platform should contain OS and arch
	expectedPlatform := runtime.GOOS + "/" + runtime.GOARCH
	if info.Platform != expectedPlatform {
		t.Errorf("Platform = %s, want %s", info.Platform, expectedPlatform)
	}

	// Version should be set (even if to "dev")
	if info.Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestInfoString(t *testing.T) {
	info := Get()
	str := info.String()

	if !strings.Contains(str, "ds-inhibit") {
		t.Errorf("String() should contain 'ds-inhibit', got %s", str)
	}

	if !strings.Contains(str, info.Version) {
		t.Errorf("String() should contain version %s, got %s", info.Version, str)
	}

	if !strings.Contains(str, info.Platform) {
		t.Errorf("String() should contain platform %s, got %s", info.Platform, str)
	}
}

func TestInfoShort(t *testing.T) {
	info := Get()
	short := info.Short()

	if !strings.HasPrefix(short, "ds-inhibit") {
		t.Errorf("Short() should start with 'ds-inhibit', got %s", short)
	}

	if !strings.Contains(short, info.Version) {
		t.Errorf("Short() should contain version %s, got %s", info.Version, short)
	}
}
