package fileserver

import (
	"testing"
	"time"
)

func TestRunVersionFormat(t *testing.T) {
	v := RunVersion(time.Date(2026, 8, 28, 10, 30, 5, 0, time.UTC))
	if v != "-v2026.08.28.10.30.05" {
		t.Errorf("RunVersion = %q", v)
	}
	if len(v) != len(VersionPlaceholder) {
		t.Errorf("version length %d, want %d", len(v), len(VersionPlaceholder))
	}
	if !hasVersionSuffix("/app.js" + v) {
		t.Error("generated version not recognized as suffix")
	}
}

func TestStripVersionSuffix(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"/app.js-v2026.08.28.10.30.05", "/app.js"},
		{"/app.js" + VersionPlaceholder, "/app.js"},
		{"/app.js", "/app.js"},
		{"/app.js-v2026.08.28.10.30.xx", "/app.js-v2026.08.28.10.30.xx"},
		{"/app.js-v2026-08.28.10.30.05", "/app.js-v2026-08.28.10.30.05"},
		{"-v2026.08.28.10.30.05", "-v2026.08.28.10.30.05"}, // nothing before the suffix
	}
	for _, tt := range tests {
		if got := stripVersionSuffix(tt.uri); got != tt.want {
			t.Errorf("stripVersionSuffix(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestStripVersionSuffixIdempotent(t *testing.T) {
	once := stripVersionSuffix("/page-v2026.01.02.03.04.05")
	if twice := stripVersionSuffix(once); twice != once {
		t.Errorf("second strip changed %q to %q", once, twice)
	}
}
