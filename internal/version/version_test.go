package version

import (
	"strings"
	"testing"
)

func TestVersionStringNonEmpty(t *testing.T) {
	if s := String(); s == "" {
		t.Fatalf("version string is empty")
	}
}

func TestVersionStringFallsBackToDev(t *testing.T) {
	old := Version
	Version = "  "
	t.Cleanup(func() { Version = old })
	if s := String(); !strings.HasPrefix(s, "dev") {
		t.Fatalf("expected dev fallback, got %q", s)
	}
}
