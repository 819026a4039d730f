package version

import (
	"strings"
	"testing"
)

func TestCurrentNeverEmpty(t *testing.T) {
	if v := Current(); !strings.HasPrefix(v, "v") {
		t.Fatalf("expected semver-shaped version, got %q", v)
	}
}

func TestModuleReturnsPath(t *testing.T) {
	if m := Module(); !strings.Contains(m, "/") {
		t.Fatalf("expected a module path, got %q", m)
	}
}
