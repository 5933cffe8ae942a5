package utils

import (
	"strings"
	"testing"
)

func TestGenerateReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateReferralCode()
		if err != nil {
			t.Fatalf("generation failed: %v", err)
		}
		if !strings.HasPrefix(code, "INV-") {
			t.Fatalf("expected INV- prefix, got %q", code)
		}
		if len(code) != 10 {
			t.Fatalf("expected 10 characters, got %q", code)
		}
		for _, r := range code[4:] {
			if strings.ContainsRune("01OIl", r) {
				t.Fatalf("ambiguous character %q in %q", r, code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 95 {
		t.Errorf("too many collisions: %d unique of 100", len(seen))
	}
}
