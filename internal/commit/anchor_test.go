package commit

import (
	"strings"
	"testing"
)

func TestNormalizeAnchorAcceptsSHA256(t *testing.T) {
	v := strings.Repeat("a", 64)
	got, err := NormalizeAnchor(v)
	if err != nil {
		t.Fatalf("NormalizeAnchor failed: %v", err)
	}
	if got != v {
		t.Errorf("expected %s, got %s", v, got)
	}
}

func TestNormalizeAnchorPadsSHA1(t *testing.T) {
	sha1 := strings.Repeat("B", 40)
	got, err := NormalizeAnchor(" " + sha1 + " ")
	if err != nil {
		t.Fatalf("NormalizeAnchor failed: %v", err)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 characters, got %d", len(got))
	}
	if !strings.HasPrefix(got, strings.ToLower(sha1)) {
		t.Errorf("anchor should start with the lowercased hash: %s", got)
	}
	if got[40:] != strings.Repeat("0", 24) {
		t.Errorf("anchor should be zero-padded: %s", got)
	}
}

func TestNormalizeAnchorRejectsBadInput(t *testing.T) {
	if _, err := NormalizeAnchor("abc"); err == nil {
		t.Error("expected error for unsupported length")
	}
	if _, err := NormalizeAnchor(strings.Repeat("g", 40)); err == nil {
		t.Error("expected error for non-hex characters")
	}
}

func TestSHA1FromAnchor(t *testing.T) {
	anchor := strings.Repeat("c", 40) + strings.Repeat("0", 24)
	got, err := SHA1FromAnchor(anchor)
	if err != nil {
		t.Fatalf("SHA1FromAnchor failed: %v", err)
	}
	if got != strings.Repeat("c", 40) {
		t.Errorf("unexpected sha1: %s", got)
	}

	if _, err := SHA1FromAnchor("short"); err == nil {
		t.Error("expected error for bad length")
	}
}
