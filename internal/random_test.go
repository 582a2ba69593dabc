package internal

import (
	"encoding/base64"
	"testing"
)

func TestNewStateIsRandomAndURLSafe(t *testing.T) {
	a, err := NewState()
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	b, err := NewState()
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct states")
	}
	raw, err := base64.RawURLEncoding.DecodeString(a)
	if err != nil || len(raw) != stateRawSize {
		t.Fatalf("expected %d raw bytes, got %d (%v)", stateRawSize, len(raw), err)
	}
}

func TestEqualState(t *testing.T) {
	if !EqualState("abc", "abc") {
		t.Fatal("expected equal states to match")
	}
	if EqualState("abc", "abd") || EqualState("abc", "abcd") {
		t.Fatal("expected different states not to match")
	}
	if EqualState("", "") {
		t.Fatal("empty states must never match")
	}
}
