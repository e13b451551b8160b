package security

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestNewOpaqueToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		tok, err := NewOpaqueToken()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(tok) != 64 {
			t.Fatalf("expected 64 hex chars, got %d", len(tok))
		}
		if _, err := hex.DecodeString(tok); err != nil {
			t.Fatalf("token is not hex: %v", err)
		}
		if seen[tok] {
			t.Fatal("duplicate token generated")
		}
		seen[tok] = true
	}
}

func TestHashOpaqueToken(t *testing.T) {
	raw, err := NewOpaqueToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	first := HashOpaqueToken(raw)
	if first == raw {
		t.Fatal("digest must differ from the raw token")
	}
	if len(first) != 64 {
		t.Fatalf("expected sha256 hex digest, got %d chars", len(first))
	}
	if HashOpaqueToken(raw) != first {
		t.Fatal("digest must be deterministic")
	}
	if HashOpaqueToken(raw+"x") == first {
		t.Fatal("distinct tokens must not collide")
	}
}

func TestSignedState(t *testing.T) {
	const key = "state-signing-key"

	signed := SignState("abc123", key)
	if !strings.HasPrefix(signed, "abc123.") {
		t.Fatalf("signed state must embed the value, got %q", signed)
	}

	t.Run("round trip", func(t *testing.T) {
		state, ok := VerifySignedState(signed, key)
		if !ok || state != "abc123" {
			t.Fatalf("expected valid state, got %q ok=%v", state, ok)
		}
	})

	t.Run("tampered value", func(t *testing.T) {
		if _, ok := VerifySignedState("abd123"+signed[len("abc123"):], key); ok {
			t.Fatal("tampered state must not verify")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		if _, ok := VerifySignedState(signed, "other-key"); ok {
			t.Fatal("state signed with another key must not verify")
		}
	})

	t.Run("missing signature", func(t *testing.T) {
		if _, ok := VerifySignedState("abc123", key); ok {
			t.Fatal("unsigned state must not verify")
		}
	})
}
