package id

import (
	"encoding/base32"
	"strings"
	"testing"
)

func decodeID(t *testing.T, value string) []byte {
	t.Helper()
	decoded, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(value))
	if err != nil {
		t.Fatalf("decode id %q: %v", value, err)
	}
	return decoded
}

func TestNewIDShape(t *testing.T) {
	generated, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if len(generated) != 26 {
		t.Fatalf("id length = %d, want 26", len(generated))
	}
	if strings.ContainsAny(generated, "=") {
		t.Fatalf("id %q carries padding", generated)
	}
	for _, r := range generated {
		if (r < 'a' || r > 'z') && (r < '2' || r > '7') {
			t.Fatalf("id %q holds %q outside lowercase base32", generated, r)
		}
	}
	if got := len(decodeID(t, generated)); got != 16 {
		t.Fatalf("decoded bytes = %d, want 16", got)
	}
}

func TestNewIDEncodesUUIDv4Bits(t *testing.T) {
	generated, err := NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	raw := decodeID(t, generated)

	if version := raw[6] >> 4; version != 4 {
		t.Fatalf("uuid version = %d, want 4", version)
	}
	if variant := raw[8] & 0xC0; variant != 0x80 {
		t.Fatalf("uuid variant = 0x%X, want 0x80", variant)
	}
}

func TestNewIDIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		generated, err := NewID()
		if err != nil {
			t.Fatalf("new id: %v", err)
		}
		if seen[generated] {
			t.Fatalf("id %q repeated", generated)
		}
		seen[generated] = true
	}
}
