package sealer

import (
	"errors"
	"testing"
)

func newTestSealer(t *testing.T, fill byte) *Sealer {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = fill
	}
	s, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSealOpen_RoundTrip(t *testing.T) {
	s := newTestSealer(t, 1)

	token, err := s.Seal("invitation", "64b7f0c2a1e4d3b2c1a09876", "64b7f0c2a1e4d3b2c1a09877")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	parts, err := s.Open("invitation", token, 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if parts[0] != "64b7f0c2a1e4d3b2c1a09876" || parts[1] != "64b7f0c2a1e4d3b2c1a09877" {
		t.Errorf("unexpected parts %v", parts)
	}
}

func TestOpen_Rejects(t *testing.T) {
	s := newTestSealer(t, 1)
	other := newTestSealer(t, 2)
	token, _ := s.Seal("invitation", "a", "b")

	tampered := []byte(token)
	if tampered[10] == 'A' {
		tampered[10] = 'B'
	} else {
		tampered[10] = 'A'
	}

	tests := []struct {
		name string
		open func() ([]string, error)
	}{
		{"wrong purpose", func() ([]string, error) { return s.Open("password-reset", token, 2) }},
		{"wrong key", func() ([]string, error) { return other.Open("invitation", token, 2) }},
		{"wrong part count", func() ([]string, error) { return s.Open("invitation", token, 3) }},
		{"tampered", func() ([]string, error) { return s.Open("invitation", string(tampered), 2) }},
		{"not base64", func() ([]string, error) { return s.Open("invitation", "%%%", 2) }},
		{"too short", func() ([]string, error) { return s.Open("invitation", "AAAA", 2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.open(); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestSeal_RejectsSeparatorInParts(t *testing.T) {
	s := newTestSealer(t, 1)
	if _, err := s.Seal("invitation", "a:b"); err == nil {
		t.Error("expected error for part containing separator")
	}
}

func TestNew_RejectsBadKeySize(t *testing.T) {
	if _, err := New([]byte("short")); err == nil {
		t.Error("expected error for 5 byte key")
	}
}
