package gatetoken

import (
	"strings"
	"testing"
)

func TestMint_Shape(t *testing.T) {
	token := Mint(42, 7)

	if len(token) != 67 {
		t.Errorf("expected token length 67, got %d (%q)", len(token), token)
	}
	if !IsWellFormed(token) {
		t.Errorf("minted token is not well-formed: %q", token)
	}
	if strings.ContainsAny(token, "|") {
		t.Errorf("token leaks raw separator: %q", token)
	}
}

func TestMint_UniqueAcrossMints(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		token := Mint(uint(i%10), uint(i))
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token minted after %d mints: %q", i, token)
		}
		seen[token] = struct{}{}
	}
}

func TestMint_SameInputsDiffer(t *testing.T) {
	if Mint(1, 1) == Mint(1, 1) {
		t.Error("two mints for the same leave produced identical tokens")
	}
}

func TestIsWellFormed(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"minted token", Mint(1, 2), true},
		{"empty", "", false},
		{"no separators", "abcdef0123456789", false},
		{"three segments", "aaaa-bbbb-cccc", false},
		{"five segments", "a-b-c-d-e", false},
		{"empty segment", "aaaa--cccc-dddd", false},
		{"leading dash", "-aaaa-bbbb-cccc", false},
		{"four plain segments", "aaaa-bbbb-cccc-dddd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWellFormed(tt.token); got != tt.want {
				t.Errorf("IsWellFormed(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}
