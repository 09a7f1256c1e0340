package iac

import "testing"

func TestCanonicalizeJoinsAndLowercases(t *testing.T) {
	got := Canonicalize("ABCD", "efGh", "1234")
	if got != "abcdefgh1234" {
		t.Fatalf("expected abcdefgh1234, got %q", got)
	}
}

func TestValidAcceptsCanonicalCode(t *testing.T) {
	if !Valid("abcdefgh1234") {
		t.Fatal("expected canonical 12-char code to be valid")
	}
}

func TestValidRejectsBadCodes(t *testing.T) {
	cases := []string{
		"",
		"abc",
		"abcdefgh12345",
		"ABCDEFGH1234",
		"abcd-fgh1234",
		"abcdefgh 234",
	}
	for _, code := range cases {
		if Valid(code) {
			t.Fatalf("expected %q to be invalid", code)
		}
	}
}
