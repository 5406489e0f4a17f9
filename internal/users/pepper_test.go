package users

import "testing"

func TestDerivePepper_DeterministicAndDistinctPerSecret(t *testing.T) {
	a1 := DerivePepper("secret-a")
	a2 := DerivePepper("secret-a")
	b := DerivePepper("secret-b")

	if string(a1) != string(a2) {
		t.Error("expected the same cluster secret to always derive the same pepper")
	}
	if string(a1) == string(b) {
		t.Error("expected different cluster secrets to derive different peppers")
	}
	if len(a1) != 64 {
		t.Errorf("expected a 64-byte (SHA-512) pepper, got %d bytes", len(a1))
	}
}
