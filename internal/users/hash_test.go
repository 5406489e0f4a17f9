package users

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	pepper := []byte("test-pepper-bytes")

	hash, err := HashPassword("correct horse battery staple", pepper)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}

	if !VerifyPassword("correct horse battery staple", hash, pepper) {
		t.Error("expected correct password to verify")
	}
	if VerifyPassword("wrong password", hash, pepper) {
		t.Error("expected wrong password to fail verification")
	}
}

func TestVerifyPassword_WrongPepper(t *testing.T) {
	hash, err := HashPassword("hunter2", []byte("pepper-a"))
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if VerifyPassword("hunter2", hash, []byte("pepper-b")) {
		t.Error("expected verification to fail under a different pepper")
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	pepper := []byte("pepper")

	hash1, err := HashPassword("same-password", pepper)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	hash2, err := HashPassword("same-password", pepper)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash1 == hash2 {
		t.Error("expected different salts to produce different hashes")
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	pepper := []byte("pepper")

	tests := []struct {
		name string
		hash string
	}{
		{"empty string", ""},
		{"random text", "not-a-hash"},
		{"too few parts", "$argon2id$v=19$m=65536"},
		{"corrupted params", "$argon2id$v=19$garbage$c2FsdA$aGFzaA"},
		{"corrupted salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!not-base64!!!$aGFzaA"},
		{"corrupted hash", "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$!!!not-base64!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifyPassword("password", tt.hash, pepper) {
				t.Error("expected invalid hash to fail verification")
			}
		})
	}
}
