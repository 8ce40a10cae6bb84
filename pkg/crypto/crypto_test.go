package crypto

import "testing"

func TestHashPasswordDeterministic(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}

	h1 := HashPassword("secret1", salt)
	h2 := HashPassword("secret1", salt)
	if h1 != h2 {
		t.Errorf("HashPassword: same input produced different digests")
	}

	other := HashPassword("secret2", salt)
	if h1 == other {
		t.Errorf("HashPassword: different passwords produced identical digests")
	}
}

func TestVerifyPassword(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	hash := HashPassword("secret1", salt)

	if !VerifyPassword("secret1", salt, hash) {
		t.Error("VerifyPassword: correct password rejected")
	}
	if VerifyPassword("wrong", salt, hash) {
		t.Error("VerifyPassword: wrong password accepted")
	}
}

func TestSaltsDiffer(t *testing.T) {
	a, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	b, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	if string(a) == string(b) {
		t.Error("GenerateSalt: two salts are identical")
	}
}
