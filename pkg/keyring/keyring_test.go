package keyring

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestObfuscateRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	layers := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}

	work := make([]byte, len(key))
	copy(work, key)
	obfuscate(work, layers)
	if string(work) == string(key) {
		t.Fatal("obfuscation left the key unchanged")
	}
	deobfuscate(work, layers)
	if string(work) != string(key) {
		t.Fatalf("round trip mismatch: got %x, want %x", work, key)
	}
}

func TestGenerateSaveLoad(t *testing.T) {
	k, err := Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	defer k.Destroy()

	pass := k.Passphrase()
	if len(pass) != hex.EncodedLen(KeyLength) {
		t.Fatalf("passphrase length = %d, want %d", len(pass), hex.EncodedLen(KeyLength))
	}
	if _, err := hex.DecodeString(pass); err != nil {
		t.Fatalf("passphrase is not hex: %v", err)
	}

	path := filepath.Join(t.TempDir(), "db.key")
	if err := k.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The file must not contain the clean passphrase.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.Contains(string(raw), pass) {
		t.Error("key file contains the clean passphrase")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer loaded.Destroy()
	if loaded.Passphrase() != pass {
		t.Error("loaded passphrase differs from generated one")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"not yaml", "{{{{"},
		{"bad hex key", "key: zzzz\nlayers: " + strings.Repeat("00", ObfuscationLayers) + "\n"},
		{"short key", "key: abcd\nlayers: " + strings.Repeat("00", ObfuscationLayers) + "\n"},
		{"short layers", "key: " + strings.Repeat("00", KeyLength) + "\nlayers: ab\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db.key")
			if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
				t.Fatalf("WriteFile failed: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load succeeded on corrupt file, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.key")); err == nil {
		t.Error("Load succeeded on missing file, want error")
	}
}

func TestWriteSecret(t *testing.T) {
	k, err := Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	defer k.Destroy()

	path := filepath.Join(t.TempDir(), "db_secret.txt")
	if err := k.WriteSecret(path); err != nil {
		t.Fatalf("WriteSecret failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	want := "Database Key: " + k.Passphrase() + "\n"
	if string(raw) != want {
		t.Errorf("secret file = %q, want %q", raw, want)
	}
}
