// Package keyring manages the database encryption key. The key is kept
// on disk under layered XOR obfuscation and held in memory inside a
// memguard locked buffer so the passphrase never sits in plain heap
// memory longer than necessary.
package keyring

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"gopkg.in/yaml.v3"

	"github.com/codehubbers/hubbergram/pkg/crypto"
)

const (
	// KeyLength is the raw key size in bytes.
	KeyLength = 64
	// ObfuscationLayers is how many XOR passes cover the key at rest.
	ObfuscationLayers = 8
)

var ErrCorruptKeyFile = errors.New("keyring: corrupt key file")

// keyFile is the on-disk format.
type keyFile struct {
	Key    string `yaml:"key"`
	Layers string `yaml:"layers"`
}

// Keyring holds the deobfuscated database passphrase in locked memory.
type Keyring struct {
	pass *memguard.LockedBuffer

	obfuscated []byte
	layers     []byte
}

// xorLayer applies one obfuscation pass. XOR is its own inverse, so the
// same pass both obfuscates and deobfuscates.
func xorLayer(data []byte, layerKey byte) {
	for i := range data {
		data[i] ^= layerKey + byte(i)
	}
}

func obfuscate(key, layers []byte) {
	for layer := 0; layer < len(layers); layer++ {
		xorLayer(key, layers[layer])
	}
}

func deobfuscate(key, layers []byte) {
	for layer := len(layers) - 1; layer >= 0; layer-- {
		xorLayer(key, layers[layer])
	}
}

// seal moves the clean key into locked memory as a hex passphrase and
// wipes the input slice.
func seal(clean []byte) *memguard.LockedBuffer {
	pass := make([]byte, hex.EncodedLen(len(clean)))
	hex.Encode(pass, clean)
	memguard.WipeBytes(clean)
	// NewBufferFromBytes wipes pass for us.
	return memguard.NewBufferFromBytes(pass)
}

// Generate creates a fresh random keyring.
func Generate() (*Keyring, error) {
	clean, err := crypto.RandomBytes(KeyLength)
	if err != nil {
		return nil, fmt.Errorf("keyring: generate: %w", err)
	}
	layers, err := crypto.RandomBytes(ObfuscationLayers)
	if err != nil {
		return nil, fmt.Errorf("keyring: generate: %w", err)
	}

	obfuscated := make([]byte, KeyLength)
	copy(obfuscated, clean)
	obfuscate(obfuscated, layers)

	return &Keyring{
		pass:       seal(clean),
		obfuscated: obfuscated,
		layers:     layers,
	}, nil
}

// Ephemeral creates a keyring that only lives for this process. The
// database it opens cannot be reopened after restart.
func Ephemeral() (*Keyring, error) {
	return Generate()
}

// Load reads a key file written by Save and unseals the passphrase.
func Load(path string) (*Keyring, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyring: load %s: %w", path, err)
	}
	var kf keyFile
	if err := yaml.Unmarshal(raw, &kf); err != nil {
		return nil, fmt.Errorf("keyring: load %s: %w", path, err)
	}

	obfuscated, err := hex.DecodeString(kf.Key)
	if err != nil || len(obfuscated) != KeyLength {
		return nil, fmt.Errorf("keyring: load %s: %w", path, ErrCorruptKeyFile)
	}
	layers, err := hex.DecodeString(kf.Layers)
	if err != nil || len(layers) != ObfuscationLayers {
		return nil, fmt.Errorf("keyring: load %s: %w", path, ErrCorruptKeyFile)
	}

	clean := make([]byte, KeyLength)
	copy(clean, obfuscated)
	deobfuscate(clean, layers)

	return &Keyring{
		pass:       seal(clean),
		obfuscated: obfuscated,
		layers:     layers,
	}, nil
}

// Save writes the obfuscated key file with owner-only permissions.
func (k *Keyring) Save(path string) error {
	kf := keyFile{
		Key:    hex.EncodeToString(k.obfuscated),
		Layers: hex.EncodeToString(k.layers),
	}
	raw, err := yaml.Marshal(&kf)
	if err != nil {
		return fmt.Errorf("keyring: save %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("keyring: save %s: %w", path, err)
	}
	return nil
}

// WriteSecret writes the clean key in hex to a recovery file for the
// operator. The file is owner-only.
func (k *Keyring) WriteSecret(path string) error {
	pass := k.Passphrase()
	data := []byte("Database Key: " + pass + "\n")
	err := os.WriteFile(path, data, 0o600)
	memguard.WipeBytes(data)
	if err != nil {
		return fmt.Errorf("keyring: write secret %s: %w", path, err)
	}
	return nil
}

// Passphrase returns the hex passphrase. The returned string is a copy
// in regular memory; callers should hold it briefly.
func (k *Keyring) Passphrase() string {
	if k == nil || k.pass == nil {
		return ""
	}
	return string(k.pass.Bytes())
}

// Destroy wipes the locked buffer. The keyring is unusable afterwards.
func (k *Keyring) Destroy() {
	if k.pass != nil {
		k.pass.Destroy()
		k.pass = nil
	}
}
