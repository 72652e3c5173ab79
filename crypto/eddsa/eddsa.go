// Package eddsa implements validator signatures with ed25519.
package eddsa

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/icn-network/poc"
)

var (
	_ poc.Signer   = (*Signer)(nil)
	_ poc.Verifier = (*Verifier)(nil)
)

// Signer signs messages with a private key.
type Signer struct {
	key ed25519.PrivateKey
}

// NewSigner returns a signer for the given private key.
func NewSigner(key ed25519.PrivateKey) *Signer {
	return &Signer{key: key}
}

// GenerateSigner creates a new key pair and returns its signer.
func GenerateSigner() (*Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewSigner(priv), nil
}

// Sign returns an ed25519 signature of msg.
func (s *Signer) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(s.key, msg), nil
}

// PublicKey returns the public key of the signer.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}

// PublicKeyHex returns the hex encoded public key, in the format used by genesis files.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(s.PublicKey())
}

// Verifier checks signatures against the public keys of known validators.
type Verifier struct {
	mut  sync.RWMutex
	keys map[poc.DID]ed25519.PublicKey
}

// NewVerifier returns a verifier without any keys.
func NewVerifier() *Verifier {
	return &Verifier{keys: make(map[poc.DID]ed25519.PublicKey)}
}

// FromGenesis returns a verifier for the public keys of the genesis validators.
// Validators without a public key are skipped.
func FromGenesis(genesis *poc.GenesisConfig) (v *Verifier, err error) {
	v = NewVerifier()
	for _, gv := range genesis.Validators {
		if gv.PublicKey == "" {
			continue
		}
		err = multierr.Append(err, v.AddHex(gv.DID, gv.PublicKey))
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Add registers the public key of a validator.
func (v *Verifier) Add(did poc.DID, key ed25519.PublicKey) error {
	if len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("public key of %s has length %d, want %d", did, len(key), ed25519.PublicKeySize)
	}
	v.mut.Lock()
	v.keys[did] = key
	v.mut.Unlock()
	return nil
}

// AddHex registers a hex encoded public key.
func (v *Verifier) AddHex(did poc.DID, key string) error {
	b, err := hex.DecodeString(key)
	if err != nil {
		return fmt.Errorf("public key of %s: %w", did, err)
	}
	return v.Add(did, b)
}

// Verify returns true if sig is a valid signature of msg by the validator.
// Signatures by validators without a known key are invalid.
func (v *Verifier) Verify(signer poc.DID, msg, sig []byte) bool {
	v.mut.RLock()
	key, ok := v.keys[signer]
	v.mut.RUnlock()
	if !ok || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(key, msg, sig)
}
