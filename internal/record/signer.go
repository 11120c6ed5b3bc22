package record

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Signer is the signing half of the key-custody contract. Key storage and
// rotation live outside this core; the ledger only needs sign/verify.
type Signer interface {
	// Public returns the hex-encoded public key the signature verifies under.
	Public() string

	// Sign signs the payload digest. Returns an error if the signer rejects
	// the payload (revoked key, unavailable token, etc.).
	Sign(digest []byte) ([]byte, error)
}

// Verify checks sig over digest under the hex-encoded public key.
// Malformed keys or signatures verify as false, never as an error: a claim
// that cannot be decoded is a claim that cannot be trusted.
func Verify(publicHex string, digest, sig []byte) bool {
	pub, err := hex.DecodeString(publicHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), digest, sig)
}

// VerifyTuple recomputes the tuple's signature payload and checks the
// embedded signature against the embedded signer key.
func VerifyTuple(t *Tuple) bool {
	sig, err := hex.DecodeString(t.Signature)
	if err != nil {
		return false
	}
	return Verify(t.Signer, t.Payload(), sig)
}

// Ed25519Signer signs with an in-memory ed25519 private key.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

// NewEd25519Signer wraps an existing private key.
func NewEd25519Signer(priv ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{priv: priv}
}

// GenerateSigner creates a signer with a fresh random key.
func GenerateSigner() (*Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Ed25519Signer{priv: priv}, nil
}

// SignerFromSeed derives a deterministic signer from a 32-byte seed.
// Used by tests and golden fixtures.
func SignerFromSeed(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Public returns the hex-encoded public key.
func (s *Ed25519Signer) Public() string {
	return hex.EncodeToString(s.priv.Public().(ed25519.PublicKey))
}

// Sign signs the digest.
func (s *Ed25519Signer) Sign(digest []byte) ([]byte, error) {
	if len(s.priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signer has no usable key")
	}
	return ed25519.Sign(s.priv, digest), nil
}

// SaveKeyFile writes the signer's private seed as a hex line, mode 0600.
func (s *Ed25519Signer) SaveKeyFile(path string) error {
	seed := s.priv.Seed()
	data := hex.EncodeToString(seed) + "\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		return fmt.Errorf("save key file: %w", err)
	}
	return nil
}

// LoadKeyFile reads a hex seed file written by SaveKeyFile.
func LoadKeyFile(path string) (*Ed25519Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load key file: %w", err)
	}
	seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("load key file %s: %w", path, err)
	}
	return SignerFromSeed(seed)
}
