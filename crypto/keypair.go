package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the length in bytes of Curve25519 public and private keys.
const KeySize = 32

// ErrInvalidKeyMaterial indicates a malformed key: wrong length, the all-zero
// key, or a remote public key that produces a degenerate shared secret
// (low-order point). It is a configuration or peer error and is fatal to the
// attempt that encountered it.
var ErrInvalidKeyMaterial = errors.New("invalid key material")

// KeyPair represents a node's long-term Curve25519 identity key pair.
// It is created once at node startup and is immutable for the node's
// lifetime; the private key never crosses the wire.
type KeyPair struct {
	Public  [KeySize]byte
	Private [KeySize]byte
}

// GenerateKeyPair creates a new random Curve25519 key pair.
func GenerateKeyPair() (*KeyPair, error) {
	var kp KeyPair
	if _, err := rand.Read(kp.Private[:]); err != nil {
		return nil, fmt.Errorf("entropy source failed: %w", err)
	}

	public, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("public key derivation failed: %w", err)
	}
	copy(kp.Public[:], public)

	return &kp, nil
}

// FromSecretKey creates a key pair from an existing private key, deriving
// the public key by base-point multiplication.
func FromSecretKey(secretKey [KeySize]byte) (*KeyPair, error) {
	if isZeroKey(secretKey[:]) {
		return nil, fmt.Errorf("%w: all-zero secret key", ErrInvalidKeyMaterial)
	}

	public, err := curve25519.X25519(secretKey[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}

	kp := &KeyPair{Private: secretKey}
	copy(kp.Public[:], public)
	return kp, nil
}

// DH computes the X25519 shared secret between a local private key and a
// remote public key. The remote key is validated before use: a key of the
// wrong length, the all-zero key, or any low-order point (detected by an
// all-zero shared secret, per RFC 7748 §6.1) is rejected with
// ErrInvalidKeyMaterial.
func DH(localPrivate [KeySize]byte, remotePublic []byte) ([KeySize]byte, error) {
	var shared [KeySize]byte

	if len(remotePublic) != KeySize {
		return shared, fmt.Errorf("%w: remote public key must be %d bytes, got %d",
			ErrInvalidKeyMaterial, KeySize, len(remotePublic))
	}
	if isZeroKey(remotePublic) {
		return shared, fmt.Errorf("%w: all-zero remote public key", ErrInvalidKeyMaterial)
	}

	secret, err := curve25519.X25519(localPrivate[:], remotePublic)
	if err != nil {
		// x/crypto returns an error here exactly when the output is all
		// zeros, i.e. the remote point is of low order.
		return shared, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}

	copy(shared[:], secret)
	return shared, nil
}

// isZeroKey checks if a key consists of all zeros.
func isZeroKey(key []byte) bool {
	var acc byte
	for _, b := range key {
		acc |= b
	}
	return acc == 0
}
