package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// ErrEphemeralConsumed indicates an attempt to use an ephemeral key pair
// after the handshake attempt that owned it ended and wiped it. Reusing
// ephemeral material across attempts is a protocol violation, so the type
// rejects it rather than relying on caller discipline.
var ErrEphemeralConsumed = errors.New("ephemeral key pair already consumed")

// EphemeralKeyPair is a Curve25519 key pair generated fresh for exactly one
// handshake attempt. The pair is owned by the handshake state machine that
// created it: the private half participates in that attempt's
// Diffie-Hellman operations and is wiped when the attempt completes or
// fails, whichever comes first. After Wipe every DH call fails with
// ErrEphemeralConsumed. The fields are unexported and the type is only
// handed around as a pointer, so no second copy of the private key exists.
type EphemeralKeyPair struct {
	public   [KeySize]byte
	private  [KeySize]byte
	consumed bool
}

// NewEphemeralKeyPair generates a fresh ephemeral key pair from the system's
// cryptographically secure random source. A failure of the random source is
// fatal and not retried.
func NewEphemeralKeyPair() (*EphemeralKeyPair, error) {
	ek := &EphemeralKeyPair{}
	if _, err := rand.Read(ek.private[:]); err != nil {
		return nil, fmt.Errorf("entropy source failed: %w", err)
	}

	public, err := curve25519.X25519(ek.private[:], curve25519.Basepoint)
	if err != nil {
		ZeroBytes(ek.private[:])
		return nil, fmt.Errorf("public key derivation failed: %w", err)
	}
	copy(ek.public[:], public)

	return ek, nil
}

// Public returns the ephemeral public key. The public half is not secret and
// remains readable after the pair is consumed.
func (ek *EphemeralKeyPair) Public() [KeySize]byte {
	return ek.public
}

// DH computes the X25519 shared secret between the ephemeral private key and
// remotePublic, with the same remote-point validation as the package-level
// DH function. Fails with ErrEphemeralConsumed once the pair has been wiped.
func (ek *EphemeralKeyPair) DH(remotePublic []byte) ([KeySize]byte, error) {
	if ek.consumed {
		var zero [KeySize]byte
		return zero, ErrEphemeralConsumed
	}
	return DH(ek.private, remotePublic)
}

// Wipe destroys the private key and marks the pair consumed. The owning
// handshake calls this on every exit path: completion, authentication
// failure, timeout, and cancellation. Idempotent.
func (ek *EphemeralKeyPair) Wipe() {
	ek.consumed = true
	ZeroBytes(ek.private[:])
}
