package noise

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/opd-ai/noisewire/crypto"
)

const (
	// KeySize is the length of the ChaCha20-Poly1305 symmetric key.
	KeySize = chacha20poly1305.KeySize
	// TagSize is the length of the Poly1305 authentication tag appended to
	// every ciphertext.
	TagSize = 16

	// maxNonce is reserved: it is used internally by the rekey function and
	// never as a message nonce. Reaching it means the counter is exhausted.
	maxNonce = math.MaxUint64

	// DefaultRekeyInterval is the number of messages after which a cipher
	// state automatically derives a fresh key. Both directions of a session
	// count independently, and both peers count the same direction
	// identically, so no negotiation is needed. Zero disables automatic
	// rekeying.
	DefaultRekeyInterval uint64 = 65536
)

// CipherState protects one direction of an established session: a symmetric
// key plus a strictly monotonic 64-bit nonce counter. Exactly one instance
// owns the send direction and a distinct instance owns the receive
// direction; the two never share or alias key material.
//
// A CipherState is not safe for concurrent use by itself. The two directions
// of a session may be driven concurrently because they are independent
// instances, but calls on a single instance must be serialized by the owner.
type CipherState struct {
	key      [KeySize]byte
	aead     cipher.AEAD
	nonce    uint64
	rekeyAt  uint64 // messages between automatic rekeys, 0 = disabled
	msgCount uint64 // messages under the current key
	wiped    bool
}

// newCipherState wraps a freshly derived key. The key array is copied; the
// caller remains responsible for wiping its own copy.
func newCipherState(key [KeySize]byte) (*CipherState, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("aead construction failed: %w", err)
	}
	return &CipherState{
		key:     key,
		aead:    aead,
		rekeyAt: DefaultRekeyInterval,
	}, nil
}

// nonceBytes encodes a Noise nonce: 4 zero bytes followed by the 64-bit
// counter in little-endian order.
func nonceBytes(n uint64) [chacha20poly1305.NonceSize]byte {
	var nb [chacha20poly1305.NonceSize]byte
	binary.LittleEndian.PutUint64(nb[4:], n)
	return nb
}

// Encrypt seals plaintext under the current key and nonce with ad as
// associated data, then increments the nonce by exactly one. Returns
// ciphertext with the authentication tag appended. Fails with
// ErrNonceExhausted if the counter would reach its reserved maximum; the
// counter is never wrapped.
func (cs *CipherState) Encrypt(plaintext, ad []byte) ([]byte, error) {
	if cs.wiped {
		return nil, ErrCipherStateWiped
	}
	if cs.nonce == maxNonce {
		return nil, ErrNonceExhausted
	}

	nb := nonceBytes(cs.nonce)
	ciphertext := cs.aead.Seal(nil, nb[:], plaintext, ad)
	cs.nonce++

	if err := cs.maybeRekey(); err != nil {
		return nil, err
	}
	return ciphertext, nil
}

// Decrypt opens ciphertext using the locally tracked nonce counter; no nonce
// is ever read from the wire, which gives strict in-order delivery rather
// than reordering tolerance. On tag mismatch it fails with
// ErrAuthenticationFailed and does not advance the counter, so a tampered,
// replayed or reordered frame cannot desynchronize the state.
func (cs *CipherState) Decrypt(ciphertext, ad []byte) ([]byte, error) {
	if cs.wiped {
		return nil, ErrCipherStateWiped
	}
	if cs.nonce == maxNonce {
		return nil, ErrNonceExhausted
	}
	if len(ciphertext) < TagSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than tag", ErrAuthenticationFailed)
	}

	nb := nonceBytes(cs.nonce)
	plaintext, err := cs.aead.Open(nil, nb[:], ciphertext, ad)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	cs.nonce++

	if err := cs.maybeRekey(); err != nil {
		return nil, err
	}
	return plaintext, nil
}

// Rekey derives a fresh key from the current one by encrypting 32 zero
// bytes under the reserved maximum nonce, as defined by the Noise
// specification's REKEY function. The derivation is one-way: the old key
// cannot be recovered from the new one. The old key is wiped and the nonce
// counter restarts at zero for the new key.
func (cs *CipherState) Rekey() error {
	if cs.wiped {
		return ErrCipherStateWiped
	}

	nb := nonceBytes(maxNonce)
	var zeros [KeySize]byte
	derived := cs.aead.Seal(nil, nb[:], zeros[:], nil)

	crypto.ZeroBytes(cs.key[:])
	copy(cs.key[:], derived[:KeySize])
	crypto.ZeroBytes(derived)

	aead, err := chacha20poly1305.New(cs.key[:])
	if err != nil {
		cs.Wipe()
		return fmt.Errorf("rekey aead construction failed: %w", err)
	}
	cs.aead = aead
	cs.nonce = 0
	cs.msgCount = 0

	logrus.WithFields(logrus.Fields{
		"function": "Rekey",
		"package":  "noise",
	}).Debug("cipher state rekeyed")
	return nil
}

// SetRekeyInterval configures automatic rekeying after every n messages.
// Zero disables it. Must be called before the first message is processed so
// both peers stay in lockstep; later calls are rejected.
func (cs *CipherState) SetRekeyInterval(n uint64) error {
	if cs.wiped {
		return ErrCipherStateWiped
	}
	if cs.nonce != 0 || cs.msgCount != 0 {
		return fmt.Errorf("%w: rekey interval must be set before first use", ErrUnexpectedMessage)
	}
	cs.rekeyAt = n
	return nil
}

// Nonce returns the counter value that will protect the next message.
func (cs *CipherState) Nonce() uint64 {
	return cs.nonce
}

// Wipe destroys the key material. Any further operation on the state fails
// with ErrCipherStateWiped. Idempotent.
func (cs *CipherState) Wipe() {
	crypto.ZeroBytes(cs.key[:])
	cs.aead = nil
	cs.wiped = true
}

// maybeRekey triggers the automatic rekey policy after a message has been
// processed under the current key.
func (cs *CipherState) maybeRekey() error {
	cs.msgCount++
	if cs.rekeyAt == 0 || cs.msgCount < cs.rekeyAt {
		return nil
	}
	return cs.Rekey()
}
