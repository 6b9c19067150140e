package noise

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/opd-ai/noisewire/crypto"
)

// protocolName identifies the concrete Noise instantiation. It is exactly
// HASHLEN bytes, so it seeds the transcript hash directly.
const protocolName = "Noise_XK_25519_ChaChaPoly_SHA256"

// symmetricState is the handshake transcript: a chaining key ck that
// absorbs every Diffie-Hellman result, and a running hash h over every byte
// transmitted so far. It exists only for the duration of one handshake
// attempt and is wiped once the final keys are split off or the attempt
// fails.
type symmetricState struct {
	ck [sha256.Size]byte
	h  [sha256.Size]byte
	cs *CipherState // nil until the first mixKey
}

// newSymmetricState initializes the transcript from the protocol name and
// an empty prologue.
func newSymmetricState() *symmetricState {
	s := &symmetricState{}
	copy(s.h[:], protocolName)
	s.ck = s.h
	s.mixHash(nil) // empty prologue
	return s
}

// mixHash absorbs data into the running transcript hash.
func (s *symmetricState) mixHash(data []byte) {
	hash := sha256.New()
	hash.Write(s.h[:])
	hash.Write(data)
	hash.Sum(s.h[:0])
}

// hkdfSplit runs the Noise HKDF: ck as salt, ikm as input key material,
// empty info, producing two 32-byte outputs.
func (s *symmetricState) hkdfSplit(ikm []byte) (out1, out2 [KeySize]byte, err error) {
	r := hkdf.New(sha256.New, ikm, s.ck[:], nil)
	if _, err = io.ReadFull(r, out1[:]); err != nil {
		return out1, out2, fmt.Errorf("hkdf expand failed: %w", err)
	}
	if _, err = io.ReadFull(r, out2[:]); err != nil {
		return out1, out2, fmt.Errorf("hkdf expand failed: %w", err)
	}
	return out1, out2, nil
}

// mixKey absorbs a Diffie-Hellman result into the chaining key and installs
// a fresh one-time message key with its nonce reset to zero.
func (s *symmetricState) mixKey(dh [crypto.KeySize]byte) error {
	newCK, msgKey, err := s.hkdfSplit(dh[:])
	if err != nil {
		return err
	}
	crypto.ZeroBytes(s.ck[:])
	s.ck = newCK
	crypto.ZeroBytes(newCK[:])

	if s.cs != nil {
		s.cs.Wipe()
	}
	s.cs, err = newCipherState(msgKey)
	crypto.ZeroBytes(msgKey[:])
	if err != nil {
		return err
	}
	// Handshake message keys are one-shot; the automatic session rekey
	// policy does not apply to them.
	s.cs.rekeyAt = 0
	return nil
}

// encryptAndHash encrypts plaintext under the current message key with the
// transcript hash as associated data, then absorbs the ciphertext into the
// transcript. Must not be called before the first mixKey.
func (s *symmetricState) encryptAndHash(plaintext []byte) ([]byte, error) {
	if s.cs == nil {
		return nil, fmt.Errorf("%w: no handshake key established", ErrUnexpectedMessage)
	}
	ciphertext, err := s.cs.Encrypt(plaintext, s.h[:])
	if err != nil {
		return nil, err
	}
	s.mixHash(ciphertext)
	return ciphertext, nil
}

// decryptAndHash is the inverse of encryptAndHash. The transcript is only
// advanced if the tag verifies, so a failed message leaves no trace in h.
func (s *symmetricState) decryptAndHash(ciphertext []byte) ([]byte, error) {
	if s.cs == nil {
		return nil, fmt.Errorf("%w: no handshake key established", ErrUnexpectedMessage)
	}
	plaintext, err := s.cs.Decrypt(ciphertext, s.h[:])
	if err != nil {
		return nil, err
	}
	s.mixHash(ciphertext)
	return plaintext, nil
}

// split derives the two directional session keys from the final chaining
// key. The first cipher state always protects initiator-to-responder
// traffic and the second responder-to-initiator, so both parties agree on
// the assignment without negotiation. The transcript is wiped afterwards.
func (s *symmetricState) split() (*CipherState, *CipherState, error) {
	k1, k2, err := s.hkdfSplit(nil)
	if err != nil {
		return nil, nil, err
	}

	c1, err := newCipherState(k1)
	if err != nil {
		return nil, nil, err
	}
	c2, err := newCipherState(k2)
	if err != nil {
		c1.Wipe()
		return nil, nil, err
	}
	crypto.ZeroBytes(k1[:])
	crypto.ZeroBytes(k2[:])
	s.wipe()
	return c1, c2, nil
}

// wipe destroys the chaining key, the transcript hash and any pending
// message key. Called from split and from every handshake failure path.
func (s *symmetricState) wipe() {
	crypto.ZeroBytes(s.ck[:])
	crypto.ZeroBytes(s.h[:])
	if s.cs != nil {
		s.cs.Wipe()
		s.cs = nil
	}
}
