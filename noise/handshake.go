package noise

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/noisewire/crypto"
)

// HandshakeRole defines whether we're initiating or responding to handshake.
type HandshakeRole uint8

const (
	// Initiator starts the handshake and must know the responder's static
	// public key in advance.
	Initiator HandshakeRole = iota
	// Responder answers the handshake and learns the initiator's static
	// public key in message 3.
	Responder
)

// String returns a human-readable role name for logging.
func (r HandshakeRole) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// Handshake message sizes are fixed by the curve and cipher, never
// negotiated.
const (
	// MessageOneSize is the initiator's first message: ephemeral public key
	// plus the tag over an empty payload.
	MessageOneSize = crypto.KeySize + TagSize
	// MessageTwoSize is the responder's reply: same layout as message one.
	MessageTwoSize = crypto.KeySize + TagSize
	// MessageThreeSize is the initiator's final message: the encrypted
	// static public key plus the tag over an empty payload.
	MessageThreeSize = crypto.KeySize + TagSize + TagSize
)

// handshakeState enumerates the strictly linear progression of an XK
// attempt. Every act consumes exactly one state and produces the next; a
// message processed in any other state fails with ErrUnexpectedMessage, so
// replaying or skipping a handshake message is rejected before any
// cryptography runs.
type handshakeState uint8

const (
	stateInitiatorStart handshakeState = iota
	stateInitiatorAwaitTwo
	stateInitiatorReadyThree
	stateResponderStart
	stateResponderReadyTwo
	stateResponderAwaitThree
	stateComplete
	stateFailed
)

// XKHandshake drives one attempt of the 3-message XK exchange. It is
// strictly sequential and single-threaded: no act may begin before the
// previous act's output has been produced and consumed, and a second
// concurrent attempt on the same connection is a caller error.
//
// On success the attempt yields two directional cipher states and the
// verified remote static public key. On any failure all partial key
// material (ephemeral key, chaining key, transcript) is wiped and the
// attempt latches failed; it can never be resumed.
type XKHandshake struct {
	role  HandshakeRole
	state handshakeState
	sym   *symmetricState

	localStatic     *crypto.KeyPair
	ephemeral       *crypto.EphemeralKeyPair
	remoteStatic    [crypto.KeySize]byte
	remoteEphemeral [crypto.KeySize]byte

	sendCipher *CipherState
	recvCipher *CipherState
}

// NewXKHandshake creates a new XK attempt.
// localStatic is this node's long-term identity key pair; it is borrowed,
// not consumed, and is never wiped by the handshake.
// remoteStatic is the responder's known static public key (32 bytes); it is
// required for the initiator and must be nil for the responder, which
// learns the peer identity from message 3 instead.
func NewXKHandshake(role HandshakeRole, localStatic *crypto.KeyPair, remoteStatic []byte) (*XKHandshake, error) {
	if localStatic == nil {
		return nil, fmt.Errorf("%w: local static key pair is required", crypto.ErrInvalidKeyMaterial)
	}

	hs := &XKHandshake{
		role: role,
		sym:  newSymmetricState(),
	}
	hs.localStatic = localStatic

	switch role {
	case Initiator:
		if len(remoteStatic) != crypto.KeySize {
			return nil, fmt.Errorf("%w: initiator requires the responder's static public key (%d bytes), got %d",
				crypto.ErrInvalidKeyMaterial, crypto.KeySize, len(remoteStatic))
		}
		copy(hs.remoteStatic[:], remoteStatic)
		hs.state = stateInitiatorStart
		// XK pre-message: both sides absorb the responder's static key.
		hs.sym.mixHash(hs.remoteStatic[:])
	case Responder:
		if remoteStatic != nil {
			return nil, fmt.Errorf("%w: responder must not pre-know the initiator's static key", crypto.ErrInvalidKeyMaterial)
		}
		hs.state = stateResponderStart
		hs.sym.mixHash(localStatic.Public[:])
	default:
		return nil, fmt.Errorf("%w: unknown handshake role %d", crypto.ErrInvalidKeyMaterial, role)
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewXKHandshake",
		"package":  "noise",
		"role":     role.String(),
	}).Debug("handshake attempt created")

	return hs, nil
}

// WriteMessageOne produces the initiator's first message: the fresh
// ephemeral public key and an encrypted empty payload authenticating the
// exchange so far under DH(initiator ephemeral, responder static).
func (hs *XKHandshake) WriteMessageOne() ([]byte, error) {
	if err := hs.expect(stateInitiatorStart); err != nil {
		return nil, err
	}

	eph, err := crypto.NewEphemeralKeyPair()
	if err != nil {
		return nil, hs.fail(err)
	}
	hs.ephemeral = eph

	ePub := eph.Public()
	hs.sym.mixHash(ePub[:])

	es, err := eph.DH(hs.remoteStatic[:])
	if err != nil {
		return nil, hs.fail(err)
	}
	err = hs.sym.mixKey(es)
	crypto.ZeroBytes(es[:])
	if err != nil {
		return nil, hs.fail(err)
	}

	tag, err := hs.sym.encryptAndHash(nil)
	if err != nil {
		return nil, hs.fail(err)
	}

	msg := make([]byte, 0, MessageOneSize)
	msg = append(msg, ePub[:]...)
	msg = append(msg, tag...)

	hs.state = stateInitiatorAwaitTwo
	return msg, nil
}

// ReadMessageOne processes the initiator's first message on the responder
// side.
func (hs *XKHandshake) ReadMessageOne(msg []byte) error {
	if err := hs.expect(stateResponderStart); err != nil {
		return err
	}
	if len(msg) != MessageOneSize {
		return hs.fail(fmt.Errorf("%w: message one must be %d bytes, got %d",
			crypto.ErrInvalidKeyMaterial, MessageOneSize, len(msg)))
	}

	copy(hs.remoteEphemeral[:], msg[:crypto.KeySize])
	hs.sym.mixHash(hs.remoteEphemeral[:])

	es, err := crypto.DH(hs.localStatic.Private, hs.remoteEphemeral[:])
	if err != nil {
		return hs.fail(err)
	}
	err = hs.sym.mixKey(es)
	crypto.ZeroBytes(es[:])
	if err != nil {
		return hs.fail(err)
	}

	if _, err := hs.sym.decryptAndHash(msg[crypto.KeySize:]); err != nil {
		return hs.fail(err)
	}

	hs.state = stateResponderReadyTwo
	return nil
}

// WriteMessageTwo produces the responder's reply: its fresh ephemeral
// public key with DH(responder ephemeral, initiator ephemeral) mixed in,
// and an encrypted empty payload.
func (hs *XKHandshake) WriteMessageTwo() ([]byte, error) {
	if err := hs.expect(stateResponderReadyTwo); err != nil {
		return nil, err
	}

	eph, err := crypto.NewEphemeralKeyPair()
	if err != nil {
		return nil, hs.fail(err)
	}
	hs.ephemeral = eph

	ePub := eph.Public()
	hs.sym.mixHash(ePub[:])

	ee, err := eph.DH(hs.remoteEphemeral[:])
	if err != nil {
		return nil, hs.fail(err)
	}
	err = hs.sym.mixKey(ee)
	crypto.ZeroBytes(ee[:])
	if err != nil {
		return nil, hs.fail(err)
	}

	tag, err := hs.sym.encryptAndHash(nil)
	if err != nil {
		return nil, hs.fail(err)
	}

	msg := make([]byte, 0, MessageTwoSize)
	msg = append(msg, ePub[:]...)
	msg = append(msg, tag...)

	hs.state = stateResponderAwaitThree
	return msg, nil
}

// ReadMessageTwo processes the responder's reply on the initiator side.
// After this the responder is authenticated: only the holder of the static
// key the initiator dialed could have produced a valid message two.
func (hs *XKHandshake) ReadMessageTwo(msg []byte) error {
	if err := hs.expect(stateInitiatorAwaitTwo); err != nil {
		return err
	}
	if len(msg) != MessageTwoSize {
		return hs.fail(fmt.Errorf("%w: message two must be %d bytes, got %d",
			crypto.ErrInvalidKeyMaterial, MessageTwoSize, len(msg)))
	}

	copy(hs.remoteEphemeral[:], msg[:crypto.KeySize])
	hs.sym.mixHash(hs.remoteEphemeral[:])

	ee, err := hs.ephemeral.DH(hs.remoteEphemeral[:])
	if err != nil {
		return hs.fail(err)
	}
	err = hs.sym.mixKey(ee)
	crypto.ZeroBytes(ee[:])
	if err != nil {
		return hs.fail(err)
	}

	if _, err := hs.sym.decryptAndHash(msg[crypto.KeySize:]); err != nil {
		return hs.fail(err)
	}

	hs.state = stateInitiatorReadyThree
	return nil
}

// WriteMessageThree produces the initiator's final message: the static
// public key encrypted under the keys derived so far, with DH(initiator
// static, responder ephemeral) mixed in. This is the message that reveals
// and authenticates the initiator's identity. On success the handshake is
// complete and the directional cipher states become available.
func (hs *XKHandshake) WriteMessageThree() ([]byte, error) {
	if err := hs.expect(stateInitiatorReadyThree); err != nil {
		return nil, err
	}

	encStatic, err := hs.sym.encryptAndHash(hs.localStatic.Public[:])
	if err != nil {
		return nil, hs.fail(err)
	}

	se, err := crypto.DH(hs.localStatic.Private, hs.remoteEphemeral[:])
	if err != nil {
		return nil, hs.fail(err)
	}
	err = hs.sym.mixKey(se)
	crypto.ZeroBytes(se[:])
	if err != nil {
		return nil, hs.fail(err)
	}

	tag, err := hs.sym.encryptAndHash(nil)
	if err != nil {
		return nil, hs.fail(err)
	}

	msg := make([]byte, 0, MessageThreeSize)
	msg = append(msg, encStatic...)
	msg = append(msg, tag...)

	if err := hs.complete(); err != nil {
		return nil, err
	}
	return msg, nil
}

// ReadMessageThree processes the initiator's final message on the responder
// side, learning and authenticating the initiator's static public key. On
// success the handshake is complete.
func (hs *XKHandshake) ReadMessageThree(msg []byte) error {
	if err := hs.expect(stateResponderAwaitThree); err != nil {
		return err
	}
	if len(msg) != MessageThreeSize {
		return hs.fail(fmt.Errorf("%w: message three must be %d bytes, got %d",
			crypto.ErrInvalidKeyMaterial, MessageThreeSize, len(msg)))
	}

	staticPart := msg[:crypto.KeySize+TagSize]
	remoteStatic, err := hs.sym.decryptAndHash(staticPart)
	if err != nil {
		return hs.fail(err)
	}
	copy(hs.remoteStatic[:], remoteStatic)

	se, err := hs.ephemeral.DH(hs.remoteStatic[:])
	if err != nil {
		return hs.fail(err)
	}
	err = hs.sym.mixKey(se)
	crypto.ZeroBytes(se[:])
	if err != nil {
		return hs.fail(err)
	}

	if _, err := hs.sym.decryptAndHash(msg[crypto.KeySize+TagSize:]); err != nil {
		return hs.fail(err)
	}

	return hs.complete()
}

// IsComplete returns true once the final message has been processed and the
// cipher states are available.
func (hs *XKHandshake) IsComplete() bool {
	return hs.state == stateComplete
}

// CipherStates returns the directional cipher states after a successful
// handshake. The send state of one peer corresponds byte-for-byte to the
// receive state of the other.
func (hs *XKHandshake) CipherStates() (send, recv *CipherState, err error) {
	if hs.state != stateComplete {
		return nil, nil, ErrHandshakeNotComplete
	}
	return hs.sendCipher, hs.recvCipher, nil
}

// RemoteStaticKey returns the peer's verified static public key: for the
// initiator the key it dialed, for the responder the identity authenticated
// by message 3. Immutable once the handshake completes.
func (hs *XKHandshake) RemoteStaticKey() ([]byte, error) {
	if hs.state != stateComplete {
		return nil, ErrHandshakeNotComplete
	}
	key := make([]byte, crypto.KeySize)
	copy(key, hs.remoteStatic[:])
	return key, nil
}

// Abandon terminates an in-progress attempt from the outside, typically
// because a transport deadline elapsed or the caller cancelled. All partial
// key material is destroyed exactly as on a cryptographic failure; the
// attempt can never be resumed. A completed handshake cannot be abandoned.
func (hs *XKHandshake) Abandon() {
	if hs.state == stateComplete || hs.state == stateFailed {
		return
	}
	_ = hs.fail(ErrHandshakeFailed)
}

// expect validates that the handshake is in the given state.
func (hs *XKHandshake) expect(want handshakeState) error {
	if hs.state == stateFailed {
		return ErrHandshakeFailed
	}
	if hs.state != want {
		return ErrUnexpectedMessage
	}
	return nil
}

// complete splits the final chaining key into the two directional session
// keys and releases the handshake's own key material. The first split key
// always protects initiator-to-responder traffic.
func (hs *XKHandshake) complete() error {
	c1, c2, err := hs.sym.split()
	if err != nil {
		return hs.fail(err)
	}

	if hs.role == Initiator {
		hs.sendCipher, hs.recvCipher = c1, c2
	} else {
		hs.sendCipher, hs.recvCipher = c2, c1
	}

	if hs.ephemeral != nil {
		hs.ephemeral.Wipe()
		hs.ephemeral = nil
	}
	hs.state = stateComplete

	logrus.WithFields(logrus.Fields{
		"function":   "complete",
		"package":    "noise",
		"role":       hs.role.String(),
		"remote_key": fmt.Sprintf("%x", hs.remoteStatic[:8]),
	}).Debug("handshake complete")
	return nil
}

// fail latches the attempt as failed and destroys all partial key material:
// the ephemeral private key, the chaining key and the transcript. The
// original error is returned for the caller to surface.
func (hs *XKHandshake) fail(err error) error {
	hs.state = stateFailed
	if hs.ephemeral != nil {
		hs.ephemeral.Wipe()
		hs.ephemeral = nil
	}
	hs.sym.wipe()

	logrus.WithFields(logrus.Fields{
		"function": "fail",
		"package":  "noise",
		"role":     hs.role.String(),
		"error":    err.Error(),
	}).Debug("handshake attempt failed")
	return err
}
