package transport

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/noisewire/crypto"
	"github.com/opd-ai/noisewire/noise"
)

// SessionConfig tunes a session established over an existing byte stream.
// The zero value gives the defaults.
type SessionConfig struct {
	// RekeyInterval is the number of messages per direction after which the
	// session derives a fresh key. Zero keeps noise.DefaultRekeyInterval.
	RekeyInterval uint64
	// DisableRekey turns automatic rekeying off entirely.
	DisableRekey bool
	// MaxPayload caps accepted frame payloads below the wire-format maximum
	// of MaxFramePayload. Zero keeps the maximum.
	MaxPayload int
}

// Client runs the initiator side of the XK handshake over rw and returns
// the established session. remoteStatic is the responder's known static
// public key; the XK pattern requires the initiator to hold it in advance.
// rw must be a connected, reliable, ordered byte stream. Deadlines, if any,
// are the caller's responsibility (Dial sets them from its context).
//
// On any failure all partial key material is destroyed and rw is left open
// for the caller to close.
func Client(rw io.ReadWriteCloser, localStatic *crypto.KeyPair, remoteStatic []byte, cfg *SessionConfig) (*Session, error) {
	hs, err := noise.NewXKHandshake(noise.Initiator, localStatic, remoteStatic)
	if err != nil {
		return nil, err
	}

	msg1, err := hs.WriteMessageOne()
	if err != nil {
		return nil, err
	}
	if _, err := rw.Write(msg1); err != nil {
		return nil, abortHandshake(hs, "message one write", err)
	}

	msg2 := make([]byte, noise.MessageTwoSize)
	if _, err := io.ReadFull(rw, msg2); err != nil {
		return nil, abortHandshake(hs, "message two read", err)
	}
	if err := hs.ReadMessageTwo(msg2); err != nil {
		return nil, err
	}

	msg3, err := hs.WriteMessageThree()
	if err != nil {
		return nil, err
	}
	if _, err := rw.Write(msg3); err != nil {
		return nil, abortHandshake(hs, "message three write", err)
	}

	return finishHandshake(rw, hs, cfg)
}

// Server runs the responder side of the XK handshake over rw and returns
// the established session. The responder does not know the initiator's
// identity in advance; it is learned from message three and available as
// Session.RemoteIdentity.
func Server(rw io.ReadWriteCloser, localStatic *crypto.KeyPair, cfg *SessionConfig) (*Session, error) {
	hs, err := noise.NewXKHandshake(noise.Responder, localStatic, nil)
	if err != nil {
		return nil, err
	}

	msg1 := make([]byte, noise.MessageOneSize)
	if _, err := io.ReadFull(rw, msg1); err != nil {
		return nil, abortHandshake(hs, "message one read", err)
	}
	if err := hs.ReadMessageOne(msg1); err != nil {
		return nil, err
	}

	msg2, err := hs.WriteMessageTwo()
	if err != nil {
		return nil, err
	}
	if _, err := rw.Write(msg2); err != nil {
		return nil, abortHandshake(hs, "message two write", err)
	}

	msg3 := make([]byte, noise.MessageThreeSize)
	if _, err := io.ReadFull(rw, msg3); err != nil {
		return nil, abortHandshake(hs, "message three read", err)
	}
	if err := hs.ReadMessageThree(msg3); err != nil {
		return nil, err
	}

	return finishHandshake(rw, hs, cfg)
}

// finishHandshake extracts the handshake results and wraps them in a
// Session with the configured rekey policy.
func finishHandshake(rw io.ReadWriteCloser, hs *noise.XKHandshake, cfg *SessionConfig) (*Session, error) {
	send, recv, err := hs.CipherStates()
	if err != nil {
		return nil, err
	}
	remote, err := hs.RemoteStaticKey()
	if err != nil {
		return nil, err
	}

	maxPayload := 0
	if cfg != nil {
		interval := uint64(0)
		switch {
		case cfg.DisableRekey:
			// interval stays zero: disabled
		case cfg.RekeyInterval > 0:
			interval = cfg.RekeyInterval
		default:
			interval = noise.DefaultRekeyInterval
		}
		if err := send.SetRekeyInterval(interval); err != nil {
			return nil, err
		}
		if err := recv.SetRekeyInterval(interval); err != nil {
			return nil, err
		}
		maxPayload = cfg.MaxPayload
	}

	logrus.WithFields(logrus.Fields{
		"function":   "finishHandshake",
		"package":    "transport",
		"remote_key": fmt.Sprintf("%x", remote[:8]),
	}).Info("secure session established")

	return newSession(rw, send, recv, remote, maxPayload), nil
}

// abortHandshake maps an I/O failure during the handshake to the error
// taxonomy. The handshake's partial key material is already wiped by its
// own failure paths for cryptographic errors; for pure I/O errors the
// attempt is simply abandoned, so the ephemeral and transcript must be
// discarded here by failing the state machine.
func abortHandshake(hs *noise.XKHandshake, stage string, err error) error {
	hs.Abandon()

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s: %v", ErrHandshakeTimeout, stage, err)
	}
	return fmt.Errorf("handshake %s failed: %w", stage, err)
}
