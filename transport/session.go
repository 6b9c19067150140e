package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/noisewire/crypto"
	"github.com/opd-ai/noisewire/noise"
)

// Wire format of a post-handshake frame:
//
//	[2-byte big-endian length][ciphertext][16-byte tag]
//
// The length prefix covers the ciphertext length only (which equals the
// plaintext length for this AEAD) and is itself authenticated by passing it
// as associated data, so a tampered prefix fails tag verification rather
// than desynchronizing the stream.
const (
	// LengthPrefixSize is the size of the frame length prefix.
	LengthPrefixSize = 2
	// TagSize is the size of the authentication tag trailing every frame.
	TagSize = noise.TagSize
	// MaxFramePayload is the largest payload expressible by the two-byte
	// length prefix.
	MaxFramePayload = 0xFFFF
	// MaxFrameSize is the largest complete frame that can appear on the
	// wire.
	MaxFrameSize = LengthPrefixSize + MaxFramePayload + TagSize
)

// Session is the per-connection object an application uses after the
// handshake. It owns exactly one send and one receive cipher state for the
// lifetime of the underlying connection and exposes ordered
// encrypt-and-send / receive-and-decrypt operations.
//
// The send and receive paths are independent and may be driven concurrently
// by two goroutines; each path is serialized by its own lock and the two
// cipher states never alias. The session performs no retries: every
// cryptographic failure is fatal, wipes the keys and closes the session.
type Session struct {
	conn io.ReadWriteCloser

	sendMu sync.Mutex
	send   *noise.CipherState

	recvMu sync.Mutex
	recv   *noise.CipherState

	remote [crypto.KeySize]byte

	// maxPayload caps accepted frame payloads; at most MaxFramePayload,
	// lower when configured.
	maxPayload int

	closeMu sync.Mutex
	closed  bool
}

// newSession binds the directional cipher states produced by a completed
// handshake to the underlying connection.
func newSession(conn io.ReadWriteCloser, send, recv *noise.CipherState, remoteStatic []byte, maxPayload int) *Session {
	if maxPayload <= 0 || maxPayload > MaxFramePayload {
		maxPayload = MaxFramePayload
	}
	s := &Session{conn: conn, send: send, recv: recv, maxPayload: maxPayload}
	copy(s.remote[:], remoteStatic)
	return s
}

// RemoteIdentity returns the peer's verified static public key, established
// by handshake authentication and immutable thereafter. Callers use it for
// authorization decisions.
func (s *Session) RemoteIdentity() []byte {
	key := make([]byte, crypto.KeySize)
	copy(key, s.remote[:])
	return key
}

// Send frames payload with a length prefix, encrypts it via the send cipher
// state and writes it to the underlying stream. Advances the send nonce by
// exactly one.
func (s *Session) Send(payload []byte) error {
	err, fatal := s.sendLocked(payload)
	if fatal {
		s.teardown("send failed", err)
	}
	return err
}

func (s *Session) sendLocked(payload []byte) (err error, fatal bool) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.isClosed() {
		return ErrSessionClosed, false
	}
	if len(payload) > s.maxPayload {
		return fmt.Errorf("%w: %d bytes", ErrOversizedFrame, len(payload)), false
	}

	frame := make([]byte, LengthPrefixSize, LengthPrefixSize+len(payload)+TagSize)
	binary.BigEndian.PutUint16(frame, uint16(len(payload)))

	ciphertext, err := s.send.Encrypt(payload, frame[:LengthPrefixSize])
	if err != nil {
		// Nonce exhaustion or a wiped state; no frame was produced.
		return err, true
	}
	frame = append(frame, ciphertext...)

	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("frame write failed: %w", err), false
	}
	return nil, false
}

// Receive reads one length-prefixed encrypted frame from the underlying
// stream and decrypts it via the receive cipher state. An authentication
// failure is a connection-terminating condition: the keys are wiped, the
// connection is closed and the error is never retryable. A length prefix
// inconsistent with the bytes actually available fails with
// ErrTruncatedFrame, likewise fatal.
func (s *Session) Receive() ([]byte, error) {
	payload, err, fatal := s.receiveLocked()
	if fatal {
		s.teardown("receive failed", err)
	}
	return payload, err
}

func (s *Session) receiveLocked() (payload []byte, err error, fatal bool) {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	if s.isClosed() {
		return nil, ErrSessionClosed, false
	}

	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(s.conn, prefix[:]); err != nil {
		return nil, fmt.Errorf("frame read failed: %w", err), false
	}
	payloadLen := int(binary.BigEndian.Uint16(prefix[:]))
	if payloadLen > s.maxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrOversizedFrame, payloadLen), true
	}

	ciphertext := make([]byte, payloadLen+TagSize)
	if _, err := io.ReadFull(s.conn, ciphertext); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, ErrTruncatedFrame, true
		}
		return nil, fmt.Errorf("frame read failed: %w", err), false
	}

	plaintext, err := s.recv.Decrypt(ciphertext, prefix[:])
	if err != nil {
		// Tag mismatch, nonce exhaustion or a wiped state: all fatal.
		return nil, err, true
	}
	return plaintext, nil, false
}

// Close wipes both cipher states and closes the underlying connection.
// Safe to call multiple times and from any goroutine. Closing the
// connection first unblocks a reader stuck in Receive, whose lock is then
// released so its cipher state can be wiped.
func (s *Session) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()

	err := s.conn.Close()

	s.sendMu.Lock()
	s.send.Wipe()
	s.sendMu.Unlock()

	s.recvMu.Lock()
	s.recv.Wipe()
	s.recvMu.Unlock()

	return err
}

// LocalAddr returns the local address of the underlying connection, if it
// is a net.Conn, and nil otherwise.
func (s *Session) LocalAddr() net.Addr {
	if c, ok := s.conn.(net.Conn); ok {
		return c.LocalAddr()
	}
	return nil
}

// RemoteAddr returns the remote address of the underlying connection, if it
// is a net.Conn, and nil otherwise.
func (s *Session) RemoteAddr() net.Addr {
	if c, ok := s.conn.(net.Conn); ok {
		return c.RemoteAddr()
	}
	return nil
}

func (s *Session) isClosed() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.closed
}

// teardown destroys the session after a fatal condition. Must be called
// without the direction locks held.
func (s *Session) teardown(reason string, err error) {
	logrus.WithFields(logrus.Fields{
		"function": "teardown",
		"package":  "transport",
		"reason":   reason,
		"error":    err.Error(),
	}).Error("session terminated")
	_ = s.Close()
}
