package transport

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/noisewire/crypto"
	"github.com/opd-ai/noisewire/noise"
)

// sessionPair holds the two ends of an in-memory established session.
type sessionPair struct {
	client, server         *Session
	clientKeys, serverKeys *crypto.KeyPair
}

// newSessionPair performs a complete handshake over an in-memory pipe and
// returns both established sessions.
func newSessionPair(t *testing.T, clientCfg, serverCfg *SessionConfig) *sessionPair {
	t.Helper()

	clientKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	serverKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	clientConn, serverConn := net.Pipe()
	return establishPair(t, clientConn, serverConn, clientKeys, serverKeys, clientCfg, serverCfg)
}

func establishPair(t *testing.T, clientConn, serverConn net.Conn, clientKeys, serverKeys *crypto.KeyPair, clientCfg, serverCfg *SessionConfig) *sessionPair {
	t.Helper()

	type result struct {
		session *Session
		err     error
	}
	serverDone := make(chan result, 1)
	go func() {
		s, err := Server(serverConn, serverKeys, serverCfg)
		serverDone <- result{s, err}
	}()

	client, err := Client(clientConn, clientKeys, serverKeys.Public[:], clientCfg)
	require.NoError(t, err)
	res := <-serverDone
	require.NoError(t, res.err)

	t.Cleanup(func() {
		_ = client.Close()
		_ = res.session.Close()
	})
	return &sessionPair{
		client:     client,
		server:     res.session,
		clientKeys: clientKeys,
		serverKeys: serverKeys,
	}
}

// sendAsync runs Send in a goroutine; the in-memory pipe is unbuffered, so
// a send only completes once the peer reads the frame.
func sendAsync(s *Session, payload []byte) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- s.Send(payload) }()
	return errc
}

func TestSessionPing(t *testing.T) {
	pair := newSessionPair(t, nil, nil)

	errc := sendAsync(pair.client, []byte("ping"))
	got, err := pair.server.Receive()
	require.NoError(t, err)
	require.NoError(t, <-errc)
	assert.Equal(t, []byte("ping"), got)

	errc = sendAsync(pair.server, []byte("pong"))
	got, err = pair.client.Receive()
	require.NoError(t, err)
	require.NoError(t, <-errc)
	assert.Equal(t, []byte("pong"), got)
}

func TestSessionManyMessages(t *testing.T) {
	pair := newSessionPair(t, nil, nil)

	const count = 200
	done := make(chan error, 1)
	go func() {
		for i := 0; i < count; i++ {
			if err := pair.client.Send([]byte{byte(i)}); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	for i := 0; i < count; i++ {
		got, err := pair.server.Receive()
		require.NoError(t, err)
		require.Equal(t, []byte{byte(i)}, got, "frames must arrive in order")
	}
	require.NoError(t, <-done)
}

func TestSessionRemoteIdentity(t *testing.T) {
	pair := newSessionPair(t, nil, nil)

	assert.Equal(t, pair.serverKeys.Public[:], pair.client.RemoteIdentity())
	assert.Equal(t, pair.clientKeys.Public[:], pair.server.RemoteIdentity(),
		"responder must learn the initiator's identity from the handshake")
}

// recordingConn captures every post-handshake frame written through it so a
// test can replay the exact bytes.
type recordingConn struct {
	net.Conn
	mu     sync.Mutex
	record bool
	frames [][]byte
}

func (c *recordingConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	if c.record {
		frame := make([]byte, len(b))
		copy(frame, b)
		c.frames = append(c.frames, frame)
	}
	c.mu.Unlock()
	return c.Conn.Write(b)
}

func TestSessionReplayRejected(t *testing.T) {
	clientKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	serverKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	rawClient, serverConn := net.Pipe()
	clientConn := &recordingConn{Conn: rawClient}
	pair := establishPair(t, clientConn, serverConn, clientKeys, serverKeys, nil, nil)

	clientConn.mu.Lock()
	clientConn.record = true
	clientConn.mu.Unlock()

	errc := sendAsync(pair.client, []byte("pay the bearer"))
	got, err := pair.server.Receive()
	require.NoError(t, err)
	require.NoError(t, <-errc)
	require.Equal(t, []byte("pay the bearer"), got)

	clientConn.mu.Lock()
	require.Len(t, clientConn.frames, 1)
	captured := clientConn.frames[0]
	clientConn.mu.Unlock()

	// An attacker re-injecting the identical frame bytes must be rejected:
	// the receive nonce has moved past the one the frame was sealed under.
	go func() { _, _ = rawClient.Write(captured) }()
	_, err = pair.server.Receive()
	require.True(t, errors.Is(err, noise.ErrAuthenticationFailed))

	// The failure is fatal: the session is closed and unusable.
	_, err = pair.server.Receive()
	assert.True(t, errors.Is(err, ErrSessionClosed))
}

func TestSessionOversizedSend(t *testing.T) {
	pair := newSessionPair(t, &SessionConfig{MaxPayload: 64}, nil)

	err := pair.client.Send(make([]byte, 65))
	require.True(t, errors.Is(err, ErrOversizedFrame))

	// The rejection happens before any encryption: the session survives
	// and the nonce has not moved.
	errc := sendAsync(pair.client, []byte("still fine"))
	got, err := pair.server.Receive()
	require.NoError(t, err)
	require.NoError(t, <-errc)
	assert.Equal(t, []byte("still fine"), got)
}

func TestSessionOversizedReceive(t *testing.T) {
	pair := newSessionPair(t, nil, &SessionConfig{MaxPayload: 64})

	errc := sendAsync(pair.client, make([]byte, 256))
	_, err := pair.server.Receive()
	require.True(t, errors.Is(err, ErrOversizedFrame))
	<-errc

	// Fatal: frames beyond the configured limit terminate the session.
	_, err = pair.server.Receive()
	assert.True(t, errors.Is(err, ErrSessionClosed))
}

func TestSessionTruncatedFrame(t *testing.T) {
	clientKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	serverKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	clientConn, serverConn := net.Pipe()
	pair := establishPair(t, clientConn, serverConn, clientKeys, serverKeys, nil, nil)

	// A frame whose prefix promises more bytes than the stream delivers.
	go func() {
		_, _ = clientConn.Write([]byte{0x00, 0x20, 0xde, 0xad})
		_ = clientConn.Close()
	}()

	_, err = pair.server.Receive()
	require.True(t, errors.Is(err, ErrTruncatedFrame))

	_, err = pair.server.Receive()
	assert.True(t, errors.Is(err, ErrSessionClosed))
}

func TestSessionTamperedFrameIsFatal(t *testing.T) {
	clientKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	serverKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	rawClient, serverConn := net.Pipe()
	clientConn := &recordingConn{Conn: rawClient}
	pair := establishPair(t, clientConn, serverConn, clientKeys, serverKeys, nil, nil)

	clientConn.mu.Lock()
	clientConn.record = true
	clientConn.mu.Unlock()

	errc := sendAsync(pair.client, []byte("genuine"))
	_, err = pair.server.Receive()
	require.NoError(t, err)
	require.NoError(t, <-errc)

	clientConn.mu.Lock()
	frame := clientConn.frames[0]
	clientConn.mu.Unlock()

	// Same length, corrupted body: the prefix parses but the tag fails.
	tampered := make([]byte, len(frame))
	copy(tampered, frame)
	tampered[LengthPrefixSize] ^= 0x01

	go func() { _, _ = rawClient.Write(tampered) }()
	_, err = pair.server.Receive()
	require.True(t, errors.Is(err, noise.ErrAuthenticationFailed))

	_, err = pair.server.Receive()
	assert.True(t, errors.Is(err, ErrSessionClosed))
}

func TestSessionClose(t *testing.T) {
	pair := newSessionPair(t, nil, nil)

	require.NoError(t, pair.client.Close())
	require.NoError(t, pair.client.Close(), "close must be idempotent")

	err := pair.client.Send([]byte("late"))
	assert.True(t, errors.Is(err, ErrSessionClosed))
	_, err = pair.client.Receive()
	assert.True(t, errors.Is(err, ErrSessionClosed))
}

func TestSessionCloseUnblocksReceive(t *testing.T) {
	pair := newSessionPair(t, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := pair.server.Receive()
		done <- err
	}()

	// Give the reader a moment to block on the empty pipe.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, pair.server.Close())

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Receive did not return after Close")
	}
}

func TestSessionEmptyPayload(t *testing.T) {
	pair := newSessionPair(t, nil, nil)

	errc := sendAsync(pair.client, nil)
	got, err := pair.server.Receive()
	require.NoError(t, err)
	require.NoError(t, <-errc)
	assert.Empty(t, got)
}
