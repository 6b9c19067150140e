package transport

import (
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/noisewire/crypto"
)

// ListenConfig controls how inbound connections are accepted.
type ListenConfig struct {
	// HandshakeTimeout bounds the responder handshake per connection.
	// Zero means DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration
	// Session carries post-handshake tuning.
	Session SessionConfig
}

// Listener accepts inbound connections and runs the responder side of the
// XK handshake on each. Connections whose handshake fails are closed and
// the error returned; the listener itself stays usable, so an accept loop
// treats per-connection errors as routine.
type Listener struct {
	inner       net.Listener
	localStatic *crypto.KeyPair
	cfg         ListenConfig
}

// Listen opens a TCP listener on addr using the node's static identity.
func Listen(addr string, localStatic *crypto.KeyPair) (*Listener, error) {
	return ListenWithConfig(addr, localStatic, ListenConfig{})
}

// ListenWithConfig opens a TCP listener with explicit configuration.
func ListenWithConfig(addr string, localStatic *crypto.KeyPair, cfg ListenConfig) (*Listener, error) {
	if localStatic == nil {
		return nil, fmt.Errorf("%w: local static key pair is required", crypto.ErrInvalidKeyMaterial)
	}
	inner, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "ListenWithConfig",
		"package":  "transport",
		"addr":     inner.Addr().String(),
	}).Info("listening for peer connections")

	return NewListener(inner, localStatic, cfg), nil
}

// NewListener wraps an existing net.Listener, for callers that manage their
// own sockets (for example an onion service published through a Tor
// controller).
func NewListener(inner net.Listener, localStatic *crypto.KeyPair, cfg ListenConfig) *Listener {
	return &Listener{inner: inner, localStatic: localStatic, cfg: cfg}
}

// Accept waits for the next inbound connection and completes the responder
// handshake on it. The initiator's identity is available on the returned
// session as RemoteIdentity; authorization against it is the caller's
// responsibility.
func (l *Listener) Accept() (*Session, error) {
	conn, err := l.inner.Accept()
	if err != nil {
		return nil, err
	}

	timeout := l.cfg.HandshakeTimeout
	if timeout == 0 {
		timeout = DefaultHandshakeTimeout
	}
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return nil, err
	}

	session, err := Server(conn, l.localStatic, &l.cfg.Session)
	if err != nil {
		conn.Close()
		logrus.WithFields(logrus.Fields{
			"function":    "Accept",
			"package":     "transport",
			"remote_addr": conn.RemoteAddr().String(),
			"error":       err.Error(),
		}).Warn("inbound handshake failed")
		return nil, err
	}

	_ = conn.SetDeadline(time.Time{})
	return session, nil
}

// Addr returns the listener's local address.
func (l *Listener) Addr() net.Addr {
	return l.inner.Addr()
}

// Close shuts down the listener. Established sessions are unaffected.
func (l *Listener) Close() error {
	return l.inner.Close()
}
