package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"

	"github.com/opd-ai/noisewire/crypto"
)

// DefaultHandshakeTimeout bounds how long a handshake may wait for the next
// message when the caller's context carries no deadline of its own.
const DefaultHandshakeTimeout = 30 * time.Second

// DialConfig controls how outbound connections are opened.
type DialConfig struct {
	// ProxyAddr is the address of a SOCKS5 proxy ("host:port"). Required
	// for onion endpoints (typically the local Tor daemon at
	// 127.0.0.1:9050), optional for clearnet.
	ProxyAddr string
	// ProxyUser and ProxyPass are optional SOCKS5 credentials.
	ProxyUser string
	ProxyPass string
	// HandshakeTimeout bounds the whole handshake exchange. Zero means
	// DefaultHandshakeTimeout. A deadline on the dial context, when
	// earlier, takes precedence.
	HandshakeTimeout time.Duration
	// Session carries post-handshake tuning.
	Session SessionConfig
}

// Dial connects to a peer endpoint and runs the initiator side of the XK
// handshake with the default configuration. The address must carry the
// peer's static public key.
func Dial(ctx context.Context, localStatic *crypto.KeyPair, addr *NodeAddress) (*Session, error) {
	return DialWithConfig(ctx, localStatic, addr, DialConfig{})
}

// DialWithConfig connects to a peer endpoint with explicit configuration.
// Onion endpoints are reached through the configured SOCKS5 proxy; clearnet
// endpoints dial directly unless a proxy is configured.
//
// Context cancellation and deadline expiry during the handshake surface as
// ErrHandshakeTimeout; the attempt's key material is destroyed either way
// and retrying is the caller's decision.
func DialWithConfig(ctx context.Context, localStatic *crypto.KeyPair, addr *NodeAddress, cfg DialConfig) (*Session, error) {
	if addr == nil {
		return nil, fmt.Errorf("%w: nil address", ErrInvalidAddress)
	}
	if len(addr.PublicKey) != crypto.KeySize {
		return nil, fmt.Errorf("%w: dialing requires the peer's static public key", crypto.ErrInvalidKeyMaterial)
	}
	if addr.IsOnion() && cfg.ProxyAddr == "" {
		return nil, fmt.Errorf("%w: %s", ErrProxyRequired, addr.Host)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "DialWithConfig",
		"package":   "transport",
		"addr_type": addr.Type.String(),
		"endpoint":  addr.HostPort(),
		"via_proxy": cfg.ProxyAddr != "",
	}).Info("dialing peer")

	conn, err := dialStream(ctx, addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to %s failed: %w", addr.HostPort(), err)
	}

	if err := applyHandshakeDeadline(ctx, conn, cfg.HandshakeTimeout); err != nil {
		conn.Close()
		return nil, err
	}

	session, err := Client(conn, localStatic, addr.PublicKey, &cfg.Session)
	if err != nil {
		conn.Close()
		return nil, err
	}

	// Handshake done; the session manages its own I/O from here.
	_ = conn.SetDeadline(time.Time{})
	return session, nil
}

// dialStream opens the underlying TCP byte stream, going through SOCKS5
// when configured or required.
func dialStream(ctx context.Context, addr *NodeAddress, cfg DialConfig) (net.Conn, error) {
	if cfg.ProxyAddr == "" {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr.HostPort())
	}

	var auth *proxy.Auth
	if cfg.ProxyUser != "" || cfg.ProxyPass != "" {
		auth = &proxy.Auth{User: cfg.ProxyUser, Password: cfg.ProxyPass}
	}
	dialer, err := proxy.SOCKS5("tcp", cfg.ProxyAddr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("SOCKS5 dialer setup failed: %w", err)
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, "tcp", addr.HostPort())
	}
	return dialer.Dial("tcp", addr.HostPort())
}

// applyHandshakeDeadline sets the socket deadline that bounds the handshake
// exchange, honoring an earlier context deadline when present.
func applyHandshakeDeadline(ctx context.Context, conn net.Conn, timeout time.Duration) error {
	if timeout == 0 {
		timeout = DefaultHandshakeTimeout
	}
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return conn.SetDeadline(deadline)
}
