package transport

import "errors"

var (
	// ErrOversizedFrame indicates a frame payload larger than
	// MaxFramePayload, on send or on receipt. Fatal to the session.
	ErrOversizedFrame = errors.New("frame exceeds maximum payload size")

	// ErrTruncatedFrame indicates the stream ended before the number of
	// bytes promised by a frame's length prefix arrived. Fatal.
	ErrTruncatedFrame = errors.New("frame truncated: length prefix inconsistent with available bytes")

	// ErrSessionClosed indicates use of a session after Close, or after a
	// fatal cryptographic failure destroyed its keys.
	ErrSessionClosed = errors.New("session is closed")

	// ErrHandshakeTimeout indicates the caller-supplied deadline elapsed
	// while awaiting a handshake message. The attempt is discarded; the
	// caller decides whether to retry with a fresh attempt.
	ErrHandshakeTimeout = errors.New("handshake deadline exceeded")

	// ErrProxyRequired indicates a dial to an onion endpoint without a
	// configured SOCKS5 proxy.
	ErrProxyRequired = errors.New("onion address requires a SOCKS5 proxy")

	// ErrInvalidAddress indicates a peer endpoint string that is not an
	// IPv4, IPv6 or onion v2/v3 address in the supported format.
	ErrInvalidAddress = errors.New("invalid node address")
)
