package noise

import "errors"

var (
	// ErrUnexpectedMessage indicates a handshake message arrived (or an act
	// was invoked) out of the expected state order. This is a protocol
	// violation by a non-conforming peer, or a caller bug; the attempt is
	// unrecoverable.
	ErrUnexpectedMessage = errors.New("unexpected message for current handshake state")

	// ErrAuthenticationFailed indicates an authentication tag did not
	// verify, during the handshake or on a post-handshake frame. It is
	// fatal: the attempt or session must be torn down and never retried
	// with the same keys.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrNonceExhausted indicates the 64-bit nonce counter reached its
	// reserved maximum value. Practically unreachable, but never silently
	// wrapped; the session must rekey or reconnect.
	ErrNonceExhausted = errors.New("nonce counter exhausted")

	// ErrHandshakeFailed indicates the handshake previously failed and its
	// key material has been destroyed; no further acts are possible.
	ErrHandshakeFailed = errors.New("handshake failed and cannot be resumed")

	// ErrHandshakeNotComplete indicates handshake results were requested
	// before the final message was processed.
	ErrHandshakeNotComplete = errors.New("handshake not complete")

	// ErrCipherStateWiped indicates use of a cipher state whose key has
	// been destroyed.
	ErrCipherStateWiped = errors.New("cipher state has been wiped")
)
