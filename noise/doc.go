// Package noise implements the Noise XK handshake pattern and the
// per-direction cipher states derived from it, over Curve25519,
// ChaCha20-Poly1305 and SHA256 ("Noise_XK_25519_ChaChaPoly_SHA256").
//
// # XK Pattern (Responder Key Known)
//
// XK is used when the initiator knows the responder's static public key in
// advance, while the responder learns the initiator's identity only in the
// third handshake message. Mutual authentication is achieved by message 3.
//
// Message flow (3 messages, 1.5 round trips):
//
//	Initiator                              Responder
//	─────────                              ─────────
//	-> e, es       (ephemeral)
//	                                       <- e, ee   (ephemeral)
//	-> s, se       (static revealed)
//	[session established]
//
// Security properties:
//   - Mutual authentication: responder is authenticated at message 2,
//     initiator at message 3
//   - Forward secrecy: compromise of long-term keys does not expose past
//     sessions
//   - Identity hiding: the initiator's static key is transmitted encrypted
//     and never observable by a passive attacker
//
// Example usage:
//
//	// Initiator (knows the responder's public key)
//	hs, err := noise.NewXKHandshake(noise.Initiator, myKeys, peerPub)
//	if err != nil {
//	    return err
//	}
//	msg1, err := hs.WriteMessageOne()
//	// send msg1, receive msg2...
//	if err := hs.ReadMessageTwo(msg2); err != nil {
//	    return err
//	}
//	msg3, err := hs.WriteMessageThree()
//	// send msg3
//	send, recv, _ := hs.CipherStates()
//
//	// Responder (learns the initiator's key during the handshake)
//	hs, err := noise.NewXKHandshake(noise.Responder, myKeys, nil)
//	if err := hs.ReadMessageOne(msg1); err != nil {
//	    return err
//	}
//	msg2, err := hs.WriteMessageTwo()
//	// send msg2, receive msg3...
//	if err := hs.ReadMessageThree(msg3); err != nil {
//	    return err
//	}
//	peerKey, _ := hs.RemoteStaticKey()
//
// The handshake is strictly sequential: each message can be processed at
// most once, in order, and any failure latches the attempt as failed and
// wipes all partial key material. A failed attempt can never be resumed; a
// retry requires a fresh handshake with fresh ephemeral keys.
//
// The implementation is wire-compatible with other Noise_XK_25519_ChaChaPoly_SHA256
// stacks; the test suite verifies interoperability against github.com/flynn/noise.
package noise
