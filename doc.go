// Package noisewire provides authenticated encrypted point-to-point
// sessions over reliable byte streams, built on the Noise XK handshake
// with Curve25519, ChaCha20-Poly1305 and SHA-256.
//
// The initiator must know the responder's static public key before
// connecting; the handshake proves the responder holds the matching
// private key and reveals the initiator's identity only to that verified
// responder. After three handshake messages both sides hold independent
// send and receive cipher states with strict nonce ordering, and every
// subsequent frame is length-prefixed, encrypted and authenticated.
//
// # Packages
//
//   - crypto:    Curve25519 key pairs, single-use ephemerals, key wiping
//   - noise:     the XK handshake state machine and cipher states
//   - transport: sessions over TCP, SOCKS5 (Tor) and websocket streams
//
// # Getting Started
//
// A responder listens with its long-term identity:
//
//	keys, _ := crypto.GenerateKeyPair()
//	listener, _ := transport.Listen("0.0.0.0:9735", keys)
//	for {
//	    session, err := listener.Accept()
//	    if err != nil {
//	        continue
//	    }
//	    go serve(session) // session.RemoteIdentity() is verified
//	}
//
// An initiator dials with the responder's public key in the address:
//
//	addr, _ := transport.ParseNodeAddress("ab12...@203.0.113.4:9735")
//	session, _ := transport.Dial(ctx, myKeys, addr)
//	session.Send([]byte("hello"))
//
// Onion endpoints are dialed the same way through a SOCKS5 proxy, and
// WebsocketConn carries sessions over HTTP infrastructure; the security
// properties do not depend on the underlying stream.
package noisewire
