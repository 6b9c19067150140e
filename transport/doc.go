// Package transport provides the post-handshake session layer and the thin
// collaborators around it: length-prefixed encrypted framing over any
// ordered byte stream, peer endpoint addresses (clearnet and Tor onion),
// TCP and SOCKS5 dialing, listening, and a websocket stream adapter.
//
// The session layer assumes a reliable, ordered, non-duplicating byte
// stream beneath it and provides no resequencing: frames are decrypted
// strictly in order with a locally tracked nonce, so any reordered,
// replayed or tampered frame terminates the session.
package transport
