// Package crypto implements the key material layer for the noisewire
// protocol: long-term Curve25519 identity key pairs, single-use ephemeral
// key pairs, raw Diffie-Hellman with invalid-point rejection, and secure
// wiping of key material.
//
// Nothing in this package touches the network or holds session state. The
// noise package consumes these primitives to drive the XK handshake.
//
// Example:
//
//	keys, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Public key:", hex.EncodeToString(keys.Public[:]))
package crypto
