package transport

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionRekeyInterval(t *testing.T) {
	// With a small interval both peers must cross the rekey threshold in
	// lockstep, in both directions, without any coordination on the wire.
	cfg := &SessionConfig{RekeyInterval: 4}
	pair := newSessionPair(t, cfg, cfg)

	for i := 0; i < 20; i++ {
		msg := []byte(fmt.Sprintf("c->s %d", i))
		errc := sendAsync(pair.client, msg)
		got, err := pair.server.Receive()
		require.NoError(t, err)
		require.NoError(t, <-errc)
		require.Equal(t, msg, got)

		msg = []byte(fmt.Sprintf("s->c %d", i))
		errc = sendAsync(pair.server, msg)
		got, err = pair.client.Receive()
		require.NoError(t, err)
		require.NoError(t, <-errc)
		require.Equal(t, msg, got)
	}
}

func TestSessionRekeyDisabled(t *testing.T) {
	cfg := &SessionConfig{DisableRekey: true}
	pair := newSessionPair(t, cfg, cfg)

	for i := 0; i < 20; i++ {
		msg := []byte{byte(i)}
		errc := sendAsync(pair.client, msg)
		got, err := pair.server.Receive()
		require.NoError(t, err)
		require.NoError(t, <-errc)
		require.Equal(t, msg, got)
	}
}

func TestSessionConfigMismatchedRekeyFails(t *testing.T) {
	// Rekey intervals are part of the out-of-band agreement between peers;
	// mismatched settings desynchronize the keys once one side rekeys.
	pair := newSessionPair(t, &SessionConfig{RekeyInterval: 2}, &SessionConfig{DisableRekey: true})

	sawFailure := false
	for i := 0; i < 5 && !sawFailure; i++ {
		errc := sendAsync(pair.client, []byte("x"))
		_, err := pair.server.Receive()
		<-errc
		if err != nil {
			sawFailure = true
		}
	}
	require.True(t, sawFailure, "mismatched rekey policies must break the session")
}
