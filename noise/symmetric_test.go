package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolNameSeedsHashDirectly(t *testing.T) {
	// The protocol name is exactly one hash block of output, so it becomes
	// the initial transcript hash without padding or pre-hashing.
	require.Len(t, []byte(protocolName), 32)

	s := newSymmetricState()
	assert.NotEqual(t, [32]byte{}, s.h)
	// ck keeps the raw name while h has absorbed the empty prologue.
	assert.NotEqual(t, s.h, s.ck)
}

func TestSymmetricStateTranscriptBinding(t *testing.T) {
	a := newSymmetricState()
	b := newSymmetricState()

	a.mixHash([]byte("shared"))
	b.mixHash([]byte("shared"))
	assert.Equal(t, a.h, b.h, "identical transcripts hash identically")

	a.mixHash([]byte("divergence"))
	assert.NotEqual(t, a.h, b.h)
}

func TestSymmetricStateSplitDeterministic(t *testing.T) {
	run := func() (*CipherState, *CipherState) {
		s := newSymmetricState()
		s.mixHash([]byte("transcript"))
		var secret [32]byte
		copy(secret[:], "0123456789abcdef0123456789abcdef")
		require.NoError(t, s.mixKey(secret))
		c1, c2, err := s.split()
		require.NoError(t, err)
		return c1, c2
	}

	a1, a2 := run()
	b1, b2 := run()

	assert.Equal(t, a1.key, b1.key, "same inputs derive the same first key")
	assert.Equal(t, a2.key, b2.key, "same inputs derive the same second key")
	assert.NotEqual(t, a1.key, a2.key, "the two directions never share a key")
}

func TestSymmetricStateWipe(t *testing.T) {
	s := newSymmetricState()
	var secret [32]byte
	copy(secret[:], "another 32 byte shared secret!!!")
	require.NoError(t, s.mixKey(secret))

	s.wipe()
	assert.Equal(t, [32]byte{}, s.ck, "wipe must zero the chaining key")
	assert.Equal(t, [32]byte{}, s.h, "wipe must zero the transcript hash")
}
