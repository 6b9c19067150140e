package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureWipe(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	err := SecureWipe(data)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, data)
}

func TestSecureWipeNil(t *testing.T) {
	err := SecureWipe(nil)
	assert.Error(t, err)
}

func TestSecureWipeEmpty(t *testing.T) {
	err := SecureWipe([]byte{})
	assert.NoError(t, err)
}

func TestZeroBytes(t *testing.T) {
	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i + 1)
	}
	ZeroBytes(data)
	assert.True(t, isZeroKey(data), "all bytes should be zero")
}

func TestWipeKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	require.NoError(t, WipeKeyPair(kp))
	assert.True(t, isZeroKey(kp.Private[:]), "private key should be wiped")
}

func TestWipeKeyPairNil(t *testing.T) {
	assert.Error(t, WipeKeyPair(nil))
}
