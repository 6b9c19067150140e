package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPair(t *testing.T) {
	kp1, err := GenerateKeyPair()
	require.NoError(t, err)
	kp2, err := GenerateKeyPair()
	require.NoError(t, err)

	assert.False(t, isZeroKey(kp1.Public[:]), "public key should not be zero")
	assert.False(t, isZeroKey(kp1.Private[:]), "private key should not be zero")
	assert.NotEqual(t, kp1.Public, kp2.Public, "two key pairs should differ")
}

func TestFromSecretKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	derived, err := FromSecretKey(kp.Private)
	require.NoError(t, err)
	assert.Equal(t, kp.Public, derived.Public, "derived public key should match")
}

func TestFromSecretKeyRejectsZero(t *testing.T) {
	var zero [KeySize]byte
	_, err := FromSecretKey(zero)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidKeyMaterial))
}

func TestDHSharedSecretAgreement(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	bob, err := GenerateKeyPair()
	require.NoError(t, err)

	s1, err := DH(alice.Private, bob.Public[:])
	require.NoError(t, err)
	s2, err := DH(bob.Private, alice.Public[:])
	require.NoError(t, err)

	assert.True(t, bytes.Equal(s1[:], s2[:]), "both sides should derive the same secret")
	assert.False(t, isZeroKey(s1[:]), "shared secret should not be zero")
}

func TestDHRejectsInvalidRemoteKeys(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	cases := []struct {
		name   string
		remote []byte
	}{
		{"short key", make([]byte, 16)},
		{"long key", make([]byte, 64)},
		{"all-zero key", make([]byte, KeySize)},
		{"low-order point", append([]byte{0x01}, make([]byte, KeySize-1)...)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DH(kp.Private, tc.remote)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidKeyMaterial), "expected ErrInvalidKeyMaterial, got %v", err)
		})
	}
}
