// internal/utils/crypto_test.go
package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCIDKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestCIDRoundTrip(t *testing.T) {
	require.NoError(t, SetCIDKey(testCIDKey))

	cids := []string{
		"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		"bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi",
		"x",
		strings.Repeat("long-cid-", 50),
	}

	for _, cid := range cids {
		enc, err := EncryptCID(cid)
		require.NoError(t, err)
		assert.NotEqual(t, cid, enc)

		dec, err := DecryptCID(enc)
		require.NoError(t, err)
		assert.Equal(t, cid, dec)
	}
}

func TestEncryptCIDNotDeterministic(t *testing.T) {
	require.NoError(t, SetCIDKey(testCIDKey))

	a, err := EncryptCID("QmSame")
	require.NoError(t, err)
	b, err := EncryptCID("QmSame")
	require.NoError(t, err)

	// Fresh nonce per call.
	assert.NotEqual(t, a, b)
}

func TestDecryptCIDRejectsGarbage(t *testing.T) {
	require.NoError(t, SetCIDKey(testCIDKey))

	for _, input := range []string{
		"not ciphertext at all!!!",
		"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		"",
		"AAAA",
	} {
		_, err := DecryptCID(input)
		assert.ErrorIs(t, err, ErrInvalidCiphertext, "input %q", input)
	}
}

func TestDecryptCIDRejectsTamperedCiphertext(t *testing.T) {
	require.NoError(t, SetCIDKey(testCIDKey))

	enc, err := EncryptCID("QmTamper")
	require.NoError(t, err)

	tampered := []byte(enc)
	tampered[len(tampered)-1] ^= 0x01

	_, err = DecryptCID(string(tampered))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestSetCIDKeyValidation(t *testing.T) {
	assert.Error(t, SetCIDKey("zz"))
	assert.Error(t, SetCIDKey("0001"))
	assert.NoError(t, SetCIDKey(testCIDKey))
}
