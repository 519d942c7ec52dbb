package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "25c0517796a5419782d06c3d85cf3b53"

func TestEncryptDecrypt(t *testing.T) {
	key, err := ParseKey(testKey)
	require.NoError(t, err)

	encrypted, err := Encrypt("secret-password", key)
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "secret-password")

	decrypted, err := Decrypt(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, "secret-password", decrypted)

	other, _ := ParseKey("00000000000000000000000000000000")
	_, err = Decrypt(encrypted, other)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptMalformed(t *testing.T) {
	key, _ := ParseKey(testKey)
	_, err := Decrypt("not base64!", key)
	assert.Error(t, err)
	_, err = Decrypt("c2hvcnQ=", key)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestLoadEncryptionKey(t *testing.T) {
	t.Setenv(EncryptionKeyEnv, "")
	_, err := LoadEncryptionKey()
	assert.ErrorIs(t, err, ErrKeyMissing)

	t.Setenv(EncryptionKeyEnv, "short")
	_, err = LoadEncryptionKey()
	assert.ErrorContains(t, err, "32 characters")

	t.Setenv(EncryptionKeyEnv, testKey)
	key, err := LoadEncryptionKey()
	require.NoError(t, err)
	assert.Equal(t, byte('2'), key[0])
}
