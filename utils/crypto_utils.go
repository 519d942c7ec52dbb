package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/nacl/secretbox"
)

const EncryptionKeyEnv = "ENCRYPTION_KEY"

var (
	ErrKeyMissing       = errors.New("encryption key is not set")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// LoadEncryptionKey 从环境变量中加载加密密钥，必须是32个字符
func LoadEncryptionKey() (*[32]byte, error) {
	keyStr := os.Getenv(EncryptionKeyEnv)
	if keyStr == "" {
		return nil, fmt.Errorf("%w: %s", ErrKeyMissing, EncryptionKeyEnv)
	}
	return ParseKey(keyStr)
}

func ParseKey(keyStr string) (*[32]byte, error) {
	if len(keyStr) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 characters long, but got %d characters", len(keyStr))
	}
	var key [32]byte
	copy(key[:], keyStr)
	return &key, nil
}

// Encrypt 加密后返回 base64 字符串，前24字节是随机 nonce
func Encrypt(originStr string, key *[32]byte) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	encrypted := secretbox.Seal(nonce[:], []byte(originStr), &nonce, key)
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

func Decrypt(encoded string, key *[32]byte) (string, error) {
	encrypted, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(encrypted) < 24+secretbox.Overhead {
		return "", ErrDecryptionFailed
	}

	var nonce [24]byte
	copy(nonce[:], encrypted[:24])
	decrypted, ok := secretbox.Open(nil, encrypted[24:], &nonce, key)
	if !ok {
		return "", ErrDecryptionFailed
	}
	return string(decrypted), nil
}
