package storage

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGzipRoundTrip(t *testing.T) {
	original := []byte("booking confirmation attachment text, repeated repeated repeated")
	compressed, err := gzipCompress(original)
	require.NoError(t, err)
	assert.NotEqual(t, original, compressed)

	decompressed, err := gzipDecompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, original, decompressed)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	bs := &BlobStorage{encryptionKey: make([]byte, 32)}
	for i := range bs.encryptionKey {
		bs.encryptionKey[i] = byte(i)
	}

	plaintext := []byte("sensitive bill of lading contents")
	ciphertext, err := bs.encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := bs.decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecrypt_RejectsShortCiphertext(t *testing.T) {
	bs := &BlobStorage{encryptionKey: make([]byte, 32)}
	_, err := bs.decrypt([]byte("short"))
	assert.Error(t, err)
}

func TestKey_AppliesCompressAndEncryptSuffixes(t *testing.T) {
	bs := &BlobStorage{prefix: "attachments/", compress: true, encryptionKey: make([]byte, 32)}
	got := bs.key("email-123/att-1")
	assert.Equal(t, "attachments/email-123/att-1.gz.enc", got)
}

func TestNewBlobStorage_RejectsBadKeyLength(t *testing.T) {
	_, err := NewBlobStorage(aws.Config{}, Config{Bucket: "b", EncryptionKey: "dGVzdA=="})
	assert.Error(t, err)
}
