package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/intoglo/shipment-pipeline/internal/pkg/logger"
)

// Config configures attachment blob storage in S3.
type Config struct {
	Bucket        string
	Prefix        string // e.g. "attachments/"
	Region        string
	EncryptionKey string // base64-encoded 32-byte AES-256 key, optional
	Compress      bool
}

// BlobStorage stores and resolves attachment bytes in S3. Both compression
// and encryption are optional and independently toggleable; the key suffix
// encodes which transforms were applied so GetAttachment can reverse them
// without a side channel.
type BlobStorage struct {
	client        *s3.Client
	bucket        string
	prefix        string
	encryptionKey []byte
	compress      bool
}

// NewBlobStorage builds a BlobStorage from an already-resolved AWS config.
func NewBlobStorage(awsCfg aws.Config, cfg Config) (*BlobStorage, error) {
	bs := &BlobStorage{
		client:   s3.NewFromConfig(awsCfg),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		compress: cfg.Compress,
	}

	if cfg.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption key: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("encryption key must be 32 bytes (AES-256)")
		}
		bs.encryptionKey = key
	}

	return bs, nil
}

// key builds the S3 object key for an attachment, including the
// compression/encryption suffix so the reader knows how to reverse them.
func (s *BlobStorage) key(storageRef string) string {
	key := s.prefix + storageRef
	if s.compress {
		key += ".gz"
	}
	if s.encryptionKey != nil {
		key += ".enc"
	}
	return key
}

// PutAttachment uploads raw attachment bytes under storageRef, applying
// compression and encryption per configuration. It returns only an error:
// the object key is derived from storageRef by key, so GetAttachment is
// called with the same storageRef.
func (s *BlobStorage) PutAttachment(ctx context.Context, storageRef string, data []byte, contentType string) error {
	var err error
	if s.compress {
		data, err = gzipCompress(data)
		if err != nil {
			return fmt.Errorf("compress attachment: %w", err)
		}
	}
	if s.encryptionKey != nil {
		data, err = s.encrypt(data)
		if err != nil {
			return fmt.Errorf("encrypt attachment: %w", err)
		}
	}

	key := s.key(storageRef)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"compressed": fmt.Sprintf("%v", s.compress),
			"encrypted":  fmt.Sprintf("%v", s.encryptionKey != nil),
		},
	})
	if err != nil {
		return fmt.Errorf("upload attachment to s3: %w", err)
	}

	logger.Debug("storage: uploaded attachment", "bucket", s.bucket, "key", key, "bytes", len(data))
	return nil
}

// GetAttachment downloads and reverses compression/encryption for the blob
// at storageRef.
func (s *BlobStorage) GetAttachment(ctx context.Context, storageRef string) ([]byte, error) {
	key := s.key(storageRef)
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download attachment from s3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read attachment body: %w", err)
	}

	if s.encryptionKey != nil {
		data, err = s.decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("decrypt attachment: %w", err)
		}
	}
	if s.compress {
		data, err = gzipDecompress(data)
		if err != nil {
			return nil, fmt.Errorf("decompress attachment: %w", err)
		}
	}

	return data, nil
}

// FetchAttachmentBytes satisfies flagging.ContentSource, letting the
// flagging stage decode inline image dimensions straight out of S3.
func (s *BlobStorage) FetchAttachmentBytes(ctx context.Context, storageRef string) ([]byte, error) {
	return s.GetAttachment(ctx, storageRef)
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

func (s *BlobStorage) encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *BlobStorage) decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
