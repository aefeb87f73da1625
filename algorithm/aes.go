package algorithm

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
	"time"
)

const aesKeyBytes = 16

var errPadding = errors.New("invalid PKCS#7 padding")

// AES benchmarks AES-128 in CBC mode with PKCS#7 padding. Every call
// draws a fresh key and IV from its random source.
type AES struct {
	rand io.Reader
}

// NewAES returns an AES adapter reading key material from random. A nil
// reader means crypto/rand; any other reader is read under a lock.
func NewAES(random io.Reader) *AES {
	return &AES{rand: LockedReader(random)}
}

// Name implements Adapter.
func (a *AES) Name() string { return NameAES }

// Metadata implements Adapter.
func (a *AES) Metadata() Metadata {
	return Metadata{
		KeySizeBits:      aesKeyBytes * 8,
		QuantumResistant: false,
		BestUseCase:      "Bulk Data Encryption",
	}
}

// Run implements Adapter.
func (a *AES) Run(ctx context.Context, message string) (Measurement, error) {
	if err := ctx.Err(); err != nil {
		return Measurement{}, err
	}

	key := make([]byte, aesKeyBytes)
	if _, err := io.ReadFull(a.rand, key); err != nil {
		return Measurement{}, fmt.Errorf("generate key: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(a.rand, iv); err != nil {
		return Measurement{}, fmt.Errorf("generate iv: %w", err)
	}

	plaintext := []byte(message)

	encStart := time.Now()
	ciphertext, err := encryptCBC(key, iv, plaintext)
	encElapsed := time.Since(encStart)

	if err != nil {
		return Measurement{}, fmt.Errorf("encrypt: %w", err)
	}

	decStart := time.Now()
	recovered, err := decryptCBC(key, iv, ciphertext)
	decElapsed := time.Since(decStart)

	if err != nil {
		return Measurement{}, fmt.Errorf("decrypt: %w", err)
	}

	if !bytes.Equal(recovered, plaintext) {
		return Measurement{}, ErrRoundTrip
	}

	return Measurement{
		Algorithm:      NameAES,
		CiphertextSize: len(ciphertext),
		EncryptionTime: seconds(encElapsed),
		DecryptionTime: seconds(decElapsed),
		Metadata:       a.Metadata(),
	}, nil
}

func encryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return out, nil
}

func decryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf(
			"ciphertext length %d is not a multiple of the block size",
			len(ciphertext),
		)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)

	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)

	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errPadding
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errPadding
	}

	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errPadding
		}
	}

	return data[:len(data)-n], nil
}
