package algorithm

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// DefaultRSABits is the modulus size, and reported key size, of the hybrid
// adapter when none is configured.
const DefaultRSABits = 2048

const sessionKeyBytes = 32

// AEAD names the authenticated cipher sealing the hybrid payload.
type AEAD string

// Supported payload ciphers.
const (
	AESGCM           AEAD = "aes-gcm"
	ChaCha20Poly1305 AEAD = "chacha20-poly1305"
)

// ParseAEAD validates an AEAD name. Empty selects AES-GCM.
func ParseAEAD(s string) (AEAD, error) {
	switch AEAD(strings.ToLower(strings.TrimSpace(s))) {
	case "", AESGCM:
		return AESGCM, nil
	case ChaCha20Poly1305:
		return ChaCha20Poly1305, nil
	default:
		return "", fmt.Errorf("unknown aead %q", s)
	}
}

func (a AEAD) new(key []byte) (cipher.AEAD, error) {
	switch a {
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}

		return cipher.NewGCM(block)
	}
}

// envelope is a sealed hybrid message. The tag is kept apart from the
// ciphertext so its size can be reported separately.
type envelope struct {
	wrappedKey []byte
	nonce      []byte
	ciphertext []byte
	tag        []byte
}

// Size is the payload ciphertext plus the wrapped session key. Nonce and
// tag are transport overhead and not counted.
func (e *envelope) Size() int {
	return len(e.ciphertext) + len(e.wrappedKey)
}

// Hybrid benchmarks RSA-OAEP key wrapping over an AEAD-sealed payload. A
// fresh RSA keypair and session key are generated on every call.
type Hybrid struct {
	rand    io.Reader
	keyBits int
	aead    AEAD
}

// NewHybrid returns a hybrid adapter. Zero values select crypto/rand,
// 2048-bit keys and AES-GCM. A non-nil random is read under a lock.
func NewHybrid(random io.Reader, keyBits int, aead AEAD) *Hybrid {
	random = LockedReader(random)

	if keyBits <= 0 {
		keyBits = DefaultRSABits
	}

	if aead == "" {
		aead = AESGCM
	}

	return &Hybrid{rand: random, keyBits: keyBits, aead: aead}
}

// Name implements Adapter.
func (h *Hybrid) Name() string { return NameRSA }

// Metadata implements Adapter.
func (h *Hybrid) Metadata() Metadata {
	return Metadata{
		KeySizeBits:      h.keyBits,
		QuantumResistant: false,
		BestUseCase:      "Secure Key Exchange",
	}
}

// Run implements Adapter.
func (h *Hybrid) Run(ctx context.Context, message string) (Measurement, error) {
	if err := ctx.Err(); err != nil {
		return Measurement{}, err
	}

	priv, err := rsa.GenerateKey(h.rand, h.keyBits)
	if err != nil {
		return Measurement{}, fmt.Errorf("generate rsa key: %w", err)
	}

	sessionKey := make([]byte, sessionKeyBytes)
	if _, err := io.ReadFull(h.rand, sessionKey); err != nil {
		return Measurement{}, fmt.Errorf("generate session key: %w", err)
	}

	plaintext := []byte(message)

	encStart := time.Now()
	env, err := sealHybrid(h.rand, &priv.PublicKey, h.aead, sessionKey, plaintext)
	encElapsed := time.Since(encStart)

	if err != nil {
		return Measurement{}, fmt.Errorf("encrypt: %w", err)
	}

	decStart := time.Now()
	recovered, err := openHybrid(priv, h.aead, env)
	decElapsed := time.Since(decStart)

	if err != nil {
		return Measurement{}, fmt.Errorf("decrypt: %w", err)
	}

	if !bytes.Equal(recovered, plaintext) {
		return Measurement{}, ErrRoundTrip
	}

	return Measurement{
		Algorithm:      NameRSA,
		CiphertextSize: env.Size(),
		EncryptionTime: seconds(encElapsed),
		DecryptionTime: seconds(decElapsed),
		Metadata:       h.Metadata(),
	}, nil
}

// oaepCapacity is the largest message RSA-OAEP with SHA-256 can wrap
// under pub.
func oaepCapacity(pub *rsa.PublicKey) int {
	return pub.Size() - 2*sha256.Size - 2
}

func sealHybrid(
	random io.Reader,
	pub *rsa.PublicKey,
	kind AEAD,
	sessionKey, plaintext []byte,
) (*envelope, error) {
	if len(sessionKey) > oaepCapacity(pub) {
		return nil, fmt.Errorf("%w: %d > %d bytes",
			ErrMessageTooLong, len(sessionKey), oaepCapacity(pub))
	}

	aead, err := kind.new(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", kind, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(random, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - aead.Overhead()

	wrapped, err := rsa.EncryptOAEP(sha256.New(), random, pub, sessionKey, nil)
	if err != nil {
		return nil, fmt.Errorf("wrap session key: %w", err)
	}

	return &envelope{
		wrappedKey: wrapped,
		nonce:      nonce,
		ciphertext: sealed[:split],
		tag:        sealed[split:],
	}, nil
}

func openHybrid(priv *rsa.PrivateKey, kind AEAD, env *envelope) ([]byte, error) {
	sessionKey, err := rsa.DecryptOAEP(sha256.New(), nil, priv, env.wrappedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap session key: %w", err)
	}

	aead, err := kind.new(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", kind, err)
	}

	sealed := make([]byte, 0, len(env.ciphertext)+len(env.tag))
	sealed = append(sealed, env.ciphertext...)
	sealed = append(sealed, env.tag...)

	plaintext, err := aead.Open(nil, env.nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}

	return plaintext, nil
}
