package algorithm

import (
	"context"
	"time"
	"unicode/utf8"
)

// McElieceScale is the ciphertext expansion factor simulated for McEliece.
const McElieceScale = 1.8

// StandIn models the timing and ciphertext size of an algorithm without
// transforming the message. Latency comes from the DelayModel.
type StandIn struct {
	name         string
	meta         Metadata
	encryptDelay time.Duration
	decryptDelay time.Duration
	size         func(chars int) int
	delay        DelayModel
}

// NewKyber returns the Kyber stand-in: 3ms to encrypt, 2ms to decrypt,
// ciphertext of length+100 bytes.
func NewKyber(delay DelayModel) *StandIn {
	return &StandIn{
		name: NameKyber,
		meta: Metadata{
			KeySizeBits:      1536,
			QuantumResistant: true,
			BestUseCase:      "Post-Quantum TLS",
		},
		encryptDelay: 3 * time.Millisecond,
		decryptDelay: 2 * time.Millisecond,
		size:         func(n int) int { return n + 100 },
		delay:        orSleep(delay),
	}
}

// NewMcEliece returns the McEliece stand-in: 5ms to encrypt, 8ms to
// decrypt, ciphertext of length*1.8 bytes under policy.
func NewMcEliece(delay DelayModel, policy SizePolicy) *StandIn {
	return &StandIn{
		name: NameMcEliece,
		meta: Metadata{
			KeySizeBits:      1357824,
			QuantumResistant: true,
			BestUseCase:      "Post-Quantum Secure Messaging",
		},
		encryptDelay: 5 * time.Millisecond,
		decryptDelay: 8 * time.Millisecond,
		size: func(n int) int {
			return policy.Apply(float64(n) * McElieceScale)
		},
		delay: orSleep(delay),
	}
}

// Name implements Adapter.
func (s *StandIn) Name() string { return s.name }

// Metadata implements Adapter.
func (s *StandIn) Metadata() Metadata { return s.meta }

// Run implements Adapter. Message length is counted in characters.
func (s *StandIn) Run(ctx context.Context, message string) (Measurement, error) {
	encStart := time.Now()
	if err := s.delay.Delay(ctx, s.encryptDelay); err != nil {
		return Measurement{}, err
	}

	size := s.size(utf8.RuneCountInString(message))
	encElapsed := time.Since(encStart)

	decStart := time.Now()
	if err := s.delay.Delay(ctx, s.decryptDelay); err != nil {
		return Measurement{}, err
	}

	decElapsed := time.Since(decStart)

	return Measurement{
		Algorithm:      s.name,
		CiphertextSize: size,
		EncryptionTime: seconds(encElapsed),
		DecryptionTime: seconds(decElapsed),
		Metadata:       s.meta,
	}, nil
}

func orSleep(d DelayModel) DelayModel {
	if d == nil {
		return SleepDelay{}
	}

	return d
}
