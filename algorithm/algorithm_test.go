package algorithm

import (
	"context"
	"crypto/aes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	mrand "math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDelay struct {
	calls []time.Duration
}

func (r *recordingDelay) Delay(ctx context.Context, d time.Duration) error {
	r.calls = append(r.calls, d)

	return ctx.Err()
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestAESRoundTrip(t *testing.T) {
	inputs := map[string]string{
		"empty":       "",
		"short":       "hello",
		"block":       strings.Repeat("a", aes.BlockSize),
		"multi-block": strings.Repeat("multi block input ", 20),
		"unicode":     "héllo wörld ✓",
	}

	for name, msg := range inputs {
		t.Run(name, func(t *testing.T) {
			key := make([]byte, aesKeyBytes)
			iv := make([]byte, aes.BlockSize)
			_, err := rand.Read(key)
			require.NoError(t, err)
			_, err = rand.Read(iv)
			require.NoError(t, err)

			ct, err := encryptCBC(key, iv, []byte(msg))
			require.NoError(t, err)
			assert.Zero(t, len(ct)%aes.BlockSize)
			assert.Greater(t, len(ct), len(msg))

			pt, err := decryptCBC(key, iv, ct)
			require.NoError(t, err)
			assert.Equal(t, []byte(msg), pt)
		})
	}
}

func TestAESRun(t *testing.T) {
	a := NewAES(mrand.New(mrand.NewSource(7)))

	m, err := a.Run(context.Background(), strings.Repeat("x", 40))
	require.NoError(t, err)

	assert.Equal(t, NameAES, m.Algorithm)
	assert.Equal(t, 48, m.CiphertextSize)
	assert.Equal(t, 128, m.KeySizeBits)
	assert.False(t, m.QuantumResistant)
	assert.Equal(t, "Bulk Data Encryption", m.BestUseCase)
	assert.GreaterOrEqual(t, m.EncryptionTime, 0.0)
	assert.GreaterOrEqual(t, m.DecryptionTime, 0.0)
}

func TestAESRunEmptyMessage(t *testing.T) {
	m, err := NewAES(nil).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, aes.BlockSize, m.CiphertextSize)
}

func TestAESRunRandomFailure(t *testing.T) {
	_, err := NewAES(failingReader{}).Run(context.Background(), "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate key")
}

func TestAESDecryptWrongKey(t *testing.T) {
	key := make([]byte, aesKeyBytes)
	iv := make([]byte, aes.BlockSize)

	ct, err := encryptCBC(key, iv, []byte("attack at dawn"))
	require.NoError(t, err)

	wrong := make([]byte, aesKeyBytes)
	wrong[0] = 1

	pt, err := decryptCBC(wrong, iv, ct)
	if err == nil {
		assert.NotEqual(t, []byte("attack at dawn"), pt)
	}
}

func TestPKCS7UnpadRejectsBadPadding(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not block aligned", []byte{1, 2, 3}},
		{"zero pad", append(make([]byte, 15), 0)},
		{"pad too large", append(make([]byte, 15), 17)},
		{"inconsistent", append(append(make([]byte, 13), 1, 2), 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pkcs7Unpad(tt.data, aes.BlockSize)
			assert.ErrorIs(t, err, errPadding)
		})
	}
}

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, DefaultRSABits)
	require.NoError(t, err)

	return priv
}

func TestHybridRoundTrip(t *testing.T) {
	priv := testRSAKey(t)

	for _, kind := range []AEAD{AESGCM, ChaCha20Poly1305} {
		t.Run(string(kind), func(t *testing.T) {
			key := make([]byte, sessionKeyBytes)
			_, err := rand.Read(key)
			require.NoError(t, err)

			msg := []byte(strings.Repeat("confidential ", 30))

			env, err := sealHybrid(rand.Reader, &priv.PublicKey, kind, key, msg)
			require.NoError(t, err)
			assert.Len(t, env.ciphertext, len(msg))
			assert.Len(t, env.wrappedKey, priv.Size())
			assert.Equal(t, len(msg)+priv.Size(), env.Size())

			pt, err := openHybrid(priv, kind, env)
			require.NoError(t, err)
			assert.Equal(t, msg, pt)
		})
	}
}

func TestHybridCorruptedTag(t *testing.T) {
	priv := testRSAKey(t)
	key := make([]byte, sessionKeyBytes)

	env, err := sealHybrid(rand.Reader, &priv.PublicKey, AESGCM, key, []byte("payload"))
	require.NoError(t, err)

	env.tag[0] ^= 0xff

	_, err = openHybrid(priv, AESGCM, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open payload")
}

func TestHybridWrongPrivateKey(t *testing.T) {
	priv := testRSAKey(t)
	other := testRSAKey(t)
	key := make([]byte, sessionKeyBytes)

	env, err := sealHybrid(rand.Reader, &priv.PublicKey, AESGCM, key, []byte("payload"))
	require.NoError(t, err)

	_, err = openHybrid(other, AESGCM, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unwrap session key")
}

func TestHybridSessionKeyTooLarge(t *testing.T) {
	priv := testRSAKey(t)
	key := make([]byte, oaepCapacity(&priv.PublicKey)+1)

	_, err := sealHybrid(rand.Reader, &priv.PublicKey, AESGCM, key, []byte("x"))
	assert.ErrorIs(t, err, ErrMessageTooLong)
}

func TestHybridRun(t *testing.T) {
	h := NewHybrid(nil, 0, "")

	m, err := h.Run(context.Background(), "hello hybrid")
	require.NoError(t, err)

	assert.Equal(t, NameRSA, m.Algorithm)
	assert.Equal(t, 2048, m.KeySizeBits)
	assert.Equal(t, "Secure Key Exchange", m.BestUseCase)
	assert.Equal(t, len("hello hybrid")+256, m.CiphertextSize)
}

func TestHybridRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHybrid(nil, 0, "").Run(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseAEAD(t *testing.T) {
	got, err := ParseAEAD("")
	require.NoError(t, err)
	assert.Equal(t, AESGCM, got)

	got, err = ParseAEAD("ChaCha20-Poly1305")
	require.NoError(t, err)
	assert.Equal(t, ChaCha20Poly1305, got)

	_, err = ParseAEAD("rot13")
	assert.Error(t, err)
}

func TestKyberSize(t *testing.T) {
	delay := &recordingDelay{}
	k := NewKyber(delay)

	for _, n := range []int{0, 10, 50, 200} {
		m, err := k.Run(context.Background(), strings.Repeat("k", n))
		require.NoError(t, err)
		assert.Equal(t, n+100, m.CiphertextSize)
		assert.True(t, m.QuantumResistant)
		assert.Equal(t, 1536, m.KeySizeBits)
	}

	require.Len(t, delay.calls, 8)
	assert.Equal(t, 3*time.Millisecond, delay.calls[0])
	assert.Equal(t, 2*time.Millisecond, delay.calls[1])
}

func TestMcElieceSizePolicy(t *testing.T) {
	tests := []struct {
		chars  int
		policy SizePolicy
		want   int
	}{
		{0, RoundNearest, 0},
		{1, RoundNearest, 2},
		{1, Truncate, 1},
		{3, RoundNearest, 5},
		{3, Truncate, 5},
		{10, RoundNearest, 18},
		{50, RoundNearest, 90},
		{123, RoundNearest, 221},
		{123, Truncate, 221},
		{7, RoundNearest, 13},
		{7, Truncate, 12},
	}

	for _, tt := range tests {
		m, err := NewMcEliece(NoDelay{}, tt.policy).Run(
			context.Background(), strings.Repeat("m", tt.chars),
		)
		require.NoError(t, err)
		assert.Equal(t, tt.want, m.CiphertextSize,
			"chars=%d policy=%s", tt.chars, tt.policy)
	}
}

func TestStandInCountsCharacters(t *testing.T) {
	m, err := NewKyber(NoDelay{}).Run(context.Background(), "ééé")
	require.NoError(t, err)
	assert.Equal(t, 103, m.CiphertextSize)
}

func TestStandInDelays(t *testing.T) {
	delay := &recordingDelay{}

	_, err := NewMcEliece(delay, RoundNearest).Run(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t,
		[]time.Duration{5 * time.Millisecond, 8 * time.Millisecond},
		delay.calls,
	)
}

func TestSleepDelayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SleepDelay{}.Delay(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepDelayWaits(t *testing.T) {
	start := time.Now()
	require.NoError(t, SleepDelay{}.Delay(context.Background(), 2*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Millisecond)
}

func TestParseSizePolicy(t *testing.T) {
	p, err := ParseSizePolicy("truncate")
	require.NoError(t, err)
	assert.Equal(t, Truncate, p)

	p, err = ParseSizePolicy("")
	require.NoError(t, err)
	assert.Equal(t, RoundNearest, p)

	_, err = ParseSizePolicy("ceil")
	assert.Error(t, err)
}

func TestDefaultsOrder(t *testing.T) {
	adapters := Defaults(Options{Delay: NoDelay{}})

	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Name()
	}

	assert.Equal(t, KnownAlgorithms(), names)
}

func TestDefaultsRSAKeySize(t *testing.T) {
	rsaBits := func(opts Options) int {
		got, err := Select([]string{NameRSA}, Defaults(opts))
		require.NoError(t, err)

		return got[0].Metadata().KeySizeBits
	}

	assert.Equal(t, DefaultRSABits, rsaBits(Options{}))
	assert.Equal(t, 3072, rsaBits(Options{RSABits: 3072}))
}

func TestLockedReader(t *testing.T) {
	assert.Equal(t, rand.Reader, LockedReader(nil))
	assert.Equal(t, rand.Reader, LockedReader(rand.Reader))

	seeded := LockedReader(mrand.New(mrand.NewSource(3)))
	assert.IsType(t, &lockedReader{}, seeded)
	assert.Same(t, seeded, LockedReader(seeded))

	// The lock does not change the stream.
	want := make([]byte, 32)
	_, err := mrand.New(mrand.NewSource(3)).Read(want)
	require.NoError(t, err)

	got := make([]byte, 32)
	_, err = seeded.Read(got)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAESConcurrentSeededSource(t *testing.T) {
	a := NewAES(mrand.New(mrand.NewSource(11)))

	var wg sync.WaitGroup

	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			_, errs[i] = a.Run(context.Background(), strings.Repeat("c", i*5))
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestSelect(t *testing.T) {
	all := Defaults(Options{Delay: NoDelay{}})

	got, err := Select([]string{"mceliece", "aes"}, all)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, NameAES, got[0].Name())
	assert.Equal(t, NameMcEliece, got[1].Name())

	got, err = Select(nil, all)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	_, err = Select([]string{"aes", "blowfish"}, all)
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
	assert.Contains(t, err.Error(), "blowfish")
}
