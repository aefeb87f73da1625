package corpus

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerateDeterministic(t *testing.T) {
	for _, seed := range []int64{0, 42} {
		cfg := SyntheticConfig{Count: 10, Repeat: 8, Seed: seed}

		var buf1, buf2 bytes.Buffer

		sum1, err := NewGenerator(cfg).Generate(&buf1)
		require.NoError(t, err)

		sum2, err := NewGenerator(cfg).Generate(&buf2)
		require.NoError(t, err)

		assert.Equal(t, buf1.String(), buf2.String(), "seed %d", seed)
		assert.Equal(t, sum1, sum2, "seed %d", seed)
	}
}

func TestSyntheticDefaults(t *testing.T) {
	msgs := NewGenerator(SyntheticConfig{}).Messages()
	require.Len(t, msgs, DefaultLimit)

	want := "This is a test email message " +
		strings.Repeat("test content ", 20) + "0"
	assert.Equal(t, want, msgs[0])
	assert.True(t, strings.HasSuffix(msgs[19], "19"), "last message = %q", msgs[19])
}

func TestSyntheticSeedSpreadsLengths(t *testing.T) {
	msgs := NewGenerator(SyntheticConfig{Count: 50, Repeat: 10, Seed: 7}).Messages()

	counts := make(map[int]bool)

	for _, m := range msgs {
		n := strings.Count(m, "test content ")
		assert.GreaterOrEqual(t, n, 5)
		assert.LessOrEqual(t, n, 15)

		counts[n] = true
	}

	assert.GreaterOrEqual(t, len(counts), 2, "expected seeded corpus to vary message lengths")
}

func TestGenerateLoadRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	gen := NewGenerator(SyntheticConfig{Count: 5, Repeat: 3})

	sum, err := gen.Generate(&buf)
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Messages)
	assert.LessOrEqual(t, sum.MinChars, sum.MaxChars)

	got, err := Load(&buf, "", 0)
	require.NoError(t, err)
	assert.Equal(t, gen.Messages(), got)
}

func TestLoadSkipsBlankAndLimits(t *testing.T) {
	input := "file,message\n" +
		"a.txt,first\n" +
		"b.txt,\n" +
		"c.txt,\"multi\nline\"\n" +
		"d.txt\n" +
		"e.txt,   \n" +
		"f.txt,third\n" +
		"g.txt,fourth\n"

	got, err := Load(strings.NewReader(input), "message", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "multi\nline", "third"}, got)
}

func TestLoadReadErrorNamesRow(t *testing.T) {
	errDisk := errors.New("disk failure")

	// Two blank rows are skipped before the failing read.
	input := io.MultiReader(
		strings.NewReader("file,message\na.txt,first\nb.txt,\nc.txt,   \n"),
		iotest.ErrReader(errDisk),
	)

	_, err := Load(input, "message", 0)
	require.ErrorIs(t, err, errDisk)
	assert.Contains(t, err.Error(), "read row 5")
}

func TestLoadColumnMatching(t *testing.T) {
	input := "\ufeffMessage,other\nhello,x\n"

	got, err := Load(strings.NewReader(input), "message", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, got)
}

func TestLoadMissingColumn(t *testing.T) {
	_, err := Load(strings.NewReader("a,b\n1,2\n"), "message", 0)
	assert.ErrorIs(t, err, ErrNoTextColumn)

	_, err = Load(strings.NewReader(""), "message", 0)
	assert.ErrorIs(t, err, ErrNoTextColumn)
}

func TestResolveFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.csv")
	require.NoError(t, os.WriteFile(path, []byte("message\none\ntwo\n"), 0o644))

	c, err := Resolve(context.Background(), discardLogger(), Config{
		Path:  path,
		Limit: DefaultLimit,
	})
	require.NoError(t, err)

	assert.False(t, c.Synthetic)
	assert.Equal(t, path, c.Source)
	assert.Len(t, c.Messages, 2)
}

func TestResolveFallsBackToSynthetic(t *testing.T) {
	c, err := Resolve(context.Background(), discardLogger(), Config{
		Path:      filepath.Join(t.TempDir(), "missing.csv"),
		Synthetic: SyntheticConfig{Count: 4, Repeat: 2},
	})
	require.NoError(t, err)

	assert.True(t, c.Synthetic)
	assert.Equal(t, SyntheticSource, c.Source)
	assert.Len(t, c.Messages, 4)
}

func TestResolveSyntheticHonoursLimit(t *testing.T) {
	c, err := Resolve(context.Background(), discardLogger(), Config{
		Limit:     3,
		Synthetic: SyntheticConfig{Count: 10},
	})
	require.NoError(t, err)
	require.Len(t, c.Messages, 3)

	assert.True(t, strings.HasSuffix(c.Messages[2], "2"),
		"last message = %q, want the third generated message", c.Messages[2])
}

func TestResolveNoFallback(t *testing.T) {
	_, err := Resolve(context.Background(), discardLogger(), Config{
		Path:       filepath.Join(t.TempDir(), "missing.csv"),
		NoFallback: true,
	})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
