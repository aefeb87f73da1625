package algorithm

import (
	"crypto/rand"
	"io"
	"sync"
)

// lockedReader serializes reads from a source that is not safe for
// concurrent use, such as a seeded *math/rand.Rand.
type lockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

func (l *lockedReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.r.Read(p)
}

// LockedReader returns r guarded by a mutex so adapters sharing it can run
// from several workers. A nil reader means crypto/rand, which needs no
// lock. Wrapping an already locked reader returns it unchanged.
func LockedReader(r io.Reader) io.Reader {
	switch r.(type) {
	case nil:
		return rand.Reader
	case *lockedReader:
		return r
	}

	if r == rand.Reader {
		return r
	}

	return &lockedReader{r: r}
}
