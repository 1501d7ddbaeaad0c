package revocation

import (
	"hash/fnv"
	"math/rand"
	"sync"

	"github.com/oid4vc/vclib/internal/vcerrors"
)

// List is an issuer's revocation-index bookkeeping for one time period: a
// bitstring of revoked indices plus a pseudorandom, collision-free
// allocation order over that period (spec.md §4.3 and §9's "strengthening"
// of sequential allocation into pseudorandom allocation).
type List struct {
	mu          sync.Mutex
	bitstring   *Bitstring
	timePeriod  string
	permutation []int
	cursor      int
}

// NewList creates a List for timePeriod with a Fisher-Yates-shuffled
// allocation order, seeded deterministically from timePeriod so that
// re-deriving the same period's List (e.g. after a restart, given the same
// issued-count bookkeeping) reproduces the same allocation sequence.
func NewList(size int, timePeriod string) *List {
	bitstring := NewBitstring(size)
	permutation := shuffledIndices(bitstring.Len(), periodSeed(timePeriod))
	return &List{bitstring: bitstring, timePeriod: timePeriod, permutation: permutation}
}

// DecodeList reconstructs a read-only List from a previously encoded
// bitstring, for holders and verifiers that only need IsRevoked.
// AllocateIndex on a decoded List always returns ErrIndexSpaceExhausted;
// only the issuing side allocates.
func DecodeList(encoded, timePeriod string) (*List, error) {
	bitstring, err := DecodeBitstring(encoded)
	if err != nil {
		return nil, err
	}
	return &List{bitstring: bitstring, timePeriod: timePeriod, cursor: -1}, nil
}

func periodSeed(timePeriod string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(timePeriod))
	return int64(h.Sum64())
}

func shuffledIndices(n int, seed int64) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
	return indices
}

// TimePeriod returns the period identifier this list was built for.
func (l *List) TimePeriod() string { return l.timePeriod }

// AllocateIndex returns the next unused index in this period's
// pseudorandom allocation order. Returns vcerrors.ErrIndexSpaceExhausted
// once the period's index space is exhausted.
func (l *List) AllocateIndex() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cursor < 0 || l.cursor >= len(l.permutation) {
		return 0, vcerrors.ErrIndexSpaceExhausted
	}
	index := l.permutation[l.cursor]
	l.cursor++
	return index, nil
}

// Revoke sets the bit at index, atomically at the bitstring-word level.
func (l *List) Revoke(index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bitstring.Set(index)
}

// IsRevoked reports whether index is set.
func (l *List) IsRevoked(index int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bitstring.IsSet(index)
}

// Encode renders the current bitstring.
func (l *List) Encode() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bitstring.Encode()
}

// Len returns the bitstring length in bits.
func (l *List) Len() int {
	return l.bitstring.Len()
}
