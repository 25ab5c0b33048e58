// Package idx generates lexicographically sortable record identifiers backed
// by ULIDs. Sorting by id therefore sorts by creation time, which keeps audit
// queries cheap without a separate index.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

// Zero is the zero-value ID; only useful as a placeholder.
const Zero ID = ""

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

var (
	once   sync.Once
	global *generator
)

// generator produces ULIDs concurrently from a single monotonic entropy
// source, so ids minted within the same millisecond still sort in mint order.
type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *generator) newAt(t time.Time) ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ID(ulid.MustNew(ulid.Timestamp(t), g.entropy).String())
}

func initGlobal() {
	global = &generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns a fresh ID stamped with the current UTC time.
func New() ID {
	once.Do(initGlobal)
	return global.newAt(time.Now().UTC())
}

// NewAt returns a fresh ID stamped with the given time. Useful in tests and
// for constructing time-bounded cursors.
func NewAt(t time.Time) ID {
	once.Do(initGlobal)
	return global.newAt(t)
}

// Parse validates s as a canonical ULID and returns it as an ID.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return Zero, ErrInvalid
	}
	return ID(s), nil
}

// MustParse parses or panics. For hard-coded IDs in tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == Zero }

// String returns the canonical string form.
func (id ID) String() string { return string(id) }

// Time extracts the embedded UTC timestamp, or the zero time for invalid ids.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(id.String())
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}
