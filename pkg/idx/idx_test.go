package idx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewIsUniqueAndOrdered(t *testing.T) {
	t.Parallel()

	seen := make(map[ID]struct{})
	var prev ID
	for i := 0; i < 1000; i++ {
		id := New()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}

		if prev != Zero {
			require.LessOrEqual(t, prev.String(), id.String())
		}
		prev = id
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	id := New()
	parsed, err := Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = Parse("")
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Parse("not-a-ulid")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestTimeRoundTrip(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.January, 15, 9, 30, 0, 0, time.UTC)
	id := NewAt(at)
	require.WithinDuration(t, at, id.Time(), time.Millisecond)
}
