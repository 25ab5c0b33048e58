package service

import (
	"context"
	"sync"
	"testing"

	"github.com/calderasec/keyturn/internal/tokens/domain"
	"github.com/stretchr/testify/require"
)

// Concurrent replay of one refresh token: at most one caller may win the
// rotation; everyone else must observe the token as consumed.
func TestConcurrentRotationSingleWinner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st, _ := newTestService(t)
	owner := createPrincipal(t, st, true)

	issued, err := svc.IssueRefreshToken(ctx, owner.ID)
	require.NoError(t, err)

	const callers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := svc.RotateOnRefresh(ctx, issued.Token)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else {
				failures = append(failures, err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes, "exactly one rotation may win")
	require.Len(t, failures, callers-1)
	for _, err := range failures {
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	}

	// The presented token ended up revoked no matter who won.
	rec, err := st.RefreshTokens().GetRefreshTokenByID(ctx, issued.ID)
	require.NoError(t, err)
	require.True(t, rec.Revoked)
}
