package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	l := NewMemoryLimiter(3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		require.True(t, res.Allowed, "hit %d should be allowed", i+1)
	}

	res, err := l.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	require.False(t, res.Allowed, "fourth hit should be rejected")
	require.Greater(t, res.RetryAfter, time.Duration(0))

	// Otra key no comparte la ventana.
	other, err := l.Allow(ctx, "ip:5.6.7.8")
	require.NoError(t, err)
	require.True(t, other.Allowed)
}
