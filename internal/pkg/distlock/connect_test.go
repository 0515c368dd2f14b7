package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	b, err := Connect(context.Background(), "redis://"+mr.Addr(), "")
	require.NoError(t, err)
	defer b.Close()

	require.NotNil(t, b.Redis)
	assert.Nil(t, b.DB)
	assert.IsType(t, &RedisLock{}, b.Lock("watchlist", time.Minute))
}

func TestConnect_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), "redis://"+addr, "")
	assert.Error(t, err)
}

func TestConnect_Nothing(t *testing.T) {
	b, err := Connect(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, Noop{}, b.Lock("watchlist", time.Minute))

	var nilBackends *Backends
	assert.Equal(t, Noop{}, nilBackends.Lock("watchlist", time.Minute))
	nilBackends.Close()
}

func TestWithConnectTimeout(t *testing.T) {
	assert.Equal(t, "postgres://u@h/db?connect_timeout=5", withConnectTimeout("postgres://u@h/db"))
	assert.Equal(t, "postgres://u@h/db?sslmode=disable&connect_timeout=5", withConnectTimeout("postgres://u@h/db?sslmode=disable"))
	assert.Equal(t, "postgres://u@h/db?connect_timeout=9", withConnectTimeout("postgres://u@h/db?connect_timeout=9"))
}
