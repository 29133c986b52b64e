package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, (&Config{Workers: 0}).Validate())
	assert.Error(t, (&Config{Workers: -3}).Validate())
}

func TestPool_Submit(t *testing.T) {
	pool, err := New(&Config{Workers: 4}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Shutdown()

	var counter int64
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			atomic.AddInt64(&counter, 1)
		})
		require.NoError(t, err)
	}

	wg.Wait()
	assert.Equal(t, int64(20), atomic.LoadInt64(&counter))

	stats := pool.Stats()
	assert.Equal(t, int64(20), stats.Submitted)
}

func TestPool_SubmitWait(t *testing.T) {
	pool, err := New(&Config{Workers: 2}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Shutdown()

	ran := false
	done, err := pool.SubmitWait(func() {
		ran = true
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task did not complete in time")
	}
	assert.True(t, ran)
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool, err := New(&Config{Workers: 2}, zap.NewNop())
	require.NoError(t, err)

	pool.Shutdown()

	err = pool.Submit(func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}
