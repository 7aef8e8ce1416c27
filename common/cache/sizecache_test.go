package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*SizeCache, *time.Time) {
	t.Helper()
	c, err := New(DefaultTTL, DefaultCapacity)
	require.NoError(t, err)
	now := time.Now()
	c.now = func() time.Time { return now }
	return c, &now
}

func TestNewValidation(t *testing.T) {
	_, err := New(0, 100)
	assert.Error(t, err)
	_, err = New(time.Second, 0)
	assert.Error(t, err)
	_, err = New(time.Second, 10)
	assert.NoError(t, err)
}

func TestGetHonorsTTL(t *testing.T) {
	c, now := newTestCache(t)
	c.Put("chan", 1024)

	*now = now.Add(299 * time.Second)
	v, ok := c.Get("chan")
	assert.True(t, ok)
	assert.Equal(t, int64(1024), v)

	*now = now.Add(2 * time.Second) // 301s after insert
	_, ok = c.Get("chan")
	assert.False(t, ok, "expired entry must be a miss")
}

func TestPutRefreshesAge(t *testing.T) {
	c, now := newTestCache(t)
	c.Put("chan", 1)
	*now = now.Add(250 * time.Second)
	c.Put("chan", 2)
	*now = now.Add(250 * time.Second)

	v, ok := c.Get("chan")
	assert.True(t, ok)
	assert.Equal(t, int64(2), v)
}

func TestBulkEvictionDropsOldestHalf(t *testing.T) {
	c, now := newTestCache(t)
	for i := 0; i <= 100; i++ {
		c.Put(fmt.Sprintf("key-%03d", i), int64(i))
		*now = now.Add(time.Millisecond)
	}

	assert.Equal(t, 51, c.Len())
	for i := 0; i < 50; i++ {
		_, ok := c.Get(fmt.Sprintf("key-%03d", i))
		assert.False(t, ok, "key-%03d should have been evicted", i)
	}
	for i := 50; i <= 100; i++ {
		_, ok := c.Get(fmt.Sprintf("key-%03d", i))
		assert.True(t, ok, "key-%03d should have survived", i)
	}
}

func TestFetchPopulatesOnMiss(t *testing.T) {
	c, _ := newTestCache(t)
	var lookups atomic.Int32

	v, err := c.Fetch(context.Background(), "chan", func(context.Context) (int64, error) {
		lookups.Add(1)
		return 2048, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2048), v)

	v, err = c.Fetch(context.Background(), "chan", func(context.Context) (int64, error) {
		lookups.Add(1)
		return 0, errors.New("should not be called")
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2048), v)
	assert.Equal(t, int32(1), lookups.Load())
}

func TestFetchErrorIsNotCached(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Fetch(context.Background(), "chan", func(context.Context) (int64, error) {
		return 0, errors.New("lookup failed")
	})
	require.Error(t, err)

	v, err := c.Fetch(context.Background(), "chan", func(context.Context) (int64, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestFetchDeduplicatesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache(t)
	var lookups atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Fetch(context.Background(), "chan", func(context.Context) (int64, error) {
				lookups.Add(1)
				<-release
				return 99, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, int64(99), v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, lookups.Load(), int32(2), "concurrent misses collapse into singleflight")
}
