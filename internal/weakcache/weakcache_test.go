// MIT License
//
// Copyright (c) 2024-2026 Gregory Ledenev
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package weakcache

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregory-ledenev/go-class-extension/internal/pause"
)

func TestCachePutGet(t *testing.T) {
	c := New[string, string]()
	value := new(string)
	*value = "hello"

	c.Put("greeting", value)
	got, ok := c.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "hello", *got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
	runtime.KeepAlive(value)
}

func TestCacheGetOrCreate(t *testing.T) {
	c := New[string, int]()
	calls := 0

	supplier := func() (*int, error) {
		calls++
		v := new(int)
		*v = 42
		return v, nil
	}

	first, err := c.GetOrCreate("k", supplier)
	require.NoError(t, err)
	second, err := c.GetOrCreate("k", supplier)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	runtime.KeepAlive(first)
}

func TestCacheGetOrCreateError(t *testing.T) {
	c := New[string, int]()
	boom := errors.New("boom")

	_, err := c.GetOrCreate("k", func() (*int, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	assert.True(t, c.IsEmpty())
}

func TestCacheGetOrCreateSingleCreationUnderConcurrency(t *testing.T) {
	c := New[string, int]()
	var mu sync.Mutex
	created := 0
	var keep []*int

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrCreate("shared", func() (*int, error) {
				mu.Lock()
				created++
				mu.Unlock()
				return new(int), nil
			})
			assert.NoError(t, err)
			mu.Lock()
			keep = append(keep, v)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	runtime.KeepAlive(keep)
}

func TestCacheRemoveAndClear(t *testing.T) {
	c := New[string, int]()
	one, two := new(int), new(int)
	c.Put("a", one)
	c.Put("b", two)

	c.Remove("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	// removing an absent key is a no-op
	c.Remove("a")

	c.Clear()
	assert.True(t, c.IsEmpty())
	runtime.KeepAlive(one)
	runtime.KeepAlive(two)
}

func TestCacheLRUEviction(t *testing.T) {
	c := New[int, int](WithCapacity(MinCapacity))

	values := make([]*int, 0, MinCapacity+1)
	for i := range MinCapacity {
		v := new(int)
		*v = i
		values = append(values, v)
		c.Put(i, v)
	}

	// touch key 0 so key 1 becomes the least recently used
	_, ok := c.Get(0)
	require.True(t, ok)

	overflow := new(int)
	values = append(values, overflow)
	c.Put(MinCapacity, overflow)

	_, ok = c.Get(1)
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get(0)
	assert.True(t, ok)
	assert.Equal(t, MinCapacity, c.Len())
	runtime.KeepAlive(values)
}

func TestCacheLFUEviction(t *testing.T) {
	strategy, err := NewEvictionStrategy(MinCapacity, LFU)
	require.NoError(t, err)
	c := New[int, int](WithEvictionStrategy(strategy))

	values := make([]*int, 0, MinCapacity+1)
	for i := range MinCapacity {
		v := new(int)
		values = append(values, v)
		c.Put(i, v)
	}

	// touch every key except 7 so it stays the least frequently used
	for i := range MinCapacity {
		if i == 7 {
			continue
		}
		_, ok := c.Get(i)
		require.True(t, ok)
	}

	overflow := new(int)
	values = append(values, overflow)
	c.Put(MinCapacity, overflow)

	_, ok := c.Get(7)
	assert.False(t, ok, "least frequently used entry should be evicted")
	_, ok = c.Get(0)
	assert.True(t, ok)
	assert.Equal(t, MinCapacity, c.Len())
	runtime.KeepAlive(values)
}

func TestCacheMRUEviction(t *testing.T) {
	strategy, err := NewEvictionStrategy(MinCapacity, MRU)
	require.NoError(t, err)
	c := New[int, int](WithEvictionStrategy(strategy))

	values := make([]*int, 0, MinCapacity+1)
	for i := range MinCapacity {
		v := new(int)
		values = append(values, v)
		c.Put(i, v)
	}

	// key MinCapacity-1 is the most recently used before the overflow insert
	overflow := new(int)
	values = append(values, overflow)
	c.Put(MinCapacity, overflow)

	_, ok := c.Get(MinCapacity - 1)
	assert.False(t, ok, "most recently used entry should be evicted")
	_, ok = c.Get(0)
	assert.True(t, ok)
	runtime.KeepAlive(values)
}

func TestCacheCleanupPurgesCollectedValues(t *testing.T) {
	c := New[string, string]()

	value := new(string)
	*value = "transient"
	c.Put("k", value)
	require.False(t, c.IsEmpty())

	value = nil
	runtime.GC()
	runtime.GC()

	c.Cleanup()
	assert.True(t, c.IsEmpty())
}

func TestCacheDeadEntryIsAMissOnGet(t *testing.T) {
	c := New[string, string]()

	value := new(string)
	*value = "transient"
	c.Put("k", value)

	value = nil
	runtime.GC()
	runtime.GC()

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.True(t, c.IsEmpty())
}

func TestCacheScheduledCleanup(t *testing.T) {
	c := New[string, string](WithCleanupInterval(50 * time.Millisecond))
	ctx := context.Background()

	value := new(string)
	*value = "transient"
	c.Put("k", value)
	value = nil

	require.NoError(t, c.ScheduleCleanup(ctx))
	// scheduling twice is a no-op
	require.NoError(t, c.ScheduleCleanup(ctx))

	runtime.GC()
	runtime.GC()
	pause.For(200 * time.Millisecond)

	assert.True(t, c.IsEmpty())

	c.ShutdownCleanup(ctx)
	// shutting down twice is a no-op
	c.ShutdownCleanup(ctx)
}

func TestEvictionStrategyValidation(t *testing.T) {
	_, err := NewEvictionStrategy(0, LRU)
	require.Error(t, err)

	_, err = NewEvictionStrategy(10, EvictionPolicy(42))
	require.ErrorIs(t, err, ErrInvalidEvictionPolicy)

	strategy, err := NewEvictionStrategy(500, LFU)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), strategy.Limit())
	assert.Equal(t, LFU, strategy.Policy())
	assert.Equal(t, "EvictionStrategy(limit=500, policy=LFU)", strategy.String())
	assert.Equal(t, "Unknown", fmt.Sprintf("%v", EvictionPolicy(42)))
}
