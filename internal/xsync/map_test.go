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

package xsync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSetGet(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("answer", 42)

	got, ok := m.Get("answer")
	require.True(t, ok)
	assert.Equal(t, 42, got)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestMapSetIfAbsent(t *testing.T) {
	m := NewMap[string, int]()

	got, stored := m.SetIfAbsent("k", 1)
	require.True(t, stored)
	assert.Equal(t, 1, got)

	got, stored = m.SetIfAbsent("k", 2)
	require.False(t, stored)
	assert.Equal(t, 1, got)
}

func TestMapDelete(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("k", 1)
	m.Delete("k")

	_, ok := m.Get("k")
	assert.False(t, ok)

	// deleting an absent key is a no-op
	m.Delete("k")
	assert.Zero(t, m.Len())
}

func TestMapClearAndKeys(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)

	assert.ElementsMatch(t, []string{"a", "b"}, m.Keys())

	m.Clear()
	assert.Zero(t, m.Len())
	assert.Empty(t, m.Keys())
}

func TestMapRange(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)

	sum := 0
	m.Range(func(_ string, v int) {
		sum += v
	})
	assert.Equal(t, 3, sum)
}

func TestMapConcurrentAccess(t *testing.T) {
	m := NewMap[int, int]()
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			m.Set(n, n)
			_, _ = m.Get(n)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, m.Len())
}
