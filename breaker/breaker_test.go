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

package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregory-ledenev/go-class-extension/internal/pause"
)

func TestBreakerAllowsAndBlocks(t *testing.T) {
	b := New(
		WithFailureRate(0.5),
		WithMinRequests(2),
		WithOpenTimeout(50*time.Millisecond),
		WithWindow(100*time.Millisecond, 2),
		WithHalfOpenMaxCalls(1),
	)

	// initially closed: should allow
	require.True(t, b.TryAllow())

	// two failures exceed the failure rate
	b.OnFailure()
	b.OnFailure()
	require.Equal(t, Open, b.State())
	require.False(t, b.TryAllow())

	// wait for the open timeout to expire
	pause.For(60 * time.Millisecond)
	require.True(t, b.TryAllow())
	require.Equal(t, HalfOpen, b.State())

	// a single success is not enough (minRequests=2)
	b.OnSuccess()
	require.Equal(t, HalfOpen, b.State())

	b.OnSuccess()
	require.Equal(t, Closed, b.State())
}

func TestBreakerExecuteSuccess(t *testing.T) {
	b := New()
	res, err := b.Execute(context.Background(), func(context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", res)
}

func TestBreakerExecuteFailurePropagates(t *testing.T) {
	b := New()
	boom := errors.New("boom")
	_, err := b.Execute(context.Background(), func(context.Context) (any, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1), b.Metrics().Failures)
}

func TestBreakerOpenUsesFallback(t *testing.T) {
	b := New(
		WithFailureRate(0.5),
		WithMinRequests(1),
		WithOpenTimeout(time.Minute),
	)
	b.OnFailure()
	require.Equal(t, Open, b.State())

	res, err := b.Execute(context.Background(),
		func(context.Context) (any, error) { return "never", nil },
		func(_ context.Context, cause error) (any, error) {
			require.ErrorIs(t, cause, ErrOpen)
			return "fallback", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "fallback", res)
}

func TestBreakerOpenWithoutFallback(t *testing.T) {
	b := New(WithFailureRate(0.5), WithMinRequests(1), WithOpenTimeout(time.Minute))
	b.OnFailure()

	_, err := b.Run(func() (any, error) { return "never", nil })
	require.ErrorIs(t, err, ErrOpen)
}

func TestBreakerHalfOpenProbeBudget(t *testing.T) {
	b := New(
		WithFailureRate(0.5),
		WithMinRequests(1),
		WithOpenTimeout(10*time.Millisecond),
		WithHalfOpenMaxCalls(1),
	)
	b.OnFailure()
	require.Equal(t, Open, b.State())

	pause.For(20 * time.Millisecond)
	require.True(t, b.TryAllow())
	// second concurrent probe exceeds the half-open budget
	require.False(t, b.TryAllow())
}

func TestBreakerMetrics(t *testing.T) {
	b := New(WithMinRequests(100))
	b.OnSuccess()
	b.OnSuccess()
	b.OnFailure()

	m := b.Metrics()
	assert.Equal(t, uint64(2), m.Successes)
	assert.Equal(t, uint64(1), m.Failures)
	assert.Equal(t, uint64(3), m.Total)
	assert.InDelta(t, 1.0/3.0, m.FailureRate, 0.001)
	assert.Contains(t, m.String(), "state=Closed")
}

func TestBreakerOptionValidation(t *testing.T) {
	_, err := NewWithValidation(WithFailureRate(1.5))
	require.Error(t, err)

	_, err = NewWithValidation(WithWindow(-time.Second, 4))
	require.Error(t, err)

	b, err := NewWithValidation()
	require.NoError(t, err)
	require.NotNil(t, b)
}
