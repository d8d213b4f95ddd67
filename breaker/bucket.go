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
	"sync"
	"time"
)

// bucket holds counts of successes and failures within one time slice.
type bucket struct {
	succ  uint64
	fail  uint64
	start int64 // bucket start time, unix nano
}

func (b *bucket) clear(startTime int64) {
	b.succ = 0
	b.fail = 0
	b.start = startTime
}

// bucketWindow tracks successes and failures over a rolling time window
// split into a fixed number of buckets.
type bucketWindow struct {
	bucketDur   time.Duration
	num         int
	clock       func() time.Time
	windowNanos int64

	mu         sync.Mutex
	buf        []bucket
	cursor     int
	lastUpdate int64
}

func newBuckets(window time.Duration, n int, clock func() time.Time) *bucketWindow {
	if n < 1 {
		n = 1
	}
	bucketDur := window / time.Duration(n)
	if bucketDur <= 0 {
		bucketDur = time.Nanosecond
	}

	now := clock().UnixNano()
	bw := &bucketWindow{
		bucketDur:   bucketDur,
		num:         n,
		clock:       clock,
		windowNanos: window.Nanoseconds(),
		buf:         make([]bucket, n),
		lastUpdate:  now,
	}
	for i := range bw.buf {
		bw.buf[i].clear(now)
	}
	return bw
}

// advanceLocked rotates the cursor over the buckets that elapsed since the
// last update. Callers must hold bw.mu.
func (bw *bucketWindow) advanceLocked(now int64) {
	if now < bw.lastUpdate+bw.bucketDur.Nanoseconds() {
		return // still within the current bucket
	}

	elapsed := now - bw.lastUpdate
	if elapsed >= bw.windowNanos {
		bw.hardResetLocked(now)
		return
	}

	steps := min(int(elapsed/bw.bucketDur.Nanoseconds()), bw.num-1)
	for i := range steps {
		bw.cursor = (bw.cursor + 1) % bw.num
		bw.buf[bw.cursor].clear(bw.lastUpdate + int64(i+1)*bw.bucketDur.Nanoseconds())
	}
	bw.lastUpdate = now
}

func (bw *bucketWindow) hardResetLocked(now int64) {
	for i := range bw.buf {
		bw.buf[i].clear(now)
	}
	bw.cursor = 0
	bw.lastUpdate = now
}

func (bw *bucketWindow) reset() {
	bw.mu.Lock()
	bw.hardResetLocked(bw.clock().UnixNano())
	bw.mu.Unlock()
}

func (bw *bucketWindow) addSuccess(n uint64) {
	bw.mu.Lock()
	bw.advanceLocked(bw.clock().UnixNano())
	bw.buf[bw.cursor].succ += n
	bw.mu.Unlock()
}

func (bw *bucketWindow) addFailure(n uint64) {
	bw.mu.Lock()
	bw.advanceLocked(bw.clock().UnixNano())
	bw.buf[bw.cursor].fail += n
	bw.mu.Unlock()
}

func (bw *bucketWindow) totals() (succ, fail uint64) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	bw.advanceLocked(bw.clock().UnixNano())
	for i := range bw.num {
		succ += bw.buf[i].succ
		fail += bw.buf[i].fail
	}
	return succ, fail
}

func (bw *bucketWindow) windowBounds() (start, end time.Time) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	now := bw.clock().UnixNano()
	bw.advanceLocked(now)
	return time.Unix(0, now-bw.windowNanos), time.Unix(0, now)
}
