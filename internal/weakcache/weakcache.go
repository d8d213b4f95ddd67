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

// Package weakcache implements a bounded, thread-safe cache whose values
// are weakly referenced: an entry whose value has been garbage-collected is
// purged on access, by Cleanup, or by a scheduled background sweep. Keys are
// held strongly; only values are weak.
package weakcache

import (
	"container/list"
	"context"
	"sync"
	"time"
	"weak"

	"github.com/reugn/go-quartz/job"
	quartzlogger "github.com/reugn/go-quartz/logger"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/atomic"
)

// entry is one cache slot. The recency list element's Value points back to
// the entry.
type entry[K comparable, V any] struct {
	key  K
	ref  weak.Pointer[V]
	hits uint64
}

// Cache maps keys to weakly-held values with bounded capacity. All
// operations are safe for concurrent use; a single mutex guards the backing
// map, which is acceptable since correctness dominates contention here.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*list.Element
	order   *list.List // front = most recently used
	opts    *options

	schedMu   sync.Mutex
	scheduler quartz.Scheduler
	scheduled *atomic.Bool
}

// New creates a cache with the given options.
func New[K comparable, V any](opts ...Option) *Cache[K, V] {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}
	o.sanitize()
	return &Cache[K, V]{
		entries:   make(map[K]*list.Element),
		order:     list.New(),
		opts:      o,
		scheduled: atomic.NewBool(false),
	}
}

// Get returns the live value for key. A dead entry (value collected) is
// purged and reported as a miss. A hit refreshes the entry's recency.
func (c *Cache[K, V]) Get(key K) (*V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

// Put stores value under key, refreshing recency and evicting per policy
// when the cache exceeds its capacity.
func (c *Cache[K, V]) Put(key K, value *V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, value)
}

// GetOrCreate returns the live value for key, invoking supplier to create
// and store it when absent. Creation is atomic with respect to concurrent
// callers using the same key: the supplier runs at most once per missing
// key at a time, under the cache lock.
func (c *Cache[K, V]) GetOrCreate(key K, supplier func() (*V, error)) (*V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value, ok := c.getLocked(key); ok {
		return value, nil
	}
	value, err := supplier()
	if err != nil {
		return nil, err
	}
	c.putLocked(key, value)
	return value, nil
}

// Remove drops the entry for key if present.
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*list.Element)
	c.order.Init()
}

// Cleanup synchronously purges entries whose value has been collected.
func (c *Cache[K, V]) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var next *list.Element
	for elem := c.order.Front(); elem != nil; elem = next {
		next = elem.Next()
		if elem.Value.(*entry[K, V]).ref.Value() == nil {
			c.removeLocked(elem)
		}
	}
}

// IsEmpty reports whether the cache holds no entries.
func (c *Cache[K, V]) IsEmpty() bool {
	return c.Len() == 0
}

// Len returns the number of entries currently held, dead or alive.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ScheduleCleanup starts a periodic background sweep on a dedicated worker.
// It is idempotent: a second call while scheduled is a no-op.
func (c *Cache[K, V]) ScheduleCleanup(ctx context.Context) error {
	c.schedMu.Lock()
	defer c.schedMu.Unlock()
	if c.scheduled.Load() {
		return nil
	}

	scheduler, err := quartz.NewStdScheduler(
		quartz.WithLogger(quartzlogger.NewSimpleLogger(nil, quartzlogger.LevelOff)))
	if err != nil {
		return err
	}

	sweep := job.NewFunctionJob[bool](func(context.Context) (bool, error) {
		c.Cleanup()
		return true, nil
	})
	detail := quartz.NewJobDetail(sweep, quartz.NewJobKey("weakcache-cleanup"))

	scheduler.Start(ctx)
	if err := scheduler.ScheduleJob(detail, quartz.NewSimpleTrigger(c.opts.cleanupInterval)); err != nil {
		scheduler.Stop()
		return err
	}

	c.scheduler = scheduler
	c.scheduled.Store(true)
	return nil
}

// ShutdownCleanup stops the background sweep worker. It is idempotent and
// safe to call without a prior ScheduleCleanup.
func (c *Cache[K, V]) ShutdownCleanup(ctx context.Context) {
	c.schedMu.Lock()
	defer c.schedMu.Unlock()
	if !c.scheduled.Load() {
		return
	}
	_ = c.scheduler.Clear()
	c.scheduler.Stop()

	ctx, cancel := context.WithTimeout(ctx, c.opts.stopTimeout)
	defer cancel()
	c.scheduler.Wait(ctx)

	c.scheduler = nil
	c.scheduled.Store(false)
}

// getLocked implements Get. Callers must hold c.mu.
func (c *Cache[K, V]) getLocked(key K) (*V, bool) {
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	ent := elem.Value.(*entry[K, V])
	value := ent.ref.Value()
	if value == nil {
		c.removeLocked(elem)
		return nil, false
	}
	ent.hits++
	c.order.MoveToFront(elem)
	return value, true
}

// putLocked implements Put. Callers must hold c.mu.
func (c *Cache[K, V]) putLocked(key K, value *V) {
	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry[K, V])
		ent.ref = weak.Make(value)
		ent.hits++
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&entry[K, V]{key: key, ref: weak.Make(value)})
	c.entries[key] = elem

	if len(c.entries) > c.opts.capacity {
		c.evictLocked(elem)
	}
}

// evictLocked discards one entry per the configured policy. The freshly
// inserted element is never the victim.
func (c *Cache[K, V]) evictLocked(inserted *list.Element) {
	var victim *list.Element
	switch c.opts.policy {
	case MRU:
		victim = inserted.Next()
	case LFU:
		var minHits uint64
		for elem := c.order.Front(); elem != nil; elem = elem.Next() {
			if elem == inserted {
				continue
			}
			ent := elem.Value.(*entry[K, V])
			if victim == nil || ent.hits < minHits {
				victim = elem
				minHits = ent.hits
			}
		}
	default: // LRU
		victim = c.order.Back()
	}
	if victim != nil && victim != inserted {
		c.removeLocked(victim)
	}
}

func (c *Cache[K, V]) removeLocked(elem *list.Element) {
	ent := elem.Value.(*entry[K, V])
	delete(c.entries, ent.key)
	c.order.Remove(elem)
}

// options configures the cache.
type options struct {
	capacity        int
	policy          EvictionPolicy
	cleanupInterval time.Duration
	stopTimeout     time.Duration
}

// Option configures one cache setting.
type Option func(*options)

const (
	// DefaultCapacity is the entry limit used when none is configured.
	DefaultCapacity = 1000
	// MinCapacity is the smallest settable entry limit; lower values are
	// raised to it.
	MinCapacity = 100
	// DefaultCleanupInterval is the period of the scheduled sweep.
	DefaultCleanupInterval = time.Minute
)

// WithCapacity sets the entry limit. Values below MinCapacity are raised
// to MinCapacity.
func WithCapacity(capacity int) Option {
	return func(o *options) { o.capacity = capacity }
}

// WithEvictionStrategy applies the strategy's limit and policy.
func WithEvictionStrategy(strategy *EvictionStrategy) Option {
	return func(o *options) {
		o.capacity = int(strategy.Limit())
		o.policy = strategy.Policy()
	}
}

// WithCleanupInterval sets the period of the scheduled background sweep.
func WithCleanupInterval(interval time.Duration) Option {
	return func(o *options) { o.cleanupInterval = interval }
}

func defaultOptions() *options {
	return &options{
		capacity:        DefaultCapacity,
		policy:          LRU,
		cleanupInterval: DefaultCleanupInterval,
		stopTimeout:     3 * time.Second,
	}
}

func (o *options) sanitize() {
	if o.capacity < MinCapacity {
		o.capacity = MinCapacity
	}
	if o.cleanupInterval <= 0 {
		o.cleanupInterval = DefaultCleanupInterval
	}
	if o.stopTimeout <= 0 {
		o.stopTimeout = 3 * time.Second
	}
}
