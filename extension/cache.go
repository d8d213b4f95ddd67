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

package extension

import (
	"context"
	"reflect"

	"go.uber.org/atomic"

	"github.com/gregory-ledenev/go-class-extension/internal/weakcache"
)

// cacheKey identifies one cached extension: the delegate value paired with
// the extension interface. Delegates whose dynamic type is not comparable
// cannot be keyed and bypass the cache.
type cacheKey struct {
	delegate any
	iface    *Interface
}

// cacheControl embeds the weak-value extension cache and its runtime
// switches into a resolver. Cached extensions are held weakly: once no
// client references a proxy, the collector may reclaim it and a later
// resolution builds a fresh one.
type cacheControl struct {
	cache        *weakcache.Cache[cacheKey, Extension]
	cacheEnabled *atomic.Bool
}

func newCacheControl(opts []weakcache.Option) cacheControl {
	return cacheControl{
		cache:        weakcache.New[cacheKey, Extension](opts...),
		cacheEnabled: atomic.NewBool(true),
	}
}

// IsCacheEnabled reports the resolver-wide cache switch.
func (c *cacheControl) IsCacheEnabled() bool {
	return c.cacheEnabled.Load()
}

// SetCacheEnabled flips the resolver-wide cache switch. Disabling does not
// drop existing entries; use CacheClear for that.
func (c *cacheControl) SetCacheEnabled(enabled bool) {
	c.cacheEnabled.Store(enabled)
}

// CacheCleanup synchronously purges entries whose proxies were collected.
func (c *cacheControl) CacheCleanup() {
	c.cache.Cleanup()
}

// CacheClear drops every cached extension.
func (c *cacheControl) CacheClear() {
	c.cache.Clear()
}

// CacheIsEmpty reports whether the cache holds no entries.
func (c *cacheControl) CacheIsEmpty() bool {
	return c.cache.IsEmpty()
}

// ScheduleCacheCleanup starts the periodic background cache sweep.
func (c *cacheControl) ScheduleCacheCleanup(ctx context.Context) error {
	return c.cache.ScheduleCleanup(ctx)
}

// ShutdownCacheCleanup stops the background cache sweep.
func (c *cacheControl) ShutdownCacheCleanup(ctx context.Context) {
	c.cache.ShutdownCleanup(ctx)
}

// cachedResolve returns the cached extension for (delegate, iface) or
// creates and caches one. Caching is skipped when disabled at the resolver
// or interface level, or when the delegate cannot serve as a map key.
func (c *cacheControl) cachedResolve(delegate any, iface *Interface, create func() (*Extension, error)) (*Extension, error) {
	if !c.cacheEnabled.Load() || iface.cacheDisabled || !comparableValue(delegate) {
		return create()
	}
	return c.cache.GetOrCreate(cacheKey{delegate: delegate, iface: iface}, create)
}

// comparableValue reports whether v's dynamic type supports == without
// panicking, making it usable inside a map key.
func comparableValue(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Comparable()
}
