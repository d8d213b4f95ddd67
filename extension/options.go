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
	"time"

	"github.com/gregory-ledenev/go-class-extension/internal/weakcache"
	"github.com/gregory-ledenev/go-class-extension/log"
)

// resolverConfig carries the settings shared by both resolvers.
type resolverConfig struct {
	logger     log.Logger
	engine     *AspectEngine
	cacheOpts  []weakcache.Option
	asyncLimit int
}

// ResolverOption configures one resolver setting.
type ResolverOption func(*resolverConfig)

func newResolverConfig(opts []ResolverOption) *resolverConfig {
	config := &resolverConfig{logger: log.DefaultLogger}
	for _, opt := range opts {
		opt(config)
	}
	if config.engine == nil {
		config.engine = NewAspectEngine()
	}
	return config
}

// WithLogger sets the resolver's logger.
func WithLogger(logger log.Logger) ResolverOption {
	return func(c *resolverConfig) { c.logger = logger }
}

// WithAspectEngine shares an existing aspect engine with the resolver.
// Without it each resolver gets its own engine.
func WithAspectEngine(engine *AspectEngine) ResolverOption {
	return func(c *resolverConfig) { c.engine = engine }
}

// WithCacheCapacity bounds the extension cache.
func WithCacheCapacity(capacity int) ResolverOption {
	return func(c *resolverConfig) {
		c.cacheOpts = append(c.cacheOpts, weakcache.WithCapacity(capacity))
	}
}

// WithCacheEvictionStrategy sets the extension cache's capacity and
// eviction policy together.
func WithCacheEvictionStrategy(strategy *weakcache.EvictionStrategy) ResolverOption {
	return func(c *resolverConfig) {
		c.cacheOpts = append(c.cacheOpts, weakcache.WithEvictionStrategy(strategy))
	}
}

// WithCacheCleanupInterval sets the period of the scheduled cache sweep.
func WithCacheCleanupInterval(interval time.Duration) ResolverOption {
	return func(c *resolverConfig) {
		c.cacheOpts = append(c.cacheOpts, weakcache.WithCleanupInterval(interval))
	}
}

// WithAsyncLimit bounds the number of concurrently running async operation
// handlers. Zero or negative means unbounded. Static resolvers ignore it.
func WithAsyncLimit(limit int) ResolverOption {
	return func(c *resolverConfig) { c.asyncLimit = limit }
}
