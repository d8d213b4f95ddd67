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
	"errors"
	"fmt"
)

// ErrInvalidEvictionPolicy is returned when an unknown policy is supplied.
var ErrInvalidEvictionPolicy = errors.New("invalid eviction policy")

// EvictionPolicy selects which entry is discarded when the cache exceeds
// its capacity.
type EvictionPolicy int

const (
	// LRU (Least Recently Used) evicts the entry that has not been accessed
	// for the longest time.
	LRU EvictionPolicy = iota

	// LFU (Least Frequently Used) evicts the entry that has been accessed
	// the least number of times.
	LFU

	// MRU (Most Recently Used) evicts the entry that was accessed most
	// recently, sparing the long-lived working set.
	MRU
)

// String returns the string representation of the EvictionPolicy.
// It satisfies the fmt.Stringer interface.
func (p EvictionPolicy) String() string {
	switch p {
	case LRU:
		return "LRU"
	case LFU:
		return "LFU"
	case MRU:
		return "MRU"
	default:
		return "Unknown"
	}
}

// EvictionStrategy pairs an eviction policy with the capacity at which it
// kicks in.
type EvictionStrategy struct {
	limit  uint64
	policy EvictionPolicy
}

// NewEvictionStrategy constructs an EvictionStrategy from the given entry
// limit and policy. It returns an error when the limit is zero or the
// policy is unknown.
func NewEvictionStrategy(limit uint64, policy EvictionPolicy) (*EvictionStrategy, error) {
	if limit == 0 {
		return nil, fmt.Errorf("limit must be greater than zero, got %d", limit)
	}
	switch policy {
	case LRU, LFU, MRU:
	default:
		return nil, ErrInvalidEvictionPolicy
	}
	return &EvictionStrategy{limit: limit, policy: policy}, nil
}

// String returns a human-readable summary of the strategy configuration.
// It satisfies the fmt.Stringer interface.
func (s *EvictionStrategy) String() string {
	return fmt.Sprintf("EvictionStrategy(limit=%d, policy=%s)", s.limit, s.policy)
}

// Limit returns the entry limit configured for this strategy.
func (s *EvictionStrategy) Limit() uint64 {
	return s.limit
}

// Policy returns the configured EvictionPolicy.
func (s *EvictionStrategy) Policy() EvictionPolicy {
	return s.policy
}
