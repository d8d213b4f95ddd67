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
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// Identity operation names. These dispatch like any other operation, so an
// extension interface or dynamic registration can override them; without an
// override they delegate to the underlying object.
const (
	OperationString   = "String"
	OperationEquals   = "Equals"
	OperationHashCode = "HashCode"
)

// Hasher lets a delegate supply its own hash identity to HashCode.
type Hasher interface {
	HashCode() uint64
}

// Equaler lets a delegate supply its own equality to Equals.
type Equaler interface {
	Equals(other any) bool
}

// Extension is the proxy combining a delegate with the operations of an
// extension interface. Every operation, including the identity trio, goes
// through Invoke and is therefore subject to aspect weaving.
type Extension struct {
	id       string
	delegate any
	iface    *Interface
	invoker  func(ext *Extension, name string, args []any) (any, error)
}

func newExtension(delegate any, iface *Interface, invoker func(*Extension, string, []any) (any, error)) *Extension {
	return &Extension{
		id:       uuid.NewString(),
		delegate: delegate,
		iface:    iface,
		invoker:  invoker,
	}
}

// ID returns the unique identifier of this proxy instance.
func (x *Extension) ID() string { return x.id }

// Delegate returns the underlying object.
func (x *Extension) Delegate() any { return x.delegate }

// Interface returns the extension interface this proxy implements.
func (x *Extension) Interface() *Interface { return x.iface }

// Invoke dispatches the named operation with the given arguments.
func (x *Extension) Invoke(name string, args ...any) (any, error) {
	return x.invoker(x, name, args)
}

// MustInvoke dispatches the named operation and panics on error.
func (x *Extension) MustInvoke(name string, args ...any) any {
	result, err := x.Invoke(name, args...)
	if err != nil {
		panic(err)
	}
	return result
}

// String prints like the delegate unless the String operation is
// overridden. It satisfies the fmt.Stringer interface.
func (x *Extension) String() string {
	if result, err := x.Invoke(OperationString); err == nil {
		if s, ok := result.(string); ok {
			return s
		}
	}
	return fmt.Sprint(x.delegate)
}

// Equals reports whether this proxy is observably equal to other, which may
// be a plain value or another proxy.
func (x *Extension) Equals(other any) bool {
	result, err := x.Invoke(OperationEquals, other)
	if err != nil {
		return false
	}
	equal, ok := result.(bool)
	return ok && equal
}

// HashCode hashes like the delegate.
func (x *Extension) HashCode() uint64 {
	result, err := x.Invoke(OperationHashCode)
	if err != nil {
		return 0
	}
	hash, ok := result.(uint64)
	if !ok {
		return 0
	}
	return hash
}

// unwrapDelegate peels a proxy argument down to its delegate so equality
// compares delegates, never proxy instances.
func unwrapDelegate(v any) any {
	if ext, ok := v.(*Extension); ok {
		return ext.delegate
	}
	return v
}

// identityDefault implements the fallback behavior of the identity trio
// against the delegate. The second result reports whether the operation was
// one of the trio with the expected arity.
func identityDefault(delegate any, name string, args []any) (any, bool) {
	switch {
	case name == OperationString && len(args) == 0:
		if s, ok := delegate.(fmt.Stringer); ok {
			return s.String(), true
		}
		return fmt.Sprint(delegate), true

	case name == OperationHashCode && len(args) == 0:
		if h, ok := delegate.(Hasher); ok {
			return h.HashCode(), true
		}
		return xxh3.HashString(fmt.Sprintf("%T:%v", delegate, delegate)), true

	case name == OperationEquals && len(args) == 1:
		other := unwrapDelegate(args[0])
		if e, ok := delegate.(Equaler); ok {
			return e.Equals(other), true
		}
		return reflect.DeepEqual(delegate, other), true
	}
	return nil, false
}
