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
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrExtensionNotFound indicates that no extension class could be
	// resolved for a delegate and extension interface.
	ErrExtensionNotFound = errors.New("no extension found")

	// ErrOperationNotFound indicates that an operation is neither registered
	// nor resolvable on the delegate.
	ErrOperationNotFound = errors.New("operation is not supported")

	// ErrDuplicateOperation indicates an attempt to register a second
	// handler under an already-taken operation key.
	ErrDuplicateOperation = errors.New("operation is already registered")

	// ErrNoOperationName is returned when a handler is added to a dynamic
	// builder before an operation scope has been opened.
	ErrNoOperationName = errors.New("no operation name specified")

	// ErrNoInstantiation indicates that a static extension class offers
	// neither a delegate-accepting constructor nor a delegate holder.
	ErrNoInstantiation = errors.New("extension cannot be instantiated")

	// ErrInvalidPointcut indicates a pointcut definition missing a required
	// predicate.
	ErrInvalidPointcut = errors.New("invalid pointcut")

	// ErrNilDelegate is returned when a nil delegate is passed to a
	// resolver.
	ErrNilDelegate = errors.New("delegate is nil")

	// ErrExecutorStopped is returned when an async operation is invoked
	// after the resolver's executor has been shut down.
	ErrExecutorStopped = errors.New("async executor is stopped")

	// ErrInvalidHandler indicates a handler whose shape does not match the
	// declared operation arity.
	ErrInvalidHandler = errors.New("invalid operation handler")
)

// NoExtensionFoundError reports a failed static resolution, naming every
// candidate extension class that was attempted.
type NoExtensionFoundError struct {
	DelegateType reflect.Type
	Interface    *Interface
	Attempted    []string
}

func (e *NoExtensionFoundError) Error() string {
	if len(e.Attempted) == 0 {
		return fmt.Sprintf("no extension found for %s implementing %s: no extension packages configured",
			e.DelegateType, e.Interface.Name())
	}
	return fmt.Sprintf("no extension found for %s implementing %s: tried %s",
		e.DelegateType, e.Interface.Name(), strings.Join(e.Attempted, ", "))
}

func (e *NoExtensionFoundError) Unwrap() error { return ErrExtensionNotFound }

// UnsupportedOperationError names the exact operation signature and delegate
// class involved in a failed dispatch or validation.
type UnsupportedOperationError struct {
	DelegateType reflect.Type
	Interface    *Interface
	Operation    string
	Arity        int
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("operation %s/%d of %s is not supported for %s",
		e.Operation, e.Arity, e.Interface.Name(), e.DelegateType)
}

func (e *UnsupportedOperationError) Unwrap() error { return ErrOperationNotFound }

// DuplicateOperationError reports a rejected duplicate registration.
type DuplicateOperationError struct {
	ObjectType reflect.Type
	Interface  *Interface
	Operation  string
	Arity      int
}

func (e *DuplicateOperationError) Error() string {
	return fmt.Sprintf("operation %s/%d of %s is already registered for %s",
		e.Operation, e.Arity, e.Interface.Name(), e.ObjectType)
}

func (e *DuplicateOperationError) Unwrap() error { return ErrDuplicateOperation }

// InstantiationError reports a static extension class that could not be
// constructed.
type InstantiationError struct {
	ExtensionName string
	DelegateType  reflect.Type
	Reason        string
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("cannot instantiate extension %s for %s: %s",
		e.ExtensionName, e.DelegateType, e.Reason)
}

func (e *InstantiationError) Unwrap() error { return ErrNoInstantiation }
