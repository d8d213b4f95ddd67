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
	"reflect"
	"sync"

	"go.uber.org/multierr"

	"github.com/gregory-ledenev/go-class-extension/internal/xsync"
)

// Handler shapes. A Function produces a value from the delegate alone, a
// BiFunction additionally consumes one argument; the Consumer variants
// produce nothing.
type (
	Function   func(delegate any) any
	BiFunction func(delegate any, arg any) any
	Consumer   func(delegate any)
	BiConsumer func(delegate any, arg any)
)

// operationID folds the arity into the registry key so that a parameterless
// operation and its single-argument overload coexist.
func operationID(name string, arity int) string {
	if arity == 1 {
		return name + "#1"
	}
	return name
}

// operationKey identifies one registration: object class, extension
// interface and arity-qualified operation name.
type operationKey struct {
	objectType reflect.Type
	iface      *Interface
	id         string
}

// operation is one registered handler together with its mutable dispatch
// settings. Settings may be altered after registration, hence the mutex.
type operation struct {
	objectType reflect.Type
	iface      *Interface
	name       string
	arity      int
	handler    any
	void       bool

	mu              sync.Mutex
	async           bool
	onComplete      func(result any, err error)
	before          Before
	after           After
	around          Around
	resultInterface *Interface
}

// OperationSettings is the mutable view of a registration handed to
// AlterOperation callbacks.
type OperationSettings struct {
	Async      bool
	OnComplete func(result any, err error)
}

func (op *operation) settings() OperationSettings {
	op.mu.Lock()
	defer op.mu.Unlock()
	return OperationSettings{Async: op.async, OnComplete: op.onComplete}
}

func (op *operation) applySettings(s OperationSettings) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.async = s.Async
	op.onComplete = s.OnComplete
}

func (op *operation) advice() (Before, After, Around) {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.before, op.after, op.around
}

func (op *operation) resultIface() *Interface {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.resultInterface
}

// run executes the handler against the delegate. Void handlers yield nil.
func (op *operation) run(delegate any, args []any) any {
	switch h := op.handler.(type) {
	case Function:
		return h(delegate)
	case BiFunction:
		return h(delegate, args[0])
	case Consumer:
		h(delegate)
		return nil
	case BiConsumer:
		h(delegate, args[0])
		return nil
	default:
		return nil
	}
}

// OperationRegistry maps (object class, extension interface, operation)
// keys to handlers and resolves lookups through the delegate class chain
// with a super-interface fallback.
type OperationRegistry struct {
	ops *xsync.Map[operationKey, *operation]
}

// NewOperationRegistry creates an empty registry.
func NewOperationRegistry() *OperationRegistry {
	return &OperationRegistry{ops: xsync.NewMap[operationKey, *operation]()}
}

// Register stores a handler for the given object class, interface and
// operation name. The handler must be a Function or Consumer for arity 0,
// or a BiFunction or BiConsumer for arity 1. A duplicate key is rejected
// with a DuplicateOperationError.
func (r *OperationRegistry) Register(objectClass any, iface *Interface, name string, handler any) (*operation, error) {
	if name == "" {
		return nil, ErrNoOperationName
	}

	var arity int
	var void bool
	switch handler.(type) {
	case Function:
		arity, void = 0, false
	case BiFunction:
		arity, void = 1, false
	case Consumer:
		arity, void = 0, true
	case BiConsumer:
		arity, void = 1, true
	default:
		return nil, ErrInvalidHandler
	}

	objectType := typeOf(objectClass)
	op := &operation{
		objectType: objectType,
		iface:      iface,
		name:       name,
		arity:      arity,
		handler:    handler,
		void:       void,
	}
	key := operationKey{objectType: objectType, iface: iface, id: operationID(name, arity)}
	if _, stored := r.ops.SetIfAbsent(key, op); !stored {
		return nil, &DuplicateOperationError{
			ObjectType: objectType,
			Interface:  iface,
			Operation:  name,
			Arity:      arity,
		}
	}
	return op, nil
}

// Unregister removes the registration for the exact key, if any.
func (r *OperationRegistry) Unregister(objectClass any, iface *Interface, name string, arity int) {
	r.ops.Delete(operationKey{
		objectType: typeOf(objectClass),
		iface:      iface,
		id:         operationID(name, arity),
	})
}

// lookupExact returns the registration for the exact key without any
// hierarchy fallback.
func (r *OperationRegistry) lookupExact(objectClass any, iface *Interface, name string, arity int) (*operation, bool) {
	return r.ops.Get(operationKey{
		objectType: typeOf(objectClass),
		iface:      iface,
		id:         operationID(name, arity),
	})
}

// Lookup resolves an operation for the delegate class. The class chain is
// walked first against the exact interface; only when that yields nothing
// are the super-interfaces searched, preferring the most derived object
// class encountered.
func (r *OperationRegistry) Lookup(objectClass any, iface *Interface, name string, arity int) (*operation, bool) {
	id := operationID(name, arity)
	chain := typeChain(typeOf(objectClass))

	for _, cls := range chain {
		if op, ok := r.ops.Get(operationKey{objectType: cls, iface: iface, id: id}); ok {
			return op, true
		}
	}

	supers := iface.lineage()[1:]
	for _, cls := range chain {
		for _, super := range supers {
			if op, ok := r.ops.Get(operationKey{objectType: cls, iface: super, id: id}); ok {
				return op, true
			}
		}
	}
	return nil, false
}

// Validate checks that every non-optional operation declared by the
// interface has a resolvable handler for the object class, aggregating one
// UnsupportedOperationError per gap.
func (r *OperationRegistry) Validate(objectClass any, iface *Interface) error {
	var err error
	objectType := typeOf(objectClass)
	for _, spec := range iface.operations() {
		if iface.optional.Contains(spec.name) {
			continue
		}
		if _, ok := r.Lookup(objectClass, iface, spec.name, spec.arity); !ok {
			err = multierr.Append(err, &UnsupportedOperationError{
				DelegateType: objectType,
				Interface:    iface,
				Operation:    spec.name,
				Arity:        spec.arity,
			})
		}
	}
	return err
}

// Len returns the number of registrations currently held.
func (r *OperationRegistry) Len() int {
	return r.ops.Len()
}
