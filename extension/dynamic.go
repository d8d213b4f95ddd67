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

	"go.uber.org/multierr"

	"github.com/gregory-ledenev/go-class-extension/log"
)

// DynamicResolver resolves extensions against an operation registry built
// at run time. Every resolution yields a proxy; operations dispatch to
// registered handlers with class-hierarchy and super-interface fallback,
// then to delegate methods, then to the identity defaults.
type DynamicResolver struct {
	cacheControl
	registry   *OperationRegistry
	engine     *AspectEngine
	dispatcher *dispatcher
	executor   *asyncExecutor
	logger     log.Logger
}

// NewDynamicResolver creates a dynamic resolver with an empty operation
// registry.
func NewDynamicResolver(opts ...ResolverOption) *DynamicResolver {
	config := newResolverConfig(opts)
	return &DynamicResolver{
		cacheControl: newCacheControl(config.cacheOpts),
		registry:     NewOperationRegistry(),
		engine:       config.engine,
		dispatcher:   &dispatcher{engine: config.engine},
		executor:     newAsyncExecutor(config.asyncLimit),
		logger:       config.logger,
	}
}

// Registry exposes the underlying operation registry.
func (r *DynamicResolver) Registry() *OperationRegistry { return r.registry }

// Aspects returns the engine weaving advice into this resolver's proxies.
func (r *DynamicResolver) Aspects() *AspectEngine { return r.engine }

// Resolve returns the extension proxy combining delegate with the dynamic
// operations of iface. Proxies are cached per (delegate, interface) unless
// caching is off.
func (r *DynamicResolver) Resolve(delegate any, iface *Interface) (*Extension, error) {
	if delegate == nil {
		return nil, ErrNilDelegate
	}
	return r.cachedResolve(delegate, iface, func() (*Extension, error) {
		return newExtension(delegate, iface, r.invoke), nil
	})
}

// CheckValid verifies that every non-optional operation declared by the
// interface has a resolvable handler for the object class.
func (r *DynamicResolver) CheckValid(objectClass any, iface *Interface) error {
	return r.registry.Validate(objectClass, iface)
}

// Shutdown stops the async executor, waiting for in-flight operations.
func (r *DynamicResolver) Shutdown() error {
	return r.executor.shutdown()
}

// invoke is the proxy dispatch path: look the operation up, weave advice,
// then run the handler synchronously or hand it to the executor.
func (r *DynamicResolver) invoke(ext *Extension, name string, args []any) (any, error) {
	op, found := r.registry.Lookup(ext.delegate, ext.iface, name, len(args))

	terminal := func() (any, error) {
		if found {
			return r.runOperation(ext, op, args)
		}
		if result, ok, err := callMethod(ext.delegate, name, ext.iface.effectivePrefixes(), args); ok {
			return result, err
		}
		if result, handled := identityDefault(ext.delegate, name, args); handled {
			return result, nil
		}
		return nil, &UnsupportedOperationError{
			DelegateType: typeOf(ext.delegate),
			Interface:    ext.iface,
			Operation:    name,
			Arity:        len(args),
		}
	}

	var dispatchOp *operation
	if found {
		dispatchOp = op
	}
	return r.dispatcher.invoke(ext, name, args, dispatchOp, terminal)
}

// runOperation executes a registered handler. Async operations return a
// typed zero placeholder immediately; the handler's result reaches the
// registration's completion callback instead.
func (r *DynamicResolver) runOperation(ext *Extension, op *operation, args []any) (any, error) {
	settings := op.settings()
	if !settings.Async {
		return r.wrapResult(op, op.run(ext.delegate, args)), nil
	}

	delegate := ext.delegate
	if err := r.executor.submit(func() {
		result := r.wrapResult(op, op.run(delegate, args))
		if settings.OnComplete != nil {
			settings.OnComplete(result, nil)
			return
		}
		r.logger.Debugf("async operation %s of %s completed for %T", op.name, op.iface.Name(), delegate)
	}); err != nil {
		return nil, err
	}
	return zeroResult(ext.iface, op.name, op.arity), nil
}

// wrapResult resolves the handler result into an extension when the
// registration names a result interface.
func (r *DynamicResolver) wrapResult(op *operation, result any) any {
	resultIface := op.resultIface()
	if resultIface == nil || result == nil {
		return result
	}
	wrapped, err := r.Resolve(result, resultIface)
	if err != nil {
		r.logger.Warnf("cannot wrap result of %s as %s: %v", op.name, resultIface.Name(), err)
		return result
	}
	return wrapped
}

// zeroResult produces the placeholder an async invocation returns: the zero
// value of the operation's declared result type when known, nil otherwise.
func zeroResult(iface *Interface, name string, arity int) any {
	if rt := iface.resultType(name, arity); rt != nil {
		return reflect.Zero(rt).Interface()
	}
	return nil
}

// Builder registers dynamic operations fluently. Operation opens a scope;
// the handler methods bind classes to handlers within it; Async, Before,
// After, Around and ResultExtension refine the most recent registration.
// Registrations take effect immediately; Build reports the accumulated
// errors.
type Builder struct {
	resolver *DynamicResolver
	iface    *Interface
	opName   string
	last     *operation
	errs     []error
}

// Builder starts registering operations of iface.
func (r *DynamicResolver) Builder(iface *Interface) *Builder {
	return &Builder{resolver: r, iface: iface}
}

// Operation opens a registration scope for the named operation.
func (b *Builder) Operation(name string) *Builder {
	b.opName = name
	b.last = nil
	return b
}

// Func binds a parameterless value-producing handler to objectClass.
func (b *Builder) Func(objectClass any, fn Function) *Builder {
	return b.register(objectClass, fn)
}

// BiFunc binds a single-argument value-producing handler to objectClass.
func (b *Builder) BiFunc(objectClass any, fn BiFunction) *Builder {
	return b.register(objectClass, fn)
}

// Consumer binds a parameterless void handler to objectClass.
func (b *Builder) Consumer(objectClass any, fn Consumer) *Builder {
	return b.register(objectClass, fn)
}

// BiConsumer binds a single-argument void handler to objectClass.
func (b *Builder) BiConsumer(objectClass any, fn BiConsumer) *Builder {
	return b.register(objectClass, fn)
}

func (b *Builder) register(objectClass any, handler any) *Builder {
	op, err := b.resolver.registry.Register(objectClass, b.iface, b.opName, handler)
	if err != nil {
		b.errs = append(b.errs, err)
		b.last = nil
		return b
	}
	b.last = op
	return b
}

// Async marks the most recent registration asynchronous. The optional
// callback receives the handler's result once it completes; without one,
// results are dropped.
func (b *Builder) Async(onComplete ...func(result any, err error)) *Builder {
	if b.last == nil {
		return b
	}
	settings := b.last.settings()
	settings.Async = true
	if len(onComplete) > 0 {
		settings.OnComplete = onComplete[0]
	}
	b.last.applySettings(settings)
	return b
}

// Before attaches before advice to the most recent registration. It
// supersedes matching pointcut before advice for this operation.
func (b *Builder) Before(advice Before) *Builder {
	if b.last != nil {
		b.last.mu.Lock()
		b.last.before = advice
		b.last.mu.Unlock()
	}
	return b
}

// After attaches after advice to the most recent registration.
func (b *Builder) After(advice After) *Builder {
	if b.last != nil {
		b.last.mu.Lock()
		b.last.after = advice
		b.last.mu.Unlock()
	}
	return b
}

// Around attaches around advice to the most recent registration.
func (b *Builder) Around(advice Around) *Builder {
	if b.last != nil {
		b.last.mu.Lock()
		b.last.around = advice
		b.last.mu.Unlock()
	}
	return b
}

// ResultExtension makes the most recent registration wrap its results as
// extensions of iface.
func (b *Builder) ResultExtension(iface *Interface) *Builder {
	if b.last != nil {
		b.last.mu.Lock()
		b.last.resultInterface = iface
		b.last.mu.Unlock()
	}
	return b
}

// RemoveOperation unregisters the exact (objectClass, operation, arity)
// binding within the current interface.
func (b *Builder) RemoveOperation(objectClass any, name string, arity int) *Builder {
	b.resolver.registry.Unregister(objectClass, b.iface, name, arity)
	return b
}

// AlterOperation adjusts the dispatch settings of an exact registration.
func (b *Builder) AlterOperation(objectClass any, name string, arity int, alter func(*OperationSettings)) *Builder {
	op, ok := b.resolver.registry.lookupExact(objectClass, b.iface, name, arity)
	if !ok {
		b.errs = append(b.errs, &UnsupportedOperationError{
			DelegateType: typeOf(objectClass),
			Interface:    b.iface,
			Operation:    name,
			Arity:        arity,
		})
		return b
	}
	settings := op.settings()
	alter(&settings)
	op.applySettings(settings)
	return b
}

// Build reports every error accumulated while registering.
func (b *Builder) Build() error {
	return multierr.Combine(b.errs...)
}
