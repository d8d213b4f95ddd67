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

	"github.com/gregory-ledenev/go-class-extension/internal/xsync"
	"github.com/gregory-ledenev/go-class-extension/log"
)

// DelegateHolder is implemented by extension classes that receive their
// delegate through a setter instead of a constructor argument.
type DelegateHolder interface {
	SetDelegate(delegate any)
}

// staticEntry is one registered extension class: either a constructor or a
// type instantiated to a pointer and fed through DelegateHolder.
type staticEntry struct {
	name string
	ctor func(delegate any) (any, error)
	typ  reflect.Type
}

// PackageScope is a named registry of extension classes. It stands in for
// a source package in the naming-convention lookup: an extension class
// registered as "BookShippable" in a scope extends Book with Shippable
// whenever that scope is searched.
type PackageScope struct {
	name    string
	entries *xsync.Map[string, *staticEntry]
}

func newPackageScope(name string) *PackageScope {
	return &PackageScope{name: name, entries: xsync.NewMap[string, *staticEntry]()}
}

// Name returns the scope name.
func (p *PackageScope) Name() string { return p.name }

// Register binds an extension class name to a constructor receiving the
// delegate. A repeated name replaces the previous registration.
func (p *PackageScope) Register(name string, ctor func(delegate any) (any, error)) {
	p.entries.Set(name, &staticEntry{name: name, ctor: ctor})
}

// RegisterType binds an extension class name to a struct type. Resolution
// instantiates a pointer to its zero value and hands the delegate over via
// DelegateHolder. The prototype accepts a sample value, a pointer to one,
// or a reflect.Type.
func (p *PackageScope) RegisterType(name string, prototype any) {
	p.entries.Set(name, &staticEntry{name: name, typ: typeOf(prototype)})
}

// Unregister removes an extension class from the scope.
func (p *PackageScope) Unregister(name string) {
	p.entries.Delete(name)
}

func (p *PackageScope) lookup(name string) (*staticEntry, bool) {
	return p.entries.Get(name)
}

// StaticResolver resolves extensions by naming convention: for a delegate
// of class C and an extension interface I it searches the configured
// package scopes for an extension class named "CI", walking the delegate's
// class chain when the exact name is absent. Hierarchy position outranks
// package order; among packages, the most recently added wins.
type StaticResolver struct {
	cacheControl
	packages   *xsync.Map[string, *PackageScope]
	engine     *AspectEngine
	dispatcher *dispatcher
	logger     log.Logger
}

// NewStaticResolver creates a static resolver.
func NewStaticResolver(opts ...ResolverOption) *StaticResolver {
	config := newResolverConfig(opts)
	return &StaticResolver{
		cacheControl: newCacheControl(config.cacheOpts),
		packages:     xsync.NewMap[string, *PackageScope](),
		engine:       config.engine,
		dispatcher:   &dispatcher{engine: config.engine},
		logger:       config.logger,
	}
}

// Aspects returns the engine weaving advice into this resolver's proxies.
func (r *StaticResolver) Aspects() *AspectEngine { return r.engine }

// Package returns the named package scope, creating it on first use.
func (r *StaticResolver) Package(name string) *PackageScope {
	if scope, ok := r.packages.Get(name); ok {
		return scope
	}
	scope, _ := r.packages.SetIfAbsent(name, newPackageScope(name))
	return scope
}

// AddExtensionPackage appends a package scope to the interface's search
// list. The most recently added package takes priority.
func (r *StaticResolver) AddExtensionPackage(iface *Interface, pkg string) {
	iface.AddPackage(pkg)
}

// RemoveExtensionPackage removes a package scope from the interface's
// search list.
func (r *StaticResolver) RemoveExtensionPackage(iface *Interface, pkg string) {
	iface.RemovePackage(pkg)
}

// Resolve finds and instantiates the extension of delegate for iface,
// searching the interface's packages plus any extra packages given for
// this call. The result is a *Extension proxy, or the raw extension
// instance for interfaces configured for direct instantiation. Direct
// instances are not cached and are not advised.
func (r *StaticResolver) Resolve(delegate any, iface *Interface, packages ...string) (any, error) {
	if delegate == nil {
		return nil, ErrNilDelegate
	}

	if iface.direct {
		instance, _, err := r.instantiate(delegate, iface, packages)
		return instance, err
	}

	return r.cachedResolve(delegate, iface, func() (*Extension, error) {
		instance, entry, err := r.instantiate(delegate, iface, packages)
		if err != nil {
			return nil, err
		}
		r.logger.Debugf("resolved %T to extension %s implementing %s", delegate, entry.name, iface.Name())
		invoker := func(ext *Extension, name string, args []any) (any, error) {
			return r.dispatcher.invoke(ext, name, args, nil, func() (any, error) {
				return r.terminal(ext, instance, name, args)
			})
		}
		return newExtension(delegate, iface, invoker), nil
	})
}

// instantiate walks the class chain crossed with the package search order
// and constructs the first matching extension class.
func (r *StaticResolver) instantiate(delegate any, iface *Interface, extra []string) (any, *staticEntry, error) {
	delegateType := typeOf(delegate)
	searchOrder := iface.searchPackages(extra)

	var attempted []string
	for _, cls := range typeChain(delegateType) {
		if cls == anyObjectType {
			continue
		}
		candidate := simpleName(cls) + iface.Name()
		for _, pkg := range searchOrder {
			scope, ok := r.packages.Get(pkg)
			if !ok {
				// a configured package with no scope is still an attempt
				attempted = append(attempted, pkg+"."+candidate)
				continue
			}
			entry, ok := scope.lookup(candidate)
			if !ok {
				attempted = append(attempted, pkg+"."+candidate)
				continue
			}
			instance, err := r.construct(entry, delegate, delegateType)
			if err != nil {
				return nil, nil, err
			}
			return instance, entry, nil
		}
	}
	return nil, nil, &NoExtensionFoundError{
		DelegateType: delegateType,
		Interface:    iface,
		Attempted:    attempted,
	}
}

func (r *StaticResolver) construct(entry *staticEntry, delegate any, delegateType reflect.Type) (any, error) {
	if entry.ctor != nil {
		instance, err := entry.ctor(delegate)
		if err != nil {
			return nil, &InstantiationError{
				ExtensionName: entry.name,
				DelegateType:  delegateType,
				Reason:        err.Error(),
			}
		}
		return instance, nil
	}

	instance := reflect.New(entry.typ).Interface()
	holder, ok := instance.(DelegateHolder)
	if !ok {
		return nil, &InstantiationError{
			ExtensionName: entry.name,
			DelegateType:  delegateType,
			Reason:        "no constructor registered and type does not implement DelegateHolder",
		}
	}
	holder.SetDelegate(delegate)
	return instance, nil
}

// terminal dispatches one operation of a static proxy: the extension
// instance's methods first, then delegate pass-through, then the identity
// defaults.
func (r *StaticResolver) terminal(ext *Extension, instance any, name string, args []any) (any, error) {
	prefixes := ext.iface.effectivePrefixes()

	if result, found, err := callMethod(instance, name, prefixes, args); found {
		return result, err
	}
	if result, found, err := callMethod(ext.delegate, name, prefixes, args); found {
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

// CheckValid verifies that an extension class is resolvable for the object
// class and, when enough type information exists, that it covers the
// interface's operations. It aggregates every gap instead of stopping at
// the first.
func (r *StaticResolver) CheckValid(objectClass any, iface *Interface, packages ...string) error {
	objectType := typeOf(objectClass)
	searchOrder := iface.searchPackages(packages)

	var entry *staticEntry
	var attempted []string
search:
	for _, cls := range typeChain(objectType) {
		if cls == anyObjectType {
			continue
		}
		candidate := simpleName(cls) + iface.Name()
		for _, pkg := range searchOrder {
			scope, ok := r.packages.Get(pkg)
			if !ok {
				attempted = append(attempted, pkg+"."+candidate)
				continue
			}
			if found, ok := scope.lookup(candidate); ok {
				entry = found
				break search
			}
			attempted = append(attempted, pkg+"."+candidate)
		}
	}
	if entry == nil {
		return &NoExtensionFoundError{
			DelegateType: objectType,
			Interface:    iface,
			Attempted:    attempted,
		}
	}

	// Operation coverage is only checkable for type-registered entries;
	// constructor results are opaque until instantiation.
	if entry.typ == nil || iface.typ == nil {
		return nil
	}

	var err error
	extensionType := reflect.PointerTo(entry.typ)
	for _, spec := range iface.operations() {
		if iface.optional.Contains(spec.name) {
			continue
		}
		if !hasCallableMethod(extensionType, spec.name, spec.arity, iface.effectivePrefixes()) {
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

func hasCallableMethod(t reflect.Type, name string, arity int, prefixes []string) bool {
	for _, candidate := range methodCandidates(name, prefixes) {
		if method, ok := t.MethodByName(candidate); ok {
			// method types include the receiver as the first input
			if method.Type.NumIn()-1 == arity {
				return true
			}
		}
	}
	return false
}
