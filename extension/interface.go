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
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// defaultAccessorPrefixes are tried in order when adapting an operation name
// to a delegate accessor, e.g. "name" resolves to Name, GetName or IsName.
var defaultAccessorPrefixes = []string{"", "Get", "Is"}

// Interface describes an extension interface: the contract an extension
// adds to delegate objects. It carries the lookup configuration a resolver
// needs, i.e. the super-interfaces used for operation fallback, the packages
// searched by naming convention, and the caching, aspect and accessor
// switches.
//
// An Interface is typically created once per contract, at package level,
// and shared between registrations and resolutions.
type Interface struct {
	name             string
	typ              reflect.Type
	supers           []*Interface
	direct           bool
	cacheDisabled    bool
	aspectsDisabled  bool
	adaptAccessors   bool
	accessorPrefixes []string
	optional         mapset.Set[string]

	mu       sync.RWMutex
	packages []string
}

// InterfaceOption configures one aspect of an Interface.
type InterfaceOption func(*Interface)

// NewInterface creates a descriptor for the Go interface type T, named after
// the type. It panics when T is not an interface type; that is a programming
// error, not a runtime condition.
func NewInterface[T any](opts ...InterfaceOption) *Interface {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Interface {
		panic("extension: NewInterface requires an interface type parameter")
	}
	return newInterface(typ.Name(), typ, opts...)
}

// NewNamedInterface creates a descriptor that is not backed by a Go
// interface type. Such interfaces are used with purely dynamic operation
// sets, where no compile-time contract exists.
func NewNamedInterface(name string, opts ...InterfaceOption) *Interface {
	return newInterface(name, nil, opts...)
}

func newInterface(name string, typ reflect.Type, opts ...InterfaceOption) *Interface {
	iface := &Interface{
		name:             name,
		typ:              typ,
		accessorPrefixes: defaultAccessorPrefixes,
		optional:         mapset.NewSet[string](),
	}
	for _, opt := range opts {
		opt(iface)
	}
	return iface
}

// WithName overrides the name derived from the interface type.
func WithName(name string) InterfaceOption {
	return func(i *Interface) { i.name = name }
}

// WithSuperInterfaces declares the interfaces this one extends. Operation
// lookups fall back to super-interfaces breadth-first when the interface
// itself has no registration.
func WithSuperInterfaces(supers ...*Interface) InterfaceOption {
	return func(i *Interface) { i.supers = append(i.supers, supers...) }
}

// WithPackages seeds the package scopes searched during static resolution.
// Packages added later take priority over earlier ones.
func WithPackages(packages ...string) InterfaceOption {
	return func(i *Interface) { i.packages = append(i.packages, packages...) }
}

// WithDirectInstantiation makes static resolution return the raw extension
// instance instead of a proxy. Direct instances bypass caching, aspects and
// identity defaults.
func WithDirectInstantiation() InterfaceOption {
	return func(i *Interface) { i.direct = true }
}

// WithCacheDisabled turns extension caching off for this interface, so each
// resolution produces a fresh extension.
func WithCacheDisabled() InterfaceOption {
	return func(i *Interface) { i.cacheDisabled = true }
}

// WithAspectsDisabled turns aspect weaving off for this interface.
func WithAspectsDisabled() InterfaceOption {
	return func(i *Interface) { i.aspectsDisabled = true }
}

// WithAccessorAdaptation lets dynamic operations without a registered
// handler pass through to delegate accessor methods, trying the given name
// prefixes. With no prefixes, "", "Get" and "Is" are tried.
func WithAccessorAdaptation(prefixes ...string) InterfaceOption {
	return func(i *Interface) {
		i.adaptAccessors = true
		if len(prefixes) > 0 {
			i.accessorPrefixes = prefixes
		}
	}
}

// WithOptionalOperations marks operations that validation does not require a
// handler for.
func WithOptionalOperations(names ...string) InterfaceOption {
	return func(i *Interface) { i.optional.Append(names...) }
}

// Name returns the interface name used in lookups, pointcut matching and
// diagnostics.
func (i *Interface) Name() string { return i.name }

// Type returns the backing Go interface type, or nil for a named-only
// interface.
func (i *Interface) Type() reflect.Type { return i.typ }

// SuperInterfaces returns the declared super-interfaces.
func (i *Interface) SuperInterfaces() []*Interface {
	return slices.Clone(i.supers)
}

// AddPackage appends a package scope name to the search list. The most
// recently added package is searched first.
func (i *Interface) AddPackage(pkg string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !slices.Contains(i.packages, pkg) {
		i.packages = append(i.packages, pkg)
	}
}

// RemovePackage removes a package scope name from the search list.
func (i *Interface) RemovePackage(pkg string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if idx := slices.Index(i.packages, pkg); idx >= 0 {
		i.packages = slices.Delete(i.packages, idx, idx+1)
	}
}

// Packages returns the configured package scope names in registration order.
func (i *Interface) Packages() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.packages)
}

// searchPackages returns the packages to search during resolution, most
// recently added first, with per-call extras taking the highest priority.
func (i *Interface) searchPackages(extra []string) []string {
	i.mu.RLock()
	configured := slices.Clone(i.packages)
	i.mu.RUnlock()

	combined := make([]string, 0, len(configured)+len(extra))
	for idx := len(extra) - 1; idx >= 0; idx-- {
		combined = append(combined, extra[idx])
	}
	for idx := len(configured) - 1; idx >= 0; idx-- {
		combined = append(combined, configured[idx])
	}
	return combined
}

// lineage returns the interface followed by its super-interfaces in
// breadth-first order, visiting each interface once.
func (i *Interface) lineage() []*Interface {
	var order []*Interface
	seen := make(map[*Interface]struct{})
	queue := []*Interface{i}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if _, ok := seen[current]; ok {
			continue
		}
		seen[current] = struct{}{}
		order = append(order, current)
		queue = append(queue, current.supers...)
	}
	return order
}

// effectivePrefixes returns the accessor prefixes to try during method
// pass-through. Without adaptation only the bare name is tried.
func (i *Interface) effectivePrefixes() []string {
	if i.adaptAccessors {
		return i.accessorPrefixes
	}
	return []string{""}
}

// opSpec describes one declared operation of a backing interface type.
type opSpec struct {
	name  string
	arity int
}

// operations lists the operations declared by the backing interface type,
// including those inherited from super-interfaces with backing types. A
// named-only interface declares nothing.
func (i *Interface) operations() []opSpec {
	var specs []opSpec
	seen := make(map[string]struct{})
	for _, ifc := range i.lineage() {
		if ifc.typ == nil {
			continue
		}
		for m := range ifc.typ.NumMethod() {
			method := ifc.typ.Method(m)
			id := operationID(method.Name, method.Type.NumIn())
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			specs = append(specs, opSpec{name: method.Name, arity: method.Type.NumIn()})
		}
	}
	return specs
}

// resultType returns the declared first result type of the named operation,
// or nil when the operation is unknown or returns nothing. Async dispatch
// uses it to produce a typed zero placeholder.
func (i *Interface) resultType(name string, arity int) reflect.Type {
	for _, ifc := range i.lineage() {
		if ifc.typ == nil {
			continue
		}
		for m := range ifc.typ.NumMethod() {
			method := ifc.typ.Method(m)
			if method.Name == name && method.Type.NumIn() == arity && method.Type.NumOut() > 0 {
				return method.Type.Out(0)
			}
		}
	}
	return nil
}
