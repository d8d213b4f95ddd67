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
	"regexp"
	"slices"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/gregory-ledenev/go-class-extension/internal/xsync"
)

// AdviceKind distinguishes the three advice positions of a pointcut.
type AdviceKind int

const (
	// BeforeKind advice runs before the terminal operation.
	BeforeKind AdviceKind = iota
	// AfterKind advice runs after the terminal operation, observing its
	// result.
	AfterKind
	// AroundKind advice wraps the terminal operation and decides whether to
	// proceed.
	AroundKind
)

// String returns the string representation of the AdviceKind.
// It satisfies the fmt.Stringer interface.
func (k AdviceKind) String() string {
	switch k {
	case BeforeKind:
		return "Before"
	case AfterKind:
		return "After"
	case AroundKind:
		return "Around"
	default:
		return "Unknown"
	}
}

// AdviceContext carries the invocation being advised. Args is the live
// argument slice: around advice may substitute arguments in place.
type AdviceContext struct {
	Delegate  any
	Interface *Interface
	Operation string
	Args      []any
}

// Advice function shapes.
type (
	// Before advice observes an invocation before it runs.
	Before func(ctx *AdviceContext)
	// After advice observes the result or error of an invocation.
	After func(ctx *AdviceContext, result any, err error)
	// Around advice wraps an invocation. It may call proceed zero or more
	// times and may replace the result.
	Around func(ctx *AdviceContext, proceed func() (any, error)) (any, error)
)

// patternCache holds compiled wildcard patterns; patterns are tiny and few,
// so the cache is unbounded.
var patternCache = xsync.NewMap[string, *regexp.Regexp]()

// wildcardMatch reports whether name matches a glob-style pattern where '*'
// matches any run and '?' any single character.
func wildcardMatch(pattern, name string) bool {
	re, ok := patternCache.Get(pattern)
	if !ok {
		quoted := regexp.QuoteMeta(pattern)
		quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
		quoted = strings.ReplaceAll(quoted, `\?`, `.`)
		re = regexp.MustCompile(`^` + quoted + `$`)
		re, _ = patternCache.SetIfAbsent(pattern, re)
	}
	return re.MatchString(name)
}

// ifaceMatcher selects extension interfaces either by explicit identity or
// by a wildcard pattern over the interface name.
type ifaceMatcher struct {
	pattern string
	ifaces  mapset.Set[*Interface]
}

func (m ifaceMatcher) empty() bool {
	return m.pattern == "" && m.ifaces == nil
}

func (m ifaceMatcher) accepts(iface *Interface) bool {
	if m.ifaces != nil && m.ifaces.Contains(iface) {
		return true
	}
	return m.pattern != "" && wildcardMatch(m.pattern, iface.Name())
}

func (m ifaceMatcher) acceptsExact(iface *Interface) bool {
	return m.ifaces != nil && m.ifaces.Contains(iface)
}

// clone snapshots the matcher so later builder mutations do not leak into
// already-created pointcuts.
func (m ifaceMatcher) clone() ifaceMatcher {
	if m.ifaces != nil {
		m.ifaces = m.ifaces.Clone()
	}
	return m
}

// classMatcher selects object classes either by explicit identity or by a
// wildcard pattern over the simple type name.
type classMatcher struct {
	pattern string
	types   mapset.Set[reflect.Type]
}

func (m classMatcher) empty() bool {
	return m.pattern == "" && m.types == nil
}

func (m classMatcher) accepts(t reflect.Type) bool {
	if m.types != nil && m.types.Contains(t) {
		return true
	}
	return m.pattern != "" && wildcardMatch(m.pattern, simpleName(t))
}

func (m classMatcher) acceptsExact(t reflect.Type) bool {
	return m.types != nil && m.types.Contains(t)
}

func (m classMatcher) clone() classMatcher {
	if m.types != nil {
		m.types = m.types.Clone()
	}
	return m
}

// pointcut is one advice attached to an (interface, class, operation)
// predicate triple.
type pointcut struct {
	ifaces  ifaceMatcher
	classes classMatcher
	opPat   string
	params  []string

	kind    AdviceKind
	before  Before
	after   After
	around  Around
	enabled *atomic.Bool
}

// matchesOperation evaluates the operation and parameter predicates. An
// operation pattern starting with '!' negates the match. A nil parameter
// list accepts any arguments.
func (p *pointcut) matchesOperation(name string, args []any) bool {
	pattern := p.opPat
	negate := strings.HasPrefix(pattern, "!")
	if negate {
		pattern = pattern[1:]
	}
	matched := wildcardMatch(pattern, name)
	if negate {
		matched = !matched
	}
	if !matched {
		return false
	}

	if p.params != nil {
		if len(args) != len(p.params) {
			return false
		}
		for idx, pat := range p.params {
			if !wildcardMatch(pat, simpleName(typeOf(args[idx]))) {
				return false
			}
		}
	}
	return true
}

// adviceChain is the advice selected for one invocation: any number of
// before and after observers plus an ordered around chain.
type adviceChain struct {
	before []Before
	after  []After
	around []Around
}

// AspectEngine holds an ordered pointcut list and resolves the advice chain
// for each proxied invocation. A single engine is typically shared by the
// resolvers of a process.
type AspectEngine struct {
	mu        sync.Mutex
	pointcuts []*pointcut
	enabled   *atomic.Bool
}

// NewAspectEngine creates an enabled engine with no pointcuts.
func NewAspectEngine() *AspectEngine {
	return &AspectEngine{enabled: atomic.NewBool(true)}
}

// SetEnabled flips the global aspects switch. While disabled, resolve
// returns an empty chain and invocations run unadvised.
func (e *AspectEngine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
}

// Enabled reports the global aspects switch.
func (e *AspectEngine) Enabled() bool {
	return e.enabled.Load()
}

// Len returns the number of installed pointcuts.
func (e *AspectEngine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pointcuts)
}

// resolve selects the advice for one invocation. Matching walks the
// interface lineage crossed with the delegate class chain, most derived
// first, and per advice kind stops at the first level with a match; exact
// identity matches at a level beat pattern matches. Several around advices
// matched at the winning level chain in registration order.
func (e *AspectEngine) resolve(iface *Interface, objectType reflect.Type, opName string, args []any) adviceChain {
	var chain adviceChain
	if !e.enabled.Load() {
		return chain
	}

	e.mu.Lock()
	snapshot := slices.Clone(e.pointcuts)
	e.mu.Unlock()

	candidates := snapshot[:0:0]
	for _, p := range snapshot {
		if p.enabled.Load() && p.matchesOperation(opName, args) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return chain
	}

	lineage := iface.lineage()
	classes := typeChain(objectType)

	for _, kind := range []AdviceKind{BeforeKind, AfterKind, AroundKind} {
		hits := selectAtMostSpecificLevel(candidates, kind, lineage, classes)
		for _, p := range hits {
			switch kind {
			case BeforeKind:
				chain.before = append(chain.before, p.before)
			case AfterKind:
				chain.after = append(chain.after, p.after)
			case AroundKind:
				chain.around = append(chain.around, p.around)
			}
		}
	}
	return chain
}

// selectAtMostSpecificLevel scans (interface, class) levels in specificity
// order and returns the pointcuts of the given kind found at the first
// non-empty level, preferring exact matchers over patterns within a level.
func selectAtMostSpecificLevel(candidates []*pointcut, kind AdviceKind, lineage []*Interface, classes []reflect.Type) []*pointcut {
	for _, ifc := range lineage {
		for _, cls := range classes {
			var exact, loose []*pointcut
			for _, p := range candidates {
				if p.kind != kind {
					continue
				}
				if !p.ifaces.accepts(ifc) || !p.classes.accepts(cls) {
					continue
				}
				if p.ifaces.acceptsExact(ifc) && p.classes.acceptsExact(cls) {
					exact = append(exact, p)
				} else {
					loose = append(loose, p)
				}
			}
			if len(exact) > 0 {
				return exact
			}
			if len(loose) > 0 {
				return loose
			}
		}
	}
	return nil
}

// remove drops the given pointcuts from the engine.
func (e *AspectEngine) remove(targets []*pointcut) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pointcuts = slices.DeleteFunc(e.pointcuts, func(p *pointcut) bool {
		return slices.Contains(targets, p)
	})
}

// NewAspect starts building a set of pointcuts against this engine.
func (e *AspectEngine) NewAspect() *AspectBuilder {
	return &AspectBuilder{engine: e}
}

// AspectBuilder accumulates pointcut predicates and advice. Predicates stay
// in effect for every advice added after them, so one builder can attach a
// before/after/around triple to the same pointcut. Build installs the
// pointcuts atomically and reports any accumulated definition errors, in
// which case nothing is installed.
type AspectBuilder struct {
	engine  *AspectEngine
	ifaces  ifaceMatcher
	classes classMatcher
	opPat   string
	params  []string
	built   []*pointcut
	errs    []error
}

// ExtensionInterfacePattern matches extension interfaces by a wildcard
// pattern over the interface name.
func (b *AspectBuilder) ExtensionInterfacePattern(pattern string) *AspectBuilder {
	b.ifaces.pattern = pattern
	return b
}

// ExtensionInterfaces matches the given extension interfaces exactly.
func (b *AspectBuilder) ExtensionInterfaces(ifaces ...*Interface) *AspectBuilder {
	if b.ifaces.ifaces == nil {
		b.ifaces.ifaces = mapset.NewSet[*Interface]()
	}
	b.ifaces.ifaces.Append(ifaces...)
	return b
}

// ObjectClasses matches the given object classes exactly. Arguments accept
// sample values, pointers to them, or reflect.Types.
func (b *AspectBuilder) ObjectClasses(classes ...any) *AspectBuilder {
	if b.classes.types == nil {
		b.classes.types = mapset.NewSet[reflect.Type]()
	}
	for _, cls := range classes {
		b.classes.types.Add(typeOf(cls))
	}
	return b
}

// ObjectClassPattern matches object classes by a wildcard pattern over the
// simple type name.
func (b *AspectBuilder) ObjectClassPattern(pattern string) *AspectBuilder {
	b.classes.pattern = pattern
	return b
}

// Operation sets the operation name pattern. A leading '!' negates the
// pattern; '*' and '?' wildcards apply.
func (b *AspectBuilder) Operation(pattern string) *AspectBuilder {
	b.opPat = pattern
	return b
}

// Parameters constrains matching to invocations whose argument types match
// the given simple-name patterns positionally. Use an empty call to match
// only parameterless invocations.
func (b *AspectBuilder) Parameters(patterns ...string) *AspectBuilder {
	if patterns == nil {
		patterns = []string{}
	}
	b.params = patterns
	return b
}

// Before attaches before advice under the current predicates.
func (b *AspectBuilder) Before(advice Before) *AspectBuilder {
	p := b.newPointcut(BeforeKind)
	p.before = advice
	return b
}

// After attaches after advice under the current predicates.
func (b *AspectBuilder) After(advice After) *AspectBuilder {
	p := b.newPointcut(AfterKind)
	p.after = advice
	return b
}

// Around attaches around advice under the current predicates.
func (b *AspectBuilder) Around(advice Around) *AspectBuilder {
	p := b.newPointcut(AroundKind)
	p.around = advice
	return b
}

func (b *AspectBuilder) newPointcut(kind AdviceKind) *pointcut {
	if b.ifaces.empty() {
		b.errs = append(b.errs, fmt.Errorf("%w: %s advice for operation %q has no extension interface predicate",
			ErrInvalidPointcut, kind, b.opPat))
	}
	if b.classes.empty() {
		b.errs = append(b.errs, fmt.Errorf("%w: %s advice for operation %q has no object class predicate",
			ErrInvalidPointcut, kind, b.opPat))
	}
	if b.opPat == "" {
		b.errs = append(b.errs, fmt.Errorf("%w: %s advice has no operation predicate", ErrInvalidPointcut, kind))
	}

	p := &pointcut{
		ifaces:  b.ifaces.clone(),
		classes: b.classes.clone(),
		opPat:   b.opPat,
		params:  slices.Clone(b.params),
		kind:    kind,
		enabled: atomic.NewBool(true),
	}
	b.built = append(b.built, p)
	return p
}

// Build installs the accumulated pointcuts into the engine and returns a
// handle over them. When any definition error accumulated, nothing is
// installed and the combined error is returned.
func (b *AspectBuilder) Build() (*Aspect, error) {
	if err := multierr.Combine(b.errs...); err != nil {
		return nil, err
	}
	b.engine.mu.Lock()
	b.engine.pointcuts = append(b.engine.pointcuts, b.built...)
	b.engine.mu.Unlock()
	return &Aspect{engine: b.engine, pointcuts: slices.Clone(b.built)}, nil
}

// Aspect is a handle over the pointcuts installed by one builder. It
// enables, disables and removes them as a group or per advice kind.
type Aspect struct {
	engine    *AspectEngine
	pointcuts []*pointcut
}

// SetEnabled flips the given advice kinds of this aspect, or all of them
// when no kinds are given.
func (a *Aspect) SetEnabled(enabled bool, kinds ...AdviceKind) {
	for _, p := range a.pointcuts {
		if len(kinds) == 0 || slices.Contains(kinds, p.kind) {
			p.enabled.Store(enabled)
		}
	}
}

// Remove uninstalls the given advice kinds of this aspect from the engine,
// or all of them when no kinds are given.
func (a *Aspect) Remove(kinds ...AdviceKind) {
	var targets []*pointcut
	for _, p := range a.pointcuts {
		if len(kinds) == 0 || slices.Contains(kinds, p.kind) {
			targets = append(targets, p)
		}
	}
	a.engine.remove(targets)
	a.pointcuts = slices.DeleteFunc(a.pointcuts, func(p *pointcut) bool {
		return slices.Contains(targets, p)
	})
}
