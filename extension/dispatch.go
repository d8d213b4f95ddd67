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
	"strings"
	"unicode"
	"unicode/utf8"
)

// dispatcher weaves resolved advice around a terminal call. Both resolvers
// share it so per-registration advice, pointcut advice and the around chain
// behave identically for static and dynamic extensions.
type dispatcher struct {
	engine *AspectEngine
}

// invoke runs one operation: resolve the advice chain, overlay any
// per-registration advice, run before advice, thread the terminal call
// through the around chain outermost-first, then run after advice.
func (d *dispatcher) invoke(ext *Extension, name string, args []any, op *operation, terminal func() (any, error)) (any, error) {
	ctx := &AdviceContext{
		Delegate:  ext.delegate,
		Interface: ext.iface,
		Operation: name,
		Args:      args,
	}

	var chain adviceChain
	if d.engine != nil && !ext.iface.aspectsDisabled {
		chain = d.engine.resolve(ext.iface, typeOf(ext.delegate), name, args)
	}

	// Advice attached directly to the registration supersedes pointcut
	// advice of the same kind.
	if op != nil {
		before, after, around := op.advice()
		if before != nil {
			chain.before = []Before{before}
		}
		if after != nil {
			chain.after = []After{after}
		}
		if around != nil {
			chain.around = []Around{around}
		}
	}

	for _, advice := range chain.before {
		advice(ctx)
	}

	call := terminal
	for idx := len(chain.around) - 1; idx >= 0; idx-- {
		advice := chain.around[idx]
		next := call
		call = func() (any, error) { return advice(ctx, next) }
	}

	result, err := call()

	for _, advice := range chain.after {
		advice(ctx, result, err)
	}
	return result, err
}

// capitalize upper-cases the first rune so Java-style operation names like
// "ship" reach exported Go methods.
func capitalize(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// methodCandidates lists the method names tried for an operation, in order:
// the name itself, its capitalization, then each accessor prefix applied to
// the capitalized name.
func methodCandidates(name string, prefixes []string) []string {
	capitalized := capitalize(name)
	candidates := make([]string, 0, len(prefixes)+2)
	candidates = append(candidates, name)
	if capitalized != name {
		candidates = append(candidates, capitalized)
	}
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		candidate := prefix + capitalized
		if !strings.HasPrefix(capitalized, prefix) {
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

// callMethod invokes a method on recv matching the operation name and
// arity, trying the candidate names in order. found reports whether a
// callable method with matching arity exists; err carries argument type
// mismatches or the method's own error result.
func callMethod(recv any, name string, prefixes []string, args []any) (result any, found bool, err error) {
	rv := reflect.ValueOf(recv)
	if !rv.IsValid() {
		return nil, false, nil
	}

	for _, candidate := range methodCandidates(name, prefixes) {
		method := rv.MethodByName(candidate)
		if !method.IsValid() || method.Type().NumIn() != len(args) {
			continue
		}
		return invokeMethod(method, candidate, args)
	}
	return nil, false, nil
}

func invokeMethod(method reflect.Value, name string, args []any) (any, bool, error) {
	mt := method.Type()
	in := make([]reflect.Value, len(args))
	for idx, arg := range args {
		want := mt.In(idx)
		if arg == nil {
			in[idx] = reflect.Zero(want)
			continue
		}
		av := reflect.ValueOf(unwrapDelegate(arg))
		switch {
		case av.Type().AssignableTo(want):
			in[idx] = av
		case av.Type().ConvertibleTo(want):
			in[idx] = av.Convert(want)
		default:
			return nil, true, fmt.Errorf("method %s: argument %d: cannot use %s as %s", name, idx, av.Type(), want)
		}
	}

	out := method.Call(in)
	switch {
	case len(out) == 0:
		return nil, true, nil
	case mt.Out(mt.NumOut()-1) == errType:
		var callErr error
		if last := out[len(out)-1]; !last.IsNil() {
			callErr = last.Interface().(error)
		}
		if len(out) == 1 {
			return nil, true, callErr
		}
		return out[0].Interface(), true, callErr
	default:
		return out[0].Interface(), true, nil
	}
}

var errType = reflect.TypeOf((*error)(nil)).Elem()
