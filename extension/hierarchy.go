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

	"github.com/gregory-ledenev/go-class-extension/internal/xsync"
)

// AnyObject is the universal root of the delegate type hierarchy. Handlers
// and pointcuts registered against AnyObject apply to every delegate type
// that has no more specific registration.
type AnyObject struct{}

var anyObjectType = reflect.TypeOf(AnyObject{})

// parents holds explicit supertype declarations, overriding the embedded
// field derivation.
var parents = xsync.NewMap[reflect.Type, reflect.Type]()

// RegisterParent declares parent as the supertype of child for hierarchy
// walking, overriding the default derivation from embedded struct fields.
// Both arguments accept a sample value, a pointer to one, or a
// reflect.Type.
func RegisterParent(child, parent any) {
	parents.Set(typeOf(child), typeOf(parent))
}

// UnregisterParent removes an explicit supertype declaration.
func UnregisterParent(child any) {
	parents.Delete(typeOf(child))
}

// typeOf normalizes a class argument: a reflect.Type passes through,
// anything else contributes its dynamic type, with pointers dereferenced to
// the underlying struct type.
func typeOf(v any) reflect.Type {
	var rt reflect.Type
	switch t := v.(type) {
	case reflect.Type:
		rt = t
	default:
		rt = reflect.TypeOf(v)
	}
	for rt != nil && rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	return rt
}

// parentOf returns the supertype of t: an explicit registration wins,
// otherwise the first embedded struct field is the parent, otherwise
// AnyObject. The root itself has no parent.
func parentOf(t reflect.Type) (reflect.Type, bool) {
	if t == anyObjectType {
		return nil, false
	}
	if p, ok := parents.Get(t); ok {
		return p, true
	}
	if t.Kind() == reflect.Struct {
		for i := range t.NumField() {
			field := t.Field(i)
			if !field.Anonymous {
				continue
			}
			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && ft != anyObjectType {
				return ft, true
			}
		}
	}
	return anyObjectType, true
}

// typeChain returns t followed by its supertypes, ending with AnyObject.
// A cycle in explicit parent registrations terminates the chain instead of
// looping.
func typeChain(t reflect.Type) []reflect.Type {
	var chain []reflect.Type
	seen := make(map[reflect.Type]struct{})
	for current := t; current != nil; {
		if _, ok := seen[current]; ok {
			break
		}
		seen[current] = struct{}{}
		chain = append(chain, current)
		parent, ok := parentOf(current)
		if !ok {
			break
		}
		current = parent
	}
	return chain
}

// simpleName returns the unqualified type name used for naming-convention
// lookups and wildcard matching.
func simpleName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.Name()
}
