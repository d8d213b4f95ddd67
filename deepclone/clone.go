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

// Package deepclone provides a reflective deep-copy utility. It is consumed
// by the extension engine's isolation advice to keep callers from mutating
// state shared with a delegate.
package deepclone

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrCircular is returned when the value graph contains a cycle. The cycle
// is detected with an explicit visiting stack and reported instead of
// recursing until the stack overflows.
var ErrCircular = errors.New("circular structure detected")

// ErrUnsupported is returned for values that cannot be duplicated, such as
// channels and functions.
var ErrUnsupported = errors.New("unsupported value kind")

// Cloner may be implemented by types that know how to duplicate themselves.
// When a value implements Cloner, its DeepClone result is used as-is and no
// reflective traversal happens for that value.
type Cloner interface {
	DeepClone() any
}

// Clone returns a deep copy of value. Pointers, slices, maps, arrays, and
// struct fields (exported only) are duplicated recursively; unexported
// struct fields are left at their zero value since reflection cannot set
// them. A cycle anywhere in the value graph yields ErrCircular.
func Clone[T any](value T) (T, error) {
	rv := reflect.ValueOf(&value).Elem()
	out := reflect.New(rv.Type()).Elem()
	visiting := make(map[visitKey]struct{})
	if err := cloneValue(rv, out, visiting); err != nil {
		var zero T
		return zero, err
	}
	return out.Interface().(T), nil
}

// visitKey identifies one reference currently on the traversal stack.
type visitKey struct {
	ptr uintptr
	typ reflect.Type
}

func cloneValue(in, out reflect.Value, visiting map[visitKey]struct{}) error {
	if !in.IsValid() {
		return nil
	}

	if in.CanInterface() {
		if cloner, ok := in.Interface().(Cloner); ok {
			cloned := reflect.ValueOf(cloner.DeepClone())
			if cloned.IsValid() && cloned.Type().AssignableTo(out.Type()) {
				out.Set(cloned)
				return nil
			}
		}
	}

	switch in.Kind() {
	case reflect.Ptr:
		if in.IsNil() {
			return nil
		}
		key := visitKey{ptr: in.Pointer(), typ: in.Type()}
		if _, seen := visiting[key]; seen {
			return fmt.Errorf("%w: %s", ErrCircular, in.Type())
		}
		visiting[key] = struct{}{}
		defer delete(visiting, key)

		out.Set(reflect.New(in.Type().Elem()))
		return cloneValue(in.Elem(), out.Elem(), visiting)

	case reflect.Interface:
		if in.IsNil() {
			return nil
		}
		elem := in.Elem()
		copied := reflect.New(elem.Type()).Elem()
		if err := cloneValue(elem, copied, visiting); err != nil {
			return err
		}
		out.Set(copied)
		return nil

	case reflect.Struct:
		t := in.Type()
		for i := range t.NumField() {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := cloneValue(in.Field(i), out.Field(i), visiting); err != nil {
				return err
			}
		}
		return nil

	case reflect.Slice:
		if in.IsNil() {
			return nil
		}
		key := visitKey{ptr: in.Pointer(), typ: in.Type()}
		if _, seen := visiting[key]; seen {
			return fmt.Errorf("%w: %s", ErrCircular, in.Type())
		}
		visiting[key] = struct{}{}
		defer delete(visiting, key)

		out.Set(reflect.MakeSlice(in.Type(), in.Len(), in.Cap()))
		for i := range in.Len() {
			if err := cloneValue(in.Index(i), out.Index(i), visiting); err != nil {
				return err
			}
		}
		return nil

	case reflect.Array:
		for i := range in.Len() {
			if err := cloneValue(in.Index(i), out.Index(i), visiting); err != nil {
				return err
			}
		}
		return nil

	case reflect.Map:
		if in.IsNil() {
			return nil
		}
		key := visitKey{ptr: in.Pointer(), typ: in.Type()}
		if _, seen := visiting[key]; seen {
			return fmt.Errorf("%w: %s", ErrCircular, in.Type())
		}
		visiting[key] = struct{}{}
		defer delete(visiting, key)

		out.Set(reflect.MakeMapWithSize(in.Type(), in.Len()))
		iter := in.MapRange()
		for iter.Next() {
			mk := reflect.New(iter.Key().Type()).Elem()
			if err := cloneValue(iter.Key(), mk, visiting); err != nil {
				return err
			}
			mv := reflect.New(iter.Value().Type()).Elem()
			if err := cloneValue(iter.Value(), mv, visiting); err != nil {
				return err
			}
			out.SetMapIndex(mk, mv)
		}
		return nil

	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Errorf("%w: %s", ErrUnsupported, in.Kind())

	default:
		// scalar kinds copy by value
		out.Set(in)
		return nil
	}
}
