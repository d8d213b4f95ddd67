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

// Package expression evaluates dotted, indexed property paths against
// arbitrary values: "author.name", "chapters[2].title", "author?.name".
// The "?" marker makes navigation null-safe: a nil value at that segment
// short-circuits to nil instead of failing. Lookup tries struct fields
// first, then accessor methods with the "", "Get", and "Is" prefixes, then
// string-keyed maps.
package expression

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrInvalidPath is returned when a path cannot be parsed.
	ErrInvalidPath = errors.New("invalid property path")
	// ErrNotFound is returned when a segment resolves to nothing.
	ErrNotFound = errors.New("property not found")
	// ErrNilValue is returned when navigation hits nil without a "?" marker.
	ErrNilValue = errors.New("nil value in property path")
	// ErrNotAssignable is returned by Assign when the target cannot be set.
	ErrNotAssignable = errors.New("property is not assignable")
)

// accessorPrefixes are the method-name prefixes tried when a segment does
// not match a struct field.
var accessorPrefixes = []string{"", "Get", "Is"}

// segment is one parsed element of a property path.
type segment struct {
	name     string
	optional bool  // "?" suffix: nil short-circuits instead of failing
	indexes  []int // "[i]" suffixes applied after the name lookup
}

// Evaluate navigates path starting at root and returns the value found.
func Evaluate(root any, path string) (any, error) {
	segments, err := parse(path)
	if err != nil {
		return nil, err
	}
	value, stop, err := navigate(reflect.ValueOf(root), segments, path)
	if err != nil || stop {
		return nil, err
	}
	if !value.IsValid() {
		return nil, nil
	}
	return value.Interface(), nil
}

// Assign navigates path up to its last segment and stores value there.
// The root must be a pointer (or contain pointers along the way) so that
// the final target is addressable.
func Assign(root any, path string, value any) error {
	segments, err := parse(path)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	parent := reflect.ValueOf(root)
	if len(segments) > 1 {
		var stop bool
		parent, stop, err = navigate(parent, segments[:len(segments)-1], path)
		if err != nil {
			return err
		}
		if stop {
			return fmt.Errorf("%w: %q at %q", ErrNilValue, path, segments[len(segments)-2].name)
		}
	}
	return assignSegment(parent, segments[len(segments)-1], value, path)
}

// navigate walks the segments. The stop flag is true when an optional
// segment short-circuited on nil.
func navigate(current reflect.Value, segments []segment, path string) (reflect.Value, bool, error) {
	for _, seg := range segments {
		current = indirect(current)
		if !current.IsValid() {
			return reflect.Value{}, false, fmt.Errorf("%w: %q before %q", ErrNilValue, path, seg.name)
		}

		next, found := lookup(current, seg.name)
		if !found {
			return reflect.Value{}, false, fmt.Errorf("%w: %q in %q on %s", ErrNotFound, seg.name, path, current.Type())
		}

		for _, idx := range seg.indexes {
			next = indirect(next)
			if !next.IsValid() || (next.Kind() != reflect.Slice && next.Kind() != reflect.Array) {
				return reflect.Value{}, false, fmt.Errorf("%w: %q is not indexable in %q", ErrInvalidPath, seg.name, path)
			}
			if idx < 0 || idx >= next.Len() {
				return reflect.Value{}, false, fmt.Errorf("%w: index %d out of range for %q in %q", ErrNotFound, idx, seg.name, path)
			}
			next = next.Index(idx)
		}

		if isNil(next) {
			if seg.optional {
				return reflect.Value{}, true, nil
			}
			current = next
			continue
		}
		current = next
	}

	current = indirect(current)
	return current, false, nil
}

// lookup resolves one name on a value: struct field, accessor method, or
// string-keyed map entry.
func lookup(v reflect.Value, name string) (reflect.Value, bool) {
	candidates := []string{name, capitalize(name)}

	if v.Kind() == reflect.Struct {
		for _, candidate := range candidates {
			structField, ok := v.Type().FieldByName(candidate)
			if !ok || !structField.IsExported() {
				continue
			}
			return v.FieldByName(candidate), true
		}
	}

	// accessor methods, value then pointer receiver
	receiver := v
	if v.CanAddr() {
		receiver = v.Addr()
	}
	for _, prefix := range accessorPrefixes {
		for _, candidate := range candidates {
			method := receiver.MethodByName(prefix + candidate)
			if !method.IsValid() {
				method = v.MethodByName(prefix + candidate)
			}
			if method.IsValid() && method.Type().NumIn() == 0 && method.Type().NumOut() >= 1 {
				return method.Call(nil)[0], true
			}
		}
	}

	if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
		entry := v.MapIndex(reflect.ValueOf(name))
		if entry.IsValid() {
			return entry, true
		}
		return reflect.Value{}, false
	}

	return reflect.Value{}, false
}

// assignSegment stores value into the target identified by the final
// segment relative to parent.
func assignSegment(parent reflect.Value, seg segment, value any, path string) error {
	parent = indirect(parent)
	if !parent.IsValid() {
		return fmt.Errorf("%w: %q", ErrNilValue, path)
	}

	if parent.Kind() == reflect.Map && parent.Type().Key().Kind() == reflect.String {
		if len(seg.indexes) > 0 {
			return fmt.Errorf("%w: indexed map assignment in %q", ErrNotAssignable, path)
		}
		val, err := coerce(value, parent.Type().Elem())
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrNotAssignable, path, err)
		}
		parent.SetMapIndex(reflect.ValueOf(seg.name), val)
		return nil
	}

	target, found := lookup(parent, seg.name)
	if !found {
		return fmt.Errorf("%w: %q in %q on %s", ErrNotFound, seg.name, path, parent.Type())
	}
	for _, idx := range seg.indexes {
		target = indirect(target)
		if !target.IsValid() || (target.Kind() != reflect.Slice && target.Kind() != reflect.Array) {
			return fmt.Errorf("%w: %q is not indexable in %q", ErrInvalidPath, seg.name, path)
		}
		if idx < 0 || idx >= target.Len() {
			return fmt.Errorf("%w: index %d out of range for %q in %q", ErrNotFound, idx, seg.name, path)
		}
		target = target.Index(idx)
	}

	if !target.CanSet() {
		return fmt.Errorf("%w: %q in %q", ErrNotAssignable, seg.name, path)
	}
	val, err := coerce(value, target.Type())
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrNotAssignable, path, err)
	}
	target.Set(val)
	return nil
}

func coerce(value any, target reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(target), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", rv.Type(), target)
}

// parse splits a path into segments. Grammar per segment:
// name ['?'] ('[' digits ']')*
func parse(path string) ([]segment, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	parts := strings.Split(trimmed, ".")
	segments := make([]segment, 0, len(parts))
	for _, part := range parts {
		seg, err := parseSegment(part, path)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func parseSegment(part, path string) (segment, error) {
	var seg segment
	rest := part

	if i := strings.IndexByte(rest, '['); i >= 0 {
		seg.name = rest[:i]
		indexPart := rest[i:]
		for indexPart != "" {
			if indexPart[0] != '[' {
				return segment{}, fmt.Errorf("%w: %q in %q", ErrInvalidPath, part, path)
			}
			close := strings.IndexByte(indexPart, ']')
			if close < 0 {
				return segment{}, fmt.Errorf("%w: unterminated index in %q", ErrInvalidPath, path)
			}
			idx, err := strconv.Atoi(indexPart[1:close])
			if err != nil {
				return segment{}, fmt.Errorf("%w: bad index %q in %q", ErrInvalidPath, indexPart[1:close], path)
			}
			seg.indexes = append(seg.indexes, idx)
			indexPart = indexPart[close+1:]
		}
	} else {
		seg.name = rest
	}

	if strings.HasSuffix(seg.name, "?") {
		seg.optional = true
		seg.name = strings.TrimSuffix(seg.name, "?")
	}
	if seg.name == "" {
		return segment{}, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
	}
	return seg, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}
