/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package reflect

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/utils/cast"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type accessKind int

const (
	accessField accessKind = iota
	accessGetter
	accessSetter
	accessMethod
)

type accessKey struct {
	t    reflect.Type
	name string
	kind accessKind
}

type accessor struct {
	found bool
	// field index path for fields, method name for methods.
	index  []int
	method string
}

// accessors caches resolved fields and methods per concrete type.
var accessors sync.Map

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func lookup(t reflect.Type, name string, kind accessKind) accessor {
	key := accessKey{t: t, name: name, kind: kind}
	if v, ok := accessors.Load(key); ok {
		return v.(accessor)
	}
	a := resolve(t, name, kind)
	accessors.Store(key, a)
	return a
}

func resolve(t reflect.Type, name string, kind accessKind) accessor {
	switch kind {
	case accessField:
		st := t
		for st.Kind() == reflect.Ptr {
			st = st.Elem()
		}
		if st.Kind() != reflect.Struct {
			return accessor{}
		}
		for _, candidate := range []string{name, upperFirst(name)} {
			if f, ok := st.FieldByName(candidate); ok && f.IsExported() {
				return accessor{found: true, index: f.Index}
			}
		}
	case accessGetter:
		upper := upperFirst(name)
		for _, candidate := range []string{"Get" + upper, upper, "Is" + upper} {
			if m, ok := t.MethodByName(candidate); ok && m.Type.NumIn() == 1 && m.Type.NumOut() >= 1 {
				return accessor{found: true, method: candidate}
			}
		}
	case accessSetter:
		candidate := "Set" + upperFirst(name)
		if m, ok := t.MethodByName(candidate); ok && m.Type.NumIn() == 2 {
			return accessor{found: true, method: candidate}
		}
	case accessMethod:
		for _, candidate := range []string{name, upperFirst(name)} {
			if _, ok := t.MethodByName(candidate); ok {
				return accessor{found: true, method: candidate}
			}
		}
	}
	return accessor{}
}

// indirect dereferences pointers and interfaces. ok is false when a nil is met.
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

// IsNil reports whether value is nil or a nil pointer, map, slice, func, chan or interface.
func IsNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// GetField reads an exported struct field, or the entry of a string keyed map.
func GetField(target any, name string) (any, error) {
	v, ok := indirect(reflect.ValueOf(target))
	if !ok {
		return nil, fmt.Errorf("get field %s: target is nil", name)
	}
	if v.Kind() == reflect.Map {
		return mapGet(v, name)
	}
	a := lookup(v.Type(), name, accessField)
	if !a.found {
		return nil, fmt.Errorf("get field %s: no such field in %s", name, v.Type())
	}
	f, err := v.FieldByIndexErr(a.index)
	if err != nil {
		return nil, nil
	}
	return f.Interface(), nil
}

// GetProperty reads a bean property: a getter (GetX, X or IsX), then a field, then a map entry.
func GetProperty(target any, name string) (any, error) {
	if target == nil {
		return nil, fmt.Errorf("get property %s: target is nil", name)
	}
	rv := reflect.ValueOf(target)
	if a := lookup(rv.Type(), name, accessGetter); a.found {
		return call(rv.MethodByName(a.method), a.method, nil)
	}
	v, ok := indirect(rv)
	if !ok {
		return nil, fmt.Errorf("get property %s: target is nil", name)
	}
	if v.Kind() == reflect.Map {
		return mapGet(v, name)
	}
	if v.Kind() == reflect.Struct {
		if v.CanAddr() {
			if a := lookup(v.Addr().Type(), name, accessGetter); a.found {
				return call(v.Addr().MethodByName(a.method), a.method, nil)
			}
		}
		if a := lookup(v.Type(), name, accessField); a.found {
			f, err := v.FieldByIndexErr(a.index)
			if err != nil {
				return nil, nil
			}
			return f.Interface(), nil
		}
	}
	return nil, fmt.Errorf("get property %s: no such property in %s", name, v.Type())
}

// SetField assigns an exported struct field of a pointer target, or a map entry.
func SetField(target any, name string, value any, opts AssignOptions) error {
	v, ok := indirect(reflect.ValueOf(target))
	if !ok {
		return fmt.Errorf("set field %s: target is nil", name)
	}
	if v.Kind() == reflect.Map {
		return mapSet(v, name, value, opts)
	}
	a := lookup(v.Type(), name, accessField)
	if !a.found {
		return fmt.Errorf("set field %s: no such field in %s", name, v.Type())
	}
	f, err := v.FieldByIndexErr(a.index)
	if err != nil {
		return fmt.Errorf("set field %s: %w", name, err)
	}
	if !f.CanSet() {
		return fmt.Errorf("set field %s: %s is not addressable, use a pointer target", name, v.Type())
	}
	assigned, err := Assign(value, f.Type(), opts)
	if err != nil {
		return fmt.Errorf("set field %s: %w", name, err)
	}
	f.Set(assigned)
	return nil
}

// SetProperty assigns a bean property: a SetX method, then a field, then a map entry.
func SetProperty(target any, name string, value any, opts AssignOptions) error {
	if target == nil {
		return fmt.Errorf("set property %s: target is nil", name)
	}
	rv := reflect.ValueOf(target)
	if a := lookup(rv.Type(), name, accessSetter); a.found {
		m := rv.MethodByName(a.method)
		arg, err := Assign(value, m.Type().In(0), opts)
		if err != nil {
			return fmt.Errorf("set property %s: %w", name, err)
		}
		_, err = call(m, a.method, []reflect.Value{arg})
		return err
	}
	return SetField(target, name, value, opts)
}

// Invoke calls the method of target by name. Arguments are assigned to the parameter types,
// variadic methods accept their trailing arguments individually. A non nil trailing error
// result is returned wrapped in a types.InvocationError.
func Invoke(target any, method string, args []any) (any, error) {
	if target == nil {
		return nil, fmt.Errorf("invoke %s: target is nil", method)
	}
	rv := reflect.ValueOf(target)
	a := lookup(rv.Type(), method, accessMethod)
	if !a.found {
		return nil, fmt.Errorf("invoke %s: no such method in %s", method, rv.Type())
	}
	return Call(rv.MethodByName(a.method), a.method, args)
}

// Call calls fn with args assigned to its parameter types.
func Call(fn reflect.Value, name string, args []any) (any, error) {
	in, err := callArgs(fn.Type(), name, args)
	if err != nil {
		return nil, err
	}
	return call(fn, name, in)
}

func callArgs(ft reflect.Type, name string, args []any) ([]reflect.Value, error) {
	n := ft.NumIn()
	if ft.IsVariadic() {
		if len(args) < n-1 {
			return nil, fmt.Errorf("invoke %s: want at least %d arguments, got %d", name, n-1, len(args))
		}
	} else if len(args) != n {
		return nil, fmt.Errorf("invoke %s: want %d arguments, got %d", name, n, len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= n-1 {
			pt = ft.In(n - 1).Elem()
		} else {
			pt = ft.In(i)
		}
		v, err := Assign(arg, pt, AssignOptions{})
		if err != nil {
			return nil, fmt.Errorf("invoke %s: argument %d: %w", name, i, err)
		}
		in[i] = v
	}
	return in, nil
}

func call(fn reflect.Value, name string, in []reflect.Value) (result any, err error) {
	defer func() {
		if e := recover(); e != nil {
			result = nil
			err = &types.InvocationError{Method: name, Err: fmt.Errorf("panic: %v", e)}
		}
	}()
	out := fn.Call(in)
	if len(out) > 0 && fn.Type().Out(len(out)-1) == errorType {
		last := out[len(out)-1]
		out = out[:len(out)-1]
		if !last.IsNil() {
			return nil, &types.InvocationError{Method: name, Err: last.Interface().(error)}
		}
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}
	values := make([]any, len(out))
	for i, o := range out {
		values[i] = o.Interface()
	}
	return values, nil
}

// AssignOptions controls how Assign adapts a value to a destination type.
type AssignOptions struct {
	// NarrowCast allows the lossy numeric conversions of cast.Narrow.
	NarrowCast bool
	// FromText converts string values with Converters when the destination is not a string.
	FromText bool
	// Converters supplies text converters for FromText.
	Converters types.ConverterRegistry
}

// ErrNotAssignable is wrapped by Assign failures.
var ErrNotAssignable = errors.New("not assignable")

// Assign adapts value to type to. nil becomes the zero value; numeric values are widened
// implicitly and narrowed only when NarrowCast is set; slices are converted element wise.
func Assign(value any, to reflect.Type, opts AssignOptions) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(to), nil
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(to) {
		return v, nil
	}
	if text, ok := value.(string); ok && opts.FromText && opts.Converters != nil {
		if converter, ok := opts.Converters.ConverterFor(to); ok {
			converted, err := converter(text)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("convert %q to %s: %w", text, to, err)
			}
			if converted == nil {
				return reflect.Zero(to), nil
			}
			return reflect.ValueOf(converted), nil
		}
	}
	if opts.NarrowCast {
		if n, ok := cast.Narrow(value, to); ok {
			return reflect.ValueOf(n), nil
		}
	}
	if w, ok := cast.Widen(value, to); ok {
		return reflect.ValueOf(w), nil
	}
	if v.Kind() == to.Kind() && v.Type().ConvertibleTo(to) {
		// same kind, different named type
		return v.Convert(to), nil
	}
	if (v.Kind() == reflect.Slice || v.Kind() == reflect.Array) && to.Kind() == reflect.Slice {
		out := reflect.MakeSlice(to, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := Assign(v.Index(i).Interface(), to.Elem(), opts)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	}
	if v.Kind() == reflect.Ptr && !v.IsNil() && v.Elem().Type().AssignableTo(to) {
		return v.Elem(), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s to %s", ErrNotAssignable, v.Type(), to)
}

func isNumeric(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

// NewInstance allocates a value of t. Structs and scalars are returned as pointers so
// that setters and field assignment apply to the instance; maps and slices are made empty.
func NewInstance(t reflect.Type) any {
	switch t.Kind() {
	case reflect.Map:
		return reflect.MakeMap(t).Interface()
	case reflect.Slice:
		return reflect.MakeSlice(t, 0, 0).Interface()
	case reflect.Ptr:
		return reflect.New(t.Elem()).Interface()
	case reflect.Interface:
		return nil
	}
	return reflect.New(t).Interface()
}

// NewArray makes a []elem of length n.
func NewArray(elem reflect.Type, n int) any {
	return reflect.MakeSlice(reflect.SliceOf(elem), n, n).Interface()
}

func mapKey(m reflect.Value, key string) (reflect.Value, error) {
	kt := m.Type().Key()
	if kt.Kind() == reflect.String {
		return reflect.ValueOf(key).Convert(kt), nil
	}
	if kt.Kind() == reflect.Interface {
		return reflect.ValueOf(key), nil
	}
	if isNumeric(kt.Kind()) {
		f, err := strconv.ParseFloat(key, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("map key %q: %w", key, err)
		}
		return reflect.ValueOf(f).Convert(kt), nil
	}
	return reflect.Value{}, fmt.Errorf("map key %q: unsupported key type %s", key, kt)
}

func mapGet(m reflect.Value, key string) (any, error) {
	k, err := mapKey(m, key)
	if err != nil {
		return nil, err
	}
	v := m.MapIndex(k)
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

func mapSet(m reflect.Value, key string, value any, opts AssignOptions) error {
	if m.IsNil() {
		return fmt.Errorf("set %s: map is nil", key)
	}
	k, err := mapKey(m, key)
	if err != nil {
		return err
	}
	v, err := Assign(value, m.Type().Elem(), opts)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	m.SetMapIndex(k, v)
	return nil
}
