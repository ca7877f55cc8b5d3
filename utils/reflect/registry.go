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

// Package reflect provides the dynamic access layer of the flow engine:
// a registry of named types, static fields and static methods, compiled
// property paths, and cached field, property and method accessors.
package reflect

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rulego/beanflow/api/types"
)

var builtinTypes = map[string]reflect.Type{
	"string":   reflect.TypeOf(""),
	"bool":     reflect.TypeOf(false),
	"int":      reflect.TypeOf(int(0)),
	"int8":     reflect.TypeOf(int8(0)),
	"int16":    reflect.TypeOf(int16(0)),
	"int32":    reflect.TypeOf(int32(0)),
	"int64":    reflect.TypeOf(int64(0)),
	"uint":     reflect.TypeOf(uint(0)),
	"uint8":    reflect.TypeOf(uint8(0)),
	"uint16":   reflect.TypeOf(uint16(0)),
	"uint32":   reflect.TypeOf(uint32(0)),
	"uint64":   reflect.TypeOf(uint64(0)),
	"float32":  reflect.TypeOf(float32(0)),
	"float64":  reflect.TypeOf(float64(0)),
	"byte":     reflect.TypeOf(byte(0)),
	"duration": reflect.TypeOf(time.Duration(0)),
	"time":     reflect.TypeOf(time.Time{}),
	"any":      reflect.TypeOf((*any)(nil)).Elem(),
	"map":      reflect.TypeOf(map[string]any(nil)),
	"list":     reflect.TypeOf([]any(nil)),
}

// Registry resolves class names to Go types, static fields and static methods.
// It is safe for concurrent use.
type Registry struct {
	lock    sync.RWMutex
	types   map[string]reflect.Type
	fields  map[string]map[string]reflect.Value
	methods map[string]map[string]reflect.Value
}

var _ types.TypeRegistry = (*Registry)(nil)

// NewRegistry returns a registry that knows the builtin scalar names,
// "map" (map[string]any) and "list" ([]any).
func NewRegistry() *Registry {
	return &Registry{
		types:   make(map[string]reflect.Type),
		fields:  make(map[string]map[string]reflect.Value),
		methods: make(map[string]map[string]reflect.Value),
	}
}

// RegisterType registers the type of sample under name. Pointer samples register the pointed type.
func (r *Registry) RegisterType(name string, sample any) {
	t := reflect.TypeOf(sample)
	if t == nil {
		return
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.lock.Lock()
	r.types[name] = t
	r.lock.Unlock()
}

// Register registers T under name.
func Register[T any](r *Registry, name string) {
	r.lock.Lock()
	r.types[name] = reflect.TypeOf((*T)(nil)).Elem()
	r.lock.Unlock()
}

// RegisterStaticField registers the variable pointed to by ptr as a static field of class.
func (r *Registry) RegisterStaticField(class, name string, ptr any) error {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("static field %s.%s must be a non nil pointer", class, name)
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.fields[class] == nil {
		r.fields[class] = make(map[string]reflect.Value)
	}
	r.fields[class][name] = v.Elem()
	return nil
}

// RegisterStaticMethod registers fn as a static method of class.
// A static method named "New" is used as the default factory of class.
func (r *Registry) RegisterStaticMethod(class, name string, fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Errorf("static method %s.%s must be a function", class, name)
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.methods[class] == nil {
		r.methods[class] = make(map[string]reflect.Value)
	}
	r.methods[class][name] = v
	return nil
}

// Type returns the type registered under name, or a builtin type.
func (r *Registry) Type(name string) (reflect.Type, bool) {
	r.lock.RLock()
	t, ok := r.types[name]
	r.lock.RUnlock()
	if ok {
		return t, true
	}
	t, ok = builtinTypes[name]
	return t, ok
}

// StaticField returns the addressable value of a registered static field.
func (r *Registry) StaticField(class, name string) (reflect.Value, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	v, ok := r.fields[class][name]
	return v, ok
}

// StaticMethod returns a registered static method.
func (r *Registry) StaticMethod(class, name string) (reflect.Value, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	v, ok := r.methods[class][name]
	return v, ok
}

// HasClass reports whether class is known as a type or owns static members.
func (r *Registry) HasClass(class string) bool {
	if _, ok := r.Type(class); ok {
		return true
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.fields[class]) > 0 || len(r.methods[class]) > 0
}
