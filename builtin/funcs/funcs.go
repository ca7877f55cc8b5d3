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

// Package funcs holds the built-in functions visible to flow expressions and scripts.
package funcs

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Builtins are registered in every flow environment.
var Builtins funcMap

var escaper = strings.NewReplacer(
	"\\", "\\\\",
	"\"", "\\\"",
	"\n", "\\n",
	"\r", "\\r",
	"\t", "\\t",
)

func init() {
	Builtins.Register("escape", func(s string) string {
		return escaper.Replace(s)
	})
	Builtins.Register("uuid", func() string {
		return uuid.Must(uuid.NewV4()).String()
	})
	Builtins.Register("unixMilli", func() int64 {
		return time.Now().UnixMilli()
	})
}

type funcMap struct {
	v map[string]any
	sync.RWMutex
}

func (x *funcMap) Register(name string, value any) {
	x.Lock()
	defer x.Unlock()
	if x.v == nil {
		x.v = make(map[string]any)
	}
	x.v[name] = value
}

func (x *funcMap) RegisterAll(values map[string]any) {
	x.Lock()
	defer x.Unlock()
	if x.v == nil {
		x.v = make(map[string]any)
	}
	for k, v := range values {
		x.v[k] = v
	}
}

func (x *funcMap) UnRegister(name string) {
	x.Lock()
	defer x.Unlock()
	delete(x.v, name)
}

func (x *funcMap) Get(name string) (any, bool) {
	x.RLock()
	defer x.RUnlock()
	f, ok := x.v[name]
	return f, ok
}

// GetAll returns a copy of the registered functions.
func (x *funcMap) GetAll() map[string]any {
	x.RLock()
	defer x.RUnlock()
	cp := make(map[string]any, len(x.v))
	for k, v := range x.v {
		cp[k] = v
	}
	return cp
}

// Names returns the sorted function names.
func (x *funcMap) Names() []string {
	x.RLock()
	defer x.RUnlock()
	keys := make([]string, 0, len(x.v))
	for k := range x.v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
