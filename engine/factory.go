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

package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/utils/fs"
)

var _ types.FlowFactory = (*Factory)(nil)

// FlowFilePatterns are the definition files picked up by Factory.Load.
var FlowFilePatterns = []string{"*.json", "*.JSON", "*.yaml", "*.yml"}

// Callbacks are notified of registry changes.
type Callbacks struct {
	// OnNew is called after a flow was registered.
	OnNew func(name string, dsl types.FlowDsl)
	// OnDeleted is called after a flow was removed.
	OnDeleted func(name string)
}

// Factory is a registry of flows. It resolves the sub-flow calls of the flows it holds.
type Factory struct {
	env *Env
	// flows maps flow names to *Flow.
	flows sync.Map
	// aliases maps alias names to flow names.
	aliases sync.Map

	mu        sync.RWMutex
	overrides map[string]string

	Callbacks Callbacks
}

// NewFactory creates an empty factory. Missing collaborators of config are defaulted.
func NewFactory(config types.Config) *Factory {
	f := &Factory{overrides: make(map[string]string)}
	f.env = NewEnv(config, f)
	return f
}

// Env returns the environment shared by the flows of the factory.
func (f *Factory) Env() *Env {
	return f.env
}

// Load registers every flow definition found under folder and its sub folders.
// Files failing to load are logged and skipped.
func (f *Factory) Load(folder string) error {
	paths, err := fs.FilePaths(folder, FlowFilePatterns)
	if err != nil {
		return err
	}
	for _, path := range paths {
		data, err := fs.LoadFile(path)
		if err == nil {
			_, err = f.New(data, ParserFor(path))
		}
		if err != nil {
			f.env.Logger().Printf("load flow %s: %v", path, err)
		}
	}
	return nil
}

// New decodes and registers a flow definition.
func (f *Factory) New(data []byte, parser Parser) (*Flow, error) {
	if len(data) == 0 {
		return nil, types.ErrDslEmpty
	}
	if parser == nil {
		parser = &JsonParser{}
	}
	dsl, err := parser.DecodeFlow(data)
	if err != nil {
		return nil, err
	}
	return f.Register(dsl)
}

// Register builds dsl and registers it under its name and aliases, replacing a flow
// registered under the same name.
func (f *Factory) Register(dsl types.FlowDsl) (*Flow, error) {
	def, err := Build(f.env, dsl)
	if err != nil {
		return nil, err
	}
	flow := NewFlow(f.env, def)
	if old, ok := f.flows.Load(def.Name); ok {
		f.dropAliases(old.(*Flow))
	}
	f.flows.Store(def.Name, flow)
	for _, alias := range def.Aliases {
		f.aliases.Store(alias, def.Name)
	}
	if f.Callbacks.OnNew != nil {
		f.Callbacks.OnNew(def.Name, dsl)
	}
	return flow, nil
}

func (f *Factory) resolve(name string) string {
	if _, ok := f.flows.Load(name); ok {
		return name
	}
	if target, ok := f.aliases.Load(name); ok {
		return target.(string)
	}
	return name
}

// Get returns the flow registered under name or alias.
func (f *Factory) Get(name string) (*Flow, bool) {
	v, ok := f.flows.Load(f.resolve(name))
	if !ok {
		return nil, false
	}
	return v.(*Flow), true
}

// Del removes the flow registered under name or alias.
func (f *Factory) Del(name string) {
	name = f.resolve(name)
	v, ok := f.flows.LoadAndDelete(name)
	if !ok {
		return
	}
	f.dropAliases(v.(*Flow))
	if f.Callbacks.OnDeleted != nil {
		f.Callbacks.OnDeleted(name)
	}
}

func (f *Factory) dropAliases(flow *Flow) {
	for _, alias := range flow.def.Aliases {
		if target, ok := f.aliases.Load(alias); ok && target == flow.def.Name {
			f.aliases.Delete(alias)
		}
	}
}

// Range calls fn for every flow until fn returns false.
func (f *Factory) Range(fn func(name string, flow *Flow) bool) {
	f.flows.Range(func(key, value any) bool {
		return fn(key.(string), value.(*Flow))
	})
}

// Names returns the sorted names of the registered flows.
func (f *Factory) Names() []string {
	var names []string
	f.Range(func(name string, _ *Flow) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// SetOverride makes calls to name that allow overriding run override instead.
// An empty override removes the mapping.
func (f *Factory) SetOverride(name, override string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if override == "" {
		delete(f.overrides, name)
	} else {
		f.overrides[name] = override
	}
}

// CreateFlow returns the flow registered under name. With allowOverride a registered
// override of name is returned instead.
func (f *Factory) CreateFlow(name, caller string, allowOverride bool) (types.Flow, error) {
	if allowOverride {
		f.mu.RLock()
		override, ok := f.overrides[name]
		f.mu.RUnlock()
		if ok && f.ContainsFlow(override) {
			name = override
		}
	}
	flow, ok := f.Get(name)
	if !ok {
		if caller != "" {
			return nil, fmt.Errorf("%w: %s called by %s", types.ErrFlowNotFound, name, caller)
		}
		return nil, fmt.Errorf("%w: %s", types.ErrFlowNotFound, name)
	}
	return flow, nil
}

func (f *Factory) ContainsFlow(name string) bool {
	_, ok := f.Get(name)
	return ok
}

// Invoke runs the flow registered under name.
func (f *Factory) Invoke(ctx context.Context, name string, input any, opts ...types.InvokeOption) (any, error) {
	flow, err := f.CreateFlow(name, "", false)
	if err != nil {
		return nil, err
	}
	defer flow.End()
	return flow.Invoke(ctx, input, opts...)
}

// Stop removes every flow and releases the async pool.
func (f *Factory) Stop() {
	for _, name := range f.Names() {
		f.Del(name)
	}
	if p := f.env.Config.Pool; p != nil {
		p.Release()
	}
}
