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

// Package beanflow runs flows of bean operations defined as JSON or YAML documents.
//
// # Usage
//
// A flow is an ordered list of steps. Each step operates on a target object and
// produces a result that the following steps can reference:
//
//	{
//	  "name": "greet",
//	  "steps": [
//	    {"name": "upper", "result": {"type": "expression", "expression": "upper(input)"}},
//	    {"type": "if", "test": "@upper.result@ == 'BOB'", "steps": [{"result": "hello bob"}]}
//	  ],
//	  "catch": [{"class": "error", "steps": [{"result": "failed"}]}]
//	}
//
// Register the flow
//
//	flow, err := beanflow.New([]byte(flowFile))
//
// Invoke it by name
//
//	result, err := beanflow.Invoke(context.Background(), "greet", "bob")
//
// Load all flow files of a folder and its sub folders
//
//	err := beanflow.Load("./flows")
package beanflow

import (
	"context"

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/engine"
)

// DefaultFactory is the registry used by the package level functions.
var DefaultFactory = engine.NewFactory(types.NewConfig())

// NewConfig creates a configuration for NewFactory.
func NewConfig(opts ...types.Option) types.Config {
	return types.NewConfig(opts...)
}

// NewFactory creates a flow registry of its own.
func NewFactory(config types.Config) *engine.Factory {
	return engine.NewFactory(config)
}

// Load registers every flow definition file of folder in DefaultFactory.
func Load(folder string) error {
	return DefaultFactory.Load(folder)
}

// New registers a JSON flow definition in DefaultFactory.
func New(def []byte) (*engine.Flow, error) {
	return DefaultFactory.New(def, &engine.JsonParser{})
}

// NewYaml registers a YAML flow definition in DefaultFactory.
func NewYaml(def []byte) (*engine.Flow, error) {
	return DefaultFactory.New(def, &engine.YamlParser{})
}

// Get returns the flow registered under name or alias.
func Get(name string) (*engine.Flow, bool) {
	return DefaultFactory.Get(name)
}

// Del removes a flow.
func Del(name string) {
	DefaultFactory.Del(name)
}

// Names returns the sorted names of the registered flows.
func Names() []string {
	return DefaultFactory.Names()
}

// Invoke runs the flow registered under name.
func Invoke(ctx context.Context, name string, input any, opts ...types.InvokeOption) (any, error) {
	return DefaultFactory.Invoke(ctx, name, input, opts...)
}

// Stop removes every flow of DefaultFactory.
func Stop() {
	DefaultFactory.Stop()
}
