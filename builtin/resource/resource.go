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

// Package resource provides resource factories for flow resource declarations.
package resource

import (
	"context"

	"github.com/rulego/beanflow/api/types"
)

// FuncFactory adapts a function to types.ResourceFactory.
type FuncFactory func(ctx context.Context, key string, transacted bool) (types.TransactionResource, error)

func (f FuncFactory) MakeResource(ctx context.Context, key string, transacted bool) (types.TransactionResource, error) {
	return f(ctx, key, transacted)
}

// ObjectResource wraps an object with optional completion hooks.
type ObjectResource struct {
	Value      any
	OnCommit   func() error
	OnRollback func() error
	OnClose    func() error
}

func (r *ObjectResource) Object() any {
	return r.Value
}

func (r *ObjectResource) Commit() error {
	return call(r.OnCommit)
}

func (r *ObjectResource) Rollback() error {
	return call(r.OnRollback)
}

func (r *ObjectResource) Close() error {
	return call(r.OnClose)
}

func call(fn func() error) error {
	if fn == nil {
		return nil
	}
	return fn()
}
