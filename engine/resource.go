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
	"errors"
	"fmt"
	"sync"

	"github.com/rulego/beanflow/api/types"
)

var _ types.ResourceManager = (*DefaultResourceManager)(nil)

// DefaultResourceManagerFactory creates a DefaultResourceManager per invocation.
type DefaultResourceManagerFactory struct{}

func (f *DefaultResourceManagerFactory) CreateResourceManager(ctx context.Context) types.ResourceManager {
	return NewResourceManager(ctx)
}

type resourceEntry struct {
	name       string
	key        string
	service    types.ResourceFactory
	transacted bool
	close      bool
	resource   types.TransactionResource
	// completed is set once the resource was committed or rolled back.
	completed bool
}

// DefaultResourceManager creates declared resources on first use and completes the
// created ones once: commit or rollback for transacted resources, then close.
// After a partial commit, RollbackAll only touches the resources that did not commit.
type DefaultResourceManager struct {
	ctx     context.Context
	mu      sync.Mutex
	entries map[string]*resourceEntry
	// order is the creation order; completion walks it backwards.
	order []*resourceEntry
}

// NewResourceManager creates a resource manager. ctx is handed to the resource factories.
func NewResourceManager(ctx context.Context) *DefaultResourceManager {
	return &DefaultResourceManager{ctx: ctx, entries: make(map[string]*resourceEntry)}
}

func (m *DefaultResourceManager) AddResource(name, key string, service types.ResourceFactory, transacted, closeOnComplete bool) error {
	if service == nil {
		return fmt.Errorf("resource %s has no service", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[name]; ok {
		return fmt.Errorf("resource %s already declared", name)
	}
	if key == "" {
		key = name
	}
	m.entries[name] = &resourceEntry{name: name, key: key, service: service, transacted: transacted, close: closeOnComplete}
	return nil
}

func (m *DefaultResourceManager) GetResource(name string) (types.TransactionResource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrResourceNotFound, name)
	}
	if e.resource == nil {
		r, err := e.service.MakeResource(m.ctx, e.key, e.transacted)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", name, err)
		}
		e.resource = r
		m.order = append(m.order, e)
	}
	return e.resource, nil
}

// CommitAll commits the transacted resources not completed yet. A resource failing
// to commit stays open for RollbackAll.
func (m *DefaultResourceManager) CommitAll() error {
	return m.complete(false, func(r types.TransactionResource) error { return r.Commit() })
}

// RollbackAll rolls back the transacted resources not completed yet.
func (m *DefaultResourceManager) RollbackAll() error {
	return m.complete(true, func(r types.TransactionResource) error { return r.Rollback() })
}

func (m *DefaultResourceManager) complete(always bool, fn func(types.TransactionResource) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for i := len(m.order) - 1; i >= 0; i-- {
		e := m.order[i]
		if !e.transacted || e.completed {
			continue
		}
		err := fn(e.resource)
		if err != nil {
			errs = append(errs, fmt.Errorf("resource %s: %w", e.name, err))
		}
		e.completed = always || err == nil
	}
	return errors.Join(errs...)
}

func (m *DefaultResourceManager) Terminate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for i := len(m.order) - 1; i >= 0; i-- {
		e := m.order[i]
		if !e.close {
			continue
		}
		if err := e.resource.Close(); err != nil {
			errs = append(errs, fmt.Errorf("resource %s: %w", e.name, err))
		}
	}
	m.order = nil
	for _, e := range m.entries {
		e.resource = nil
		e.completed = false
	}
	return errors.Join(errs...)
}
