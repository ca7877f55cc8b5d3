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

package resource

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/utils/cast"
)

// ErrSessionClosed is returned by a closed session.
var ErrSessionClosed = errors.New("session closed")

// Store is an in-memory key value store.
type Store struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string]any)}
}

func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Keys returns the sorted keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) apply(changes map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range changes {
		s.data[k] = v
	}
}

// Session reads and writes a store. Writes of a transacted session are buffered
// until Commit and dropped by Rollback.
type Session struct {
	store      *Store
	transacted bool

	mu      sync.Mutex
	pending map[string]any
	closed  bool
}

func (s *Session) Get(key string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.pending[key]; ok {
		return v
	}
	v, _ := s.store.Get(key)
	return v
}

func (s *Session) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(key, value)
}

func (s *Session) set(key string, value any) error {
	if s.closed {
		return ErrSessionClosed
	}
	if !s.transacted {
		s.store.Set(key, value)
		return nil
	}
	if s.pending == nil {
		s.pending = make(map[string]any)
	}
	s.pending[key] = value
	return nil
}

// Incr adds delta to the integer stored under key and returns the new value.
func (s *Session) Incr(key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.pending[key]
	if !ok {
		current, _ = s.store.Get(key)
	}
	n := cast.ToInt64(current) + delta
	return n, s.set(key, n)
}

// Transacted reports whether writes are buffered.
func (s *Session) Transacted() bool {
	return s.transacted
}

type sessionResource struct {
	session *Session
}

func (r *sessionResource) Object() any {
	return r.session
}

func (r *sessionResource) Commit() error {
	s := r.session
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	s.store.apply(pending)
	return nil
}

func (r *sessionResource) Rollback() error {
	s := r.session
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	return nil
}

func (r *sessionResource) Close() error {
	s := r.session
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ types.ResourceFactory = (*StoreFactory)(nil)

// StoreFactory hands out sessions over in-memory stores, one store per resource key.
type StoreFactory struct {
	stores sync.Map
}

// NewStoreFactory creates a factory without stores.
func NewStoreFactory() *StoreFactory {
	return &StoreFactory{}
}

// Store returns the store of key, creating it if needed.
func (f *StoreFactory) Store(key string) *Store {
	v, _ := f.stores.LoadOrStore(key, NewStore())
	return v.(*Store)
}

func (f *StoreFactory) MakeResource(_ context.Context, key string, transacted bool) (types.TransactionResource, error) {
	return &sessionResource{session: &Session{store: f.Store(key), transacted: transacted}}, nil
}
