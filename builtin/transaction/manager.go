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

// Package transaction provides a local transaction manager. Transactions are bound to
// a context.Context; there is no global or goroutine state.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/beanflow/api/types"
)

var (
	// ErrRollbackOnly is returned by Commit for a transaction marked rollback only. The transaction is rolled back.
	ErrRollbackOnly = errors.New("transaction marked rollback only")
	// ErrTimedOut is returned by Commit once the transaction timeout elapsed. The transaction is rolled back.
	ErrTimedOut = errors.New("transaction timed out")
	// ErrCompleted is returned when finishing a transaction twice.
	ErrCompleted = errors.New("transaction already completed")
)

type key struct{}

var txKey = key{}

// Synchronization is called once a transaction completed.
type Synchronization func(committed bool)

// Tx is a local transaction.
type Tx struct {
	id       string
	deadline time.Time

	mu     sync.Mutex
	status types.TransactionStatus
	syncs  []Synchronization
}

func (t *Tx) Id() string {
	return t.id
}

func (t *Tx) Status() types.TransactionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Tx) SetRollbackOnly() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == types.TransactionActive {
		t.status = types.TransactionMarkedRollback
	}
}

// Register adds a callback run when the transaction completes.
func (t *Tx) Register(s Synchronization) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.syncs = append(t.syncs, s)
}

// finish moves the transaction to its final status and runs the synchronizations.
func (t *Tx) finish(commit bool) error {
	t.mu.Lock()
	switch t.status {
	case types.TransactionCommitted, types.TransactionRolledBack:
		t.mu.Unlock()
		return ErrCompleted
	}
	var err error
	if commit {
		switch {
		case t.status == types.TransactionMarkedRollback:
			commit, err = false, ErrRollbackOnly
		case !t.deadline.IsZero() && time.Now().After(t.deadline):
			commit, err = false, ErrTimedOut
		}
	}
	if commit {
		t.status = types.TransactionCommitted
	} else {
		t.status = types.TransactionRolledBack
	}
	syncs := t.syncs
	t.syncs = nil
	t.mu.Unlock()
	for _, s := range syncs {
		s(commit)
	}
	return err
}

// Stats counts the operations of a Manager.
type Stats struct {
	Begun      int64
	Committed  int64
	RolledBack int64
	Suspended  int64
	Resumed    int64
}

var _ types.TransactionManager = (*Manager)(nil)

// Manager is a types.TransactionManager for local transactions.
type Manager struct {
	begun      int64
	committed  int64
	rolledBack int64
	suspended  int64
	resumed    int64
}

// NewManager creates a transaction manager.
func NewManager() *Manager {
	return &Manager{}
}

// FromContext returns the transaction bound to ctx, nil if none.
func FromContext(ctx context.Context) *Tx {
	tx, _ := ctx.Value(txKey).(*Tx)
	return tx
}

// Begin starts a transaction and binds it to the returned context.
func (m *Manager) Begin(ctx context.Context, timeout time.Duration) (context.Context, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return ctx, err
	}
	tx := &Tx{id: id.String()}
	if timeout > 0 {
		tx.deadline = time.Now().Add(timeout)
	}
	atomic.AddInt64(&m.begun, 1)
	return context.WithValue(ctx, txKey, tx), nil
}

func (m *Manager) Commit(ctx context.Context) error {
	tx := FromContext(ctx)
	if tx == nil {
		return types.ErrNoTransaction
	}
	err := tx.finish(true)
	switch {
	case err == nil:
		atomic.AddInt64(&m.committed, 1)
	case errors.Is(err, ErrCompleted):
		return fmt.Errorf("commit %s: %w", tx.id, err)
	default:
		atomic.AddInt64(&m.rolledBack, 1)
		return fmt.Errorf("commit %s: %w", tx.id, err)
	}
	return nil
}

func (m *Manager) Rollback(ctx context.Context) error {
	tx := FromContext(ctx)
	if tx == nil {
		return types.ErrNoTransaction
	}
	if err := tx.finish(false); err != nil {
		return fmt.Errorf("rollback %s: %w", tx.id, err)
	}
	atomic.AddInt64(&m.rolledBack, 1)
	return nil
}

// Suspend returns a context without the current transaction.
func (m *Manager) Suspend(ctx context.Context) (context.Context, types.Transaction, error) {
	tx := FromContext(ctx)
	if tx == nil {
		return ctx, nil, nil
	}
	atomic.AddInt64(&m.suspended, 1)
	return context.WithValue(ctx, txKey, (*Tx)(nil)), tx, nil
}

// Resume binds a suspended transaction to ctx.
func (m *Manager) Resume(ctx context.Context, tx types.Transaction) (context.Context, error) {
	if tx == nil {
		return ctx, nil
	}
	t, ok := tx.(*Tx)
	if !ok {
		return ctx, fmt.Errorf("foreign transaction %T", tx)
	}
	atomic.AddInt64(&m.resumed, 1)
	return context.WithValue(ctx, txKey, t), nil
}

func (m *Manager) Current(ctx context.Context) types.Transaction {
	if tx := FromContext(ctx); tx != nil {
		return tx
	}
	return nil
}

// Stats returns a snapshot of the operation counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Begun:      atomic.LoadInt64(&m.begun),
		Committed:  atomic.LoadInt64(&m.committed),
		RolledBack: atomic.LoadInt64(&m.rolledBack),
		Suspended:  atomic.LoadInt64(&m.suspended),
		Resumed:    atomic.LoadInt64(&m.resumed),
	}
}

// RegisterSynchronization adds a completion callback to the transaction bound to ctx.
func RegisterSynchronization(ctx context.Context, s Synchronization) error {
	tx := FromContext(ctx)
	if tx == nil {
		return types.ErrNoTransaction
	}
	tx.Register(s)
	return nil
}
