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
	"testing"

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/builtin/resource"
	"github.com/rulego/beanflow/builtin/transaction"
	"github.com/rulego/beanflow/test/assert"
)

func TestResourceManager(t *testing.T) {
	var events []string
	factory := resource.FuncFactory(func(_ context.Context, key string, transacted bool) (types.TransactionResource, error) {
		return &resource.ObjectResource{
			Value:      key,
			OnCommit:   func() error { events = append(events, "commit "+key); return nil },
			OnRollback: func() error { events = append(events, "rollback "+key); return nil },
			OnClose:    func() error { events = append(events, "close "+key); return nil },
		}, nil
	})
	m := NewResourceManager(context.Background())
	assert.Nil(t, m.AddResource("a", "", factory, true, true))
	assert.Nil(t, m.AddResource("b", "kb", factory, true, false))
	assert.Nil(t, m.AddResource("c", "kc", factory, false, true))
	assert.NotNil(t, m.AddResource("a", "", factory, false, false))
	assert.NotNil(t, m.AddResource("d", "", nil, false, false))

	_, err := m.GetResource("missing")
	assert.True(t, errors.Is(err, types.ErrResourceNotFound))

	rb, _ := m.GetResource("b")
	assert.Equal(t, "kb", rb.Object())
	ra, _ := m.GetResource("a")
	assert.Equal(t, "a", ra.Object())
	again, _ := m.GetResource("a")
	assert.True(t, ra == again)
	_, _ = m.GetResource("c")

	assert.Nil(t, m.CommitAll())
	assert.Nil(t, m.Terminate())
	assert.Equal(t, []string{"commit a", "commit kb", "close kc", "close a"}, events)

	events = nil
	_, _ = m.GetResource("b")
	assert.Nil(t, m.RollbackAll())
	assert.Equal(t, []string{"rollback kb"}, events)
}

func TestResourceManagerErrors(t *testing.T) {
	factory := resource.FuncFactory(func(_ context.Context, key string, _ bool) (types.TransactionResource, error) {
		if key == "broken" {
			return nil, errBoom
		}
		return &resource.ObjectResource{Value: key, OnCommit: func() error { return errBoom }}, nil
	})
	m := NewResourceManager(context.Background())
	_ = m.AddResource("broken", "", factory, true, false)
	_ = m.AddResource("ok", "", factory, true, false)
	_, err := m.GetResource("broken")
	assert.True(t, errors.Is(err, errBoom))
	_, _ = m.GetResource("ok")
	assert.True(t, errors.Is(m.CommitAll(), errBoom))
}

func TestFlowResourceCommitFailure(t *testing.T) {
	rolledBack := false
	factory := resource.FuncFactory(func(_ context.Context, key string, _ bool) (types.TransactionResource, error) {
		return &resource.ObjectResource{
			Value:      key,
			OnCommit:   func() error { return errBoom },
			OnRollback: func() error { rolledBack = true; return nil },
		}, nil
	})
	f := newTestFactory(nil,
		types.WithTransactionManager(transaction.NewManager()),
		types.WithResourceFactory("failing", factory))
	flow := mustNew(t, f, `{
		"name": "commitFails",
		"transaction": "Required",
		"resources": [{"name": "r", "service": "failing", "transacted": true}],
		"steps": [{"result": {"type": "resource", "name": "r"}}]
	}`)
	_, err := flow.Invoke(context.Background(), nil)
	var bce *types.BeanControlError
	assert.True(t, errors.As(err, &bce))
	assert.True(t, errors.Is(err, errBoom))
	assert.True(t, rolledBack)
}

func TestPartialCommitRollsBackTheRest(t *testing.T) {
	var events []string
	factory := resource.FuncFactory(func(_ context.Context, key string, _ bool) (types.TransactionResource, error) {
		return &resource.ObjectResource{
			Value: key,
			OnCommit: func() error {
				events = append(events, "commit "+key)
				if key == "a" {
					return errBoom
				}
				return nil
			},
			OnRollback: func() error { events = append(events, "rollback "+key); return nil },
		}, nil
	})
	f := newTestFactory(nil,
		types.WithTransactionManager(transaction.NewManager()),
		types.WithResourceFactory("svc", factory))
	flow := mustNew(t, f, `{
		"name": "partial",
		"transaction": "Required",
		"resources": [
			{"name": "a", "service": "svc", "transacted": true},
			{"name": "b", "service": "svc", "transacted": true}
		],
		"steps": [
			{"result": {"type": "resource", "name": "a"}},
			{"result": {"type": "resource", "name": "b"}}
		]
	}`)
	_, err := flow.Invoke(context.Background(), nil)
	assert.True(t, errors.Is(err, errBoom))
	assert.Equal(t, []string{"commit b", "commit a", "rollback a"}, events)

	m := NewResourceManager(context.Background())
	events = nil
	_ = m.AddResource("a", "", factory, true, false)
	_ = m.AddResource("b", "", factory, true, false)
	_, _ = m.GetResource("a")
	_, _ = m.GetResource("b")
	assert.True(t, errors.Is(m.CommitAll(), errBoom))
	assert.Nil(t, m.RollbackAll())
	assert.Nil(t, m.RollbackAll())
	assert.Equal(t, []string{"commit b", "commit a", "rollback a"}, events)
}
