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

func TestPropagationTable(t *testing.T) {
	const (
		none = iota
		joined
		fresh
	)
	tests := []struct {
		policy   types.Propagation
		existing bool
		want     int
		wantErr  error
		stats    transaction.Stats
	}{
		{types.PropagationRequired, false, fresh, nil, transaction.Stats{Begun: 1, Committed: 1}},
		{types.PropagationRequired, true, joined, nil, transaction.Stats{Begun: 1}},
		{types.PropagationRequiresNew, false, fresh, nil, transaction.Stats{Begun: 1, Committed: 1}},
		{types.PropagationRequiresNew, true, fresh, nil, transaction.Stats{Begun: 2, Committed: 1, Suspended: 1, Resumed: 1}},
		{types.PropagationSupports, false, none, nil, transaction.Stats{}},
		{types.PropagationSupports, true, joined, nil, transaction.Stats{Begun: 1}},
		{types.PropagationMandatory, false, none, types.ErrTransactionRequired, transaction.Stats{}},
		{types.PropagationMandatory, true, joined, nil, transaction.Stats{Begun: 1}},
		{types.PropagationNever, false, none, nil, transaction.Stats{}},
		{types.PropagationNever, true, none, types.ErrTransactionNotAllowed, transaction.Stats{Begun: 1}},
		{types.PropagationNotSupported, false, none, nil, transaction.Stats{}},
		{types.PropagationNotSupported, true, none, nil, transaction.Stats{Begun: 1, Suspended: 1, Resumed: 1}},
	}
	for _, tt := range tests {
		m := transaction.NewManager()
		ctx := context.Background()
		var outer types.Transaction
		if tt.existing {
			ctx, _ = m.Begin(ctx, 0)
			outer = m.Current(ctx)
		}
		b := &transactionBracket{flow: "f", tm: m, policy: tt.policy, logger: types.DiscardLogger()}
		ran := false
		var inner types.Transaction
		err := b.run(ctx, func(ctx context.Context) error {
			ran = true
			inner = m.Current(ctx)
			return nil
		})
		name := tt.policy.String()
		if tt.wantErr != nil {
			assert.True(t, errors.Is(err, tt.wantErr), name)
			var bce *types.BeanControlError
			assert.True(t, errors.As(err, &bce), name)
			assert.False(t, ran, name)
		} else {
			assert.Nil(t, err, name)
			assert.True(t, ran, name)
			switch tt.want {
			case none:
				assert.Nil(t, inner, name)
			case joined:
				assert.Equal(t, outer, inner, name)
			case fresh:
				assert.NotNil(t, inner, name)
				assert.NotEqual(t, outer, inner, name)
			}
		}
		assert.Equal(t, tt.stats, m.Stats(), name)
		if tt.existing {
			assert.Equal(t, types.TransactionActive, outer.Status(), name)
			assert.Equal(t, outer, m.Current(ctx), name)
		}
	}
}

func TestPropagationOnFailure(t *testing.T) {
	m := transaction.NewManager()
	b := &transactionBracket{flow: "f", tm: m, policy: types.PropagationRequired, logger: types.DiscardLogger()}
	var inner types.Transaction
	err := b.run(context.Background(), func(ctx context.Context) error {
		inner = m.Current(ctx)
		return errBoom
	})
	assert.Equal(t, errBoom, err)
	assert.Equal(t, types.TransactionRolledBack, inner.Status())
	assert.Equal(t, transaction.Stats{Begun: 1, RolledBack: 1}, m.Stats())

	ctx, _ := m.Begin(context.Background(), 0)
	b.policy = types.PropagationNotSupported
	err = b.run(ctx, func(ctx context.Context) error {
		assert.Nil(t, m.Current(ctx))
		return errBoom
	})
	assert.Equal(t, errBoom, err)
	assert.Equal(t, int64(1), m.Stats().Suspended)
	assert.Equal(t, int64(1), m.Stats().Resumed)
	assert.Equal(t, types.TransactionActive, m.Current(ctx).Status())
}

func TestPropagationWithoutManager(t *testing.T) {
	for p := types.PropagationRequired; p <= types.PropagationNotSupported; p++ {
		b := &transactionBracket{flow: "f", policy: p, logger: types.DiscardLogger()}
		ran := false
		err := b.run(context.Background(), func(context.Context) error {
			ran = true
			return nil
		})
		if p == types.PropagationMandatory {
			var ctrl *types.BeanControlError
			assert.True(t, errors.As(err, &ctrl), p.String())
			assert.True(t, errors.Is(err, types.ErrTransactionRequired), p.String())
			assert.False(t, ran, p.String())
			continue
		}
		assert.Nil(t, err, p.String())
		assert.True(t, ran, p.String())
	}
}

func TestFlowTransactionCommitsResources(t *testing.T) {
	m := transaction.NewManager()
	stores := resource.NewStoreFactory()
	f := newTestFactory(nil,
		types.WithTransactionManager(m),
		types.WithResourceFactory("store", stores))
	flow := mustNew(t, f, `{
		"name": "tx",
		"transaction": "Required",
		"resources": [{"name": "db", "service": "store", "key": "tx", "transacted": true}],
		"steps": [
			{"target": {"type": "resource", "name": "db"}, "accessors": [
				{"kind": "invoke", "name": "Set", "args": ["k", {"type": "input"}]}
			]},
			{"type": "if", "test": "input == 'fail'", "steps": [{"type": "throw", "value": "x"}]},
			{"result": {"type": "invoke", "target": {"type": "resource", "name": "db"}, "method": "Get", "args": ["k"]}}
		]
	}`)
	result, err := flow.Invoke(context.Background(), "v1")
	assert.Nil(t, err)
	assert.Equal(t, "v1", result)
	v, _ := stores.Store("tx").Get("k")
	assert.Equal(t, "v1", v)

	_, err = flow.Invoke(context.Background(), "fail")
	assert.NotNil(t, err)
	v, _ = stores.Store("tx").Get("k")
	assert.Equal(t, "v1", v)
	assert.Equal(t, transaction.Stats{Begun: 2, Committed: 1, RolledBack: 1}, m.Stats())
}

func TestFlowResourceNotTransactedWithoutTransaction(t *testing.T) {
	stores := resource.NewStoreFactory()
	f := newTestFactory(nil, types.WithResourceFactory("store", stores))
	flow := mustNew(t, f, `{
		"name": "plain",
		"resources": [{"name": "db", "service": "store", "key": "plain", "transacted": true}],
		"steps": [
			{"target": {"type": "resource", "name": "db"}, "accessors": [
				{"kind": "invoke", "name": "Set", "args": ["k", "v"]}
			]},
			{"type": "throw", "value": "x"}
		]
	}`)
	_, err := flow.Invoke(context.Background(), nil)
	assert.NotNil(t, err)
	v, _ := stores.Store("plain").Get("k")
	assert.Equal(t, "v", v)
}

func TestMandatoryFlow(t *testing.T) {
	m := transaction.NewManager()
	f := newTestFactory(nil, types.WithTransactionManager(m))
	mustNew(t, f, `{"name":"mandatory","transaction":"MANDATORY","steps":[{"result":1}]}`)
	_, err := f.Invoke(context.Background(), "mandatory", nil)
	var bce *types.BeanControlError
	assert.True(t, errors.As(err, &bce))
	assert.True(t, errors.Is(err, types.ErrTransactionRequired))

	ctx, _ := m.Begin(context.Background(), 0)
	result, err := f.Invoke(ctx, "mandatory", nil)
	assert.Nil(t, err)
	assert.Equal(t, float64(1), result)
}

func TestCallForcesPropagation(t *testing.T) {
	m := transaction.NewManager()
	f := newTestFactory(nil, types.WithTransactionManager(m))
	mustNew(t, f, `{"name":"inner","transaction":"Never","steps":[{"result":"inner"}]}`)
	mustNew(t, f, `{
		"name": "outer",
		"transaction": "Required",
		"steps": [{"type": "call", "flow": "inner", "transaction": "requires_new"}]
	}`)
	result, err := f.Invoke(context.Background(), "outer", nil)
	assert.Nil(t, err)
	assert.Equal(t, "inner", result)
	assert.Equal(t, transaction.Stats{Begun: 2, Committed: 2, Suspended: 1, Resumed: 1}, m.Stats())

	mustNew(t, f, `{"name":"outer2","transaction":"Required","steps":[{"type":"call","flow":"inner"}]}`)
	_, err = f.Invoke(context.Background(), "outer2", nil)
	assert.True(t, errors.Is(err, types.ErrTransactionNotAllowed))
}
