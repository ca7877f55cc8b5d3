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
	"time"

	"github.com/rulego/beanflow/api/types"
)

// transactionBracket applies a propagation policy around a flow body.
type transactionBracket struct {
	flow    string
	tm      types.TransactionManager
	policy  types.Propagation
	timeout time.Duration
	logger  types.Logger
}

// run calls body inside the transaction context required by the policy. Without a manager
// there is never an active transaction: Mandatory fails and every other policy runs body
// directly. Manager failures are returned as BeanControlError.
func (t *transactionBracket) run(ctx context.Context, body func(context.Context) error) error {
	if t.tm == nil {
		if t.policy == types.PropagationMandatory {
			return &types.BeanControlError{Flow: t.flow, Err: types.ErrTransactionRequired}
		}
		return body(ctx)
	}
	existing := t.tm.Current(ctx) != nil
	switch t.policy {
	case types.PropagationRequired:
		if existing {
			return body(ctx)
		}
		return t.owned(ctx, body)
	case types.PropagationRequiresNew:
		if !existing {
			return t.owned(ctx, body)
		}
		return t.suspended(ctx, func(ctx context.Context) error {
			return t.owned(ctx, body)
		})
	case types.PropagationMandatory:
		if !existing {
			return &types.BeanControlError{Flow: t.flow, Err: types.ErrTransactionRequired}
		}
		return body(ctx)
	case types.PropagationNever:
		if existing {
			return &types.BeanControlError{Flow: t.flow, Err: types.ErrTransactionNotAllowed}
		}
		return body(ctx)
	case types.PropagationNotSupported:
		if !existing {
			return body(ctx)
		}
		return t.suspended(ctx, body)
	default:
		return body(ctx)
	}
}

// owned begins a transaction, commits it when body succeeds and rolls it back otherwise.
func (t *transactionBracket) owned(ctx context.Context, body func(context.Context) error) error {
	txCtx, err := t.tm.Begin(ctx, t.timeout)
	if err != nil {
		return &types.BeanControlError{Flow: t.flow, Err: err}
	}
	if err := body(txCtx); err != nil {
		if rerr := t.tm.Rollback(txCtx); rerr != nil {
			t.logger.Printf("flow %s: rollback failed: %v", t.flow, rerr)
		}
		return err
	}
	if err := t.tm.Commit(txCtx); err != nil {
		return &types.BeanControlError{Flow: t.flow, Err: err}
	}
	return nil
}

// suspended detaches the existing transaction for the duration of body and resumes it
// afterwards, whatever body returned.
func (t *transactionBracket) suspended(ctx context.Context, body func(context.Context) error) (err error) {
	detached, tx, err := t.tm.Suspend(ctx)
	if err != nil {
		return &types.BeanControlError{Flow: t.flow, Err: err}
	}
	defer func() {
		if _, rerr := t.tm.Resume(ctx, tx); rerr != nil && err == nil {
			err = &types.BeanControlError{Flow: t.flow, Err: rerr}
		}
	}()
	return body(detached)
}
