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

package types

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Propagation is the transaction propagation policy of a flow or of a sub-flow call.
//
//	| Policy       | no transaction          | existing transaction                   |
//	| Required     | begin, finish here      | join                                   |
//	| RequiresNew  | begin, finish here      | suspend, begin, finish, resume         |
//	| Supports     | run without             | join                                   |
//	| Mandatory    | ErrTransactionRequired  | join                                   |
//	| Never        | run without             | ErrTransactionNotAllowed               |
//	| NotSupported | run without             | suspend, run without, resume           |
type Propagation int

const (
	PropagationRequired Propagation = iota
	PropagationRequiresNew
	PropagationSupports
	PropagationMandatory
	PropagationNever
	PropagationNotSupported
)

var propagationNames = map[Propagation]string{
	PropagationRequired:     "Required",
	PropagationRequiresNew:  "RequiresNew",
	PropagationSupports:     "Supports",
	PropagationMandatory:    "Mandatory",
	PropagationNever:        "Never",
	PropagationNotSupported: "NotSupported",
}

func (p Propagation) String() string {
	if name, ok := propagationNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Propagation(%d)", int(p))
}

// ParsePropagation parses a propagation name. Matching ignores case, '_' and '-',
// so "REQUIRES_NEW", "requires-new" and "RequiresNew" are equivalent.
func ParsePropagation(name string) (Propagation, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(name))
	for p, n := range propagationNames {
		if strings.ToLower(n) == key {
			return p, nil
		}
	}
	return PropagationRequired, fmt.Errorf("unknown transaction propagation %q", name)
}

// TransactionInfo is handed from a calling step to a sub-flow invocation to force a policy.
type TransactionInfo struct {
	Propagation Propagation
	// Timeout overrides the callee's declared transaction timeout when positive.
	Timeout time.Duration
	// Manager overrides the callee's transaction manager when not nil.
	Manager TransactionManager
}

// TransactionStatus is the state of a transaction.
type TransactionStatus int

const (
	TransactionActive TransactionStatus = iota
	TransactionMarkedRollback
	TransactionCommitted
	TransactionRolledBack
)

// Transaction is a unit of work handled by a TransactionManager.
type Transaction interface {
	Id() string
	Status() TransactionStatus
	SetRollbackOnly()
}

// TransactionManager demarcates transactions. The current transaction travels in the context.
type TransactionManager interface {
	// Begin starts a transaction and returns a context carrying it. A positive timeout
	// marks the transaction for rollback once elapsed.
	Begin(ctx context.Context, timeout time.Duration) (context.Context, error)
	// Commit commits the transaction carried by ctx.
	Commit(ctx context.Context) error
	// Rollback rolls back the transaction carried by ctx.
	Rollback(ctx context.Context) error
	// Suspend detaches the current transaction and returns a context without it.
	Suspend(ctx context.Context) (context.Context, Transaction, error)
	// Resume reattaches a suspended transaction.
	Resume(ctx context.Context, tx Transaction) (context.Context, error)
	// Current returns the transaction carried by ctx, nil if none.
	Current(ctx context.Context) Transaction
}
