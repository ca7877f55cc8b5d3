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

import "errors"

// Step kinds understood by the definition builder.
const (
	StepKindStep     = "step"
	StepKindIf       = "if"
	StepKindSwitch   = "switch"
	StepKindFor      = "for"
	StepKindWhile    = "while"
	StepKindDoWhile  = "do-while"
	StepKindCall     = "call"
	StepKindReply    = "reply"
	StepKindThrow    = "throw"
	StepKindReturn   = "return"
	StepKindBreak    = "break"
	StepKindContinue = "continue"
)

// Value kinds understood by the definition builder.
const (
	ValueKindLiteral      = "literal"
	ValueKindInput        = "input"
	ValueKindThis         = "this"
	ValueKindVar          = "var"
	ValueKindStepRef      = "step-ref"
	ValueKindObject       = "object"
	ValueKindField        = "field"
	ValueKindAttribute    = "attribute"
	ValueKindInvoke       = "invoke"
	ValueKindStaticField  = "static-field"
	ValueKindStaticInvoke = "static-invoke"
	ValueKindResource     = "resource"
	ValueKindExpression   = "expression"
)

// Accessor kinds used by simple steps and object construction.
const (
	AccessorField     = "field"
	AccessorAttribute = "attribute"
	AccessorInvoke    = "invoke"
)

const (
	// LanguageExpr is the default expression language backed by expr-lang.
	LanguageExpr = "expr"
	// LanguageJs is the script language backed by goja.
	LanguageJs = "js"
)

const (
	// PlaceholderDelimiter wraps context property paths inside expressions, e.g. @input.amount@ > 10.
	PlaceholderDelimiter = "@"
	// StepTarget selects the target part of a step outcome.
	StepTarget = "target"
	// StepResult selects the result part of a step outcome.
	StepResult = "result"
)

var (
	// ErrConcurrencyLimitReached is the error returned when a limiter could not hand out a ticket.
	ErrConcurrencyLimitReached = errors.New("concurrency limit reached")
	// ErrFlowNotFound is returned by a flow factory for unknown flow names.
	ErrFlowNotFound = errors.New("flow not found")
	// ErrTransactionRequired is raised by the Mandatory propagation without a current transaction.
	ErrTransactionRequired = errors.New("transaction required")
	// ErrTransactionNotAllowed is raised by the Never propagation inside a current transaction.
	ErrTransactionNotAllowed = errors.New("transaction not allowed")
	// ErrNoTransaction is returned by a transaction manager asked to finish a transaction it does not see.
	ErrNoTransaction = errors.New("no transaction bound to context")
	// ErrNotThrowable is returned by a throw step whose value is not an error.
	ErrNotThrowable = errors.New("value is not an error")
	// ErrNoPendingReply is returned when a reply step finds no pending async invocation.
	ErrNoPendingReply = errors.New("no pending async reply")
	// ErrMonitorCanceled is the cause carried by a canceled async invocation.
	ErrMonitorCanceled = errors.New("invocation canceled")
	// ErrResourceNotFound is returned for undeclared resources.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrNoResourceManager is returned when a resource is read outside an invocation.
	ErrNoResourceManager = errors.New("resource manager is not available")
	// ErrDslEmpty is returned when a definition source is empty.
	ErrDslEmpty = errors.New("dsl can not empty")
)
