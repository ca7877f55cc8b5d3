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

import "time"

// Configuration holds the kind specific attributes of a step or value definition.
type Configuration map[string]interface{}

// FlowDsl is the source form of a flow definition.
type FlowDsl struct {
	// Name is the unique name of the flow.
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	// Aliases are additional names the flow is registered under.
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty" mapstructure:"aliases"`
	// Description is free text, not interpreted.
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	// Transaction is the declared propagation policy, e.g. "Required". Empty means Supports.
	Transaction string `json:"transaction,omitempty" yaml:"transaction,omitempty" mapstructure:"transaction"`
	// TransactionTimeout is passed to the transaction manager when a transaction is begun.
	TransactionTimeout time.Duration `json:"transactionTimeout,omitempty" yaml:"transactionTimeout,omitempty" mapstructure:"transactionTimeout"`
	// Limiter bounds concurrent invocations of the flow.
	Limiter *LimiterDsl `json:"limiter,omitempty" yaml:"limiter,omitempty" mapstructure:"limiter"`
	// Inputs are named values extracted from the input when an invocation starts.
	Inputs []InputDsl `json:"inputs,omitempty" yaml:"inputs,omitempty" mapstructure:"inputs"`
	// Resources are the transactional resources available to the steps.
	Resources []ResourceDsl `json:"resources,omitempty" yaml:"resources,omitempty" mapstructure:"resources"`
	// Steps is the ordered step list.
	Steps []StepDsl `json:"steps" yaml:"steps" mapstructure:"steps"`
	// Catch clauses guard the whole step list.
	Catch []CatchDsl `json:"catch,omitempty" yaml:"catch,omitempty" mapstructure:"catch"`
	// Finally runs once after the step list and any catch clause.
	Finally []StepDsl `json:"finally,omitempty" yaml:"finally,omitempty" mapstructure:"finally"`
}

// LimiterDsl configures a flow or step concurrency limiter.
type LimiterDsl struct {
	// Max is the number of concurrent holders. Zero disables the limiter.
	Max int `json:"max" yaml:"max" mapstructure:"max"`
	// Timeout is how long an acquirer waits for a slot. Zero waits until the invocation
	// context is done, a negative value fails immediately.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`
	// MaxWaiters bounds the queue of blocked acquirers. Zero means unbounded.
	MaxWaiters int `json:"maxWaiters,omitempty" yaml:"maxWaiters,omitempty" mapstructure:"maxWaiters"`
	// ForceFree reclaims a slot held longer than this. Zero disables it.
	ForceFree time.Duration `json:"forceFree,omitempty" yaml:"forceFree,omitempty" mapstructure:"forceFree"`
}

// InputDsl declares a named input extracted at invocation start.
type InputDsl struct {
	Name  string   `json:"name" yaml:"name" mapstructure:"name"`
	Value ValueDsl `json:"value" yaml:"value" mapstructure:"value"`
}

// ResourceDsl declares a transactional resource.
type ResourceDsl struct {
	// Name is how steps refer to the resource.
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	// Key is the lookup key handed to the backing service.
	Key string `json:"key,omitempty" yaml:"key,omitempty" mapstructure:"key"`
	// Service names the ResourceFactory registered in the Config.
	Service string `json:"service" yaml:"service" mapstructure:"service"`
	// Transacted enlists the resource in the flow transaction, if the flow owns one.
	Transacted bool `json:"transacted,omitempty" yaml:"transacted,omitempty" mapstructure:"transacted"`
	// Close closes the resource when the invocation completes.
	Close bool `json:"close,omitempty" yaml:"close,omitempty" mapstructure:"close"`
}

// StepDsl is the source form of a step. Kind specific attributes are kept in Configuration.
type StepDsl struct {
	// Type is the step kind, e.g. "step", "if", "for". Empty means "step".
	Type string `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
	// Name records the step outcome in the invocation context. Optional.
	Name string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	// Steps is the nested step list of block steps.
	Steps []StepDsl `json:"steps,omitempty" yaml:"steps,omitempty" mapstructure:"steps"`
	// Catch clauses scoped to this step.
	Catch []CatchDsl `json:"catch,omitempty" yaml:"catch,omitempty" mapstructure:"catch"`
	// Finally steps scoped to this step.
	Finally []StepDsl `json:"finally,omitempty" yaml:"finally,omitempty" mapstructure:"finally"`
	// Configuration holds the remaining attributes.
	Configuration Configuration `json:"-" yaml:"-" mapstructure:",remain"`
}

// CatchDsl is a catch clause.
type CatchDsl struct {
	// Class is the error class name, "error" when empty.
	Class string `json:"class,omitempty" yaml:"class,omitempty" mapstructure:"class"`
	// Var binds the caught error to a flow variable.
	Var   string    `json:"var,omitempty" yaml:"var,omitempty" mapstructure:"var"`
	Steps []StepDsl `json:"steps" yaml:"steps" mapstructure:"steps"`
}

// ValueDsl is the source form of a value resolver. Kind specific attributes are kept in Configuration.
type ValueDsl struct {
	Type          string        `json:"type" yaml:"type" mapstructure:"type"`
	Configuration Configuration `json:"-" yaml:"-" mapstructure:",remain"`
}

// IsZero reports whether the value was omitted.
func (v ValueDsl) IsZero() bool {
	return v.Type == "" && len(v.Configuration) == 0
}

// AccessorDsl applies a field set, attribute set or method invocation to a target.
type AccessorDsl struct {
	// Kind is "field", "attribute" or "invoke".
	Kind string `json:"kind" yaml:"kind" mapstructure:"kind"`
	// Name is the field, property or method name.
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	// Value is assigned by field and attribute accessors.
	Value ValueDsl `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	// Args are the method arguments of invoke accessors.
	Args []ValueDsl `json:"args,omitempty" yaml:"args,omitempty" mapstructure:"args"`
	// NarrowCast allows lossy numeric conversion of attribute values.
	NarrowCast bool `json:"narrowCast,omitempty" yaml:"narrowCast,omitempty" mapstructure:"narrowCast"`
	// Class converts a literal text value with the named converter.
	Class string `json:"class,omitempty" yaml:"class,omitempty" mapstructure:"class"`
}
