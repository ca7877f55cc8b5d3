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
	"errors"
	"fmt"
	"time"
)

// ControlSignal marks errors that unwind an invocation instead of reporting a failure.
// Catch clauses bound to the generic "error" class never match them.
type ControlSignal interface {
	ControlSignal() bool
}

// IsControlSignal reports whether err, or any error it wraps, is a control signal.
func IsControlSignal(err error) bool {
	var signal ControlSignal
	return errors.As(err, &signal) && signal.ControlSignal()
}

// DefinitionError reports an invalid flow definition. It is raised at build time only.
type DefinitionError struct {
	Flow string
	Step string
	Err  error
}

func (e *DefinitionError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("flow %s: step %s: %v", e.Flow, e.Step, e.Err)
	}
	return fmt.Sprintf("flow %s: %v", e.Flow, e.Err)
}

func (e *DefinitionError) Unwrap() error { return e.Err }

// UnavailableFlowError is returned when the flow limiter refused admission.
type UnavailableFlowError struct {
	Flow string
	Err  error
}

func (e *UnavailableFlowError) Error() string {
	return fmt.Sprintf("flow %s is unavailable: %v", e.Flow, e.Err)
}

func (e *UnavailableFlowError) Unwrap() error { return e.Err }

// UnavailableStepError is returned when a step limiter refused admission.
type UnavailableStepError struct {
	Flow string
	Step string
	Err  error
}

func (e *UnavailableStepError) Error() string {
	return fmt.Sprintf("flow %s: step %s is unavailable: %v", e.Flow, e.Step, e.Err)
}

func (e *UnavailableStepError) Unwrap() error { return e.Err }

// MonitorStoppedError unwinds an invocation whose monitor was stopped.
type MonitorStoppedError struct {
	Flow string
	Step string
}

func (e *MonitorStoppedError) Error() string {
	return fmt.Sprintf("flow %s stopped by monitor at step %s", e.Flow, e.Step)
}

func (e *MonitorStoppedError) ControlSignal() bool { return true }

// AsyncTimeoutError is raised by a reply step that waited longer than its timeout.
type AsyncTimeoutError struct {
	Flow    string
	Step    string
	Timeout time.Duration
}

func (e *AsyncTimeoutError) Error() string {
	return fmt.Sprintf("flow %s: step %s: async reply timed out after %s", e.Flow, e.Step, e.Timeout)
}

func (e *AsyncTimeoutError) ControlSignal() bool { return true }

// TargetError carries an execution failure out of a flow invocation.
type TargetError struct {
	Flow string
	Err  error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target error occurred in flow %s: %v", e.Flow, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

// BeanControlError wraps failures raised by the transaction layer.
type BeanControlError struct {
	Flow string
	Err  error
}

func (e *BeanControlError) Error() string {
	return fmt.Sprintf("bean control error in flow %s: %v", e.Flow, e.Err)
}

func (e *BeanControlError) Unwrap() error { return e.Err }

// NullPropertyError is raised when a property path meets nil and null checking is enabled.
type NullPropertyError struct {
	Property string
	Segment  string
}

func (e *NullPropertyError) Error() string {
	if e.Segment == "" || e.Segment == e.Property {
		return fmt.Sprintf("property %q is null", e.Property)
	}
	return fmt.Sprintf("property %q is null at %q", e.Property, e.Segment)
}

// InvocationError wraps a failure raised inside a reflectively invoked method.
// It is stripped before an error leaves a flow.
type InvocationError struct {
	Method string
	Err    error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke %s: %v", e.Method, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// UnwrapInvocation strips every leading InvocationError from err.
func UnwrapInvocation(err error) error {
	for {
		ie, ok := err.(*InvocationError)
		if !ok || ie.Err == nil {
			return err
		}
		err = ie.Err
	}
}

// ErrorMatcher decides whether an error belongs to a catchable error class.
type ErrorMatcher func(err error) bool

// ErrorClassOf builds a matcher accepting any error assignable to T, e.g. ErrorClassOf[*os.PathError]().
func ErrorClassOf[T error]() ErrorMatcher {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

// ErrorIs builds a matcher accepting errors that wrap target.
func ErrorIs(target error) ErrorMatcher {
	return func(err error) bool {
		return errors.Is(err, target)
	}
}

// ErrorClassAny is the catch-all class name. Control signals are excluded.
const ErrorClassAny = "error"

// DefaultErrorClasses returns the built-in catchable error classes.
func DefaultErrorClasses() map[string]ErrorMatcher {
	return map[string]ErrorMatcher{
		ErrorClassAny: func(err error) bool {
			return err != nil && !IsControlSignal(err)
		},
		"TargetError":          ErrorClassOf[*TargetError](),
		"NullPropertyError":    ErrorClassOf[*NullPropertyError](),
		"UnavailableStepError": ErrorClassOf[*UnavailableStepError](),
		"UnavailableFlowError": ErrorClassOf[*UnavailableFlowError](),
		"MonitorStoppedError":  ErrorClassOf[*MonitorStoppedError](),
		"AsyncTimeoutError":    ErrorClassOf[*AsyncTimeoutError](),
		"BeanControlError":     ErrorClassOf[*BeanControlError](),
		"InvocationError":      ErrorClassOf[*InvocationError](),
		"NotThrowable":         ErrorIs(ErrNotThrowable),
	}
}
