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
	"math"
	"time"

	"github.com/rulego/beanflow/utils/pool"
)

// Config defines the configuration shared by every flow of a factory.
type Config struct {
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// Pool runs async sub-flow invocations. If not configured, a goroutine is started per invocation.
	// The default implementation is `pool.WorkerPool`.
	Pool Pool
	// Language is the default expression language, defaulting to LanguageExpr.
	Language string
	// Evaluators maps a language name to its evaluator. The factory registers
	// "expr" and "js" when they are missing.
	Evaluators map[string]Evaluator
	// Converters converts literal text into typed values (property editors).
	Converters ConverterRegistry
	// Types resolves class names used by object construction and static access.
	Types TypeRegistry
	// ErrorClasses maps catch clause class names to matchers. Built-in classes are always present.
	ErrorClasses map[string]ErrorMatcher
	// TransactionManager demarcates flow transactions. Without one, flows run without transactions.
	TransactionManager TransactionManager
	// ResourceManagerFactory creates the per-invocation resource manager.
	ResourceManagerFactory ResourceManagerFactory
	// ResourceFactories are the backing services referenced by resource declarations.
	ResourceFactories map[string]ResourceFactory
	// Functions are exposed to expressions, templates and scripts by name, after the
	// built-in functions. Flow variables with the same name take precedence.
	Functions map[string]any
	// Journal observes step boundaries. Optional.
	Journal Journal
	// ScriptMaxExecutionTime is the maximum execution time for scripts, defaulting to 2000 milliseconds.
	ScriptMaxExecutionTime time.Duration
}

// RegisterEvaluator registers an evaluator for a language name.
func (c *Config) RegisterEvaluator(language string, evaluator Evaluator) {
	if c.Evaluators == nil {
		c.Evaluators = make(map[string]Evaluator)
	}
	c.Evaluators[language] = evaluator
}

// RegisterErrorClass registers a catchable error class.
func (c *Config) RegisterErrorClass(name string, matcher ErrorMatcher) {
	if c.ErrorClasses == nil {
		c.ErrorClasses = DefaultErrorClasses()
	}
	c.ErrorClasses[name] = matcher
}

// RegisterResourceFactory registers a backing service for resource declarations.
func (c *Config) RegisterResourceFactory(name string, factory ResourceFactory) {
	if c.ResourceFactories == nil {
		c.ResourceFactories = make(map[string]ResourceFactory)
	}
	c.ResourceFactories[name] = factory
}

// RegisterFunction exposes fn to expressions and scripts as name.
func (c *Config) RegisterFunction(name string, fn any) {
	if c.Functions == nil {
		c.Functions = make(map[string]any)
	}
	c.Functions[name] = fn
}

// ErrorClass returns the matcher registered under name.
func (c *Config) ErrorClass(name string) (ErrorMatcher, bool) {
	if name == "" {
		name = ErrorClassAny
	}
	if m, ok := c.ErrorClasses[name]; ok {
		return m, true
	}
	m, ok := DefaultErrorClasses()[name]
	return m, ok
}

// NewConfig creates a new Config with default values and applies the provided options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		ScriptMaxExecutionTime: time.Millisecond * 2000,
		Logger:                 DefaultLogger(),
		Language:               LanguageExpr,
		ErrorClasses:           DefaultErrorClasses(),
	}

	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}

// DefaultPool provides a default coroutine pool.
func DefaultPool() Pool {
	wp := &pool.WorkerPool{MaxWorkersCount: math.MaxInt32}
	wp.Start()
	return wp
}
