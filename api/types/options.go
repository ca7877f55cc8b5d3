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

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithPool is an option that sets the async pool of the Config.
func WithPool(pool Pool) Option {
	return func(c *Config) error {
		c.Pool = pool
		return nil
	}
}

// WithDefaultPool is an option that starts the default worker pool.
func WithDefaultPool() Option {
	return func(c *Config) error {
		c.Pool = DefaultPool()
		return nil
	}
}

// WithFunction exposes fn to expressions and scripts as name.
func WithFunction(name string, fn any) Option {
	return func(c *Config) error {
		c.RegisterFunction(name, fn)
		return nil
	}
}

// WithLanguage sets the default expression language.
func WithLanguage(language string) Option {
	return func(c *Config) error {
		c.Language = language
		return nil
	}
}

// WithEvaluator registers an evaluator under a language name.
func WithEvaluator(language string, evaluator Evaluator) Option {
	return func(c *Config) error {
		c.RegisterEvaluator(language, evaluator)
		return nil
	}
}

// WithConverters sets the converter registry.
func WithConverters(converters ConverterRegistry) Option {
	return func(c *Config) error {
		c.Converters = converters
		return nil
	}
}

// WithTypes sets the type registry.
func WithTypes(types TypeRegistry) Option {
	return func(c *Config) error {
		c.Types = types
		return nil
	}
}

// WithErrorClass registers a catchable error class.
func WithErrorClass(name string, matcher ErrorMatcher) Option {
	return func(c *Config) error {
		c.RegisterErrorClass(name, matcher)
		return nil
	}
}

// WithTransactionManager sets the transaction manager.
func WithTransactionManager(manager TransactionManager) Option {
	return func(c *Config) error {
		c.TransactionManager = manager
		return nil
	}
}

// WithResourceManagerFactory sets the resource manager factory.
func WithResourceManagerFactory(factory ResourceManagerFactory) Option {
	return func(c *Config) error {
		c.ResourceManagerFactory = factory
		return nil
	}
}

// WithResourceFactory registers a backing service for resource declarations.
func WithResourceFactory(name string, factory ResourceFactory) Option {
	return func(c *Config) error {
		c.RegisterResourceFactory(name, factory)
		return nil
	}
}

// WithJournal sets the step journal.
func WithJournal(journal Journal) Option {
	return func(c *Config) error {
		c.Journal = journal
		return nil
	}
}

// WithScriptMaxExecutionTime is an option that sets the js max execution time of the Config.
func WithScriptMaxExecutionTime(scriptMaxExecutionTime time.Duration) Option {
	return func(c *Config) error {
		c.ScriptMaxExecutionTime = scriptMaxExecutionTime
		return nil
	}
}
