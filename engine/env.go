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
	"fmt"

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/builtin/funcs"
	"github.com/rulego/beanflow/utils/cast"
	"github.com/rulego/beanflow/utils/el"
	"github.com/rulego/beanflow/utils/js"
	"github.com/rulego/beanflow/utils/reflect"
)

// Env is the runtime environment shared by the definitions of one factory:
// the resolved configuration and the factory used for sub-flow calls.
type Env struct {
	Config  types.Config
	Factory types.FlowFactory
	// functions are the built-in and configured functions bound for expressions.
	functions map[string]any
}

// NewEnv fills the missing collaborators of config with the defaults and returns the environment.
func NewEnv(config types.Config, factory types.FlowFactory) *Env {
	if config.Logger == nil {
		config.Logger = types.DefaultLogger()
	}
	if config.Language == "" {
		config.Language = types.LanguageExpr
	}
	evaluators := make(map[string]types.Evaluator, len(config.Evaluators)+2)
	for k, v := range config.Evaluators {
		evaluators[k] = v
	}
	if _, ok := evaluators[types.LanguageExpr]; !ok {
		evaluators[types.LanguageExpr] = el.NewExprEvaluator()
	}
	if _, ok := evaluators[types.LanguageJs]; !ok {
		evaluators[types.LanguageJs] = js.NewGojaEvaluator(config, nil)
	}
	config.Evaluators = evaluators
	if config.Converters == nil {
		config.Converters = cast.NewConverters()
	}
	if config.Types == nil {
		config.Types = reflect.NewRegistry()
	}
	classes := types.DefaultErrorClasses()
	for k, v := range config.ErrorClasses {
		classes[k] = v
	}
	config.ErrorClasses = classes
	if config.ResourceManagerFactory == nil {
		config.ResourceManagerFactory = &DefaultResourceManagerFactory{}
	}
	functions := funcs.Builtins.GetAll()
	for k, v := range config.Functions {
		functions[k] = v
	}
	return &Env{Config: config, Factory: factory, functions: functions}
}

// Logger returns the configured logger.
func (e *Env) Logger() types.Logger {
	return e.Config.Logger
}

// Evaluator returns the evaluator of language, the default language when empty.
func (e *Env) Evaluator(language string) (types.Evaluator, error) {
	if language == "" {
		language = e.Config.Language
	}
	ev, ok := e.Config.Evaluators[language]
	if !ok {
		return nil, fmt.Errorf("unknown expression language %q", language)
	}
	return ev, nil
}

// Submit runs task on the configured pool, or on a new goroutine when there is no pool
// or the pool refuses the task.
func (e *Env) Submit(task func()) {
	if e.Config.Pool != nil {
		if err := e.Config.Pool.Submit(task); err == nil {
			return
		} else {
			e.Config.Logger.Printf("async pool refused task, running on a new goroutine: %v", err)
		}
	}
	go task()
}
