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

package js

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/test/assert"
)

type order struct {
	Id    string
	Total float64
}

func TestGojaEvaluator(t *testing.T) {
	config := types.NewConfig()
	g := NewGojaEvaluator(config, map[string]any{
		"upper": strings.ToUpper,
	})

	v, err := g.Evaluate("input.total > 10", map[string]any{"input": order{Id: "a", Total: 12}})
	assert.Nil(t, err)
	assert.Equal(t, true, v)

	v, err = g.Evaluate("var s = upper(input.id); s + '-' + n", map[string]any{"input": order{Id: "a"}, "n": 1})
	assert.Nil(t, err)
	assert.Equal(t, "A-1", v)

	// bindings do not leak into the next run
	v, err = g.Evaluate("typeof n", nil)
	assert.Nil(t, err)
	assert.Equal(t, "undefined", v)

	_, err = g.Evaluate("throw new Error('bad')", nil)
	assert.NotNil(t, err)

	_, err = g.Evaluate("var = ;", nil)
	assert.NotNil(t, err)

	c1, _ := g.Compile("1 + 1")
	c2, _ := g.Compile("1 + 1")
	assert.True(t, c1 == c2)
}

func TestGojaEvaluatorScopePerRun(t *testing.T) {
	g := NewGojaEvaluator(types.NewConfig(), nil)
	for i := 0; i < 3; i++ {
		v, err := g.Evaluate("let a = input + 1; const b = a * 2; b", map[string]any{"input": i})
		assert.Nil(t, err)
		assert.Equal(t, int64((i+1)*2), v)
	}

	_, err := g.Evaluate("var leaked = 42; function helper() { return 1 }", nil)
	assert.Nil(t, err)
	v, err := g.Evaluate("typeof leaked + ' ' + typeof helper", nil)
	assert.Nil(t, err)
	assert.Equal(t, "undefined undefined", v)

	// a compiled script keeps its own scope on every run as well
	c, err := g.Compile("let n = input; n")
	assert.Nil(t, err)
	for _, in := range []string{"x", "y"} {
		v, err = c.Eval(map[string]any{"input": in})
		assert.Nil(t, err)
		assert.Equal(t, in, v)
	}
}

func TestGojaEvaluatorTimeout(t *testing.T) {
	config := types.NewConfig(types.WithScriptMaxExecutionTime(time.Millisecond * 100))
	g := NewGojaEvaluator(config, nil)
	start := time.Now()
	_, err := g.Evaluate("while (true) {}", nil)
	var interrupted *goja.InterruptedError
	assert.True(t, errors.As(err, &interrupted))
	assert.True(t, time.Since(start) < time.Second*2)

	// the runtime is usable again
	v, err := g.Evaluate("2 * 3", nil)
	assert.Nil(t, err)
	assert.Equal(t, int64(6), v)
}
