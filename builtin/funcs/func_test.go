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

package funcs

import (
	"testing"

	"github.com/rulego/beanflow/test/assert"
)

func TestBuiltins(t *testing.T) {
	t.Run("escape", func(t *testing.T) {
		v, ok := Builtins.Get("escape")
		assert.True(t, ok)
		fn, ok := v.(func(string) string)
		assert.True(t, ok)
		assert.Equal(t, "hello\\\\world", fn("hello\\world"))
		assert.Equal(t, "hello\\\"world\\\"", fn("hello\"world\""))
		assert.Equal(t, "a\\nb\\rc\\td", fn("a\nb\rc\td"))
	})

	t.Run("uuid", func(t *testing.T) {
		v, _ := Builtins.Get("uuid")
		fn := v.(func() string)
		assert.Equal(t, 36, len(fn()))
		assert.NotEqual(t, fn(), fn())
	})

	t.Run("registry", func(t *testing.T) {
		var m funcMap
		assert.Equal(t, 0, len(m.GetAll()))
		m.RegisterAll(map[string]any{"inc": func(a int) int { return a + 1 }})
		m.Register("dec", func(a int) int { return a - 1 })
		assert.Equal(t, []string{"dec", "inc"}, m.Names())
		m.UnRegister("inc")
		_, ok := m.Get("inc")
		assert.False(t, ok)
		cp := m.GetAll()
		delete(cp, "dec")
		_, ok = m.Get("dec")
		assert.True(t, ok)
	})

	assert.Equal(t, []string{"escape", "unixMilli", "uuid"}, Builtins.Names())
}
