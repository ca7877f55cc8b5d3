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

package json

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rulego/beanflow/test/assert"
)

type Order struct {
	Id    string
	Note  string
	Items []string
}

func TestMarshal(t *testing.T) {
	order := Order{Id: "o-1", Note: "<a&b>"}
	v, err := Marshal(order)
	assert.Nil(t, err)
	assert.Equal(t, `{"Id":"o-1","Note":"<a&b>","Items":null}`, string(v))

	_, err = Marshal(make(chan int))
	assert.NotNil(t, err)
}

func TestUnmarshal(t *testing.T) {
	var order Order
	assert.Nil(t, Unmarshal([]byte(`{"Id":"o-2","Items":["a"]}`), &order))
	assert.Equal(t, "o-2", order.Id)
	assert.Equal(t, []string{"a"}, order.Items)
	assert.NotNil(t, Unmarshal([]byte(`{`), &order))
}

func TestFormat(t *testing.T) {
	v, _ := json.Marshal(Order{Id: "o-3"})
	var buf bytes.Buffer
	_ = json.Indent(&buf, v, "", "  ")
	result, err := Format(v)
	assert.Nil(t, err)
	assert.Equal(t, buf.Bytes(), result)

	indented, err := MarshalIndent(Order{Id: "o-3"})
	assert.Nil(t, err)
	assert.Equal(t, buf.String(), string(indented))
}
