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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/builtin/resource"
	"github.com/rulego/beanflow/test/assert"
)

func resolveIn(t *testing.T, f *Factory, value string, input any) (any, error) {
	flow, err := f.New([]byte(`{"name":"value","steps":[{"result":`+value+`}]}`), nil)
	assert.Nil(t, err, value)
	return flow.Invoke(context.Background(), input)
}

func TestLiteralValue(t *testing.T) {
	f := newTestFactory(nil)
	tests := []struct {
		value string
		want  any
	}{
		{`"text"`, "text"},
		{`3`, float64(3)},
		{`{"type":"literal","value":"12","class":"int"}`, 12},
		{`{"type":"literal","value":"12","class":"int8"}`, int8(12)},
		{`{"type":"literal","value":"1.5","class":"float32"}`, float32(1.5)},
		{`{"type":"literal","value":"true","class":"bool"}`, true},
		{`{"type":"literal","value":"2s","class":"duration"}`, 2 * time.Second},
		{`{"type":"literal","value":"null","class":"int"}`, nil},
		{`{"type":"literal","value":"x","null":true}`, nil},
		{`{"a":1}`, map[string]any{"a": float64(1)}},
	}
	for _, tt := range tests {
		got, err := resolveIn(t, f, tt.value, nil)
		assert.Nil(t, err, tt.value)
		assert.Equal(t, tt.want, got, tt.value)
	}
	got, err := resolveIn(t, f, `{"type":"literal","value":"{\"a\":[1,2]}","class":"json"}`, nil)
	assert.Nil(t, err)
	assert.Equal(t, float64(2), got.(*gabs.Container).Path("a.1").Data())
}

func TestPropertyValues(t *testing.T) {
	f := newTestFactory(nil)
	input := map[string]any{"order": map[string]any{"lines": []any{map[string]any{"sku": "A1"}}}}
	got, err := resolveIn(t, f, `{"type":"input","property":"order.lines[0].sku"}`, input)
	assert.Nil(t, err)
	assert.Equal(t, "A1", got)

	got, err = resolveIn(t, f, `{"type":"input","property":"order.missing.sku"}`, input)
	assert.Nil(t, err)
	assert.Nil(t, got)

	_, err = resolveIn(t, f, `{"type":"input","property":"order.missing.sku","nullCheck":true}`, input)
	var npe *types.NullPropertyError
	assert.True(t, errors.As(err, &npe))
	assert.Equal(t, "order.missing", npe.Segment)

	flow := mustNew(t, f, `{
		"name": "thisAndVar",
		"steps": [
			{"target": {"type": "input", "property": "order"}, "result": {"type": "this", "property": "lines[0].sku"}},
			{"type": "for", "element": "line", "source": {"type": "input", "property": "order.lines"}, "steps": []},
			{"result": {"type": "var", "name": "line", "property": "sku"}}
		]
	}`)
	got, err = flow.Invoke(context.Background(), input)
	assert.Nil(t, err)
	assert.Equal(t, "A1", got)
}

func TestMemberValues(t *testing.T) {
	f := newTestFactory(nil)
	r := &Recorder{Label: "rec", Items: []any{1, 2}}
	got, err := resolveIn(t, f, `{"type":"field","target":{"type":"input"},"name":"label"}`, r)
	assert.Nil(t, err)
	assert.Equal(t, "rec", got)

	got, err = resolveIn(t, f, `{"type":"attribute","target":{"type":"input"},"name":"size"}`, r)
	assert.Nil(t, err)
	assert.Equal(t, 2, got)

	got, err = resolveIn(t, f, `{"type":"invoke","target":{"type":"input"},"method":"size"}`, r)
	assert.Nil(t, err)
	assert.Equal(t, 2, got)

	_, err = resolveIn(t, f, `{"type":"invoke","target":{"type":"input"},"method":"Fail"}`, r)
	assert.True(t, errors.Is(err, errBoom))

	got, err = resolveIn(t, f, `{"type":"static-field","class":"Limits","name":"Max"}`, nil)
	assert.Nil(t, err)
	assert.Equal(t, 7, got)

	got, err = resolveIn(t, f, `{"type":"static-invoke","class":"Strings","method":"Join","args":["-","a","b","c"]}`, nil)
	assert.Nil(t, err)
	assert.Equal(t, "a-b-c", got)
}

func TestObjectValue(t *testing.T) {
	f := newTestFactory(nil)
	got, err := resolveIn(t, f, `{
		"type": "object", "class": "Recorder",
		"accessors": [
			{"kind": "field", "name": "label", "value": "built"},
			{"name": "count", "value": "4"},
			{"kind": "invoke", "name": "Add", "args": [{"type": "input"}]},
			{"name": "ratio", "value": 3, "narrowCast": true}
		]
	}`, "item")
	assert.Nil(t, err)
	r := got.(*Recorder)
	assert.Equal(t, "built", r.Label)
	assert.Equal(t, 40, r.GetCount())
	assert.Equal(t, []any{"item"}, r.Items)
	assert.Equal(t, int8(3), r.Ratio)

	_, err = resolveIn(t, f, `{"type":"object","class":"Recorder","accessors":[{"name":"ratio","value":3}]}`, nil)
	assert.NotNil(t, err)

	got, err = resolveIn(t, f, `{"type":"object","class":"Recorder","accessors":[{"name":"ratio","value":"5","class":"int8"}]}`, nil)
	assert.Nil(t, err)
	assert.Equal(t, int8(5), got.(*Recorder).Ratio)

	got, err = resolveIn(t, f, `{"type":"object","class":"Recorder","args":["made"]}`, nil)
	assert.Nil(t, err)
	assert.Equal(t, "made", got.(*Recorder).Label)

	got, err = resolveIn(t, f, `{"type":"object","class":"Recorder","factory":"New","args":[{"type":"input"}]}`, "input label")
	assert.Nil(t, err)
	assert.Equal(t, "input label", got.(*Recorder).Label)

	got, err = resolveIn(t, f, `{"type":"object","class":"int","length":3}`, nil)
	assert.Nil(t, err)
	assert.Equal(t, []int{0, 0, 0}, got)

	got, err = resolveIn(t, f, `{"type":"object","class":"map","accessors":[{"name":"k","value":"v"}]}`, nil)
	assert.Nil(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, got)
}

func TestExpressionValue(t *testing.T) {
	f := newTestFactory(nil)
	flow := mustNew(t, f, `{
		"name": "expr",
		"steps": [
			{"name": "base", "result": {"type": "input", "property": "n"}},
			{"type": "for", "index": "k", "begin": 0, "end": 2, "steps": []},
			{"target": "t", "result": {"type": "expression", "expression": "@base@ * 10 + @input.n@ + @var.k@ + len(@this@) + k"}},
			{"type": "if", "test": "@result@ == 25 && result == 25", "steps": [
				{"result": {"type": "expression", "language": "js", "expression": "input.n + @input.n@"}}
			]}
		]
	}`)
	got, err := flow.Invoke(context.Background(), map[string]any{"n": 2})
	assert.Nil(t, err)
	assert.Equal(t, int64(4), got)

	got, err = resolveIn(t, f, `{"type":"expression","expression":"'a@b' + string(@input@)"}`, 1)
	assert.Nil(t, err)
	assert.Equal(t, "a@b1", got)

	_, err = f.New([]byte(`{"name":"bad","steps":[{"result":{"type":"expression","expression":"@input.n + 1"}}]}`), nil)
	var de *types.DefinitionError
	assert.True(t, errors.As(err, &de))
}

func TestResourceValue(t *testing.T) {
	f := newTestFactory(nil, types.WithResourceFactory("store", resource.NewStoreFactory()))
	flow := mustNew(t, f, `{
		"name": "res",
		"resources": [{"name": "s", "service": "store", "key": "k", "close": true}],
		"steps": [
			{"name": "raw", "result": {"type": "resource", "name": "s", "raw": true}},
			{"result": {"type": "resource", "name": "s"}}
		]
	}`)
	got, err := flow.Invoke(context.Background(), nil)
	assert.Nil(t, err)
	session := got.(*resource.Session)
	assert.Equal(t, resource.ErrSessionClosed, session.Set("a", 1))
}

func TestFunctions(t *testing.T) {
	f := newTestFactory(nil, types.WithFunction("twice", func(n int) int { return n * 2 }))
	result, err := resolveIn(t, f, `{"type":"expression","expression":"twice(4) + 1"}`, nil)
	assert.Nil(t, err)
	assert.Equal(t, 9, result)

	result, err = resolveIn(t, f, `{"type":"expression","expression":"escape(input)"}`, "a\"b")
	assert.Nil(t, err)
	assert.Equal(t, "a\\\"b", result)

	result, err = resolveIn(t, f, `{"type":"expression","language":"js","expression":"uuid().length"}`, nil)
	assert.Nil(t, err)
	assert.Equal(t, int64(36), result)

	// flow variables shadow functions
	flow := mustNew(t, f, `{
		"name": "shadow",
		"steps": [
			{"name": "list", "result": {"type": "object", "class": "Recorder"}},
			{"type": "for", "source": {"type": "input"}, "element": "twice", "steps": [
				{"target": {"type": "step-ref", "ref": "list"}, "accessors": [
					{"kind": "invoke", "name": "Add", "args": [{"type": "expression", "expression": "twice"}]}
				]}
			]},
			{"result": {"type": "step-ref", "ref": "list.items"}}
		]
	}`)
	result, err = flow.Invoke(context.Background(), []any{"x"})
	assert.Nil(t, err)
	assert.Equal(t, []any{"x"}, result)
}
