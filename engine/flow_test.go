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
	"sync/atomic"
	"testing"

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/builtin/resource"
	"github.com/rulego/beanflow/test/assert"
	reflect2 "github.com/rulego/beanflow/utils/reflect"
)

var errBoom = errors.New("boom")

// Recorder is a bean used by the test flows.
type Recorder struct {
	Items []any
	Label string
	Ratio int8
	count int
}

func NewRecorder(label string) *Recorder {
	return &Recorder{Label: label}
}

func (r *Recorder) Add(v any) {
	r.Items = append(r.Items, v)
}

func (r *Recorder) Size() int {
	return len(r.Items)
}

func (r *Recorder) SetCount(n int) {
	r.count = n * 10
}

func (r *Recorder) GetCount() int {
	return r.count
}

func (r *Recorder) Fail() error {
	return errBoom
}

var maxItems = 7

func testRegistry() *reflect2.Registry {
	registry := reflect2.NewRegistry()
	reflect2.Register[Recorder](registry, "Recorder")
	_ = registry.RegisterStaticMethod("Recorder", "New", NewRecorder)
	_ = registry.RegisterStaticField("Limits", "Max", &maxItems)
	_ = registry.RegisterStaticMethod("Strings", "Join", func(sep string, parts ...string) string {
		out := ""
		for i, p := range parts {
			if i > 0 {
				out += sep
			}
			out += p
		}
		return out
	})
	return registry
}

func newTestFactory(registry *reflect2.Registry, opts ...types.Option) *Factory {
	if registry == nil {
		registry = testRegistry()
	}
	base := []types.Option{types.WithLogger(types.DiscardLogger()), types.WithTypes(registry)}
	return NewFactory(types.NewConfig(append(base, opts...)...))
}

func mustNew(t *testing.T, f *Factory, dsl string) *Flow {
	flow, err := f.New([]byte(dsl), &JsonParser{})
	assert.Nil(t, err)
	assert.NotNil(t, flow)
	return flow
}

type countingResourceManagerFactory struct {
	created int32
}

func (f *countingResourceManagerFactory) CreateResourceManager(ctx context.Context) types.ResourceManager {
	atomic.AddInt32(&f.created, 1)
	return NewResourceManager(ctx)
}

func TestEmptyFlow(t *testing.T) {
	rm := &countingResourceManagerFactory{}
	f := newTestFactory(nil,
		types.WithResourceManagerFactory(rm),
		types.WithResourceFactory("store", resource.NewStoreFactory()))
	flow := mustNew(t, f, `{"name":"empty","resources":[{"name":"r","service":"store"}]}`)
	result, err := flow.Invoke(context.Background(), "ignored")
	assert.Nil(t, err)
	assert.Nil(t, result)
	assert.Equal(t, int32(0), atomic.LoadInt32(&rm.created))
}

func TestIfAfterStep(t *testing.T) {
	f := newTestFactory(nil)
	mustNew(t, f, `{
		"name": "F",
		"steps": [
			{"name": "A", "result": 1},
			{"name": "B", "type": "if", "test": "@A.result@ == 1", "steps": [{"result": 2}]}
		]
	}`)
	result, err := f.Invoke(context.Background(), "F", nil)
	assert.Nil(t, err)
	assert.Equal(t, float64(2), result)
}

func TestIdentityStep(t *testing.T) {
	f := newTestFactory(nil)
	flow := mustNew(t, f, `{"name":"identity","steps":[{"target":{"type":"input"}}]}`)
	input := map[string]any{"a": 1}
	result, err := flow.Invoke(context.Background(), input)
	assert.Nil(t, err)
	assert.Equal(t, input, result)
}

func TestStepRef(t *testing.T) {
	f := newTestFactory(nil)
	flow := mustNew(t, f, `{
		"name": "refs",
		"steps": [
			{"name": "a", "target": "t", "result": {"type": "literal", "value": "r"}},
			{"name": "b", "result": {"type": "step-ref", "ref": "a"}},
			{"name": "c", "result": {"type": "step-ref", "ref": "a.target"}},
			{"name": "d", "result": {"type": "step-ref", "ref": "a.result"}},
			{"result": {"type": "expression", "expression": "@b@ + @c@ + @d@"}}
		]
	}`)
	result, err := flow.Invoke(context.Background(), nil)
	assert.Nil(t, err)
	assert.Equal(t, "rtr", result)
}

func TestReturn(t *testing.T) {
	f := newTestFactory(nil)
	flow := mustNew(t, f, `{
		"name": "ret",
		"steps": [
			{"result": "kept"},
			{"type": "if", "test": "input > 1", "steps": [
				{"type": "for", "begin": 0, "end": 5, "steps": [{"type": "return", "value": "early"}]}
			]},
			{"type": "return"},
			{"result": "never"}
		]
	}`)
	result, err := flow.Invoke(context.Background(), 2)
	assert.Nil(t, err)
	assert.Equal(t, "early", result)

	result, err = flow.Invoke(context.Background(), 0)
	assert.Nil(t, err)
	assert.Nil(t, result)

	flow = mustNew(t, f, `{"name":"ret2","steps":[{"result":"kept"},{"type":"return"},{"result":"never"}]}`)
	result, err = flow.Invoke(context.Background(), nil)
	assert.Nil(t, err)
	assert.Equal(t, "kept", result)

	flow = mustNew(t, f, `{"name":"ret3","steps":[{"result":"kept"},{"type":"return","null":true}]}`)
	result, err = flow.Invoke(context.Background(), nil)
	assert.Nil(t, err)
	assert.Nil(t, result)
}

func TestCatchFirstMatch(t *testing.T) {
	f := newTestFactory(nil)
	flow := mustNew(t, f, `{
		"name": "catch",
		"steps": [{"result": {"type": "input", "property": "a.b", "nullCheck": true}}],
		"catch": [
			{"class": "NullPropertyError", "var": "e", "steps": [{"result": "first"}]},
			{"class": "error", "steps": [{"result": "second"}]}
		]
	}`)
	result, err := flow.Invoke(context.Background(), map[string]any{})
	assert.Nil(t, err)
	assert.Equal(t, "first", result)

	flow = mustNew(t, f, `{
		"name": "catch2",
		"steps": [{"result": {"type": "input", "property": "a.b", "nullCheck": true}}],
		"catch": [
			{"class": "error", "var": "e", "steps": [{"result": {"type": "var", "name": "e"}}]},
			{"class": "NullPropertyError", "steps": [{"result": "second"}]}
		]
	}`)
	result, err = flow.Invoke(context.Background(), map[string]any{})
	assert.Nil(t, err)
	var npe *types.NullPropertyError
	assert.True(t, errors.As(result.(error), &npe))
	assert.Equal(t, "a.b", npe.Property)
}

func TestUncaughtPropagatesPastFinally(t *testing.T) {
	stores := resource.NewStoreFactory()
	f := newTestFactory(nil, types.WithResourceFactory("store", stores))
	flow := mustNew(t, f, `{
		"name": "uncaught",
		"resources": [{"name": "counter", "service": "store", "key": "uncaught"}],
		"steps": [{"result": {"type": "input", "property": "a.b", "nullCheck": true}}],
		"catch": [{"class": "AsyncTimeoutError", "steps": [{"result": "caught"}]}],
		"finally": [{"target": {"type": "resource", "name": "counter"}, "accessors": [
			{"kind": "invoke", "name": "Incr", "args": ["hits", {"type": "literal", "value": "1", "class": "int64"}]}
		]}]
	}`)
	_, err := flow.Invoke(context.Background(), map[string]any{})
	var te *types.TargetError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "uncaught", te.Flow)
	var npe *types.NullPropertyError
	assert.True(t, errors.As(err, &npe))
	hits, _ := stores.Store("uncaught").Get("hits")
	assert.Equal(t, int64(1), hits)
}

func TestFinallyCounter(t *testing.T) {
	stores := resource.NewStoreFactory()
	f := newTestFactory(nil, types.WithResourceFactory("store", stores))
	flow := mustNew(t, f, `{
		"name": "counted",
		"resources": [{"name": "counter", "service": "store", "key": "counted"}],
		"steps": [
			{"type": "if", "test": "input == 'fail'", "steps": [
				{"target": {"type": "object", "class": "Recorder"}, "accessors": [{"kind": "invoke", "name": "Fail"}]}
			]},
			{"result": "done"}
		],
		"finally": [{"target": {"type": "resource", "name": "counter"}, "accessors": [
			{"kind": "invoke", "name": "Incr", "args": ["hits", {"type": "literal", "value": "1", "class": "int64"}]}
		]}]
	}`)
	result, err := flow.Invoke(context.Background(), "ok")
	assert.Nil(t, err)
	assert.Equal(t, "done", result)
	hits, _ := stores.Store("counted").Get("hits")
	assert.Equal(t, int64(1), hits)

	stores.Store("counted").Set("hits", int64(0))
	_, err = flow.Invoke(context.Background(), "fail")
	assert.True(t, errors.Is(err, errBoom))
	var ie *types.InvocationError
	assert.False(t, errors.As(err, &ie))
	hits, _ = stores.Store("counted").Get("hits")
	assert.Equal(t, int64(1), hits)
}

func TestFinallyErrorSupersedes(t *testing.T) {
	f := newTestFactory(nil)
	flow := mustNew(t, f, `{
		"name": "supersede",
		"steps": [{"result": {"type": "input", "property": "a.b", "nullCheck": true}}],
		"finally": [{"target": {"type": "object", "class": "Recorder"}, "accessors": [{"kind": "invoke", "name": "Fail"}]}]
	}`)
	_, err := flow.Invoke(context.Background(), map[string]any{})
	assert.True(t, errors.Is(err, errBoom))
	var npe *types.NullPropertyError
	assert.False(t, errors.As(err, &npe))
}

func TestStepScopedCatch(t *testing.T) {
	f := newTestFactory(nil)
	flow := mustNew(t, f, `{
		"name": "scoped",
		"steps": [
			{"name": "risky", "target": {"type": "object", "class": "Recorder"},
			 "accessors": [{"kind": "invoke", "name": "Fail"}],
			 "catch": [{"var": "e", "steps": [{"result": "recovered"}]}]},
			{"result": {"type": "expression", "expression": "@risky@ + '!'"}}
		],
		"catch": [{"steps": [{"result": "flow level"}]}]
	}`)
	result, err := flow.Invoke(context.Background(), nil)
	assert.Nil(t, err)
	assert.Equal(t, "recovered!", result)
}

func TestThrow(t *testing.T) {
	f := newTestFactory(nil)
	flow := mustNew(t, f, `{
		"name": "rethrow",
		"steps": [{
			"target": {"type": "object", "class": "Recorder"},
			"accessors": [{"kind": "invoke", "name": "Fail"}],
			"catch": [{"var": "e", "steps": [{"type": "throw", "var": "e"}]}]
		}]
	}`)
	_, err := flow.Invoke(context.Background(), nil)
	assert.True(t, errors.Is(err, errBoom))

	flow = mustNew(t, f, `{"name":"notThrowable","steps":[{"type":"throw","value":"text"}]}`)
	_, err = flow.Invoke(context.Background(), nil)
	assert.True(t, errors.Is(err, types.ErrNotThrowable))

	flow = mustNew(t, f, `{
		"name": "catchNotThrowable",
		"steps": [{"type": "throw", "value": 1}],
		"catch": [{"class": "NotThrowable", "steps": [{"result": "caught"}]}]
	}`)
	result, err := flow.Invoke(context.Background(), nil)
	assert.Nil(t, err)
	assert.Equal(t, "caught", result)
}

func TestNamedInputs(t *testing.T) {
	f := newTestFactory(nil)
	flow := mustNew(t, f, `{
		"name": "inputs",
		"inputs": [
			{"name": "customer", "value": {"type": "input", "property": "order.customer"}},
			{"name": "amount", "value": {"type": "input", "property": "order.amount"}}
		],
		"steps": [
			{"name": "who", "result": {"type": "input", "name": "customer", "property": "name"}},
			{"result": {"type": "expression", "expression": "@who@ + ':' + string(amount)"}}
		]
	}`)
	input := map[string]any{"order": map[string]any{"customer": map[string]any{"name": "ann"}, "amount": 3}}
	result, err := flow.Invoke(context.Background(), input)
	assert.Nil(t, err)
	assert.Equal(t, "ann:3", result)
}

func TestNamedInputFailureIsGuarded(t *testing.T) {
	stores := resource.NewStoreFactory()
	f := newTestFactory(nil, types.WithResourceFactory("store", stores))
	const finally = `"finally": [{"target": {"type": "resource", "name": "counter"}, "accessors": [
			{"kind": "invoke", "name": "Incr", "args": ["hits", {"type": "literal", "value": "1", "class": "int64"}]}
		]}]`
	caught := mustNew(t, f, `{
		"name": "inputCaught",
		"resources": [{"name": "counter", "service": "store", "key": "inputs"}],
		"inputs": [{"name": "amount", "value": {"type": "input", "property": "order.amount", "nullCheck": true}}],
		"steps": [{"result": "unreachable"}],
		"catch": [{"class": "NullPropertyError", "steps": [{"result": "caught"}]}],
		`+finally+`
	}`)
	result, err := caught.Invoke(context.Background(), map[string]any{"order": nil})
	assert.Nil(t, err)
	assert.Equal(t, "caught", result)
	hits, _ := stores.Store("inputs").Get("hits")
	assert.Equal(t, int64(1), hits)

	uncaught := mustNew(t, f, `{
		"name": "inputUncaught",
		"resources": [{"name": "counter", "service": "store", "key": "inputs"}],
		"inputs": [{"name": "amount", "value": {"type": "input", "property": "order.amount", "nullCheck": true}}],
		"steps": [{"result": "unreachable"}],
		`+finally+`
	}`)
	_, err = uncaught.Invoke(context.Background(), map[string]any{"order": nil})
	var npe *types.NullPropertyError
	assert.True(t, errors.As(err, &npe))
	hits, _ = stores.Store("inputs").Get("hits")
	assert.Equal(t, int64(2), hits)
}

func TestTemplateAndScript(t *testing.T) {
	f := newTestFactory(nil)
	flow := mustNew(t, f, `{
		"name": "render",
		"steps": [
			{"name": "greet", "template": "hello ${input.name}"},
			{"name": "js", "script": "input.n * 2", "language": "js"},
			{"name": "ex", "script": "input.n + 1"},
			{"result": {"type": "expression", "expression": "@greet@ + ' ' + string(@js@) + ' ' + string(@ex@)"}}
		]
	}`)
	result, err := flow.Invoke(context.Background(), map[string]any{"name": "bob", "n": 2})
	assert.Nil(t, err)
	assert.Equal(t, "hello bob 4 3", result)
}

func TestDefinitionErrors(t *testing.T) {
	f := newTestFactory(nil)
	for _, dsl := range []string{
		`{"steps":[]}`,
		`{"name":"x","transaction":"Sometimes"}`,
		`{"name":"x","steps":[{"name":"a"},{"name":"a"}]}`,
		`{"name":"x","steps":[{"name":"input"}]}`,
		`{"name":"x","steps":[{"type":"unknown"}]}`,
		`{"name":"x","steps":[{"result":{"type":"step-ref","ref":"missing"}}]}`,
		`{"name":"x","steps":[{"result":{"type":"object","class":"Missing"}}]}`,
		`{"name":"x","steps":[{"result":{"type":"input","name":"undeclared"}}]}`,
		`{"name":"x","steps":[{"result":{"type":"resource","name":"undeclared"}}]}`,
		`{"name":"x","resources":[{"name":"r","service":"missing"}]}`,
		`{"name":"x","steps":[{"type":"for","steps":[]}]}`,
		`{"name":"x","steps":[{"type":"call"}]}`,
		`{"name":"x","steps":[{"type":"call","flow":"y","mode":"poll"}]}`,
		`{"name":"x","steps":[{"type":"call","flow":"y","mode":"callback"}]}`,
		`{"name":"x","steps":[{"type":"reply"}]}`,
		`{"name":"x","steps":[{"type":"throw"}]}`,
		`{"name":"x","steps":[{"script":"1 +"}]}`,
		`{"name":"x","steps":[{"catch":[{"class":"NoSuchError","steps":[]}]}]}`,
		`{"name":"x","steps":[{"result":{"type":"literal","value":"abc","class":"int"}}]}`,
	} {
		_, err := f.New([]byte(dsl), &JsonParser{})
		var de *types.DefinitionError
		assert.True(t, errors.As(err, &de), dsl)
	}
	_, err := f.New(nil, nil)
	assert.Equal(t, types.ErrDslEmpty, err)
	_, err = f.New([]byte(`{}`), nil)
	assert.Equal(t, types.ErrDslEmpty, err)
}

func TestPanicRecovered(t *testing.T) {
	registry := testRegistry()
	_ = registry.RegisterStaticMethod("Bad", "Panic", func() { panic("bad") })
	f := newTestFactory(registry)
	flow := mustNew(t, f, `{"name":"panics","steps":[{"result":{"type":"static-invoke","class":"Bad","method":"Panic"}}]}`)
	_, err := flow.Invoke(context.Background(), nil)
	var te *types.TargetError
	assert.True(t, errors.As(err, &te))
}

func TestJournal(t *testing.T) {
	j := &memoryJournal{}
	f := newTestFactory(nil, types.WithJournal(j))
	flow := mustNew(t, f, `{"name":"journaled","steps":[{"name":"a","result":1},{"result":2},{"name":"b","type":"throw","value":"x"}]}`)
	_, err := flow.Invoke(context.Background(), nil)
	assert.NotNil(t, err)
	assert.Equal(t, []string{"start a", "end a", "start b", "end b error"}, j.events)
}

type memoryJournal struct {
	events []string
}

func (j *memoryJournal) StartStep(_, _, step string) {
	j.events = append(j.events, "start "+step)
}

func (j *memoryJournal) AddInfo(_, _, step, key string, _ any) {
	j.events = append(j.events, "info "+step+" "+key)
}

func (j *memoryJournal) EndStep(_, _, step string, err error) {
	if err != nil {
		j.events = append(j.events, "end "+step+" error")
		return
	}
	j.events = append(j.events, "end "+step)
}
