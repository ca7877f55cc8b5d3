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

package reflect

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Jeffail/gabs/v2"
	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/test/assert"
	"github.com/rulego/beanflow/utils/cast"
)

type Item struct {
	Sku   string
	Qty   int32
	Attrs map[string]string
}

type Customer struct {
	Name  string
	vip   bool
	Level int8
}

func (c *Customer) IsVip() bool { return c.vip }

func (c *Customer) SetVip(v bool) { c.vip = v }

type Order struct {
	Id       string
	Items    []Item
	Customer *Customer
	Total    float64
	notes    []string
}

func (o *Order) GetCount() int { return len(o.Items) }

func (o *Order) AddNote(note string) int {
	o.notes = append(o.notes, note)
	return len(o.notes)
}

func (o *Order) Join(sep string, parts ...string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

var errRejected = errors.New("rejected")

func (o *Order) Reject() (bool, error) { return false, errRejected }

func (o *Order) Explode() { panic("boom") }

func newOrder() *Order {
	return &Order{
		Id:       "o-1",
		Items:    []Item{{Sku: "a", Qty: 2, Attrs: map[string]string{"color": "red"}}},
		Customer: &Customer{Name: "ann"},
	}
}

func TestParsePath(t *testing.T) {
	for _, text := range []string{"", "a", "a.b", "a[0].b", "a(key).b[1]", "items[0](color)"} {
		_, err := ParsePath(text)
		assert.Nil(t, err)
	}
	for _, text := range []string{".a", "a..b", "a.", "a[x]", "a[-1]", "a[0", "a(k", "a]"} {
		_, err := ParsePath(text)
		assert.NotNil(t, err)
	}
	p, _ := CompilePath("a.b")
	q, _ := CompilePath("a.b")
	assert.True(t, p == q)
	assert.Equal(t, "a.b", p.String())
}

func TestPathGet(t *testing.T) {
	order := newOrder()

	v, err := Property(order, "items[0].sku", true)
	assert.Nil(t, err)
	assert.Equal(t, "a", v)

	v, err = Property(order, "Items[0].Attrs(color)", true)
	assert.Nil(t, err)
	assert.Equal(t, "red", v)

	v, err = Property(order, "count", true)
	assert.Nil(t, err)
	assert.Equal(t, 1, v)

	v, err = Property(order, "customer.vip", true)
	assert.Nil(t, err)
	assert.Equal(t, false, v)

	v, err = Property(order, "", true)
	assert.Nil(t, err)
	assert.Equal(t, order, v)

	_, err = Property(order, "items[3]", true)
	assert.NotNil(t, err)

	_, err = Property(order, "missing", true)
	assert.NotNil(t, err)

	v, err = Property(map[string]any{"a": map[string]any{"b": 1}}, "a.b", true)
	assert.Nil(t, err)
	assert.Equal(t, 1, v)

	v, err = Property(map[int]string{3: "three"}, "[3]", true)
	assert.Nil(t, err)
	assert.Equal(t, "three", v)
}

func TestPathNullCheck(t *testing.T) {
	order := &Order{Id: "o-2"}

	v, err := Property(order, "customer.name", false)
	assert.Nil(t, err)
	assert.Nil(t, v)

	_, err = Property(order, "customer.name", true)
	var npe *types.NullPropertyError
	assert.True(t, errors.As(err, &npe))
	assert.Equal(t, "customer.name", npe.Property)
	assert.Equal(t, "customer", npe.Segment)

	_, err = Property(nil, "a", true)
	assert.True(t, errors.As(err, &npe))
	assert.Equal(t, "", npe.Segment)

	// missing map entries are nil, not errors
	v, err = Property(map[string]any{}, "a", true)
	assert.Nil(t, err)
	assert.Nil(t, v)
}

func TestPathGabs(t *testing.T) {
	c, err := gabs.ParseJSON([]byte(`{"order":{"items":[{"sku":"x"}]}}`))
	assert.Nil(t, err)
	v, err := Property(c, "order.items[0].sku", true)
	assert.Nil(t, err)
	assert.Equal(t, "x", v)

	v, err = Property(map[string]any{"doc": c}, "doc.order.items[0].sku", true)
	assert.Nil(t, err)
	assert.Equal(t, "x", v)
}

func TestSetFieldAndProperty(t *testing.T) {
	order := newOrder()
	assert.Nil(t, SetField(order, "id", "o-9", AssignOptions{}))
	assert.Equal(t, "o-9", order.Id)

	// widening is implicit
	assert.Nil(t, SetField(order, "Total", int32(5), AssignOptions{}))
	assert.Equal(t, float64(5), order.Total)

	// narrowing requires the flag
	assert.NotNil(t, SetProperty(order.Customer, "level", float64(3), AssignOptions{}))
	assert.Nil(t, SetProperty(order.Customer, "level", float64(3), AssignOptions{NarrowCast: true}))
	assert.Equal(t, int8(3), order.Customer.Level)

	// setter method wins over the unexported field
	assert.Nil(t, SetProperty(order.Customer, "vip", true, AssignOptions{}))
	assert.True(t, order.Customer.IsVip())

	// text conversion through the converter registry
	opts := AssignOptions{FromText: true, Converters: cast.NewConverters()}
	assert.Nil(t, SetProperty(order.Customer, "level", "7", opts))
	assert.Equal(t, int8(7), order.Customer.Level)
	assert.NotNil(t, SetProperty(order.Customer, "level", "7", AssignOptions{}))

	m := map[string]int{}
	assert.Nil(t, SetProperty(m, "a", int8(1), AssignOptions{}))
	assert.Equal(t, 1, m["a"])

	// value receivers are not settable
	assert.NotNil(t, SetField(Item{}, "Sku", "x", AssignOptions{}))
	assert.NotNil(t, SetField(order, "nothing", "x", AssignOptions{}))

	v, err := GetField(order, "id")
	assert.Nil(t, err)
	assert.Equal(t, "o-9", v)
}

func TestInvoke(t *testing.T) {
	order := newOrder()

	v, err := Invoke(order, "addNote", []any{"first"})
	assert.Nil(t, err)
	assert.Equal(t, 1, v)

	v, err = Invoke(order, "Join", []any{"-", "a", "b", "c"})
	assert.Nil(t, err)
	assert.Equal(t, "a-b-c", v)

	_, err = Invoke(order, "AddNote", nil)
	assert.NotNil(t, err)

	_, err = Invoke(order, "Reject", nil)
	var ie *types.InvocationError
	assert.True(t, errors.As(err, &ie))
	assert.True(t, errors.Is(types.UnwrapInvocation(err), errRejected))

	_, err = Invoke(order, "Explode", nil)
	assert.True(t, errors.As(err, &ie))

	_, err = Invoke(order, "Nope", nil)
	assert.NotNil(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.RegisterType("Order", (*Order)(nil))
	Register[Item](r, "Item")

	ot, ok := r.Type("Order")
	assert.True(t, ok)
	assert.Equal(t, reflect.TypeOf(Order{}), ot)
	it, ok := r.Type("Item")
	assert.True(t, ok)
	assert.Equal(t, reflect.TypeOf(Item{}), it)
	_, ok = r.Type("int64")
	assert.True(t, ok)
	_, ok = r.Type("Nope")
	assert.False(t, ok)

	limit := 10
	assert.Nil(t, r.RegisterStaticField("Limits", "Max", &limit))
	assert.NotNil(t, r.RegisterStaticField("Limits", "Bad", limit))
	f, ok := r.StaticField("Limits", "Max")
	assert.True(t, ok)
	assert.Equal(t, 10, f.Interface())

	assert.Nil(t, r.RegisterStaticMethod("Order", "New", newOrder))
	assert.NotNil(t, r.RegisterStaticMethod("Order", "Bad", 1))
	m, ok := r.StaticMethod("Order", "New")
	assert.True(t, ok)
	v, err := Call(m, "New", nil)
	assert.Nil(t, err)
	assert.Equal(t, "o-1", v.(*Order).Id)

	assert.True(t, r.HasClass("Limits"))
	assert.False(t, r.HasClass("Other"))
}

func TestNewInstance(t *testing.T) {
	o, ok := NewInstance(reflect.TypeOf(Order{})).(*Order)
	assert.True(t, ok)
	assert.NotNil(t, o)

	m, ok := NewInstance(reflect.TypeOf(map[string]any{})).(map[string]any)
	assert.True(t, ok)
	assert.NotNil(t, m)

	arr := NewArray(reflect.TypeOf(""), 3).([]string)
	assert.Equal(t, 3, len(arr))
}

func TestAssign(t *testing.T) {
	v, err := Assign([]any{1, 2}, reflect.TypeOf([]int64{}), AssignOptions{})
	assert.Nil(t, err)
	assert.Equal(t, []int64{1, 2}, v.Interface())

	v, err = Assign(nil, reflect.TypeOf(0), AssignOptions{})
	assert.Nil(t, err)
	assert.Equal(t, 0, v.Interface())

	_, err = Assign("x", reflect.TypeOf(0), AssignOptions{})
	assert.True(t, errors.Is(err, ErrNotAssignable))
}
