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
	"reflect"
	"sort"

	"github.com/Jeffail/gabs/v2"
	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/utils/cast"
)

// List is a random access element source.
type List interface {
	Len() int
	Get(i int) any
}

// Iterator is a forward only element source.
type Iterator interface {
	// Next returns the next element, false when exhausted.
	Next() (any, bool)
}

// Iterable creates iterators.
type Iterable interface {
	Iterator() Iterator
}

// Cursor is a row source such as *sql.Rows. Each row is bound as a map from column name to value.
type Cursor interface {
	Next() bool
	Columns() ([]string, error)
	Scan(dest ...any) error
	Err() error
}

// Entry is the element bound when iterating a map, in ascending key order.
type Entry struct {
	Key   any
	Value any
}

// bounds is the [begin, end) window of a loop. hasEnd is false when no end was given.
type bounds struct {
	begin  int
	end    int
	hasEnd bool
}

// slice clamps the window to a source of length n.
func (b bounds) slice(n int) (int, int) {
	begin, end := b.begin, n
	if b.hasEnd && b.end < end {
		end = b.end
	}
	if begin < 0 {
		begin = 0
	}
	if begin > end {
		begin = end
	}
	return begin, end
}

// admit reports whether position p is inside the window; done is set once p reached the end.
func (b bounds) admit(p int) (ok bool, done bool) {
	if b.hasEnd && p >= b.end {
		return false, true
	}
	return p >= b.begin, false
}

// visitor handles one element. It returns true to stop the iteration.
type visitor func(index int, element any) (bool, error)

// iterate walks src within the window. Index based sources (slices, arrays, strings,
// List) are sliced to the window; count based sources (maps, channels, Iterator,
// Iterable, Cursor) skip the positions before begin and stop at end.
func iterate(ic *Context, src any, w bounds, fn visitor) error {
	if c, ok := src.(*gabs.Container); ok {
		src = c.Data()
	}
	switch s := src.(type) {
	case nil:
		return nil
	case List:
		begin, end := w.slice(s.Len())
		for i := begin; i < end; i++ {
			if stop, err := fn(i, s.Get(i)); stop || err != nil {
				return err
			}
		}
		return nil
	case Cursor:
		return iterateCursor(s, w, fn)
	case Iterable:
		return iterateIterator(s.Iterator(), w, fn)
	case Iterator:
		return iterateIterator(s, w, fn)
	case string:
		runes := []rune(s)
		begin, end := w.slice(len(runes))
		for i := begin; i < end; i++ {
			if stop, err := fn(i, string(runes[i])); stop || err != nil {
				return err
			}
		}
		return nil
	}
	v := reflect.ValueOf(src)
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		if e := v.Elem(); e.Kind() == reflect.Array || e.Kind() == reflect.Slice {
			return iterate(ic, e.Interface(), w, fn)
		}
	case reflect.Slice, reflect.Array:
		begin, end := w.slice(v.Len())
		for i := begin; i < end; i++ {
			if stop, err := fn(i, v.Index(i).Interface()); stop || err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		return iterateMap(v, w, fn)
	case reflect.Chan:
		return iterateChan(ic, v, w, fn)
	}
	return fmt.Errorf("can not iterate over %T", src)
}

func iterateIterator(it Iterator, w bounds, fn visitor) error {
	for p := 0; ; p++ {
		e, ok := it.Next()
		if !ok {
			return nil
		}
		admit, done := w.admit(p)
		if done {
			return nil
		}
		if !admit {
			continue
		}
		if stop, err := fn(p, e); stop || err != nil {
			return err
		}
	}
}

func iterateMap(v reflect.Value, w bounds, fn visitor) error {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return cast.ToString(keys[i].Interface()) < cast.ToString(keys[j].Interface())
	})
	for p, k := range keys {
		admit, done := w.admit(p)
		if done {
			return nil
		}
		if !admit {
			continue
		}
		if stop, err := fn(p, Entry{Key: k.Interface(), Value: v.MapIndex(k).Interface()}); stop || err != nil {
			return err
		}
	}
	return nil
}

func iterateChan(ic *Context, v reflect.Value, w bounds, fn visitor) error {
	cases := []reflect.SelectCase{
		{Dir: reflect.SelectRecv, Chan: v},
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ic.ctx.Done())},
	}
	for p := 0; ; p++ {
		// checked before receiving so that no element past the window is consumed
		admit, done := w.admit(p)
		if done {
			return nil
		}
		chosen, e, ok := reflect.Select(cases)
		if chosen == 1 {
			return ic.ctx.Err()
		}
		if !ok {
			return nil
		}
		if !admit {
			continue
		}
		if stop, err := fn(p, e.Interface()); stop || err != nil {
			return err
		}
	}
}

func iterateCursor(c Cursor, w bounds, fn visitor) error {
	columns, err := c.Columns()
	if err != nil {
		return err
	}
	for p := 0; c.Next(); p++ {
		admit, done := w.admit(p)
		if done {
			break
		}
		if !admit {
			continue
		}
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := c.Scan(dest...); err != nil {
			return err
		}
		row := make(map[string]any, len(columns))
		for i, name := range columns {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		if stop, err := fn(p, row); stop || err != nil {
			return err
		}
	}
	return c.Err()
}

// loop runs the body of one iteration. stop is set by break, by a flow return
// (nil outcome) and by errors.
func loop(ic *Context, steps []Step) (out *Outcome, stop bool, err error) {
	o, err := runSteps(ic, steps)
	if err != nil {
		return nil, true, err
	}
	if o == nil {
		return nil, true, nil
	}
	if o.Break {
		o.Break = false
		return o, true, nil
	}
	o.Continue = false
	return o, false, nil
}

// ForStepConfiguration configures a for step.
type ForStepConfiguration struct {
	// Source is the element source. Without a source the loop walks the numeric range [Begin, End).
	Source *types.ValueDsl `mapstructure:"source"`
	Begin  *types.ValueDsl `mapstructure:"begin"`
	End    *types.ValueDsl `mapstructure:"end"`
	// Index names the variable bound to the position of each iteration.
	Index string `mapstructure:"index"`
	// Element names the variable bound to each element.
	Element string `mapstructure:"element"`
}

type forStep struct {
	baseStep
	Config ForStepConfiguration
	source Value
	begin  Value
	end    Value
	steps  []Step
}

func (s *forStep) Init(b *builder, dsl types.StepDsl) error {
	s.init(dsl)
	if err := decode(dsl.Configuration, &s.Config); err != nil {
		return err
	}
	if s.Config.Source == nil && s.Config.End == nil {
		return fmt.Errorf("for step requires a source or an end")
	}
	var err error
	for _, v := range []struct {
		dsl *types.ValueDsl
		out *Value
	}{{s.Config.Source, &s.source}, {s.Config.Begin, &s.begin}, {s.Config.End, &s.end}} {
		if v.dsl == nil {
			continue
		}
		if *v.out, err = b.value(*v.dsl); err != nil {
			return err
		}
	}
	s.steps, err = b.steps(dsl.Steps)
	return err
}

func (s *forStep) bounds(ic *Context) (bounds, error) {
	var w bounds
	if s.begin != nil {
		v, err := s.begin.Resolve(ic)
		if err != nil {
			return w, err
		}
		if w.begin, err = cast.ToIntE(v); err != nil {
			return w, fmt.Errorf("for begin: %w", err)
		}
	}
	if s.end != nil {
		v, err := s.end.Resolve(ic)
		if err != nil {
			return w, err
		}
		if v != nil {
			if w.end, err = cast.ToIntE(v); err != nil {
				return w, fmt.Errorf("for end: %w", err)
			}
			w.hasEnd = true
		}
	}
	return w, nil
}

func (s *forStep) Execute(ic *Context) (*Outcome, error) {
	w, err := s.bounds(ic)
	if err != nil {
		return nil, err
	}
	last := &Outcome{}
	returned := false
	body := func(index int, element any) (bool, error) {
		if s.Config.Index != "" {
			ic.SetVar(s.Config.Index, index)
		}
		if s.Config.Element != "" {
			ic.SetVar(s.Config.Element, element)
		}
		o, stop, err := loop(ic, s.steps)
		if err != nil {
			return true, err
		}
		if o == nil {
			returned = true
			return true, nil
		}
		last = o
		return stop, nil
	}
	if s.source == nil {
		for i := w.begin; i < w.end; i++ {
			stop, err := body(i, i)
			if err != nil {
				return nil, err
			}
			if stop {
				break
			}
		}
	} else {
		src, err := s.source.Resolve(ic)
		if err != nil {
			return nil, err
		}
		if err := iterate(ic, src, w, body); err != nil {
			return nil, err
		}
	}
	if returned {
		return nil, nil
	}
	return last, nil
}

// WhileStepConfiguration configures while and do-while steps.
type WhileStepConfiguration struct {
	Test     string `mapstructure:"test"`
	Language string `mapstructure:"language"`
}

type whileStep struct {
	baseStep
	Config WhileStepConfiguration
	// post tests after each iteration (do-while).
	post  bool
	cond  *condition
	steps []Step
}

func (s *whileStep) Init(b *builder, dsl types.StepDsl) error {
	s.init(dsl)
	if err := decode(dsl.Configuration, &s.Config); err != nil {
		return err
	}
	var err error
	if s.cond, err = b.condition(s.Config.Test, s.Config.Language); err != nil {
		return err
	}
	s.steps, err = b.steps(dsl.Steps)
	return err
}

func (s *whileStep) Execute(ic *Context) (*Outcome, error) {
	last := &Outcome{}
	for {
		if !s.post {
			ok, err := s.cond.eval(ic)
			if err != nil {
				return nil, err
			}
			if !ok {
				return last, nil
			}
		}
		o, stop, err := loop(ic, s.steps)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, nil
		}
		last = o
		if stop {
			return last, nil
		}
		if s.post {
			ok, err := s.cond.eval(ic)
			if err != nil {
				return nil, err
			}
			if !ok {
				return last, nil
			}
		}
	}
}
