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
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/Jeffail/gabs/v2"
	"github.com/rulego/beanflow/api/types"
)

type segmentKind int

const (
	segmentProperty segmentKind = iota
	segmentIndex
	segmentKey
)

type segment struct {
	kind  segmentKind
	name  string
	index int
	// end is the offset of the segment end in the path text.
	end int
}

// Path is a compiled property path such as "order.items[0].attrs(color)".
// A dot selects a property, brackets an index and parentheses a mapped key.
type Path struct {
	text     string
	segments []segment
}

var paths sync.Map

// CompilePath parses text, reusing previously compiled paths.
func CompilePath(text string) (*Path, error) {
	if p, ok := paths.Load(text); ok {
		return p.(*Path), nil
	}
	p, err := ParsePath(text)
	if err != nil {
		return nil, err
	}
	paths.Store(text, p)
	return p, nil
}

// ParsePath parses a property path. The empty path selects the root itself.
func ParsePath(text string) (*Path, error) {
	p := &Path{text: text}
	var name strings.Builder
	flush := func(end int) {
		if name.Len() > 0 {
			p.segments = append(p.segments, segment{kind: segmentProperty, name: name.String(), end: end})
			name.Reset()
		}
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '.':
			if name.Len() == 0 && (i == 0 || text[i-1] == '.') {
				return nil, fmt.Errorf("property path %q: empty segment at %d", text, i)
			}
			flush(i)
		case '[', '(':
			flush(i)
			closing := byte(']')
			if c == '(' {
				closing = ')'
			}
			j := strings.IndexByte(text[i+1:], closing)
			if j < 0 {
				return nil, fmt.Errorf("property path %q: missing %q", text, closing)
			}
			inner := text[i+1 : i+1+j]
			end := i + 2 + j
			if c == '(' {
				p.segments = append(p.segments, segment{kind: segmentKey, name: inner, end: end})
			} else {
				index, err := strconv.Atoi(strings.TrimSpace(inner))
				if err != nil || index < 0 {
					return nil, fmt.Errorf("property path %q: invalid index %q", text, inner)
				}
				p.segments = append(p.segments, segment{kind: segmentIndex, index: index, name: inner, end: end})
			}
			i = end - 1
		case ']', ')':
			return nil, fmt.Errorf("property path %q: unexpected %q at %d", text, c, i)
		default:
			name.WriteByte(c)
		}
	}
	if strings.HasSuffix(text, ".") {
		return nil, fmt.Errorf("property path %q: trailing dot", text)
	}
	flush(len(text))
	return p, nil
}

// String returns the path text.
func (p *Path) String() string {
	return p.text
}

// Empty reports whether the path selects the root itself.
func (p *Path) Empty() bool {
	return p == nil || len(p.segments) == 0
}

// Get navigates root along the path. A nil met before the last segment resolves to nil,
// or fails with *types.NullPropertyError when nullCheck is set.
// *gabs.Container values are navigated through their data.
func (p *Path) Get(root any, nullCheck bool) (any, error) {
	if p.Empty() {
		return unwrap(root), nil
	}
	current := root
	for i, seg := range p.segments {
		current = unwrap(current)
		if IsNil(current) {
			if nullCheck {
				return nil, &types.NullPropertyError{Property: p.text, Segment: p.prefix(i)}
			}
			return nil, nil
		}
		next, err := step(current, seg)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", p.text, err)
		}
		current = next
	}
	return unwrap(current), nil
}

// prefix returns the path text that resolved to nil before segment i.
func (p *Path) prefix(i int) string {
	if i == 0 {
		return ""
	}
	return p.text[:p.segments[i-1].end]
}

func unwrap(v any) any {
	if c, ok := v.(*gabs.Container); ok && c != nil {
		return c.Data()
	}
	return v
}

func step(current any, seg segment) (any, error) {
	switch seg.kind {
	case segmentIndex:
		v, _ := indirect(reflect.ValueOf(current))
		switch v.Kind() {
		case reflect.Slice, reflect.Array, reflect.String:
			if seg.index >= v.Len() {
				return nil, fmt.Errorf("index %d out of range [0,%d)", seg.index, v.Len())
			}
			return v.Index(seg.index).Interface(), nil
		case reflect.Map:
			return mapGet(v, seg.name)
		}
		return nil, fmt.Errorf("%T is not indexable", current)
	default:
		return GetProperty(current, seg.name)
	}
}

// Property navigates root along the path text.
func Property(root any, path string, nullCheck bool) (any, error) {
	p, err := CompilePath(path)
	if err != nil {
		return nil, err
	}
	return p.Get(root, nullCheck)
}
