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

package cast

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/rulego/beanflow/api/types"
)

// NullText is the literal text that converts to nil regardless of the target type.
const NullText = "null"

// Converters is a registry of text converters keyed by type name and by reflect.Type.
type Converters struct {
	lock   sync.RWMutex
	byName map[string]types.Converter
	byType map[reflect.Type]types.Converter
}

var _ types.ConverterRegistry = (*Converters)(nil)

// NewConverters returns a registry preloaded with the built-in converters:
// string, bool, int, int8..int64, uint, uint8..uint64, float32, float64,
// duration, time (RFC3339), bytes (base64) and json (*gabs.Container).
func NewConverters() *Converters {
	c := &Converters{
		byName: make(map[string]types.Converter),
		byType: make(map[reflect.Type]types.Converter),
	}
	c.Register("string", reflect.TypeOf(""), func(text string) (any, error) { return text, nil })
	c.Register("bool", reflect.TypeOf(false), func(text string) (any, error) {
		return strconv.ParseBool(strings.TrimSpace(text))
	})
	for _, t := range []reflect.Type{
		reflect.TypeOf(int(0)), reflect.TypeOf(int8(0)), reflect.TypeOf(int16(0)),
		reflect.TypeOf(int32(0)), reflect.TypeOf(int64(0)),
	} {
		c.Register(t.Name(), t, signedConverter(t))
	}
	for _, t := range []reflect.Type{
		reflect.TypeOf(uint(0)), reflect.TypeOf(uint8(0)), reflect.TypeOf(uint16(0)),
		reflect.TypeOf(uint32(0)), reflect.TypeOf(uint64(0)),
	} {
		c.Register(t.Name(), t, unsignedConverter(t))
	}
	for _, t := range []reflect.Type{reflect.TypeOf(float32(0)), reflect.TypeOf(float64(0))} {
		c.Register(t.Name(), t, floatConverter(t))
	}
	c.Register("duration", reflect.TypeOf(time.Duration(0)), func(text string) (any, error) {
		return time.ParseDuration(strings.TrimSpace(text))
	})
	c.Register("time", reflect.TypeOf(time.Time{}), func(text string) (any, error) {
		return time.Parse(time.RFC3339, strings.TrimSpace(text))
	})
	c.Register("bytes", reflect.TypeOf([]byte(nil)), func(text string) (any, error) {
		return base64.StdEncoding.DecodeString(text)
	})
	c.Register("json", reflect.TypeOf((*gabs.Container)(nil)), func(text string) (any, error) {
		return gabs.ParseJSON([]byte(text))
	})
	return c
}

// Register binds a converter to a type name and, when t is not nil, to t.
func (c *Converters) Register(name string, t reflect.Type, converter types.Converter) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if name != "" {
		c.byName[name] = converter
	}
	if t != nil {
		c.byType[t] = converter
	}
}

// Converter returns the converter registered under typeName.
func (c *Converters) Converter(typeName string) (types.Converter, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	converter, ok := c.byName[typeName]
	return converter, ok
}

// ConverterFor returns the converter for t. Named types without their own converter
// fall back to the converter of their underlying kind.
func (c *Converters) ConverterFor(t reflect.Type) (types.Converter, bool) {
	c.lock.RLock()
	converter, ok := c.byType[t]
	c.lock.RUnlock()
	if ok {
		return converter, true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return signedConverter(t), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return unsignedConverter(t), true
	case reflect.Float32, reflect.Float64:
		return floatConverter(t), true
	case reflect.String:
		return func(text string) (any, error) {
			return reflect.ValueOf(text).Convert(t).Interface(), nil
		}, true
	case reflect.Bool:
		return func(text string) (any, error) {
			b, err := strconv.ParseBool(strings.TrimSpace(text))
			if err != nil {
				return nil, err
			}
			return reflect.ValueOf(b).Convert(t).Interface(), nil
		}, true
	case reflect.Ptr:
		if elem, ok := c.ConverterFor(t.Elem()); ok {
			return func(text string) (any, error) {
				v, err := elem(text)
				if err != nil {
					return nil, err
				}
				p := reflect.New(t.Elem())
				p.Elem().Set(reflect.ValueOf(v))
				return p.Interface(), nil
			}, true
		}
	}
	return nil, false
}

// Convert converts text with the converter registered under typeName.
// An empty typeName returns the text unchanged.
func (c *Converters) Convert(typeName, text string) (any, error) {
	if typeName == "" {
		return text, nil
	}
	converter, ok := c.Converter(typeName)
	if !ok {
		return nil, fmt.Errorf("no converter for type %s", typeName)
	}
	return converter(text)
}

func signedConverter(t reflect.Type) types.Converter {
	return func(text string) (any, error) {
		i, err := strconv.ParseInt(strings.TrimSpace(text), 0, t.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(i).Convert(t).Interface(), nil
	}
}

func unsignedConverter(t reflect.Type) types.Converter {
	return func(text string) (any, error) {
		u, err := strconv.ParseUint(strings.TrimSpace(text), 0, t.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(u).Convert(t).Interface(), nil
	}
}

func floatConverter(t reflect.Type) types.Converter {
	return func(text string) (any, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(text), t.Bits())
		if err != nil {
			return nil, err
		}
		return reflect.ValueOf(f).Convert(t).Interface(), nil
	}
}
