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

package maps

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Map2Struct Decode takes an input structure and uses reflection to translate it to
// the output structure. output must be a pointer to a map or struct.
// Duration fields accept duration strings ("5s") or integer milliseconds.
func Map2Struct(input interface{}, output interface{}) error {
	return Decode(input, output)
}

// Decode is Map2Struct with additional decode hooks, applied before the default ones.
// Decoded slices and maps replace the ones already held by output.
func Decode(input interface{}, output interface{}, hooks ...mapstructure.DecodeHookFunc) error {
	all := make([]mapstructure.DecodeHookFunc, 0, len(hooks)+1)
	all = append(all, hooks...)
	all = append(all, DurationHook())
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(all...),
		WeaklyTypedInput: true,
		ZeroFields:       true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

var durationType = reflect.TypeOf(time.Duration(0))

// DurationHook converts duration strings and integer milliseconds into time.Duration.
func DurationHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			if v == "" {
				return time.Duration(0), nil
			}
			return time.ParseDuration(v)
		case int:
			return time.Duration(v) * time.Millisecond, nil
		case int64:
			return time.Duration(v) * time.Millisecond, nil
		case float64:
			return time.Duration(v * float64(time.Millisecond)), nil
		case time.Duration:
			return v, nil
		}
		return data, nil
	}
}

// Get returns the value at a dot separated path of nested maps, e.g. "limiter.max".
func Get(m map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = m
	for _, key := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			current = v
		case map[interface{}]interface{}:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}

// Normalize converts the map[interface{}]interface{} values produced by some YAML
// decoders into map[string]interface{} recursively.
func Normalize(v interface{}) interface{} {
	switch node := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(node))
		for k, item := range node {
			m[fmt.Sprint(k)] = Normalize(item)
		}
		return m
	case map[string]interface{}:
		for k, item := range node {
			node[k] = Normalize(item)
		}
		return node
	case []interface{}:
		for i, item := range node {
			node[i] = Normalize(item)
		}
		return node
	}
	return v
}
