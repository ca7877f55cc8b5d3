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

import "reflect"

// narrowing lists the lossy numeric conversions allowed by an explicit narrow cast.
// Only conversions from a wider to a narrower kind are present, so a pair such as
// float64 -> int8 is allowed while int8 -> float32 is not.
var narrowing = map[reflect.Kind][]reflect.Kind{
	reflect.Float64: {reflect.Float32, reflect.Int64, reflect.Int, reflect.Int32, reflect.Int16, reflect.Int8},
	reflect.Float32: {reflect.Int64, reflect.Int, reflect.Int32, reflect.Int16, reflect.Int8},
	reflect.Int64:   {reflect.Int32, reflect.Int16, reflect.Int8},
	reflect.Int:     {reflect.Int32, reflect.Int16, reflect.Int8},
	reflect.Int32:   {reflect.Int16, reflect.Int8},
	reflect.Int16:   {reflect.Int8},
}

// widening lists the lossless numeric conversions applied implicitly on assignment.
var widening = map[reflect.Kind][]reflect.Kind{
	reflect.Int8:    {reflect.Int16, reflect.Int32, reflect.Int, reflect.Int64, reflect.Float32, reflect.Float64},
	reflect.Int16:   {reflect.Int32, reflect.Int, reflect.Int64, reflect.Float32, reflect.Float64},
	reflect.Int32:   {reflect.Int, reflect.Int64, reflect.Float32, reflect.Float64},
	reflect.Int:     {reflect.Int64, reflect.Float32, reflect.Float64},
	reflect.Int64:   {reflect.Int, reflect.Float32, reflect.Float64},
	reflect.Uint8:   {reflect.Uint16, reflect.Uint32, reflect.Uint, reflect.Uint64, reflect.Int16, reflect.Int32, reflect.Int, reflect.Int64, reflect.Float32, reflect.Float64},
	reflect.Uint16:  {reflect.Uint32, reflect.Uint, reflect.Uint64, reflect.Int32, reflect.Int, reflect.Int64, reflect.Float32, reflect.Float64},
	reflect.Uint32:  {reflect.Uint, reflect.Uint64, reflect.Int, reflect.Int64, reflect.Float32, reflect.Float64},
	reflect.Float32: {reflect.Float64},
}

func allowed(table map[reflect.Kind][]reflect.Kind, from, to reflect.Kind) bool {
	for _, k := range table[from] {
		if k == to {
			return true
		}
	}
	return false
}

// CanNarrow reports whether a narrow cast from one kind to another is allowed.
func CanNarrow(from, to reflect.Kind) bool {
	return allowed(narrowing, from, to)
}

// CanWiden reports whether an implicit widening from one kind to another is allowed.
func CanWiden(from, to reflect.Kind) bool {
	return allowed(widening, from, to)
}

// Narrow converts value to type to when the kinds form an allowed narrowing pair.
func Narrow(value interface{}, to reflect.Type) (interface{}, bool) {
	return convertNumeric(value, to, narrowing)
}

// Widen converts value to type to when the kinds form an allowed widening pair.
func Widen(value interface{}, to reflect.Type) (interface{}, bool) {
	return convertNumeric(value, to, widening)
}

func convertNumeric(value interface{}, to reflect.Type, table map[reflect.Kind][]reflect.Kind) (interface{}, bool) {
	if value == nil || to == nil {
		return nil, false
	}
	v := reflect.ValueOf(value)
	if !allowed(table, v.Kind(), to.Kind()) {
		return nil, false
	}
	return v.Convert(to).Interface(), true
}
