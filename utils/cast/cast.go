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

// Package cast converts loosely typed flow values into Go scalars, converts
// literal text into typed values, and applies narrowing numeric casts.
package cast

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rulego/beanflow/utils/json"
)

// intOf returns the integer value of any signed or unsigned integer kind.
func intOf(v reflect.Value) (int64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(v.Uint()), true
	}
	return 0, false
}

// ToInt converts value to int. It returns 0 if conversion fails.
func ToInt(value interface{}) int {
	v, _ := ToIntE(value)
	return v
}

// ToIntE converts value to int. Floats are truncated.
func ToIntE(value interface{}) (int, error) {
	v, err := ToInt64E(value)
	return int(v), err
}

// ToInt64 converts value to int64. It returns 0 if conversion fails.
func ToInt64(value interface{}) int64 {
	v, _ := ToInt64E(value)
	return v
}

// ToInt64E converts value to int64. Floats are truncated.
func ToInt64E(value interface{}) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, fmt.Errorf("unable to cast nil to int64")
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("unable to cast %q to int64: %w", v, err)
		}
		return int64(f), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	rv := reflect.ValueOf(value)
	if i, ok := intOf(rv); ok {
		return i, nil
	}
	if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
		return int64(rv.Float()), nil
	}
	return 0, fmt.Errorf("unable to cast %v of type %T to int64", value, value)
}

// ToFloat64 converts value to float64. It returns 0 if conversion fails.
func ToFloat64(value interface{}) float64 {
	v, _ := ToFloat64E(value)
	return v
}

// ToFloat64E converts value to float64.
func ToFloat64E(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, fmt.Errorf("unable to cast nil to float64")
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("unable to cast %q to float64: %w", v, err)
		}
		return f, nil
	}
	rv := reflect.ValueOf(value)
	if i, ok := intOf(rv); ok {
		return float64(i), nil
	}
	if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
		return rv.Float(), nil
	}
	return 0, fmt.Errorf("unable to cast %v of type %T to float64", value, value)
}

// ToDurationE converts value to time.Duration. Integers are nanoseconds, strings use time.ParseDuration.
func ToDurationE(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case string:
		return time.ParseDuration(strings.TrimSpace(v))
	}
	if i, ok := intOf(reflect.ValueOf(value)); ok {
		return time.Duration(i), nil
	}
	return 0, fmt.Errorf("unable to cast %v of type %T to time.Duration", value, value)
}

// ToBool converts value to bool. It returns false if conversion fails.
func ToBool(value interface{}) bool {
	v, _ := ToBoolE(value)
	return v
}

// ToBoolE converts value to bool. nil is false, numbers are true when not zero.
func ToBoolE(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("unable to cast %q to bool", v)
		}
		return b, nil
	}
	rv := reflect.ValueOf(value)
	if i, ok := intOf(rv); ok {
		return i != 0, nil
	}
	if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
		return rv.Float() != 0, nil
	}
	return false, fmt.Errorf("unable to cast %v of type %T to bool", value, value)
}

// ToString converts value to string. It returns empty string if conversion fails.
func ToString(value interface{}) string {
	v, _ := ToStringE(value)
	return v
}

// ToStringE converts value to string. Composite values are rendered as JSON.
func ToStringE(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case fmt.Stringer:
		return v.String(), nil
	case error:
		return v.Error(), nil
	}
	rv := reflect.ValueOf(value)
	if i, ok := intOf(rv); ok {
		if rv.Kind() >= reflect.Uint && rv.Kind() <= reflect.Uintptr {
			return strconv.FormatUint(rv.Uint(), 10), nil
		}
		return strconv.FormatInt(i, 10), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
