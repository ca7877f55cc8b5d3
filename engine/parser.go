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
	"strings"

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/utils/json"
	"github.com/rulego/beanflow/utils/maps"
	"gopkg.in/yaml.v3"
)

// Parser decodes flow definitions.
type Parser interface {
	DecodeFlow(data []byte) (types.FlowDsl, error)
}

// JsonParser Json
type JsonParser struct {
}

// DecodeFlow decodes a JSON flow definition.
func (p *JsonParser) DecodeFlow(data []byte) (types.FlowDsl, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return types.FlowDsl{}, err
	}
	return decodeFlow(raw)
}

// YamlParser Yaml
type YamlParser struct {
}

// DecodeFlow decodes a YAML flow definition.
func (p *YamlParser) DecodeFlow(data []byte) (types.FlowDsl, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return types.FlowDsl{}, err
	}
	return decodeFlow(raw)
}

func decodeFlow(raw map[string]interface{}) (types.FlowDsl, error) {
	var def types.FlowDsl
	if len(raw) == 0 {
		return def, types.ErrDslEmpty
	}
	err := decode(maps.Normalize(raw), &def)
	return def, err
}

// ParserFor returns the parser matching a file name, JSON unless it ends with .yaml or .yml.
func ParserFor(path string) Parser {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return &YamlParser{}
	}
	return &JsonParser{}
}
