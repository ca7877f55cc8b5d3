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

package str

import (
	"fmt"
	"strings"
)

// ReplaceDelimited rewrites every delim-enclosed segment of text with the value returned
// by replace, e.g. "@input.total@ > 10" with delim "@". A doubled delimiter is a literal
// delimiter and delimiters inside single or double quoted strings are left alone.
// replace receives the zero based ordinal of the segment and its trimmed inner text.
func ReplaceDelimited(text, delim string, replace func(i int, inner string) (string, error)) (string, error) {
	if delim == "" || !strings.Contains(text, delim) {
		return text, nil
	}
	var sb strings.Builder
	var quote byte
	n := 0
	for i := 0; i < len(text); {
		c := text[i]
		if quote != 0 {
			sb.WriteByte(c)
			if c == '\\' && i+1 < len(text) {
				sb.WriteByte(text[i+1])
				i += 2
				continue
			}
			if c == quote {
				quote = 0
			}
			i++
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			sb.WriteByte(c)
			i++
			continue
		}
		if !strings.HasPrefix(text[i:], delim) {
			sb.WriteByte(c)
			i++
			continue
		}
		rest := text[i+len(delim):]
		if strings.HasPrefix(rest, delim) {
			sb.WriteString(delim)
			i += 2 * len(delim)
			continue
		}
		end := strings.Index(rest, delim)
		if end < 0 {
			return "", fmt.Errorf("unclosed %s at %d in %q", delim, i, text)
		}
		inner := strings.TrimSpace(rest[:end])
		if inner == "" {
			return "", fmt.Errorf("empty %s%s placeholder at %d in %q", delim, delim, i, text)
		}
		replacement, err := replace(n, inner)
		if err != nil {
			return "", err
		}
		sb.WriteString(replacement)
		n++
		i += len(delim) + end + len(delim)
	}
	return sb.String(), nil
}
