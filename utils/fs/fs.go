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

package fs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FilePaths walks root recursively and returns the files whose name matches any of
// the glob patterns, e.g. "*.json". Directories whose name matches an excluded pattern
// are skipped. The result is sorted.
func FilePaths(root string, patterns []string, excludedPatterns ...string) ([]string, error) {
	if root == "" {
		root = "."
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && matchAny(d.Name(), excludedPatterns) {
				return filepath.SkipDir
			}
			return nil
		}
		if matchAny(d.Name(), patterns) && !matchAny(d.Name(), excludedPatterns) {
			paths = append(paths, path)
		}
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

func matchAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if matched, _ := filepath.Match(p, name); matched {
			return true
		}
	}
	return false
}

// LoadFile reads the file at path.
func LoadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
