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

// Package journal provides observers of step boundaries.
package journal

import (
	"github.com/rulego/beanflow/api/types"
)

var _ types.Journal = (*LogJournal)(nil)

// LogJournal prints step events to a logger.
type LogJournal struct {
	Logger types.Logger
}

// NewLogJournal creates a journal printing to logger, the default logger when nil.
func NewLogJournal(logger types.Logger) *LogJournal {
	if logger == nil {
		logger = types.DefaultLogger()
	}
	return &LogJournal{Logger: logger}
}

func (j *LogJournal) StartStep(flow, invocationId, step string) {
	j.Logger.Printf("[%s] flow=%s step=%s start", invocationId, flow, step)
}

func (j *LogJournal) AddInfo(flow, invocationId, step, key string, value any) {
	j.Logger.Printf("[%s] flow=%s step=%s %s=%v", invocationId, flow, step, key, value)
}

func (j *LogJournal) EndStep(flow, invocationId, step string, err error) {
	if err != nil {
		j.Logger.Printf("[%s] flow=%s step=%s end err=%v", invocationId, flow, step, err)
		return
	}
	j.Logger.Printf("[%s] flow=%s step=%s end", invocationId, flow, step)
}

// Multi fans events out to several journals.
type Multi []types.Journal

func (m Multi) StartStep(flow, invocationId, step string) {
	for _, j := range m {
		j.StartStep(flow, invocationId, step)
	}
}

func (m Multi) AddInfo(flow, invocationId, step, key string, value any) {
	for _, j := range m {
		j.AddInfo(flow, invocationId, step, key, value)
	}
}

func (m Multi) EndStep(flow, invocationId, step string, err error) {
	for _, j := range m {
		j.EndStep(flow, invocationId, step, err)
	}
}
