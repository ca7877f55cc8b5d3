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
	"errors"
	"fmt"
	"time"

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/utils/cast"
)

// ReplyStepConfiguration configures a reply step.
type ReplyStepConfiguration struct {
	// Step is the name of the poll call step that queued the async invocations.
	Step string `mapstructure:"step"`
	// Timeout bounds the wait. Zero waits until the invocation completes.
	Timeout time.Duration `mapstructure:"timeout"`
	// TimeoutExpression computes the timeout; numbers are milliseconds.
	TimeoutExpression string `mapstructure:"timeoutExpression"`
	Language          string `mapstructure:"language"`
	// Cancel cancels the invocation when the timeout elapses.
	Cancel bool `mapstructure:"cancel"`
}

type replyStep struct {
	baseStep
	Config  ReplyStepConfiguration
	timeout *expressionValue
}

func (s *replyStep) Init(b *builder, dsl types.StepDsl) error {
	s.init(dsl)
	if err := decode(dsl.Configuration, &s.Config); err != nil {
		return err
	}
	if s.Config.Step == "" {
		return fmt.Errorf("reply step requires the call step name")
	}
	b.refer(s.Config.Step)
	if s.Config.TimeoutExpression != "" {
		var err error
		s.timeout, err = b.newExpression(s.Config.TimeoutExpression, s.Config.Language)
		return err
	}
	return nil
}

func (s *replyStep) wait(ic *Context) (time.Duration, error) {
	if s.timeout == nil {
		return s.Config.Timeout, nil
	}
	v, err := s.timeout.Resolve(ic)
	if err != nil {
		return 0, err
	}
	if d, ok := v.(time.Duration); ok {
		return d, nil
	}
	if text, ok := v.(string); ok {
		if d, err := time.ParseDuration(text); err == nil {
			return d, nil
		}
	}
	ms, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("reply timeout: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// next takes the next pending invocation queued by the call step.
func (s *replyStep) next(ic *Context) (*AsyncContext, error) {
	var pending []*AsyncContext
	if out, ok := ic.Outcome(s.Config.Step); ok {
		pending, _ = out.Result.([]*AsyncContext)
	}
	if ic.replies == nil {
		ic.replies = make(map[string]int)
	}
	i := ic.replies[s.Config.Step]
	if i >= len(pending) {
		return nil, fmt.Errorf("%w: step %s", types.ErrNoPendingReply, s.Config.Step)
	}
	ic.replies[s.Config.Step] = i + 1
	return pending[i], nil
}

func (s *replyStep) Execute(ic *Context) (*Outcome, error) {
	if err := ic.checkMonitor(s.name); err != nil {
		return nil, err
	}
	ac, err := s.next(ic)
	if err != nil {
		return nil, err
	}
	timeout, err := s.wait(ic)
	if err != nil {
		return nil, err
	}
	res, timedOut, err := ac.await(ic.ctx, timeout)
	if timedOut {
		if s.Config.Cancel {
			ac.Cancel()
		}
		return nil, &types.AsyncTimeoutError{Flow: ic.FlowName(), Step: s.Config.Step, Timeout: timeout}
	}
	if err != nil {
		var te *types.TargetError
		if errors.As(err, &te) && te.Err != nil {
			return nil, te.Err
		}
		return nil, err
	}
	return &Outcome{Target: ac.Input, Result: res}, nil
}
