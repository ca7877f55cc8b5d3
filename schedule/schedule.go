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

// Package schedule invokes flows on cron schedules.
//
// Specs have a leading seconds field:
//
//	Field name   | Mandatory? | Allowed values  | Allowed special characters
//	----------   | ---------- | --------------  | --------------------------
//	Seconds      | Yes        | 0-59            | * / , -
//	Minutes      | Yes        | 0-59            | * / , -
//	Hours        | Yes        | 0-23            | * / , -
//	Day of month | Yes        | 1-31            | * / , - ?
//	Month        | Yes        | 1-12 or JAN-DEC | * / , -
//	Day of week  | Yes        | 0-6 or SUN-SAT  | * / , - ?
//
// The descriptors @yearly, @monthly, @weekly, @daily, @hourly and @every <duration>
// are accepted as well.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/robfig/cron/v3"
	"github.com/rulego/beanflow/api/types"
)

var ErrJobNotFound = errors.New("job not found")

// Job is a scheduled flow invocation.
type Job struct {
	Id    string
	Spec  string
	Flow  string
	Input any
}

type entry struct {
	job     Job
	entryId cron.EntryID
}

// Scheduler runs jobs against the flows of a factory.
type Scheduler struct {
	id      string
	factory types.FlowFactory
	logger  types.Logger
	cron    *cron.Cron

	mu   sync.Mutex
	jobs map[string]entry

	// OnResult, if set, receives the outcome of every run.
	OnResult func(job Job, result any, err error)
}

// New creates a stopped scheduler.
func New(factory types.FlowFactory, logger types.Logger) *Scheduler {
	uuId, _ := uuid.NewV4()
	return &Scheduler{
		id:      uuId.String(),
		factory: factory,
		logger:  types.NewLogger(logger),
		cron:    cron.New(cron.WithSeconds()),
		jobs:    make(map[string]entry),
	}
}

func (s *Scheduler) Id() string {
	return s.id
}

// Add schedules flow to run with input on spec and returns the job id.
func (s *Scheduler) Add(spec, flow string, input any) (string, error) {
	if flow == "" {
		return "", errors.New("flow can not be empty")
	}
	if !s.factory.ContainsFlow(flow) {
		return "", fmt.Errorf("%w: %s", types.ErrFlowNotFound, flow)
	}
	uuId, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	job := Job{Id: uuId.String(), Spec: spec, Flow: flow, Input: input}
	s.mu.Lock()
	defer s.mu.Unlock()
	entryId, err := s.cron.AddFunc(spec, func() {
		s.run(context.Background(), job)
	})
	if err != nil {
		return "", fmt.Errorf("job spec %q: %w", spec, err)
	}
	s.jobs[job.Id] = entry{job: job, entryId: entryId}
	return job.Id, nil
}

// Remove unschedules a job.
func (s *Scheduler) Remove(jobId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[jobId]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobId)
	}
	s.cron.Remove(e.entryId)
	delete(s.jobs, jobId)
	return nil
}

// Jobs returns the scheduled jobs ordered by flow name then id.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, e := range s.jobs {
		jobs = append(jobs, e.job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].Flow != jobs[j].Flow {
			return jobs[i].Flow < jobs[j].Flow
		}
		return jobs[i].Id < jobs[j].Id
	})
	return jobs
}

// Trigger runs a job now on the caller's goroutine.
func (s *Scheduler) Trigger(ctx context.Context, jobId string) (any, error) {
	s.mu.Lock()
	e, ok := s.jobs[jobId]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobId)
	}
	return s.run(ctx, e.job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs to finish or ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run(ctx context.Context, job Job) (result any, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("job %s: panic: %v", job.Id, e)
		}
		if err != nil {
			s.logger.Printf("schedule job %s flow %s: %v", job.Id, job.Flow, err)
		}
		if s.OnResult != nil {
			s.OnResult(job, result, err)
		}
	}()
	flow, err := s.factory.CreateFlow(job.Flow, "", false)
	if err != nil {
		return nil, err
	}
	defer flow.End()
	return flow.Invoke(ctx, job.Input)
}
