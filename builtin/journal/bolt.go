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

package journal

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/utils/json"
	"go.etcd.io/bbolt"
)

// Journal events.
const (
	EventStart = "start"
	EventInfo  = "info"
	EventEnd   = "end"
)

// Record is a persisted journal event.
type Record struct {
	Id           string    `json:"id"`
	Flow         string    `json:"flow"`
	InvocationId string    `json:"invocationId"`
	Step         string    `json:"step"`
	Event        string    `json:"event"`
	Key          string    `json:"key,omitempty"`
	Value        any       `json:"value,omitempty"`
	Err          string    `json:"err,omitempty"`
	Time         time.Time `json:"time"`
}

var _ types.Journal = (*BoltJournal)(nil)

// BoltJournal persists step events in a bbolt database, one bucket per flow,
// in event order. Write failures are logged and never reach the flow.
type BoltJournal struct {
	Logger   types.Logger
	filename string
	db       *bbolt.DB
}

// NewBoltJournal creates a journal stored in filename. Open must be called before use.
func NewBoltJournal(filename string, logger types.Logger) *BoltJournal {
	if logger == nil {
		logger = types.DefaultLogger()
	}
	return &BoltJournal{Logger: logger, filename: filename}
}

func (j *BoltJournal) Open() error {
	db, err := bbolt.Open(j.filename, 0644, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return err
	}
	j.db = db
	return nil
}

func (j *BoltJournal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *BoltJournal) StartStep(flow, invocationId, step string) {
	j.write(Record{Flow: flow, InvocationId: invocationId, Step: step, Event: EventStart})
}

func (j *BoltJournal) AddInfo(flow, invocationId, step, key string, value any) {
	j.write(Record{Flow: flow, InvocationId: invocationId, Step: step, Event: EventInfo, Key: key, Value: value})
}

func (j *BoltJournal) EndStep(flow, invocationId, step string, err error) {
	r := Record{Flow: flow, InvocationId: invocationId, Step: step, Event: EventEnd}
	if err != nil {
		r.Err = err.Error()
	}
	j.write(r)
}

func (j *BoltJournal) write(r Record) {
	if j.db == nil {
		j.Logger.Printf("journal %s is not open", j.filename)
		return
	}
	r.Id = uuid.Must(uuid.NewV4()).String()
	r.Time = time.Now()
	js, err := json.Marshal(r)
	if err != nil {
		j.Logger.Printf("journal %s: %v", j.filename, err)
		return
	}
	err = j.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(r.Flow))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put([]byte(fmt.Sprintf("%020d", seq)), js)
	})
	if err != nil {
		j.Logger.Printf("journal %s: %v", j.filename, err)
	}
}

// Records returns the events of flow in write order.
func (j *BoltJournal) Records(flow string) ([]Record, error) {
	var records []Record
	err := j.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(flow))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			records = append(records, r)
		}
		return nil
	})
	return records, err
}

// Flows returns the names of the flows with recorded events.
func (j *BoltJournal) Flows() ([]string, error) {
	var names []string
	err := j.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	return names, err
}
