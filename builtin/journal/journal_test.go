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
	"bytes"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rulego/beanflow/api/types"
	"github.com/rulego/beanflow/test/assert"
)

func TestLogJournal(t *testing.T) {
	var buf bytes.Buffer
	j := NewLogJournal(log.New(&buf, "", 0))
	j.StartStep("order", "i1", "load")
	j.AddInfo("order", "i1", "load", "rows", 3)
	j.EndStep("order", "i1", "load", errors.New("boom"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, 3, len(lines))
	assert.Equal(t, "[i1] flow=order step=load start", lines[0])
	assert.Equal(t, "[i1] flow=order step=load rows=3", lines[1])
	assert.Equal(t, "[i1] flow=order step=load end err=boom", lines[2])
}

func TestBoltJournal(t *testing.T) {
	j := NewBoltJournal(filepath.Join(t.TempDir(), "journal.db"), types.DiscardLogger())
	assert.Nil(t, j.Open())
	defer j.Close()

	var m types.Journal = Multi{j, NewLogJournal(types.DiscardLogger())}
	m.StartStep("order", "i1", "load")
	m.AddInfo("order", "i1", "load", "rows", "3")
	m.EndStep("order", "i1", "load", nil)
	m.StartStep("audit", "i2", "save")
	m.EndStep("audit", "i2", "save", errors.New("boom"))

	records, err := j.Records("order")
	assert.Nil(t, err)
	assert.Equal(t, 3, len(records))
	assert.Equal(t, EventStart, records[0].Event)
	assert.Equal(t, EventInfo, records[1].Event)
	assert.Equal(t, "rows", records[1].Key)
	assert.Equal(t, "3", records[1].Value)
	assert.Equal(t, EventEnd, records[2].Event)
	assert.Equal(t, "", records[2].Err)
	assert.True(t, records[0].Id != records[1].Id)

	records, err = j.Records("audit")
	assert.Nil(t, err)
	assert.Equal(t, 2, len(records))
	assert.Equal(t, "boom", records[1].Err)

	records, err = j.Records("missing")
	assert.Nil(t, err)
	assert.Equal(t, 0, len(records))

	flows, err := j.Flows()
	assert.Nil(t, err)
	assert.Equal(t, []string{"audit", "order"}, flows)
}

func TestBoltJournalNotOpen(t *testing.T) {
	var buf bytes.Buffer
	j := NewBoltJournal("unused.db", log.New(&buf, "", 0))
	j.StartStep("order", "i1", "load")
	assert.True(t, strings.Contains(buf.String(), "not open"))
	assert.Nil(t, j.Close())
}
