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

package resource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/rulego/beanflow/api/types"
)

var _ types.ResourceFactory = (*SQLFactory)(nil)

// SQLFactory opens database resources. The resource key selects a data source.
// Transacted resources are a *sql.Tx committed or rolled back with the invocation,
// others are the shared *sql.DB.
type SQLFactory struct {
	// DriverName is mysql or postgres.
	DriverName string
	// DataSources maps resource keys to sql.Open data source names.
	DataSources map[string]string
	// PoolSize bounds the open connections of each data source, zero is unlimited.
	PoolSize int

	locker sync.Mutex
	dbs    map[string]*sql.DB
}

// NewSQLFactory creates a factory for driverName.
func NewSQLFactory(driverName string, dataSources map[string]string) *SQLFactory {
	return &SQLFactory{DriverName: driverName, DataSources: dataSources}
}

// DB returns the connection pool of key, opening it on first use.
func (f *SQLFactory) DB(key string) (*sql.DB, error) {
	f.locker.Lock()
	defer f.locker.Unlock()
	if db, ok := f.dbs[key]; ok {
		return db, nil
	}
	dsn, ok := f.DataSources[key]
	if !ok {
		return nil, fmt.Errorf("%w: data source %s", types.ErrResourceNotFound, key)
	}
	driverName := f.DriverName
	if driverName == "" {
		driverName = "mysql"
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if f.PoolSize > 0 {
		db.SetMaxOpenConns(f.PoolSize)
		db.SetMaxIdleConns(f.PoolSize / 2)
	}
	if f.dbs == nil {
		f.dbs = make(map[string]*sql.DB)
	}
	f.dbs[key] = db
	return db, nil
}

func (f *SQLFactory) MakeResource(ctx context.Context, key string, transacted bool) (types.TransactionResource, error) {
	db, err := f.DB(key)
	if err != nil {
		return nil, err
	}
	if !transacted {
		return &SQLResource{db: db}, nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &SQLResource{db: db, tx: tx}, nil
}

// Close closes every opened data source.
func (f *SQLFactory) Close() error {
	f.locker.Lock()
	defer f.locker.Unlock()
	var errs []error
	for key, db := range f.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("data source %s: %w", key, err))
		}
	}
	f.dbs = nil
	return errors.Join(errs...)
}

// SQLResource is a database resource.
type SQLResource struct {
	db *sql.DB
	tx *sql.Tx
}

// Object returns the *sql.Tx of a transacted resource, the *sql.DB otherwise.
func (r *SQLResource) Object() any {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *SQLResource) Commit() error {
	if r.tx == nil {
		return nil
	}
	return r.tx.Commit()
}

func (r *SQLResource) Rollback() error {
	if r.tx == nil {
		return nil
	}
	if err := r.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// Close does not close the shared pool.
func (r *SQLResource) Close() error {
	return nil
}
