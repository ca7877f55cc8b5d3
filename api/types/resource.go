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

package types

import "context"

// TransactionResource is a resource handed out by a ResourceManager.
// Object returns the wrapped value, e.g. a *sql.Tx.
type TransactionResource interface {
	Object() any
	Commit() error
	Rollback() error
	Close() error
}

// ResourceFactory is the backing service that creates resources on demand.
type ResourceFactory interface {
	MakeResource(ctx context.Context, key string, transacted bool) (TransactionResource, error)
}

// ResourceManager owns the resources of one invocation.
type ResourceManager interface {
	// AddResource declares a resource. It is created lazily by GetResource.
	AddResource(name, key string, service ResourceFactory, transacted, closeOnComplete bool) error
	// GetResource returns the named resource, creating it on first use.
	GetResource(name string) (TransactionResource, error)
	// CommitAll commits every created transacted resource.
	CommitAll() error
	// RollbackAll rolls back every created transacted resource.
	RollbackAll() error
	// Terminate closes the resources declared with closeOnComplete.
	Terminate() error
}

// ResourceManagerFactory creates one ResourceManager per invocation.
type ResourceManagerFactory interface {
	CreateResourceManager(ctx context.Context) ResourceManager
}
