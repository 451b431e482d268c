// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import "time"

const (
	// DefaultTimeout is the default time budget of one query
	DefaultTimeout = 30 * time.Second
	// DefaultMaxAccessPaths is the default maximum number of access paths enumerated per node
	DefaultMaxAccessPaths = 64
	// DefaultParallelism is the number of queries solved in parallel by default
	DefaultParallelism = 1

	// StaticFieldsIgnore drops flows through static fields
	StaticFieldsIgnore = "ignore"
	// StaticFieldsFlowSensitive tracks static fields as facts along the control flow
	StaticFieldsFlowSensitive = "flow-sensitive"
	// StaticFieldsSingleton connects every store of a static field to every load of the same field
	StaticFieldsSingleton = "singleton"

	// CallgraphCHA builds the call graph with class hierarchy analysis
	CallgraphCHA = "cha"
	// CallgraphStatic only resolves static calls
	CallgraphStatic = "static"
	// CallgraphVTA builds the call graph with variable type analysis
	CallgraphVTA = "vta"

	// SeedFirstArgumentOf seeds a backward query on the first argument of matching calls
	SeedFirstArgumentOf = "first-argument-of"
	// SeedArgumentOf seeds a backward query on the argument at SeedSpec.Index of matching calls
	SeedArgumentOf = "argument-of"
	// SeedAllocationSites seeds a forward query at every allocation in matching methods
	SeedAllocationSites = "allocation-sites"
)
