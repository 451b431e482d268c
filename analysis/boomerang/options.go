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

package boomerang

import (
	"time"

	"github.com/awslabs/ar-go-spds/analysis/config"
	"github.com/awslabs/ar-go-spds/analysis/scene"
)

// Options configure an engine
type Options struct {
	// Timeout is the time budget of each solve call. Zero means no time budget.
	Timeout time.Duration
	// MaxPropagations is the number of worklist items processed per solve call. Zero means no bound.
	MaxPropagations int
	// MaxMemoryBytes bounds the heap in use while solving. Zero means no bound.
	MaxMemoryBytes uint64
	// TrackNullAssignments makes nil assignments allocation sites
	TrackNullAssignments bool
	// TrackConstants makes constant assignments allocation sites
	TrackConstants bool
	// AllocationAtUnresolvedCalls makes the results of calls without callee allocation sites
	AllocationAtUnresolvedCalls bool
	// DepthFirst makes the solvers process their worklist last-in first-out
	DepthFirst bool
	// MaxAccessPaths bounds the number of access paths enumerated per node
	MaxAccessPaths int
	// StaticFieldStrategy connects loads and stores of static fields. nil drops flows through static fields.
	StaticFieldStrategy StaticFieldStrategy
	// Stats is notified when queries terminate. nil disables statistics.
	Stats Stats
	// Logger is the logger of the engine. nil uses a default logger.
	Logger *config.LogGroup
}

// DefaultOptions returns the options of an engine without budget, logging at info level.
func DefaultOptions() Options {
	return Options{
		MaxAccessPaths: config.DefaultMaxAccessPaths,
		Logger:         config.NewLogGroup(config.NewDefault()),
	}
}

// OptionsFromConfig returns the options set in cfg. The static field strategy is built by the caller, see the
// staticfields package.
func OptionsFromConfig(cfg *config.Config, strategy StaticFieldStrategy, stats Stats) Options {
	return Options{
		Timeout:                     cfg.Timeout,
		MaxPropagations:             cfg.MaxPropagations,
		MaxMemoryBytes:              uint64(cfg.MaxMemoryMB) << 20,
		TrackNullAssignments:        cfg.TrackNullAssignments,
		TrackConstants:              cfg.TrackConstants,
		AllocationAtUnresolvedCalls: cfg.AllocationAtUnresolvedCalls,
		DepthFirst:                  cfg.DepthFirst,
		MaxAccessPaths:              cfg.MaxAccessPaths,
		StaticFieldStrategy:         strategy,
		Stats:                       stats,
		Logger:                      config.NewLogGroup(cfg),
	}
}

// isAllocationSite returns true if the assignment of rhs in s is where the tracked object originates
func (o Options) isAllocationSite(s scene.Statement, rhs scene.Val) bool {
	if rhs == nil || s.ContainsInvokeExpr() {
		return false
	}
	return rhs.IsNewExpr() ||
		(o.TrackNullAssignments && rhs.IsNull()) ||
		(o.TrackConstants && rhs.IsConstant() && !rhs.IsNull())
}
