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

package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/awslabs/ar-go-spds/analysis/boomerang"
	"github.com/awslabs/ar-go-spds/analysis/boomerang/staticfields"
	"github.com/awslabs/ar-go-spds/analysis/config"
	"github.com/awslabs/ar-go-spds/analysis/scene"
	"golang.org/x/sync/errgroup"
)

// Program is a program the queries can be run on
type Program interface {
	scene.CallGraph
	// Methods returns all the methods of the program
	Methods() []scene.Method
}

// RunQueries solves queries over prog with the options of cfg and returns the results in the order of queries.
//
// The queries are dealt round-robin to cfg.Parallelism workers. Each worker owns an engine, so solvers are only
// reused between the queries of the same worker. The static field strategy and stats are shared.
// A query exceeding its budget is not an error, its results are flagged as timed out. RunQueries stops with the
// error of ctx when ctx is done.
func RunQueries(ctx context.Context, prog Program, cfg *config.Config, queries []boomerang.Query,
	stats boomerang.Stats) ([]boomerang.Results, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	strategy, err := staticfields.New(cfg.StaticFieldStrategy, prog.Methods())
	if err != nil {
		return nil, err
	}
	options := boomerang.OptionsFromConfig(cfg, strategy, stats)
	logger := options.Logger

	workers := cfg.Parallelism
	if workers <= 0 {
		workers = config.DefaultParallelism
	}
	if workers > len(queries) {
		workers = len(queries)
	}

	results := make([]boomerang.Results, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	start := time.Now()
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			engine := boomerang.NewUnweighted(prog, options)
			for i := w; i < len(queries); i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				results[i] = engine.Solve(ctx, queries[i])
				if results[i] == nil {
					return fmt.Errorf("query %v has no direction", queries[i])
				}
				logger.Debugf("Worker %d solved %v in %.3f s", w, queries[i], results[i].AnalysisTime().Seconds())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Infof("Solved %d queries with %d workers in %.2f s", len(queries), workers, time.Since(start).Seconds())
	return results, nil
}
