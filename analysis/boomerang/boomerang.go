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
	"context"
	"sync"
	"time"

	"github.com/awslabs/ar-go-spds/analysis/config"
	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/wpds"
)

// Boomerang is the engine answering queries over one program. It memoizes one solver per query: solvers created
// while answering a query are reused by later queries, and keep being extended as other queries need them.
//
// Solve calls on the same engine are serialized. Results read the solvers under the same lock, so an engine and
// its results can be shared between goroutines.
type Boomerang[W wpds.Weight[W]] struct {
	cg      scene.CallGraph
	weights WeightFunctions[W]
	options Options
	logger  *config.LogGroup

	driveMu sync.Mutex

	regMu   sync.Mutex
	solvers map[Query]*Solver[W]
	order   []*Solver[W]

	// solvers with pending work, processed round-robin
	active []*Solver[W]
	// called on every new forward solver
	forwardHooks []func(*Solver[W])
}

// New returns an engine for the program with call graph cg.
func New[W wpds.Weight[W]](cg scene.CallGraph, weights WeightFunctions[W], options Options) *Boomerang[W] {
	if options.Logger == nil {
		options.Logger = config.NewLogGroup(config.NewDefault())
	}
	if options.MaxAccessPaths <= 0 {
		options.MaxAccessPaths = config.DefaultMaxAccessPaths
	}
	return &Boomerang[W]{
		cg:      cg,
		weights: weights,
		options: options,
		logger:  options.Logger,
		solvers: map[Query]*Solver[W]{},
	}
}

// NewUnweighted returns an engine whose call automata carry no weights
func NewUnweighted(cg scene.CallGraph, options Options) *Boomerang[wpds.NoWeight] {
	return New[wpds.NoWeight](cg, NoWeightFunctions{}, options)
}

// Options returns the options of the engine
func (b *Boomerang[W]) Options() Options { return b.options }

// CallGraph returns the call graph of the program analyzed
func (b *Boomerang[W]) CallGraph() scene.CallGraph { return b.cg }

// Lookup returns the solver of q if one has been created
func (b *Boomerang[W]) Lookup(q Query) (*Solver[W], bool) {
	b.regMu.Lock()
	defer b.regMu.Unlock()
	s, ok := b.solvers[q]
	return s, ok
}

// Solver returns the solver of q, creating it if necessary. The solver is seeded but not solved.
func (b *Boomerang[W]) Solver(q Query) *Solver[W] {
	b.driveMu.Lock()
	defer b.driveMu.Unlock()
	return b.solverFor(q)
}

// Solvers returns all the solvers created so far, in creation order
func (b *Boomerang[W]) Solvers() []*Solver[W] {
	b.regMu.Lock()
	defer b.regMu.Unlock()
	return append([]*Solver[W](nil), b.order...)
}

// SolveBackward computes the allocation sites of q and the aliases of the values allocated there.
// ctx and the budget of the options bound the computation; the results are then flagged as timed out, and the
// pending work is resumed by the next solve call.
func (b *Boomerang[W]) SolveBackward(ctx context.Context, q BackwardQuery) *BackwardResults[W] {
	s, run := b.solve(ctx, q)
	r := newBackwardResults(b, s, run)
	notifyTerminated(b.options.Stats, b.logger, q, r)
	return r
}

// SolveForward computes the nodes reached by the value of q.
func (b *Boomerang[W]) SolveForward(ctx context.Context, q ForwardQuery) *ForwardResults[W] {
	s, run := b.solve(ctx, q)
	r := newForwardResults(b, s, run)
	notifyTerminated(b.options.Stats, b.logger, q, r)
	return r
}

// Solve solves q in the direction of its type
func (b *Boomerang[W]) Solve(ctx context.Context, q Query) Results {
	switch q := q.(type) {
	case ForwardQuery:
		return b.SolveForward(ctx, q)
	case BackwardQuery:
		return b.SolveBackward(ctx, q)
	}
	return nil
}

// run describes one solve call
type run struct {
	elapsed time.Duration
	peak    uint64
	err     error
}

func (b *Boomerang[W]) solve(ctx context.Context, q Query) (*Solver[W], run) {
	b.driveMu.Lock()
	defer b.driveMu.Unlock()
	if b.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.options.Timeout)
		defer cancel()
	}
	start := time.Now()
	bud := newBudget(ctx, b.options)
	b.logger.Debugf("solving %v", q)
	s := b.solverFor(q)
	err := b.drain(bud)
	if err != nil {
		b.logger.Warnf("%v: %v, %d solvers have pending work", q, err, len(b.active))
		for _, pending := range b.active {
			pending.timedout = true
		}
		s.timedout = true
	} else {
		// every solver is at its fixpoint
		for _, other := range b.order {
			other.timedout = false
		}
	}
	r := run{elapsed: time.Since(start), peak: bud.peak, err: err}
	b.logger.Debugf("solved %v in %.3fs, %d propagations, %d solvers", q, r.elapsed.Seconds(), bud.steps,
		len(b.order))
	return s, r
}

// solverFor returns the solver of q, creating and seeding it if necessary. Must be called while driving.
func (b *Boomerang[W]) solverFor(q Query) *Solver[W] {
	b.regMu.Lock()
	s, ok := b.solvers[q]
	if !ok {
		s = newSolver(b, q)
		b.solvers[q] = s
		b.order = append(b.order, s)
	}
	b.regMu.Unlock()
	if !ok {
		b.logger.Tracef("new solver for %v", q)
		if _, fwd := q.(ForwardQuery); fwd {
			for _, h := range b.forwardHooks {
				h(s)
			}
		}
		s.flow.seed()
	}
	return s
}

// onForwardSolver calls h with every forward solver, including the ones created later. Must be called while
// driving.
func (b *Boomerang[W]) onForwardSolver(h func(*Solver[W])) {
	b.forwardHooks = append(b.forwardHooks, h)
	for _, s := range b.order {
		if _, fwd := s.query.(ForwardQuery); fwd {
			h(s)
		}
	}
}

func (b *Boomerang[W]) schedule(s *Solver[W]) {
	if !s.scheduled {
		s.scheduled = true
		b.active = append(b.active, s)
	}
}

// drain processes the worklists of the active solvers, one node per solver in turn, until no solver has work
// left or the budget is exhausted.
func (b *Boomerang[W]) drain(bud *budget) error {
	for len(b.active) > 0 {
		if err := bud.check(); err != nil {
			return err
		}
		s := b.active[0]
		b.active = b.active[1:]
		n, ok := s.nextNode()
		if !ok {
			s.scheduled = false
			continue
		}
		s.flow.process(n)
		bud.step()
		b.active = append(b.active, s)
	}
	return nil
}
