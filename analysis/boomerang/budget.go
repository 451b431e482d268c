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
	"errors"
	"fmt"
	"runtime"
)

// ErrBudgetExceeded is returned when a solve call runs out of time, propagations or memory.
var ErrBudgetExceeded = errors.New("analysis budget exceeded")

// memoryCheckInterval is the number of worklist items between two memory measurements
const memoryCheckInterval = 1000

type budget struct {
	ctx       context.Context
	maxSteps  int
	maxMemory uint64
	steps     int
	peak      uint64
}

func newBudget(ctx context.Context, opts Options) *budget {
	b := &budget{ctx: ctx, maxSteps: opts.MaxPropagations, maxMemory: opts.MaxMemoryBytes}
	b.measure()
	return b
}

// check returns a non-nil error if the budget is exhausted. It is called before every worklist item.
func (b *budget) check() error {
	if err := b.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrBudgetExceeded, err)
	}
	if b.maxSteps > 0 && b.steps >= b.maxSteps {
		return fmt.Errorf("%w: %d propagations", ErrBudgetExceeded, b.steps)
	}
	if b.steps > 0 && b.steps%memoryCheckInterval == 0 {
		used := b.measure()
		if b.maxMemory > 0 && used > b.maxMemory {
			return fmt.Errorf("%w: %d MB in use", ErrBudgetExceeded, used>>20)
		}
	}
	return nil
}

func (b *budget) step() {
	b.steps++
}

// measure records and returns the heap in use
func (b *budget) measure() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.HeapInuse > b.peak {
		b.peak = m.HeapInuse
	}
	return m.HeapInuse
}
