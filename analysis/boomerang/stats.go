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
	"fmt"
	"sync"
	"time"

	"github.com/awslabs/ar-go-spds/analysis/config"
)

// Results is the common interface of forward and backward results
type Results interface {
	Query() Query
	IsTimedout() bool
	AnalysisTime() time.Duration
	MaxMemory() uint64
}

// Stats is notified when a query terminates. Implementations must be safe for concurrent use and must not
// influence the analysis.
type Stats interface {
	Terminated(q Query, r Results)
}

// NoStats ignores all notifications
type NoStats struct{}

// Terminated does nothing
func (NoStats) Terminated(Query, Results) {}

// SimpleStats counts queries, timeouts and time spent.
type SimpleStats struct {
	mu        sync.Mutex
	forward   int
	backward  int
	timeouts  int
	totalTime time.Duration
	maxMemory uint64
	slowest   Query
	slowestT  time.Duration
}

// NewSimpleStats returns empty statistics
func NewSimpleStats() *SimpleStats {
	return &SimpleStats{}
}

// Terminated records the results r of q
func (s *SimpleStats) Terminated(q Query, r Results) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch q.(type) {
	case ForwardQuery:
		s.forward++
	case BackwardQuery:
		s.backward++
	}
	if r.IsTimedout() {
		s.timeouts++
	}
	s.totalTime += r.AnalysisTime()
	if r.MaxMemory() > s.maxMemory {
		s.maxMemory = r.MaxMemory()
	}
	if s.slowest == nil || r.AnalysisTime() > s.slowestT {
		s.slowest = q
		s.slowestT = r.AnalysisTime()
	}
}

// Queries returns the number of forward and backward queries that terminated
func (s *SimpleStats) Queries() (forward int, backward int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forward, s.backward
}

// Timeouts returns the number of queries that timed out
func (s *SimpleStats) Timeouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeouts
}

func (s *SimpleStats) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	str := fmt.Sprintf("%d forward, %d backward queries, %d timeouts, %.2fs total, peak heap %d MB",
		s.forward, s.backward, s.timeouts, s.totalTime.Seconds(), s.maxMemory>>20)
	if s.slowest != nil {
		str += fmt.Sprintf(", slowest %v (%.2fs)", s.slowest, s.slowestT.Seconds())
	}
	return str
}

// notifyTerminated calls stats, recovering from panics in the sink.
func notifyTerminated(stats Stats, logger *config.LogGroup, q Query, r Results) {
	if stats == nil {
		return
	}
	defer func() {
		if x := recover(); x != nil {
			logger.Warnf("statistics sink failed on %v: %v", q, x)
		}
	}()
	stats.Terminated(q, r)
}
