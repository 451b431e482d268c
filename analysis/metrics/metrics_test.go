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

package metrics

import (
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/awslabs/ar-go-spds/analysis/boomerang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type results struct {
	q        boomerang.Query
	timedout bool
	elapsed  time.Duration
	memory   uint64
}

func (r results) Query() boomerang.Query      { return r.q }
func (r results) IsTimedout() bool            { return r.timedout }
func (r results) AnalysisTime() time.Duration { return r.elapsed }
func (r results) MaxMemory() uint64           { return r.memory }

func TestTerminated(t *testing.T) {
	s := NewStats()
	fq, bq := boomerang.ForwardQuery{}, boomerang.BackwardQuery{}
	s.Terminated(bq, results{q: bq, elapsed: time.Millisecond, memory: 10})
	s.Terminated(bq, results{q: bq, timedout: true, memory: 30})
	s.Terminated(fq, results{q: fq, memory: 20})

	assert.Equal(t, 2.0, testutil.ToFloat64(s.queries.WithLabelValues(backwardLabel)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.queries.WithLabelValues(forwardLabel)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.timeouts.WithLabelValues(backwardLabel)))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.timeouts.WithLabelValues(forwardLabel)))
	assert.Equal(t, 30.0, testutil.ToFloat64(s.memory))
}

func TestConcurrentTerminated(t *testing.T) {
	s := NewStats()
	bq := boomerang.BackwardQuery{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Terminated(bq, results{q: bq, memory: uint64(i)})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8.0, testutil.ToFloat64(s.queries.WithLabelValues(backwardLabel)))
	assert.Equal(t, 7.0, testutil.ToFloat64(s.memory))
}

func TestHandler(t *testing.T) {
	s := NewStats()
	bq := boomerang.BackwardQuery{}
	s.Terminated(bq, results{q: bq})

	server := httptest.NewServer(s.Handler())
	defer server.Close()
	resp, err := server.Client().Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `spds_queries_total{direction="backward"} 1`)
}

func TestNewStatsWith(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewStatsWith(reg)
	assert.Nil(t, s.Registry())
	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the gauge is exported before the first query")
}
