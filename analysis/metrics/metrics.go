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

// Package metrics exports the statistics of the alias analysis as Prometheus metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/awslabs/ar-go-spds/analysis/boomerang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	forwardLabel  = "forward"
	backwardLabel = "backward"
)

// Stats is a boomerang.Stats sink recording terminated queries in Prometheus collectors
type Stats struct {
	queries  *prometheus.CounterVec
	timeouts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	memory   prometheus.Gauge
	registry *prometheus.Registry

	mu   sync.Mutex
	peak uint64
}

var _ boomerang.Stats = (*Stats)(nil)

// NewStats returns a sink whose collectors are registered in a fresh registry
func NewStats() *Stats {
	reg := prometheus.NewRegistry()
	s := newStats(reg)
	s.registry = reg
	return s
}

// NewStatsWith returns a sink whose collectors are registered in reg
func NewStatsWith(reg prometheus.Registerer) *Stats {
	return newStats(reg)
}

func newStats(reg prometheus.Registerer) *Stats {
	factory := promauto.With(reg)
	return &Stats{
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spds_queries_total",
			Help: "Total terminated queries by direction",
		}, []string{"direction"}),
		timeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spds_query_timeouts_total",
			Help: "Total queries that exceeded their budget, by direction",
		}, []string{"direction"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spds_query_duration_seconds",
			Help:    "Query solving time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"direction"}),
		memory: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spds_peak_heap_bytes",
			Help: "Peak heap in use observed while solving a query",
		}),
	}
}

// Terminated records the results r of q
func (s *Stats) Terminated(q boomerang.Query, r boomerang.Results) {
	direction := backwardLabel
	if _, ok := q.(boomerang.ForwardQuery); ok {
		direction = forwardLabel
	}
	s.queries.WithLabelValues(direction).Inc()
	if r.IsTimedout() {
		s.timeouts.WithLabelValues(direction).Inc()
	}
	s.duration.WithLabelValues(direction).Observe(r.AnalysisTime().Seconds())
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.MaxMemory() > s.peak {
		s.peak = r.MaxMemory()
		s.memory.Set(float64(s.peak))
	}
}

// Handler returns the HTTP handler serving the metrics of the sink's own registry, or of the default gatherer
// when the sink was created with NewStatsWith
func (s *Stats) Handler() http.Handler {
	if s.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry of the sink, or nil when the sink was created with NewStatsWith
func (s *Stats) Registry() *prometheus.Registry {
	return s.registry
}
