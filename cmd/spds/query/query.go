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

// Package query implements the spds query sub-command, which solves the seeds of the config and reports the
// allocation sites and aliases found.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/awslabs/ar-go-spds/analysis"
	"github.com/awslabs/ar-go-spds/analysis/boomerang"
	"github.com/awslabs/ar-go-spds/analysis/metrics"
	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/scene/ssascene"
	"github.com/awslabs/ar-go-spds/analysis/wpds"
	"github.com/awslabs/ar-go-spds/cmd/spds/seeds"
	"github.com/awslabs/ar-go-spds/cmd/spds/tools"
	"github.com/awslabs/ar-go-spds/internal/formatutil"
	"github.com/awslabs/ar-go-spds/internal/funcutil"
	"golang.org/x/exp/slices"
)

const usage = ` Solve the queries of the seed specifications of the config.
Usage:
  spds query [options] <package path(s)>
Examples:
  % spds query -config config.yaml package...
  % spds query -config config.yaml -stats -metrics localhost:9090 package...
`

// Flags represents the parsed flags of the query sub-command.
type Flags struct {
	tools.CommonFlags
	stats       bool
	metricsAddr string
}

// NewFlags returns the parsed flags of the query sub-command with args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("query")
	stats := flags.FlagSet.Bool("stats", false, "print statistics of the queries")
	metricsAddr := flags.FlagSet.String("metrics", "", "serve Prometheus metrics on this address, e.g. localhost:9090")
	tools.SetUsage(flags.FlagSet, usage)
	common, err := flags.Parse(args)
	if err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: common, stats: *stats, metricsAddr: *metricsAddr}, nil
}

// Run solves the seeds of the program named by flags and reports the results on w.
// When metrics are served, Run keeps serving them after the report until interrupted.
func Run(flags Flags, w io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	state, err := tools.LoadState(flags.CommonFlags)
	if err != nil {
		return err
	}
	queries := state.Seeds()
	if err := state.CheckError(); err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("no seeds found, check the seeds section of the config file")
	}

	var sinks multiStats
	var simple *boomerang.SimpleStats
	if flags.stats {
		simple = boomerang.NewSimpleStats()
		sinks = append(sinks, simple)
	}
	if flags.metricsAddr != "" {
		m := metrics.NewStats()
		server := &http.Server{Addr: flags.metricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				state.Logger.Errorf("metrics server failed: %v", err)
			}
		}()
		defer server.Close()
		state.Logger.Infof("Serving metrics on %s", flags.metricsAddr)
		sinks = append(sinks, m)
	}

	results, err := analysis.RunQueries(ctx, state.Scene, state.Config, queries, sinks.orNil())
	if err != nil {
		return fmt.Errorf("queries failed: %w", err)
	}
	timeouts := Report(w, results)
	if simple != nil {
		fmt.Fprintf(w, "%s %v\n", formatutil.Bold("Statistics:"), simple)
	}
	if timeouts > 0 {
		state.Logger.Warnf("%d queries timed out, their results are partial", timeouts)
	}

	if flags.metricsAddr != "" {
		state.Logger.Infof("Done. Metrics are still served on %s, interrupt to exit", flags.metricsAddr)
		<-ctx.Done()
	}
	return nil
}

// Report prints results on w and returns the number of queries that timed out
func Report(w io.Writer, results []boomerang.Results) int {
	timeouts := 0
	for _, r := range results {
		seeds.Print(w, r.Query())
		if r.IsTimedout() {
			timeouts++
			fmt.Fprintf(w, "\t%s\n", formatutil.Red("timed out, results are partial"))
		}
		switch r := r.(type) {
		case *boomerang.BackwardResults[wpds.NoWeight]:
			reportBackward(w, r)
		case *boomerang.ForwardResults[wpds.NoWeight]:
			reportForward(w, r)
		}
		fmt.Fprintf(w, "\t%s\n", formatutil.Faint(fmt.Sprintf("solved in %.3f s", r.AnalysisTime().Seconds())))
	}
	return timeouts
}

func reportBackward(w io.Writer, r *boomerang.BackwardResults[wpds.NoWeight]) {
	allocs := r.AllocationSites()
	if len(allocs) == 0 {
		fmt.Fprintf(w, "\t%s\n", formatutil.Yellow("no allocation site found"))
	}
	sites := make([]boomerang.ForwardQuery, 0, len(allocs))
	for fq := range allocs {
		sites = append(sites, fq)
	}
	slices.SortFunc(sites, func(a, b boomerang.ForwardQuery) bool { return a.String() < b.String() })
	for _, fq := range sites {
		fmt.Fprintf(w, "\t%s %s\n\t\t%s\n", formatutil.Green("allocated at"), allocation(fq),
			formatutil.Faint(position(fq.Stmt())))
	}
	typeNames := map[string]bool{}
	for t := range r.PropagationTypes() {
		typeNames[t.String()] = true
	}
	types := funcutil.SetToOrderedSlice(typeNames)
	fmt.Fprintf(w, "\t%d aliases, propagated through types %v\n", len(r.AllAliases()), types)
}

// allocation describes the allocation site of fq. The zero value of a field of the object allocated at the site is
// marked with the field.
func allocation(fq boomerang.ForwardQuery) string {
	s := formatutil.SanitizeRepr(fq.Stmt())
	if a, ok := fq.Var().(scene.AllocVal); ok && !a.Field.IsEmpty() {
		s += " " + formatutil.Yellow("(zero value of "+formatutil.SanitizeRepr(a.Field)+")")
	}
	return s
}

func reportForward(w io.Writer, r *boomerang.ForwardResults[wpds.NoWeight]) {
	fmt.Fprintf(w, "\treaches %d statements in %d methods\n", len(r.Reached()), len(r.VisitedMethods()))
	for _, fw := range r.FieldWrites() {
		fmt.Fprintf(w, "\t%s %s\n", formatutil.Purple("written by"), formatutil.Sanitize(fw.String()))
	}
}

func position(s scene.Statement) string {
	if st, ok := s.(*ssascene.Stmt); ok {
		return st.Position().String()
	}
	return ""
}

// multiStats notifies every sink it holds
type multiStats []boomerang.Stats

func (m multiStats) Terminated(q boomerang.Query, r boomerang.Results) {
	for _, s := range m {
		s.Terminated(q, r)
	}
}

func (m multiStats) orNil() boomerang.Stats {
	if len(m) == 0 {
		return nil
	}
	return m
}
