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

// Package cycles implements the spds cycles sub-command, which prints the elementary cycles of the call graph of
// the application methods.
package cycles

import (
	"fmt"
	"io"
	"strings"

	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/cmd/spds/tools"
	"github.com/awslabs/ar-go-spds/internal/formatutil"
	"github.com/awslabs/ar-go-spds/internal/funcutil"
	"github.com/awslabs/ar-go-spds/internal/graphutil"
)

// Usage is the usage of the cycles sub-command
const Usage = ` Print the elementary cycles of the call graph of the application.
Usage:
  spds cycles [options] <package path(s)>
Examples:
  % spds cycles -config config.yaml package...
`

// Run prints the cycles of the call graph of the program named by flags on w
func Run(flags tools.CommonFlags, w io.Writer) error {
	state, err := tools.LoadState(flags)
	if err != nil {
		return err
	}
	var application []scene.Method
	for _, m := range state.Scene.Methods() {
		if m.IsApplication() {
			application = append(application, m)
		}
	}
	g := graphutil.NewMethodGraph(state.Scene, application)
	cycles := graphutil.Cycles(g)
	state.Logger.Infof("Found %d cycles in the call graph of %d application methods", len(cycles), len(application))
	Print(w, cycles)
	return nil
}

// Print prints cycles on w, one per line
func Print(w io.Writer, cycles [][]scene.Method) {
	if len(cycles) == 0 {
		fmt.Fprintln(w, formatutil.Green("No cycle"))
		return
	}
	for i, cycle := range cycles {
		names := funcutil.Map(cycle, func(m scene.Method) string { return formatutil.SanitizeRepr(m) })
		fmt.Fprintf(w, "%s %s\n", formatutil.Yellow(fmt.Sprintf("[%d]", i)), strings.Join(names, " -> "))
	}
}
