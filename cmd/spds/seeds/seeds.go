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

// Package seeds implements the spds seeds sub-command, which lists the queries of the seed specifications.
package seeds

import (
	"fmt"
	"io"

	"github.com/awslabs/ar-go-spds/analysis/boomerang"
	"github.com/awslabs/ar-go-spds/analysis/scene/ssascene"
	"github.com/awslabs/ar-go-spds/cmd/spds/tools"
	"github.com/awslabs/ar-go-spds/internal/formatutil"
)

// Usage is the usage of the seeds sub-command
const Usage = ` List the queries of the seed specifications of the config.
Usage:
  spds seeds [options] <package path(s)>
Examples:
  % spds seeds -config config.yaml package...
`

// Run lists the seeds of the program named by flags on w
func Run(flags tools.CommonFlags, w io.Writer) error {
	state, err := tools.LoadState(flags)
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
	for _, q := range queries {
		Print(w, q)
	}
	return nil
}

// Print prints the query q with its position
func Print(w io.Writer, q boomerang.Query) {
	direction := formatutil.Cyan("backward")
	if _, ok := q.(boomerang.ForwardQuery); ok {
		direction = formatutil.Magenta("forward")
	}
	position := ""
	if s, ok := q.Stmt().(*ssascene.Stmt); ok {
		position = s.Position().String()
	}
	fmt.Fprintf(w, "[%s] %s %s\n\t%s\n", direction, formatutil.Bold(q.Var().String()),
		formatutil.SanitizeRepr(q.Stmt()), formatutil.Faint(position))
}
