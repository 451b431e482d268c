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

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/awslabs/ar-go-spds/analysis"
	"github.com/awslabs/ar-go-spds/cmd/spds/cycles"
	"github.com/awslabs/ar-go-spds/cmd/spds/query"
	"github.com/awslabs/ar-go-spds/cmd/spds/seeds"
	"github.com/awslabs/ar-go-spds/cmd/spds/tools"
)

const usage = `SPDS: synchronized pushdown alias analysis for Go
Usage:
  spds [tool] [options] <package path(s)>
Tools:
  - seeds: lists the queries of the seed specifications of the config
  - query: solves the seeds and prints the allocation sites and aliases found
  - cycles: prints the elementary cycles of the call graph of the application
Examples:
  List the seeds: spds seeds -config config.yaml ./...
  Solve the seeds with statistics: spds query -config config.yaml -stats ./...`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "error: expected subcommand\n%s\n", usage)
		os.Exit(2)
	}

	// hardcode help flag
	if snd := os.Args[1]; snd == "-help" || snd == "--help" {
		fmt.Println(usage)
		return
	}

	// hardcode version flag
	if snd := os.Args[1]; snd == "-version" || snd == "--version" {
		fmt.Println(analysis.Version)
		return
	}

	args := os.Args[2:]
	switch cmd := os.Args[1]; cmd {
	case "seeds":
		flags, err := tools.NewCommonFlags("seeds", args, seeds.Usage)
		if err != nil {
			errExit(err)
		}
		if err := seeds.Run(flags, os.Stdout); err != nil {
			errExit(err)
		}
	case "query":
		flags, err := query.NewFlags(args)
		if err != nil {
			errExit(err)
		}
		if err := query.Run(flags, os.Stdout); err != nil {
			errExit(err)
		}
	case "cycles":
		flags, err := tools.NewCommonFlags("cycles", args, cycles.Usage)
		if err != nil {
			errExit(err)
		}
		if err := cycles.Run(flags, os.Stdout); err != nil {
			errExit(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "error: unexpected command: %v\n", cmd)
		fmt.Fprintf(os.Stderr, "usage:\n%s\n", usage)
		os.Exit(2)
	}
}

func errExit(err error) {
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	hint := tools.HintForErrorMessage(err.Error())
	if hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
	os.Exit(2)
}
