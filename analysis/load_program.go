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

// Package analysis loads Go programs, builds their call graphs and runs batches of alias queries over them.
package analysis

import (
	"errors"
	"fmt"
	"go/token"
	"os"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// PkgLoadMode loads the syntax and the types of the packages and of all their dependencies, which the SSA builder
// needs.
const PkgLoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedExportFile |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes |
	packages.NeedModule

// ErrNoPackages is returned when the patterns do not match any package
var ErrNoPackages = errors.New("no packages")

// LoadedProgram is a program in SSA form with the packages it was built from.
type LoadedProgram struct {
	Program *ssa.Program
	// Packages are the packages matched by the patterns, in the order of packages.Load
	Packages []*packages.Package
	// Application are the SSA packages of Packages. Their functions are the application methods.
	Application []*ssa.Package
}

// LoadProgram loads the packages matching patterns (see packages.Load) and builds the SSA form of the whole
// program. A nil config loads with PkgLoadMode, and a non-empty goos sets GOOS in the environment of the build.
// Any error reported while parsing or type checking a package fails the load.
func LoadProgram(config *packages.Config, goos string, mode ssa.BuilderMode, patterns []string) (LoadedProgram,
	error) {
	if config == nil {
		config = &packages.Config{Mode: PkgLoadMode, Fset: token.NewFileSet()}
	}
	if goos != "" {
		config.Env = append(os.Environ(), "GOOS="+goos)
	}

	pkgs, err := packages.Load(config, patterns...)
	if err != nil {
		return LoadedProgram{}, fmt.Errorf("failed to load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return LoadedProgram{}, ErrNoPackages
	}
	if n := packages.PrintErrors(pkgs); n > 0 {
		return LoadedProgram{}, fmt.Errorf("%d errors found while loading %v", n, patterns)
	}

	prog, ssaPkgs := ssautil.AllPackages(pkgs, mode)
	for i, p := range ssaPkgs {
		if p == nil {
			return LoadedProgram{}, fmt.Errorf("cannot build SSA for package %s", pkgs[i])
		}
	}
	prog.Build()
	return LoadedProgram{Program: prog, Packages: pkgs, Application: ssaPkgs}, nil
}
