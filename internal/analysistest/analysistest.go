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

// Package analysistest loads annotated test programs for the tests of the analyses.
package analysistest

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-spds/analysis"
	"github.com/awslabs/ar-go-spds/analysis/config"
	"golang.org/x/tools/go/ssa"
)

// LoadTest loads the program in the directory dir, looking for a main.go and a config.yaml. If additional files
// are specified as extraFiles, the program will be loaded using those files too.
func LoadTest(t *testing.T, dir string, extraFiles []string) (analysis.LoadedProgram, *config.Config) {
	t.Helper()
	// Load config; in command, should be set using some flag
	configFile := filepath.Join(dir, "config.yaml")
	config.SetGlobalConfig(configFile)
	files := []string{filepath.Join(dir, "./main.go")}
	for _, extraFile := range extraFiles {
		files = append(files, filepath.Join(dir, extraFile))
	}

	lp, err := analysis.LoadProgram(nil, "", ssa.BuilderMode(0), files)
	if err != nil {
		t.Fatalf("error loading packages: %v", err)
	}
	cfg, err := config.LoadGlobal()
	if err != nil {
		t.Fatalf("error loading global config: %v", err)
	}
	return lp, cfg
}

// AllocRegex matches annotations of the form "@Alloc(id1, id2, id3)"
var AllocRegex = regexp.MustCompile(`//.*@Alloc\(((?:\s*\w\s*,?)+)\)`)

// QueryRegex matches annotations of the form "@Query(id1, id2, id3)"
var QueryRegex = regexp.MustCompile(`//.*@Query\(((?:\s*\w\s*,?)+)\)`)

// LPos is a line in a file. Files are identified by their base name.
type LPos struct {
	Filename string
	Line     int
}

func (p LPos) String() string {
	return fmt.Sprintf("%s:%d", p.Filename, p.Line)
}

// RemoveColumn returns the line of pos
func RemoveColumn(pos token.Position) LPos {
	return LPos{Line: pos.Line, Filename: filepath.Base(pos.Filename)}
}

// GetExpectedAllocations parses the Go files in dir and looks for comments @Alloc(id) and @Query(id) to construct
// the expected allocation sites of the queries, in the form of a map from query lines to the lines of all the
// allocations annotated with one of the identifiers of the query.
func GetExpectedAllocations(dir string) (map[LPos]map[LPos]bool, error) {
	fset := token.NewFileSet() // positions are relative to fset
	pkgs, err := parser.ParseDir(fset, dir, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", dir, err)
	}

	allocs := map[string][]LPos{}
	queries := map[LPos][]string{}
	for _, pkg := range pkgs {
		mapComments(pkg, func(c *ast.Comment) {
			pos := RemoveColumn(fset.Position(c.Pos()))
			for _, id := range identifiers(AllocRegex, c.Text) {
				allocs[id] = append(allocs[id], pos)
			}
			queries[pos] = append(queries[pos], identifiers(QueryRegex, c.Text)...)
		})
	}

	expected := map[LPos]map[LPos]bool{}
	for pos, ids := range queries {
		if len(ids) == 0 {
			continue
		}
		expected[pos] = map[LPos]bool{}
		for _, id := range ids {
			for _, alloc := range allocs[id] {
				expected[pos][alloc] = true
			}
		}
	}
	return expected, nil
}

func mapComments(pkg *ast.Package, f func(*ast.Comment)) {
	for _, file := range pkg.Files {
		for _, group := range file.Comments {
			for _, c := range group.List {
				f(c)
			}
		}
	}
}

// identifiers returns the comma-separated identifiers of the annotation matched by r in text
func identifiers(r *regexp.Regexp, text string) []string {
	a := r.FindStringSubmatch(text)
	if len(a) <= 1 {
		return nil
	}
	var ids []string
	for _, ident := range strings.Split(a[1], ",") {
		ids = append(ids, strings.TrimSpace(ident))
	}
	return ids
}
