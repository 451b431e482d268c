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

package config

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

//go:embed testdata
var testfsys embed.FS

func checkMatches(t *testing.T, elt CodeIdentifier, pattern CodeIdentifier) {
	if !compileRegexes(pattern).Matches(elt) {
		t.Errorf("%v should be matched by %v", elt, pattern)
	}
}

func checkNotMatches(t *testing.T, elt CodeIdentifier, pattern CodeIdentifier) {
	if compileRegexes(pattern).Matches(elt) {
		t.Errorf("%v should not be matched by %v", elt, pattern)
	}
}

func TestCodeIdentifier_selfMatches(t *testing.T) {
	cid := CodeIdentifier{Package: "a", Method: "b"}
	checkMatches(t, cid, cid)
}

func TestCodeIdentifier_emptyMatchesAny(t *testing.T) {
	cid1 := CodeIdentifier{Package: "a", Method: "b", Receiver: "c", Type: "d"}
	cid2 := CodeIdentifier{Package: "de", Method: "234jbn", Receiver: "ef", Type: "23kjb"}
	checkMatches(t, cid1, CodeIdentifier{})
	checkMatches(t, cid2, CodeIdentifier{})
}

func TestCodeIdentifier_oneDiff(t *testing.T) {
	cid1 := CodeIdentifier{Package: "a", Method: "b"}
	cid2 := CodeIdentifier{Package: "a"}
	checkMatches(t, cid1, cid2)
	checkNotMatches(t, cid2, cid1)
}

func TestCodeIdentifier_regexes(t *testing.T) {
	cid1 := CodeIdentifier{Package: "main", Method: "b"}
	cid1bis := CodeIdentifier{Package: "command-line-arguments", Method: "b"}
	cid2 := CodeIdentifier{Package: "(main)|(command-line-arguments)$"}
	checkMatches(t, cid1, cid2)
	checkMatches(t, cid1bis, cid2)
	checkNotMatches(t, CodeIdentifier{Package: "fmt"}, cid2)
}

func TestCodeIdentifier_invalidRegexIsString(t *testing.T) {
	pattern := CodeIdentifier{Package: "a(b"}
	if compileRegexes(pattern).computedRegexs != nil {
		t.Fatalf("%q should not compile", pattern.Package)
	}
	checkMatches(t, CodeIdentifier{Package: "a(b"}, pattern)
	checkNotMatches(t, CodeIdentifier{Package: "ab"}, pattern)
}

func loadFromTestDir(filename string) (string, *Config, error) {
	filename = filepath.Join("testdata", filename)
	b, err := testfsys.ReadFile(filename)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file %v: %v", filename, err)
	}
	config, err := Load(filename, b)
	if err != nil {
		return filename, nil, fmt.Errorf("failed to load file %v: %v", filename, err)
	}
	return filename, config, err
}

func TestNewDefault(t *testing.T) {
	c := NewDefault()
	if c.StaticFieldStrategy != StaticFieldsSingleton {
		t.Errorf("Default static field strategy should be %q", StaticFieldsSingleton)
	}
	if c.Timeout != DefaultTimeout {
		t.Errorf("Default timeout should be %v", DefaultTimeout)
	}
	if c.LogLevel != int(InfoLevel) {
		t.Errorf("Default log level should be info")
	}
}

func TestLoadMinimal(t *testing.T) {
	fileName, config, err := loadFromTestDir("minimal.yaml")
	if err != nil {
		t.Fatalf("Could not load %s: %v", fileName, err)
	}
	if config.Timeout != time.Minute {
		t.Errorf("minimal config should set a one minute timeout, got %v", config.Timeout)
	}
	if config.CallgraphAlgo != CallgraphCHA || config.Parallelism != DefaultParallelism {
		t.Errorf("minimal config should keep defaults")
	}
	if config.RelPath("x.yaml") != filepath.Join("testdata", "x.yaml") {
		t.Errorf("RelPath should be relative to the config file, got %s", config.RelPath("x.yaml"))
	}
}

func TestLoadFullConfig(t *testing.T) {
	fileName, config, err := loadFromTestDir("full-config.yaml")
	if config == nil || err != nil {
		t.Fatalf("Could not load %s: %v", fileName, err)
	}
	if config.LogLevel != int(TraceLevel) {
		t.Error("full config should have set trace")
	}
	if config.Timeout != 10*time.Second {
		t.Errorf("full config should set timeout to 10s")
	}
	if config.MaxPropagations != 100000 || config.MaxMemoryMB != 2048 {
		t.Errorf("full config should set the budgets")
	}
	if config.StaticFieldStrategy != StaticFieldsFlowSensitive {
		t.Errorf("full config should set the flow-sensitive strategy")
	}
	if !config.TrackNullAssignments || !config.TrackConstants || !config.AllocationAtUnresolvedCalls {
		t.Errorf("full config should set the allocation options")
	}
	if config.CallgraphAlgo != CallgraphVTA || !config.ScanLibraryMethods || !config.DepthFirst {
		t.Errorf("full config should set callgraph-algo, scan-library-methods and depth-first")
	}
	if config.Parallelism != 4 || config.MaxAccessPaths != 8 {
		t.Errorf("full config should set parallelism and max-access-paths")
	}
	if len(config.Seeds) != 3 {
		t.Fatalf("full config should have 3 seeds, got %d", len(config.Seeds))
	}
	if config.Seeds[1].Kind != SeedArgumentOf || config.Seeds[1].Index != 2 {
		t.Errorf("second seed should be argument 2 of Write")
	}
	if !config.Seeds[0].Target.Matches(CodeIdentifier{Package: "database/sql", Method: "QueryContext"}) {
		t.Errorf("first seed should match database/sql.QueryContext")
	}
	if config.Seeds[0].Target.Matches(CodeIdentifier{Package: "database/sql", Method: "Exec"}) {
		t.Errorf("first seed should not match database/sql.Exec")
	}
}

func TestLoadErrors(t *testing.T) {
	for _, name := range []string{"bad_format.yaml", "bad_strategy.yaml", "bad_seed.yaml"} {
		_, config, err := loadFromTestDir(name)
		if config != nil || err == nil {
			t.Errorf("Expected error and nil value when loading %s", name)
		}
	}
	if _, err := LoadFromFile(filepath.Join("testdata", "does-not-exist.yaml")); err == nil {
		t.Errorf("Expected error when loading a non existent file")
	}
}

func TestLogGroupLevels(t *testing.T) {
	c := NewDefault()
	c.LogLevel = int(WarnLevel)
	l := NewLogGroup(c)
	var buf bytes.Buffer
	l.SetAllOutput(&buf)
	l.Infof("hidden %d", 1)
	l.Warnf("shown %d", 2)
	l.With("query", "q1").Errorf("failed")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should not be printed at warn level: %s", out)
	}
	if !strings.Contains(out, "shown 2") || !strings.Contains(out, "query=q1") {
		t.Errorf("warn and error messages should be printed: %s", out)
	}
	if l.LogsTrace() {
		t.Errorf("warn level should not log traces")
	}
}
