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
	"fmt"
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return LoadFromFile(configFile)
}

// Config contains the options of the analysis and the specification of the seeds.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:"options"`

	sourceFile string

	// Seeds lists the specifications of the queries computed by seed discovery
	Seeds []SeedSpec `yaml:"seeds"`
}

// SeedSpec identifies a set of queries.
type SeedSpec struct {
	// Kind is one of first-argument-of, argument-of or allocation-sites
	Kind string `yaml:"kind"`

	// Index is the argument index for argument-of seeds
	Index int `yaml:"index"`

	// Target identifies the called function for argument seeds, the enclosing function for allocation seeds
	Target CodeIdentifier `yaml:"target"`
}

// Options are the options of the solver
type Options struct {
	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// Timeout is the time budget of a query, e.g. "30s". Zero or negative means no time budget.
	Timeout time.Duration `yaml:"timeout"`

	// MaxPropagations bounds the number of worklist items processed per query. Zero means no bound.
	MaxPropagations int `yaml:"max-propagations"`

	// MaxMemoryMB bounds the heap in use while solving a query. Zero means no bound.
	MaxMemoryMB int `yaml:"max-memory-mb"`

	// StaticFieldStrategy is one of ignore, flow-sensitive or singleton
	StaticFieldStrategy string `yaml:"static-field-strategy"`

	// TrackNullAssignments makes assignments of nil allocation sites
	TrackNullAssignments bool `yaml:"track-null-assignments"`

	// TrackConstants makes assignments of constants allocation sites
	TrackConstants bool `yaml:"track-constants"`

	// AllocationAtUnresolvedCalls makes the results of calls without known callee allocation sites
	AllocationAtUnresolvedCalls bool `yaml:"allocation-at-unresolved-calls"`

	// CallgraphAlgo is the algorithm used to build the call graph of Go programs: cha, static or vta
	CallgraphAlgo string `yaml:"callgraph-algo"`

	// ScanLibraryMethods makes seed discovery look into methods outside of the application
	ScanLibraryMethods bool `yaml:"scan-library-methods"`

	// Parallelism is the number of queries solved in parallel by batch drivers
	Parallelism int `yaml:"parallelism"`

	// MaxAccessPaths bounds the number of access paths enumerated per node
	MaxAccessPaths int `yaml:"max-access-paths"`

	// DepthFirst makes the solvers process their worklist last-in first-out
	DepthFirst bool `yaml:"depth-first"`
}

// NewDefault returns a default config.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Seeds:      nil,
		Options: Options{
			LogLevel:                    int(InfoLevel),
			Timeout:                     DefaultTimeout,
			MaxPropagations:             0,
			MaxMemoryMB:                 0,
			StaticFieldStrategy:         StaticFieldsSingleton,
			TrackNullAssignments:        false,
			TrackConstants:              false,
			AllocationAtUnresolvedCalls: false,
			CallgraphAlgo:               CallgraphCHA,
			ScanLibraryMethods:          false,
			Parallelism:                 DefaultParallelism,
			MaxAccessPaths:              DefaultMaxAccessPaths,
			DepthFirst:                  false,
		},
	}
}

// LoadFromFile reads a configuration from a file
func LoadFromFile(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return Load(filename, b)
}

// Load reads a configuration from the contents b of the file filename
func Load(filename string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}
	cfg.sourceFile = filename

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.MaxAccessPaths <= 0 {
		cfg.MaxAccessPaths = DefaultMaxAccessPaths
	}

	switch cfg.StaticFieldStrategy {
	case "":
		cfg.StaticFieldStrategy = StaticFieldsSingleton
	case StaticFieldsIgnore, StaticFieldsFlowSensitive, StaticFieldsSingleton:
	default:
		return nil, fmt.Errorf("unknown static-field-strategy %q in %s", cfg.StaticFieldStrategy, filename)
	}

	switch cfg.CallgraphAlgo {
	case "":
		cfg.CallgraphAlgo = CallgraphCHA
	case CallgraphCHA, CallgraphStatic, CallgraphVTA:
	default:
		return nil, fmt.Errorf("unknown callgraph-algo %q in %s", cfg.CallgraphAlgo, filename)
	}

	for i, seed := range cfg.Seeds {
		switch seed.Kind {
		case SeedFirstArgumentOf, SeedArgumentOf, SeedAllocationSites:
		default:
			return nil, fmt.Errorf("unknown seed kind %q in %s", seed.Kind, filename)
		}
		if seed.Index < 0 {
			return nil, fmt.Errorf("negative argument index %d in seed %d of %s", seed.Index, i, filename)
		}
		cfg.Seeds[i].Target = compileRegexes(seed.Target)
	}

	return cfg, nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// SourceFile returns the name of the file the config was loaded from, if any
func (c Config) SourceFile() string {
	return c.sourceFile
}
