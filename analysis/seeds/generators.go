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

package seeds

import (
	"fmt"

	"github.com/awslabs/ar-go-spds/analysis/boomerang"
	"github.com/awslabs/ar-go-spds/analysis/config"
	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/internal/funcutil"
)

// packaged is implemented by methods that know their package
type packaged interface {
	Package() string
}

// calleeIdentifier returns the code identifier of the callee named by a call
func calleeIdentifier(d scene.DeclaredMethod) config.CodeIdentifier {
	return config.CodeIdentifier{Package: d.Package(), Method: d.Name(), Receiver: d.ReceiverType()}
}

// methodIdentifier returns the code identifier of a method of the program
func methodIdentifier(m scene.Method) config.CodeIdentifier {
	cid := config.CodeIdentifier{Method: m.Name()}
	if p, ok := m.(packaged); ok {
		cid.Package = p.Package()
	}
	if r := m.Receiver(); r != nil && r.Type() != nil {
		cid.Receiver = r.Type().String()
	}
	return cid
}

// ArgumentOf seeds a backward query on the argument at index of the calls to callees matching target.
// Calls without such argument, or whose argument is not a local, are not candidates.
func ArgumentOf(target config.CodeIdentifier, index int) ValueOfInterest {
	return TestFunc(func(stmt scene.Statement) funcutil.Optional[boomerang.Query] {
		if !stmt.ContainsInvokeExpr() {
			return funcutil.None[boomerang.Query]()
		}
		invoke := stmt.InvokeExpr()
		if !target.Matches(calleeIdentifier(invoke.Callee())) {
			return funcutil.None[boomerang.Query]()
		}
		arg, ok := invoke.Arg(index)
		if !ok || !arg.IsLocal() {
			return funcutil.None[boomerang.Query]()
		}
		return funcutil.Some[boomerang.Query](boomerang.NewBackwardQuery(stmt, arg))
	})
}

// FirstArgumentOf seeds a backward query on the first argument of the calls to callees matching target
func FirstArgumentOf(target config.CodeIdentifier) ValueOfInterest {
	return ArgumentOf(target, 0)
}

// AllocationSites seeds a forward query at every allocation of the methods matching target
func AllocationSites(target config.CodeIdentifier) ValueOfInterest {
	return TestFunc(func(stmt scene.Statement) funcutil.Optional[boomerang.Query] {
		if !scene.IsAllocation(stmt) || !target.Matches(methodIdentifier(stmt.Method())) {
			return funcutil.None[boomerang.Query]()
		}
		alloc := scene.AllocVal{Delegate: stmt.LeftOp(), Site: stmt, Field: scene.EmptyField}
		return funcutil.Some[boomerang.Query](boomerang.NewForwardQuery(stmt, alloc))
	})
}

// FromConfig returns the seed tests specified in the config
func FromConfig(specs []config.SeedSpec) ([]ValueOfInterest, error) {
	var tests []ValueOfInterest
	for _, spec := range specs {
		switch spec.Kind {
		case config.SeedFirstArgumentOf:
			tests = append(tests, FirstArgumentOf(spec.Target))
		case config.SeedArgumentOf:
			tests = append(tests, ArgumentOf(spec.Target, spec.Index))
		case config.SeedAllocationSites:
			tests = append(tests, AllocationSites(spec.Target))
		default:
			return nil, fmt.Errorf("unknown seed kind %q", spec.Kind)
		}
	}
	return tests, nil
}
