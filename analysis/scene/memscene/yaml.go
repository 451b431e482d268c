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

package memscene

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// programSpec is the YAML representation of a program:
//
//	entry: [main]
//	statics:
//	  G: A
//	methods:
//	  - name: main
//	    params: [a]
//	    vars: {a: A}
//	    body:
//	      - x = new A
//	      - y = x
//	      - loop: z = y.f
//	      - if loop
//	      - use(z)
//	      - return
//
// Statements are one of: nop, return [v, ...], goto l [l ...], if l [l ...], x = new T, x = nil, x = <constant>,
// x = y, x = y.f, x.f = y, x = phi(a, b), [x =] f(a, b), [x =] r.m(a, b). A name declared in statics is a static
// field. Labels name statements for goto and if: goto jumps to the labels, if also falls through.
type programSpec struct {
	Entry   []string          `yaml:"entry"`
	Statics map[string]string `yaml:"statics"`
	Methods []methodSpec      `yaml:"methods"`
}

type methodSpec struct {
	Name     string            `yaml:"name"`
	Params   []string          `yaml:"params"`
	Receiver string            `yaml:"receiver"` // "name Type"
	Library  bool              `yaml:"library"`
	Vars     map[string]string `yaml:"vars"`
	Body     []string          `yaml:"body"`
}

var (
	labelRegex  = regexp.MustCompile(`^(\w+):\s+(.+)$`)
	jumpRegex   = regexp.MustCompile(`^(goto|if)\s+(.+)$`)
	returnRegex = regexp.MustCompile(`^return(?:\s+(.+))?$`)
	newRegex    = regexp.MustCompile(`^(\w+) = new (\w+)$`)
	phiRegex    = regexp.MustCompile(`^(\w+) = phi\((.*)\)$`)
	callRegex   = regexp.MustCompile(`^(?:(\w+) = )?(?:(\w+)\.)?(\w+)\((.*)\)$`)
	storeRegex  = regexp.MustCompile(`^(\w+)\.(\w+) = (\w+)$`)
	loadRegex   = regexp.MustCompile(`^(\w+) = (\w+)\.(\w+)$`)
	constRegex  = regexp.MustCompile(`^(\w+) = ("[^"]*"|-?[0-9]+|true|false|nil)$`)
	copyRegex   = regexp.MustCompile(`^(\w+) = (\w+)$`)
)

// LoadFile loads the program in the YAML file filename
func LoadFile(filename string) (*Program, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read program: %w", err)
	}
	return Load(b)
}

// Load loads the program in the YAML document b
func Load(b []byte) (*Program, error) {
	spec := programSpec{}
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, fmt.Errorf("could not parse program: %w", err)
	}
	builder := NewBuilder()
	for name, typ := range spec.Statics {
		builder.Static(name, typ)
	}
	for _, ms := range spec.Methods {
		if err := addMethod(builder, ms); err != nil {
			return nil, fmt.Errorf("method %s: %w", ms.Name, err)
		}
	}
	builder.Entry(spec.Entry...)
	return builder.Build()
}

type jump struct {
	from   *Stmt
	labels []string
}

func addMethod(b *Builder, ms methodSpec) error {
	var mb *MethodBuilder
	if ms.Library {
		mb = b.Library(ms.Name, ms.Params...)
	} else {
		mb = b.Method(ms.Name, ms.Params...)
	}
	for name, typ := range ms.Vars {
		mb.TypedVar(name, typ)
	}
	if ms.Receiver != "" {
		parts := strings.Fields(ms.Receiver)
		if len(parts) != 2 {
			return fmt.Errorf("receiver %q should be \"name Type\"", ms.Receiver)
		}
		mb.Receiver(parts[0], parts[1])
	}
	labels := map[string]*Stmt{}
	var jumps []jump
	for i, line := range ms.Body {
		text := strings.TrimSpace(line)
		label := ""
		if m := labelRegex.FindStringSubmatch(text); m != nil {
			label, text = m[1], m[2]
		}
		s, j, err := addStatement(b, mb, text)
		if err != nil {
			return fmt.Errorf("statement %d %q: %w", i+1, line, err)
		}
		if label != "" {
			if _, dup := labels[label]; dup {
				return fmt.Errorf("label %s is defined twice", label)
			}
			s.label = label
			labels[label] = s
		}
		if j != nil {
			jumps = append(jumps, jump{from: s, labels: j})
		}
	}
	for _, j := range jumps {
		for _, l := range j.labels {
			to, ok := labels[l]
			if !ok {
				return fmt.Errorf("unknown label %s", l)
			}
			mb.Edge(j.from, to)
		}
	}
	return nil
}

// addStatement appends the statement text to mb, and returns the labels it jumps to
func addStatement(b *Builder, mb *MethodBuilder, text string) (*Stmt, []string, error) {
	isStatic := func(name string) bool {
		_, ok := b.prog.statics[name]
		return ok
	}
	if text == "nop" {
		return mb.Nop(), nil, nil
	}
	if m := jumpRegex.FindStringSubmatch(text); m != nil {
		if m[1] == "goto" {
			return mb.Goto(), strings.Fields(m[2]), nil
		}
		return mb.Nop(), strings.Fields(m[2]), nil
	}
	if m := returnRegex.FindStringSubmatch(text); m != nil {
		return mb.Return(vars(mb, m[1])...), nil, nil
	}
	if m := newRegex.FindStringSubmatch(text); m != nil {
		return mb.New(mb.Var(m[1]), m[2]), nil, nil
	}
	if m := phiRegex.FindStringSubmatch(text); m != nil {
		return mb.Phi(mb.Var(m[1]), vars(mb, m[2])...), nil, nil
	}
	if m := callRegex.FindStringSubmatch(text); m != nil {
		var lhs *Local
		if m[1] != "" {
			lhs = mb.Var(m[1])
		}
		if m[2] != "" {
			return mb.Invoke(lhs, mb.Var(m[2]), m[3], vars(mb, m[4])...), nil, nil
		}
		return mb.Call(lhs, m[3], vars(mb, m[4])...), nil, nil
	}
	if m := storeRegex.FindStringSubmatch(text); m != nil {
		return mb.Store(mb.Var(m[1]), m[2], mb.Var(m[3])), nil, nil
	}
	if m := loadRegex.FindStringSubmatch(text); m != nil {
		return mb.Load(mb.Var(m[1]), mb.Var(m[2]), m[3]), nil, nil
	}
	if m := constRegex.FindStringSubmatch(text); m != nil {
		if m[2] == "nil" {
			return mb.Null(mb.Var(m[1])), nil, nil
		}
		return mb.Const(mb.Var(m[1]), m[2]), nil, nil
	}
	if m := copyRegex.FindStringSubmatch(text); m != nil {
		switch {
		case isStatic(m[1]) && isStatic(m[2]):
			return nil, nil, fmt.Errorf("static to static assignment")
		case isStatic(m[1]):
			return mb.StoreStatic(b.prog.statics[m[1]], mb.Var(m[2])), nil, nil
		case isStatic(m[2]):
			return mb.LoadStatic(mb.Var(m[1]), b.prog.statics[m[2]]), nil, nil
		}
		return mb.Assign(mb.Var(m[1]), mb.Var(m[2])), nil, nil
	}
	return nil, nil, fmt.Errorf("unrecognized statement")
}

func vars(mb *MethodBuilder, list string) []*Local {
	var res []*Local
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			res = append(res, mb.Var(name))
		}
	}
	return res
}
