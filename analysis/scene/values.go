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

package scene

import (
	"fmt"
	"strconv"
)

type fieldKind uint8

const (
	namedField fieldKind = iota
	emptyField
	epsilonField
	tupleField
)

// Field is a symbol of the field automaton. Fields are comparable values.
type Field struct {
	kind  fieldKind
	name  string
	index int
}

var (
	// EmptyField is the "no projection" field: a value with an empty field stack is the tracked object itself
	EmptyField = Field{kind: emptyField}
	// EpsilonField is the epsilon label of field automata
	EpsilonField = Field{kind: epsilonField}
)

// NewField returns the field named name. Fields with the same name are the same symbol.
func NewField(name string) Field {
	return Field{kind: namedField, name: name}
}

// TupleField returns the field representing the i-th component of a multi-value result
func TupleField(i int) Field {
	return Field{kind: tupleField, index: i, name: "#" + strconv.Itoa(i)}
}

// Name returns the name of the field
func (f Field) Name() string { return f.name }

// IsEmpty returns true for EmptyField
func (f Field) IsEmpty() bool { return f.kind == emptyField }

// IsEpsilon returns true for EpsilonField
func (f Field) IsEpsilon() bool { return f.kind == epsilonField }

func (f Field) String() string {
	switch f.kind {
	case emptyField:
		return "{}"
	case epsilonField:
		return "eps_f"
	default:
		return f.name
	}
}

// StaticFieldVal is a reference to a static field, e.g. a package-level variable. Static fields are not scoped
// to a method.
type StaticFieldVal struct {
	Field Field
	Typ   Type
}

// NewStaticFieldVal returns the static field named name, of type t.
func NewStaticFieldVal(name string, t Type) StaticFieldVal {
	return StaticFieldVal{Field: NewField(name), Typ: t}
}

// Method returns nil: static fields are global
func (StaticFieldVal) Method() Method { return nil }

// Type returns the type of the static field
func (s StaticFieldVal) Type() Type { return s.Typ }

// IsLocal returns false
func (StaticFieldVal) IsLocal() bool { return false }

// IsStatic returns true
func (StaticFieldVal) IsStatic() bool { return true }

// IsNewExpr returns false
func (StaticFieldVal) IsNewExpr() bool { return false }

// IsNull returns false
func (StaticFieldVal) IsNull() bool { return false }

// IsConstant returns false
func (StaticFieldVal) IsConstant() bool { return false }

func (s StaticFieldVal) String() string { return "static " + s.Field.String() }

// AllocVal is the value tracked by forward queries seeded at allocation sites.
// Delegate is the variable the allocation is assigned to and Site the allocating statement. When Field is not
// empty, the value stands for the zero value stored in Field of the allocated object.
type AllocVal struct {
	Delegate Val
	Site     Statement
	Field    Field
}

// Method returns the method of the delegate
func (a AllocVal) Method() Method { return a.Delegate.Method() }

// Type returns the type of the delegate
func (a AllocVal) Type() Type { return a.Delegate.Type() }

// IsLocal returns true if the delegate is a local
func (a AllocVal) IsLocal() bool { return a.Delegate.IsLocal() }

// IsStatic returns true if the delegate is static
func (a AllocVal) IsStatic() bool { return a.Delegate.IsStatic() }

// IsNewExpr returns false
func (a AllocVal) IsNewExpr() bool { return false }

// IsNull returns true if the delegate is null
func (a AllocVal) IsNull() bool { return a.Delegate.IsNull() }

// IsConstant returns false
func (a AllocVal) IsConstant() bool { return false }

func (a AllocVal) String() string {
	if a.Field.IsEmpty() {
		return fmt.Sprintf("alloc(%v @ %v)", a.Delegate, a.Site)
	}
	return fmt.Sprintf("alloc(%v.%v @ %v)", a.Delegate, a.Field, a.Site)
}

// Unwrap returns the delegate of AllocVal values, and v itself otherwise.
func Unwrap(v Val) Val {
	if a, ok := v.(AllocVal); ok {
		return a.Delegate
	}
	return v
}
