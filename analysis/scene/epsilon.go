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

// Epsilon is the epsilon statement, the epsilon label of call automata.
var Epsilon Statement = epsilonStmt{}

type epsilonStmt struct{}

func (epsilonStmt) String() string              { return "eps_s" }
func (epsilonStmt) Method() Method              { return nil }
func (epsilonStmt) ContainsInvokeExpr() bool    { return false }
func (epsilonStmt) InvokeExpr() InvokeExpr      { return nil }
func (epsilonStmt) IsAssign() bool              { return false }
func (epsilonStmt) LeftOp() Val                 { return nil }
func (epsilonStmt) RightOp() Val                { return nil }
func (epsilonStmt) IsFieldStore() bool          { return false }
func (epsilonStmt) IsFieldLoad() bool           { return false }
func (epsilonStmt) FieldAccess() (Val, Field)   { return nil, EmptyField }
func (epsilonStmt) IsStaticFieldStore() bool    { return false }
func (epsilonStmt) IsStaticFieldLoad() bool     { return false }
func (epsilonStmt) StaticField() StaticFieldVal { return StaticFieldVal{} }
func (epsilonStmt) IsPhi() bool                 { return false }
func (epsilonStmt) PhiOps() []Val               { return nil }
func (epsilonStmt) IsReturn() bool              { return false }
func (epsilonStmt) ReturnOps() []Val            { return nil }
func (epsilonStmt) Uses(Val) bool               { return false }
