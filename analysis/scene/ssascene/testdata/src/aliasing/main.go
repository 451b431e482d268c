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

type T struct {
	f *int
	g *T
}

type Getter interface {
	get() *int
}

var global *T

func id(x *T) *T { return x }

func (t *T) get() *int { return t.f }

func sink(x interface{}) {}

func main() {
	a := &T{}
	n := new(int)
	a.f = n
	b := id(a)
	global = b
	c := global
	p := c.get()
	var i Getter = c
	q := i.get()
	s := []*int{p, q}
	m := map[string]*T{"k": a}
	v, ok := interface{}(a).(*T)
	ch := make(chan *int, 1)
	ch <- n
	r := <-ch
	sink(s)
	sink(m)
	sink(v)
	sink(ok)
	sink(r)
}
