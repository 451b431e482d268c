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

type Pair struct {
	left  *int
	right *int
}

func sink(x interface{}) {}

func call(f func() *int) *int { return f() }

func point(p **int) {
	*p = new(int) // @Alloc(pointed)
}

func main() {
	m := map[string]*int{"k": new(int)} // @Alloc(lookup)
	v, ok := m["k"]
	if ok {
		sink(v) // @Query(lookup)
	}

	ch := make(chan *int, 1)
	ch <- new(int) // @Alloc(recv)
	r, open := <-ch
	if open {
		sink(r) // @Query(recv)
	}

	n := new(int) // @Alloc(captured)
	get := func() *int { return n }
	sink(call(get)) // @Query(captured)

	var last *int
	set := func() *int {
		last = new(int) // @Alloc(assigned)
		return nil
	}
	call(set)
	sink(last) // @Query(assigned)

	pair := &Pair{}
	pair.right = new(int) // @Alloc(right)
	point(&pair.left)
	sink(pair.left)  // @Query(pointed)
	sink(pair.right) // @Query(right)

	var dup Pair
	dup = *pair
	sink(dup.right) // @Query(right)
}
