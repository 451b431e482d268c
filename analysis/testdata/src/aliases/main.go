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

type Item struct {
	name string
}

type Box struct {
	content *Item
}

type Holder struct {
	item *Item
}

var registry *Item

func wrap(it *Item) *Box {
	b := &Box{} // @Alloc(boxed)
	b.content = it
	return b
}

func unwrap(b *Box) *Item {
	return b.content
}

func load() *Item {
	return registry
}

func apply(f func()) { f() }

func fill(p **Item) {
	*p = &Item{name: "addr"} // @Alloc(addr)
}

func sink(x interface{}) {}

func main() {
	a := new(Item) // @Alloc(direct)
	b := a
	sink(b) // @Query(direct)

	i1 := &Item{name: "one"} // @Alloc(one)
	b1 := wrap(i1)
	sink(unwrap(b1)) // @Query(one)

	registry = &Item{name: "global"} // @Alloc(global)
	sink(load()) // @Query(global)

	items := []*Item{{name: "elem"}} // @Alloc(elem)
	sink(items[0]) // @Query(elem)

	m := map[string]*Item{"k": {name: "map"}} // @Alloc(lookup)
	if v, ok := m["k"]; ok {
		sink(v) // @Query(lookup)
	}

	ch := make(chan *Item, 1)
	ch <- &Item{name: "chan"} // @Alloc(recv)
	if w, open := <-ch; open {
		sink(w) // @Query(recv)
	}

	var last *Item
	apply(func() {
		last = &Item{name: "closure"} // @Alloc(closure)
	})
	sink(last) // @Query(closure)

	h := &Holder{}
	fill(&h.item)
	sink(h.item) // @Query(addr)
}
