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

package spds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestINodeTags(t *testing.T) {
	n := NewNode("s1", "x")
	single := Single(n)
	gen := Generated(n, "f")
	root := Root(n)

	fact, ok := single.Concrete()
	assert.True(t, ok)
	assert.Equal(t, n, fact)

	for _, synthetic := range []INode[Node[string, string]]{gen, root} {
		_, ok := synthetic.Concrete()
		assert.False(t, ok, "%v must not be a program fact", synthetic)
		assert.False(t, synthetic.IsConcrete())
		assert.Equal(t, n, synthetic.Fact())
	}
	assert.NotEqual(t, single, gen)
	assert.NotEqual(t, gen, root)
	assert.NotEqual(t, Generated(n, "f"), Generated(n, "g"))
	assert.Equal(t, Generated(n, "f"), gen)

	set := map[INode[Node[string, string]]]bool{single: true, gen: true, root: true}
	assert.Len(t, set, 3)
	assert.True(t, set[Single(NewNode("s1", "x"))])
}
