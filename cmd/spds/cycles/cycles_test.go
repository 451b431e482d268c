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

package cycles

import (
	"bytes"
	"testing"

	"github.com/awslabs/ar-go-spds/analysis/scene"
	"github.com/awslabs/ar-go-spds/analysis/scene/memscene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrint(t *testing.T) {
	b := memscene.NewBuilder()
	f := b.Method("f")
	f.Call(nil, "g")
	f.Return()
	g := b.Method("g")
	g.Call(nil, "f")
	g.Return()
	p, err := b.Build()
	require.NoError(t, err)

	var out bytes.Buffer
	Print(&out, nil)
	assert.Equal(t, "No cycle\n", out.String())

	out.Reset()
	Print(&out, [][]scene.Method{{p.MustMethod("f"), p.MustMethod("g"), p.MustMethod("f")}})
	assert.Equal(t, "[0] f -> g -> f\n", out.String())
}
