// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package typeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	set := NewSet("compression", "checksum")
	assert.True(t, set.Contain("compression"))
	assert.True(t, set.Contain("compression", "checksum"))
	assert.False(t, set.Contain("compression", "json.indent"))

	set.Insert("checksum", "json.indent")
	assert.Equal(t, 3, set.Len())

	set.Remove("checksum")
	assert.False(t, set.Contain("checksum"))
	assert.Equal(t, []string{"compression", "json.indent"}, Sorted(set))
}

func TestSetUnionComplement(t *testing.T) {
	a := NewSet[int64](1, 2, 3)
	b := NewSet[int64](3, 4)

	assert.Equal(t, []int64{1, 2, 3, 4}, Sorted(a.Union(b)))
	assert.Equal(t, []int64{1, 2}, Sorted(a.Complement(b)))
	assert.Equal(t, []int64{1, 2, 3}, Sorted(a.Complement(nil)))
}
