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

package wpds

import (
	"sort"
	"strings"
)

// Weight is an element of an idempotent semiring.
// Extend composes the weights of consecutive transitions along a path, Combine joins the weights of
// alternative paths. Combine must be idempotent, commutative and associative, and the semiring must have
// finite height for the fixpoint computations in this package to terminate.
type Weight[W any] interface {
	Extend(other W) W
	Combine(other W) W
	Equal(other W) bool
	String() string
}

// NoWeight is the unit semiring: every operation returns the only element.
type NoWeight struct{}

// Extend returns the only element
func (NoWeight) Extend(NoWeight) NoWeight { return NoWeight{} }

// Combine returns the only element
func (NoWeight) Combine(NoWeight) NoWeight { return NoWeight{} }

// Equal is always true
func (NoWeight) Equal(NoWeight) bool { return true }

func (NoWeight) String() string { return "ONE" }

// LabelSet is a set of labels, e.g. taint tags or constraint names collected along a path. Both Extend and
// Combine are set union; the empty set is the identity.
//
// LabelSet values are immutable.
type LabelSet struct {
	labels []string // sorted, no duplicates
}

// NewLabelSet returns the set containing labels.
func NewLabelSet(labels ...string) LabelSet {
	if len(labels) == 0 {
		return LabelSet{}
	}
	l := make([]string, len(labels))
	copy(l, labels)
	sort.Strings(l)
	j := 0
	for i := range l {
		if i == 0 || l[i] != l[j-1] {
			l[j] = l[i]
			j++
		}
	}
	return LabelSet{labels: l[:j]}
}

// Labels returns the labels in increasing order.
func (s LabelSet) Labels() []string {
	return append([]string(nil), s.labels...)
}

// Contains returns true if label is in the set.
func (s LabelSet) Contains(label string) bool {
	i := sort.SearchStrings(s.labels, label)
	return i < len(s.labels) && s.labels[i] == label
}

// Len returns the number of labels in the set.
func (s LabelSet) Len() int { return len(s.labels) }

// Extend returns the union of s and other
func (s LabelSet) Extend(other LabelSet) LabelSet { return s.union(other) }

// Combine returns the union of s and other
func (s LabelSet) Combine(other LabelSet) LabelSet { return s.union(other) }

// Equal returns true when s and other contain the same labels.
func (s LabelSet) Equal(other LabelSet) bool {
	if len(s.labels) != len(other.labels) {
		return false
	}
	for i := range s.labels {
		if s.labels[i] != other.labels[i] {
			return false
		}
	}
	return true
}

func (s LabelSet) String() string {
	return "{" + strings.Join(s.labels, ",") + "}"
}

func (s LabelSet) union(other LabelSet) LabelSet {
	if len(other.labels) == 0 {
		return s
	}
	if len(s.labels) == 0 {
		return other
	}
	res := make([]string, 0, len(s.labels)+len(other.labels))
	i, j := 0, 0
	for i < len(s.labels) && j < len(other.labels) {
		switch {
		case s.labels[i] < other.labels[j]:
			res = append(res, s.labels[i])
			i++
		case s.labels[i] > other.labels[j]:
			res = append(res, other.labels[j])
			j++
		default:
			res = append(res, s.labels[i])
			i++
			j++
		}
	}
	res = append(res, s.labels[i:]...)
	res = append(res, other.labels[j:]...)
	return LabelSet{labels: res}
}
