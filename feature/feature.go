// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package feature

import "fmt"

// Feature is a single collected record, identified by its key within a single
// collection pass. The Type names the kind of feature, such as "os", "cpu", or
// "package", and Value carries the type-specific attributes. Features are only
// passed through by the collection machinery and never interpreted by it.
type Feature struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// String returns a short textual representation of the feature, mainly for
// logging and test failure output.
func (f Feature) String() string {
	return fmt.Sprintf("%s %s %v", f.Type, f.Key, f.Value)
}

// Pair is a keyed value as produced by a collection function, before it has
// been tagged with its feature type.
type Pair[V any] struct {
	Key   string
	Value V
}

// Of tags a keyed value with the specified feature type.
func Of[V any](typ string, p Pair[V]) Feature {
	return Feature{Key: p.Key, Type: typ, Value: p.Value}
}
