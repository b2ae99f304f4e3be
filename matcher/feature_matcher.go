// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package matcher

import (
	"fmt"

	"github.com/siemens/nscrawler/feature"

	g "github.com/onsi/gomega"
	"github.com/onsi/gomega/types"
)

// HaveFeature succeeds if ACTUAL is a feature.Feature or *feature.Feature of
// the specified type and with the specified key. Instead of a key string, a
// GomegaMatcher can also be specified for matching the key, such as
// HavePrefix and MatchRegexp.
func HaveFeature(typ string, key any) types.GomegaMatcher {
	return g.WithTransform(func(actual any) (feature.Feature, error) {
		switch f := actual.(type) {
		case feature.Feature:
			return f, nil
		case *feature.Feature:
			return *f, nil
		}
		return feature.Feature{}, fmt.Errorf("HaveFeature expects a feature.Feature or *feature.Feature, but got %T", actual)
	}, g.And(
		g.HaveField("Type", typ),
		g.HaveField("Key", keyMatcher(key)),
	))
}

// HaveFeatureValue succeeds if ACTUAL is a feature as described for
// [HaveFeature], with its Value additionally matching the specified value or
// GomegaMatcher.
func HaveFeatureValue(typ string, key any, value any) types.GomegaMatcher {
	var valueMatcher types.GomegaMatcher
	switch value := value.(type) {
	case types.GomegaMatcher:
		valueMatcher = value
	default:
		valueMatcher = g.Equal(value)
	}
	return g.And(
		HaveFeature(typ, key),
		g.WithTransform(func(actual any) any {
			if f, ok := actual.(*feature.Feature); ok {
				return f.Value
			}
			return actual.(feature.Feature).Value
		}, valueMatcher),
	)
}

func keyMatcher(key any) types.GomegaMatcher {
	switch key := key.(type) {
	case string:
		return g.Equal(key)
	case types.GomegaMatcher:
		return key
	}
	panic("key argument must be string or GomegaMatcher")
}
