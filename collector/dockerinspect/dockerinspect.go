// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package dockerinspect collects the container engine's inspection document
// of a container ("dockerinspect").
package dockerinspect

import (
	"context"
	"iter"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
)

// Inspect collects container inspection documents.
type Inspect struct{}

func init() {
	collector.Register(Inspect{})
}

// Name returns "dockerinspect".
func (Inspect) Name() string { return feature.TypeDockerInspect }

// Collect the inspection document of the target container, keyed by the
// container ID. Engines without an inspection document of their own get
// their container information reported instead.
func (Inspect) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	cntr, ok := env.Controller.Target().(controller.Container)
	if !ok || env.Controller.Mode() != controller.OutOfContainer {
		return collector.Unsupported(env, "inspecting containers")
	}
	if env.Runtime == nil {
		return collector.Unsupported(env, "inspecting containers without container engine")
	}
	return func(yield func(feature.Feature, error) bool) {
		info, err := env.Runtime.Inspect(ctx, cntr.ID)
		if err != nil {
			yield(feature.Feature{}, err)
			return
		}
		var value any = info
		if info.Details != nil {
			value = info.Details
		}
		yield(feature.Feature{Key: info.ID, Type: feature.TypeDockerInspect, Value: value}, nil)
	}
}
