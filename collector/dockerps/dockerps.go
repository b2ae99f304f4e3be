// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package dockerps

import (
	"context"
	"iter"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/engine"
	"github.com/siemens/nscrawler/feature"
)

// PS collects the containers of the host's container engine.
type PS struct{}

func init() {
	collector.Register(PS{})
}

// Name returns "dockerps".
func (PS) Name() string { return feature.TypeDockerPS }

// Collect the containers of the container engine, keyed by container ID.
// Companion containers are left out.
func (PS) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	if env.Controller.Mode() != controller.Local {
		return collector.Unsupported(env, "listing containers")
	}
	if env.Runtime == nil {
		return collector.Unsupported(env, "listing containers without container engine")
	}
	return func(yield func(feature.Feature, error) bool) {
		infos, err := env.Runtime.Containers(ctx)
		if err != nil {
			yield(feature.Feature{}, err)
			return
		}
		for _, info := range infos {
			if _, ok := info.Labels[engine.CompanionLabel]; ok {
				continue
			}
			if !yield(feature.Feature{Key: info.ID, Type: feature.TypeDockerPS, Value: ps(info)}, nil) {
				return
			}
		}
	}
}

func ps(info engine.Info) feature.DockerPS {
	entry := feature.DockerPS{
		Status:  info.State,
		Image:   info.Image,
		Ports:   []string{},
		Command: info.Command,
		Names:   info.Name,
		ID:      info.ID,
	}
	if entry.Command == nil {
		entry.Command = []string{}
	}
	if !info.Created.IsZero() {
		entry.Created = info.Created.Unix()
	}
	return entry
}
