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

// History collects the build history of the image of a container.
type History struct{}

func init() {
	collector.Register(History{})
}

// Name returns "dockerhistory".
func (History) Name() string { return feature.TypeDockerHistory }

// Collect the history of the image of the target container, keyed by image
// ID.
func (History) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	cntr, ok := env.Controller.Target().(controller.Container)
	if !ok || env.Controller.Mode() != controller.OutOfContainer {
		return collector.Unsupported(env, "collecting image histories")
	}
	historian, ok := env.Runtime.(engine.Historian)
	if !ok {
		return collector.Unsupported(env, "collecting image histories without a suitable container engine")
	}
	return func(yield func(feature.Feature, error) bool) {
		imageID, layers, err := historian.History(ctx, cntr.ID)
		if err != nil {
			yield(feature.Feature{}, err)
			return
		}
		history := feature.DockerHistory{History: make([]feature.ImageLayer, 0, len(layers))}
		for _, layer := range layers {
			entry := feature.ImageLayer{
				ID:        layer.ID,
				CreatedBy: layer.CreatedBy,
				Tags:      layer.Tags,
				Size:      layer.Size,
				Comment:   layer.Comment,
			}
			if entry.Tags == nil {
				entry.Tags = []string{}
			}
			if !layer.Created.IsZero() {
				entry.Created = layer.Created.Unix()
			}
			history.History = append(history.History, entry)
		}
		yield(feature.Feature{Key: imageID, Type: feature.TypeDockerHistory, Value: history}, nil)
	}
}
