// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package system

import (
	"context"
	"fmt"
	"iter"
	"os"
	"strconv"
	"strings"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
)

const loadAction = "system-load"

// Load collects the system load averages.
type Load struct{}

func init() {
	controller.Register[string, feature.Load](loadAction, collectLoad)
	collector.Register(Load{})
}

// Name returns "load".
func (Load) Name() string { return feature.TypeLoad }

// Collect the load averages over 1, 5, and 15 minutes.
func (Load) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	return collector.Tag(feature.TypeLoad,
		controller.RunUnderNamespaces[string, feature.Load](ctx, env.Controller, collector.MountNamespace, loadAction, "/proc"))
}

func collectLoad(_ context.Context, scope controller.Scope, procRoot string, yield func(string, feature.Load) bool) error {
	if !scope.Local() {
		return &controller.UnsupportedModeError{Mode: scope.Mode, Operation: "collecting system load"}
	}
	load, err := readLoadavg(procRoot + "/loadavg")
	if err != nil {
		return err
	}
	yield("load", load)
	return nil
}

func readLoadavg(path string) (feature.Load, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return feature.Load{}, err
	}
	fields := strings.Fields(string(content))
	if len(fields) < 3 {
		return feature.Load{}, fmt.Errorf("malformed %s: %q", path, string(content))
	}
	var avgs [3]float64
	for idx := range avgs {
		avgs[idx], err = strconv.ParseFloat(fields[idx], 64)
		if err != nil {
			return feature.Load{}, fmt.Errorf("malformed %s: %w", path, err)
		}
	}
	return feature.Load{Shortterm: avgs[0], Midterm: avgs[1], Longterm: avgs[2]}, nil
}
