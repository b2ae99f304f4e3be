// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package cgroupmetrics

import (
	"context"
	"iter"

	"github.com/siemens/nscrawler/cgroupfs"
	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
)

// Memory collects the memory utilization.
type Memory struct{}

func init() {
	collector.Register(Memory{})
}

// Name returns "memory".
func (Memory) Name() string { return feature.TypeMemory }

// Collect the memory utilization, keyed "memory".
func (Memory) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	return func(yield func(feature.Feature, error) bool) {
		var mem feature.Memory
		var err error
		switch env.Controller.Mode() {
		case controller.Local:
			mem, err = hostMemory()
		case controller.OutOfContainer:
			mem, err = containerMemory(env)
		case controller.OutOfBandVM:
			mem, err = vmMemory(ctx, env)
		default:
			err = &controller.UnsupportedModeError{Mode: env.Controller.Mode(), Operation: "collecting memory utilization"}
		}
		if err != nil {
			yield(feature.Feature{}, err)
			return
		}
		yield(feature.Feature{Key: "memory", Type: feature.TypeMemory, Value: mem}, nil)
	}
}

func hostMemory() (feature.Memory, error) {
	info, err := readMeminfo()
	if err != nil {
		return feature.Memory{}, err
	}
	mem := feature.Memory{
		Buffered: info["Buffers"],
		Cached:   info["Cached"] + info["SReclaimable"],
		Free:     info["MemFree"],
	}
	mem.Used = max(info["MemTotal"]-mem.Free-mem.Buffered-mem.Cached, 0)
	mem.Utilization = utilization(mem.Used, mem.Free)
	return mem, nil
}

// containerMemory returns the memory utilization of the container's cgroup.
// The memory available to the container is whatever is left of its limit,
// but not more than is free on the host.
func containerMemory(env *collector.Env) (feature.Memory, error) {
	if env.Accounting == nil {
		return feature.Memory{}, cgroupfs.ErrUnavailable
	}
	cntr := env.Controller.Target().(controller.Container)
	usage, err := env.Accounting.Memory(cntr.PID)
	if err != nil {
		return feature.Memory{}, err
	}
	info, err := readMeminfo()
	if err != nil {
		return feature.Memory{}, err
	}
	hostFree := uint64(max(info["MemFree"], 0))
	free := hostFree
	if usage.Limit != cgroupfs.Unlimited {
		if usage.Limit > usage.Usage {
			free = min(hostFree, usage.Limit-usage.Usage)
		} else {
			free = 0
		}
	}
	mem := feature.Memory{
		Used:     int64(usage.Usage),
		Buffered: int64(usage.ActiveFile),
		Cached:   int64(usage.Cache),
		Free:     int64(free),
	}
	mem.Utilization = utilization(mem.Used, mem.Free)
	return mem, nil
}

func vmMemory(ctx context.Context, env *collector.Env) (feature.Memory, error) {
	if env.VM == nil {
		return feature.Memory{}, &controller.UnsupportedModeError{
			Mode:      env.Controller.Mode(),
			Operation: "collecting memory utilization without VM introspection",
		}
	}
	sys, err := env.VM.System(ctx, env.Controller.Target().(controller.VM))
	if err != nil {
		return feature.Memory{}, err
	}
	mem := feature.Memory{
		Used:     sys.MemoryUsed,
		Buffered: sys.MemoryBuffered,
		Cached:   sys.MemoryCached,
		Free:     sys.MemoryFree,
	}
	mem.Utilization = utilization(mem.Used, mem.Free)
	return mem, nil
}

// utilization returns used relative to used plus free in percent, or -1 if
// there is no memory at all.
func utilization(used, free int64) float64 {
	if used+free <= 0 {
		return -1
	}
	return float64(used) / float64(used+free) * 100
}
