// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package cgroupmetrics

import (
	"context"
	"errors"
	"iter"
	"strconv"
	"time"

	"github.com/siemens/nscrawler/cgroupfs"
	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
	"github.com/siemens/nscrawler/ratecache"
	"github.com/thediveo/lxkns/log"
)

// FirstSampleInterval is the time between the two CPU usage samples of a
// container without a previous sample.
const FirstSampleInterval = 100 * time.Millisecond

// CPU collects the CPU utilization.
type CPU struct{}

func init() {
	collector.Register(CPU{})
}

// Name returns "cpu".
func (CPU) Name() string { return feature.TypeCPU }

// Collect the utilization in percent of each CPU, keyed "cpu-N".
func (CPU) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	return func(yield func(feature.Feature, error) bool) {
		cache := env.Cache
		if cache == nil {
			cache = ratecache.New()
		}
		var cpus []feature.CPU
		var err error
		switch env.Controller.Mode() {
		case controller.Local:
			cpus, err = hostCPUs(cache)
		case controller.OutOfContainer:
			cpus, err = containerCPUs(ctx, env, cache)
		default:
			err = &controller.UnsupportedModeError{Mode: env.Controller.Mode(), Operation: "collecting CPU utilization"}
		}
		if err != nil {
			yield(feature.Feature{}, err)
			return
		}
		for idx, cpu := range cpus {
			if !yield(feature.Feature{Key: "cpu-" + strconv.Itoa(idx), Type: feature.TypeCPU, Value: cpu}, nil) {
				return
			}
		}
	}
}

// hostCPUs returns the utilization of the host's CPUs since the previous
// call, or since boot on the first call.
func hostCPUs(cache *ratecache.Cache) ([]feature.CPU, error) {
	times, err := readCPUTimes()
	if err != nil {
		return nil, err
	}
	cpus := make([]feature.CPU, len(times))
	for idx, curr := range times {
		key := "host-cpu-" + strconv.Itoa(idx)
		delta := append([]float64(nil), curr...)
		if prev, ok := cache.Get(key); ok && len(prev.Snapshot) == len(curr) {
			for col := range delta {
				delta[col] -= prev.Snapshot[col]
			}
		}
		cache.Put(key, curr)
		total := 0.0
		for _, d := range delta {
			total += d
		}
		if total <= 0 {
			cpus[idx] = feature.CPU{Idle: 100}
			continue
		}
		percent := func(col int) float64 { return delta[col] / total * 100 }
		cpu := feature.CPU{
			Idle:      percent(statIdle),
			Nice:      percent(statNice),
			User:      percent(statUser),
			Wait:      percent(statIOWait),
			System:    percent(statSystem),
			Interrupt: percent(statIRQ) + percent(statSoftIRQ),
			Steal:     percent(statSteal),
		}
		cpu.Used = 100 - cpu.Idle
		cpus[idx] = cpu
	}
	return cpus, nil
}

// containerCPUs returns the utilization of the container's cgroup, per CPU
// or in total.
func containerCPUs(ctx context.Context, env *collector.Env, cache *ratecache.Cache) ([]feature.CPU, error) {
	if env.Accounting == nil {
		return nil, cgroupfs.ErrUnavailable
	}
	cntr := env.Controller.Target().(controller.Container)
	var split cgroupfs.CPU
	sample := func() (ratecache.Snapshot, error) {
		usage, err := env.Accounting.CPU(cntr.PID, env.Options.PerCPU)
		if err != nil {
			return nil, err
		}
		split = usage
		snapshot := make(ratecache.Snapshot, len(usage.Usage))
		for idx, ns := range usage.Usage {
			snapshot[idx] = float64(ns)
		}
		return snapshot, nil
	}
	rates, err := usageRates(ctx, cache, cntr.ID, sample)
	if err != nil {
		return nil, err
	}
	host, err := hostCPUs(cache)
	if err != nil {
		log.Warnf("cannot read host CPU times, reason: %s", err.Error())
		host = nil
	}
	userPlusSystem := split.User + split.System
	if userPlusSystem == 0 {
		userPlusSystem = 0.1
	}
	cpus := make([]feature.CPU, len(rates))
	for idx, rate := range rates {
		used := min(rate/1e9*100, 100)
		cpu := feature.CPU{
			Idle:   100 - used,
			User:   used * split.User / userPlusSystem,
			System: used * split.System / userPlusSystem,
			Used:   used,
		}
		if idx < len(host) {
			cpu.Nice = host[idx].Nice
			cpu.Wait = host[idx].Wait
			cpu.Interrupt = host[idx].Interrupt
			cpu.Steal = host[idx].Steal
		}
		cpus[idx] = cpu
	}
	return cpus, nil
}

// usageRates returns the per-second rates of the cumulative usage returned by
// sample, relative to the snapshot previously cached under key. Without a
// usable previous snapshot, it samples twice, FirstSampleInterval apart.
func usageRates(
	ctx context.Context,
	cache *ratecache.Cache,
	key string,
	sample func() (ratecache.Snapshot, error),
) (ratecache.Snapshot, error) {
	prev, ok := cache.Get(key)
	curr, err := sample()
	if err != nil {
		return nil, err
	}
	now := cache.Now()
	if ok {
		rates, err := ratecache.Rates(prev, curr, now)
		if err == nil {
			cache.Put(key, curr)
			return rates, nil
		}
		log.Debugf("no usable previous CPU sample of %s, reason: %s", key, err.Error())
	}
	first := ratecache.Entry{Snapshot: curr, ObservedAt: now}
	if err := collector.Sleep(ctx, FirstSampleInterval); err != nil {
		return nil, err
	}
	curr, err = sample()
	if err != nil {
		return nil, err
	}
	now = cache.Now()
	cache.Put(key, curr)
	rates, err := ratecache.Rates(first, curr, now)
	if errors.Is(err, ratecache.ErrNoElapsedTime) {
		first.ObservedAt = now.Add(-FirstSampleInterval)
		rates, err = ratecache.Rates(first, curr, now)
	}
	return rates, err
}
