// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package netif collects the traffic rates of network interfaces
// ("interface") and the TCP and UDP sockets of processes ("connection").
package netif

import (
	"context"
	"errors"
	"iter"
	"sort"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
	"github.com/siemens/nscrawler/ratecache"
	"github.com/vishvananda/netlink"
)

const countersAction = "netif-counters"

// Interface collects network interface traffic rates.
type Interface struct{}

func init() {
	controller.Register[struct{}, ratecache.Snapshot](countersAction, collectCounters)
	collector.Register(Interface{})
}

// Name returns "interface".
func (Interface) Name() string { return feature.TypeInterface }

// Collect the per-second traffic rates of the network interfaces of the
// target's network namespace, keyed "interface-<name>". The first collection
// of an interface reports zero rates.
func (Interface) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	return func(yield func(feature.Feature, error) bool) {
		if env.Cache == nil {
			yield(feature.Feature{}, errNoCache)
			return
		}
		prefix := collector.CachePrefix(env.Controller)
		for pair, err := range controller.RunUnderNamespaces[struct{}, ratecache.Snapshot](
			ctx, env.Controller, collector.NetNamespace, countersAction, struct{}{}) {
			if err != nil {
				yield(feature.Feature{}, err)
				return
			}
			key := "interface-" + pair.Key
			rates := ratecache.Observe(env.Cache, prefix+key, pair.Value)
			if !yield(feature.Feature{Key: key, Type: feature.TypeInterface, Value: interfaceRates(rates)}, nil) {
				return
			}
		}
	}
}

// collectCounters yields the cumulative counters of all network interfaces in
// the current network namespace, sorted by interface name, in the order of
// the [feature.Interface] fields.
func collectCounters(_ context.Context, scope controller.Scope, _ struct{}, yield func(string, ratecache.Snapshot) bool) error {
	if !scope.Local() {
		return &controller.UnsupportedModeError{Mode: scope.Mode, Operation: "collecting network interface counters"}
	}
	links, err := netlink.LinkList()
	if err != nil {
		return err
	}
	sort.Slice(links, func(a, b int) bool { return links[a].Attrs().Name < links[b].Attrs().Name })
	for _, link := range links {
		attrs := link.Attrs()
		stats := attrs.Statistics
		if stats == nil {
			continue
		}
		if !yield(attrs.Name, ratecache.Snapshot{
			float64(stats.TxBytes),
			float64(stats.RxBytes),
			float64(stats.TxPackets),
			float64(stats.RxPackets),
			float64(stats.TxErrors),
			float64(stats.RxErrors),
		}) {
			return nil
		}
	}
	return nil
}

func interfaceRates(rates ratecache.Snapshot) feature.Interface {
	if len(rates) != 6 {
		return feature.Interface{}
	}
	return feature.Interface{
		BytesOut:   rates[0],
		BytesIn:    rates[1],
		PacketsOut: rates[2],
		PacketsIn:  rates[3],
		ErrorsOut:  rates[4],
		ErrorsIn:   rates[5],
	}
}

var errNoCache = errors.New("interface rates need a rate cache")
