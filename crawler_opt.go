// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"context"
	"time"

	"github.com/siemens/nscrawler/cgroupfs"
	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/engine"
	"github.com/siemens/nscrawler/feature"
	"github.com/siemens/nscrawler/guests"
	"github.com/siemens/nscrawler/ratecache"
)

// NewOption represents options to New when creating a new Crawler.
type NewOption func(*Crawler)

// Sandbox collects features of guests in isolation, such as
// [sandbox.Manager].
type Sandbox interface {
	Features(ctx context.Context, guest guests.Guest) []feature.Feature
	Guests() []string
	Teardown(ctx context.Context, guestID string) error
}

// WithFeatures sets the feature types to collect, defaulting to
// [DefaultFeatures].
func WithFeatures(types ...string) NewOption {
	return func(c *Crawler) {
		c.featureTypes = types
	}
}

// WithWorkers sets the maximum number of containers crawled in parallel. A
// maximum of zero or less is taken as GOMAXPROCS instead. The maximum
// applies to all concurrent [Crawler.CrawlContainers] calls taken together.
func WithWorkers(num int) NewOption {
	return func(c *Crawler) {
		c.numworkers = num
	}
}

// WithCache sets the rate cache, so that multiple crawlers can share it.
func WithCache(cache *ratecache.Cache) NewOption {
	return func(c *Crawler) {
		c.cache = cache
	}
}

// WithSandbox adds the features collected in isolation to container frames.
func WithSandbox(s Sandbox) NewOption {
	return func(c *Crawler) {
		c.sandbox = s
	}
}

// WithRuntime sets the container engine for resolving the root file systems
// of containers and inspecting them.
func WithRuntime(rt engine.Runtime) NewOption {
	return func(c *Crawler) {
		c.runtime = rt
	}
}

// WithAccounting sets the cgroup accounting for container metrics; if not
// set, it gets detected.
func WithAccounting(acc cgroupfs.Accounting) NewOption {
	return func(c *Crawler) {
		c.accounting = acc
	}
}

// WithIntrospector sets the out-of-band introspection of VMs.
func WithIntrospector(vm collector.Introspector) NewOption {
	return func(c *Crawler) {
		c.introspector = vm
	}
}

// WithFeatureEpoch restricts files and packages to those touched after the
// specified time.
func WithFeatureEpoch(epoch time.Time) NewOption {
	return func(c *Crawler) {
		c.epoch = epoch
	}
}

// WithCollectorOptions tunes the individual collectors.
func WithCollectorOptions(opts collector.Options) NewOption {
	return func(c *Crawler) {
		c.options = opts
	}
}

// WithCollectorTimeout limits the time a single collector may take per
// target. Zero means no limit.
func WithCollectorTimeout(d time.Duration) NewOption {
	return func(c *Crawler) {
		c.timeout = d
	}
}

// WithStrictPlugins makes a failing collector fail the whole frame, instead of
// only logging the failure and carrying on with the next collector.
func WithStrictPlugins(strict bool) NewOption {
	return func(c *Crawler) {
		c.strict = strict
	}
}
