// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/siemens/nscrawler/cgroupfs"
	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/engine"
	"github.com/siemens/nscrawler/feature"
	"github.com/siemens/nscrawler/guests"
	"github.com/siemens/nscrawler/ratecache"
	"github.com/thediveo/lxkns/log"
	"golang.org/x/sync/semaphore"
)

// DefaultFeatures lists the feature types collected unless told otherwise.
var DefaultFeatures = []string{feature.TypeOS, feature.TypeCPU}

// Crawler collects frames of features from the local host, offline images,
// VMs, and containers. It can be safely used from multiple goroutines, as
// long as each container is crawled by only one goroutine at a time.
type Crawler struct {
	featureTypes []string
	collectors   []collector.Collector
	numworkers   int                 // max number of parallel container crawls.
	workersem    *semaphore.Weighted // bounded pool.
	cache        *ratecache.Cache
	sandbox      Sandbox
	runtime      engine.Runtime
	accounting   cgroupfs.Accounting
	introspector collector.Introspector
	epoch        time.Time
	options      collector.Options
	timeout      time.Duration
	strict       bool
}

// New returns a Crawler for the configured feature types, or an error if
// there's no collector for any of them. Only collectors registered with the
// [collector] plugin group are available; import
// [github.com/siemens/nscrawler/collector/all] to get the built-in ones.
func New(opts ...NewOption) (*Crawler, error) {
	c := &Crawler{
		featureTypes: DefaultFeatures,
	}
	for _, opt := range opts {
		opt(c)
	}
	collectors, err := collector.Lookup(c.featureTypes...)
	if err != nil {
		return nil, err
	}
	c.collectors = collectors
	if c.numworkers <= 0 {
		c.numworkers = runtime.GOMAXPROCS(0)
	}
	c.workersem = semaphore.NewWeighted(int64(c.numworkers))
	if c.cache == nil {
		c.cache = ratecache.New()
	}
	if c.accounting == nil {
		acc, err := cgroupfs.New()
		if err != nil {
			log.Warnf("no cgroup accounting for container metrics, reason: %s", err.Error())
		} else {
			c.accounting = acc
		}
	}
	log.Infof("crawling features: %s", strings.Join(c.featureTypes, ", "))
	return c, nil
}

// Cache returns the rate cache of this crawler.
func (c *Crawler) Cache() *ratecache.Cache { return c.cache }

// CrawlHost returns a frame of the host (or VM) the crawler runs on.
func (c *Crawler) CrawlHost(ctx context.Context) (*Frame, error) {
	ctrl, err := controller.New(controller.Local, controller.LocalHost{})
	if err != nil {
		return nil, err
	}
	return c.crawl(ctx, ctrl, newFrame(SystemHost, "host", c.featureTypes))
}

// CrawlImage returns a frame of the offline disk image mounted at the
// specified mount point.
func (c *Crawler) CrawlImage(ctx context.Context, mountpoint string) (*Frame, error) {
	ctrl, err := controller.New(controller.OfflineImage, controller.Image{Mountpoint: mountpoint})
	if err != nil {
		return nil, err
	}
	return c.crawl(ctx, ctrl, newFrame(SystemImage, mountpoint, c.featureTypes))
}

// CrawlVM returns a frame of the specified VM, introspected out-of-band.
func (c *Crawler) CrawlVM(ctx context.Context, vm controller.VM) (*Frame, error) {
	ctrl, err := controller.New(controller.OutOfBandVM, vm)
	if err != nil {
		return nil, err
	}
	return c.crawl(ctx, ctrl, newFrame(SystemVM, vm.Domain, c.featureTypes))
}

// CrawlContainer returns a frame of the specified guest container, crawled
// from the outside. If the crawler has a sandbox, the guest's features
// collected in isolation are appended.
func (c *Crawler) CrawlContainer(ctx context.Context, guest guests.Guest) (*Frame, error) {
	var opts []controller.Option
	if c.runtime != nil {
		opts = append(opts, controller.WithRootfsResolver(
			func(ctx context.Context, cntr controller.Container) (string, error) {
				return c.runtime.RootfsPath(ctx, cntr.ID)
			}))
	}
	ctrl, err := controller.New(controller.OutOfContainer,
		controller.Container{ID: guest.ID, PID: guest.PID}, opts...)
	if err != nil {
		return nil, err
	}
	frame := newFrame(SystemContainer, guest.Name, c.featureTypes)
	frame.Metadata.ContainerID = guest.ID
	frame.Metadata.ContainerName = guest.Name
	frame.Metadata.Engine = guest.Engine
	frame.Metadata.Project = guest.Project
	frame, err = c.crawl(ctx, ctrl, frame)
	if err != nil {
		return nil, err
	}
	if c.sandbox != nil {
		frame.Features = append(frame.Features, c.sandbox.Features(ctx, guest)...)
	}
	return frame, nil
}

// CrawlContainers crawls the specified guests in parallel, returning their
// frames in the order of the guests. Guests failing to crawl get logged and
// have no frame. Afterwards, the companions of guests not in the list get
// torn down, as these guests are considered gone.
//
// Please note that the number of parallel container crawls is bounded over
// all parallel calls to this method, and not just within a single call.
func (c *Crawler) CrawlContainers(ctx context.Context, gs []guests.Guest) []*Frame {
	frames := make([]*Frame, len(gs))
	if len(gs) > 0 {
		done := make(chan struct{})
		var theendisnear atomic.Int64 // track amount of outstanding crawls
		theendisnear.Add(int64(len(gs)))
		started := 0
		for idx, guest := range gs {
			if err := c.workersem.Acquire(ctx, 1); err != nil {
				break
			}
			started++
			go func() {
				defer c.workersem.Release(1)
				frame, err := c.CrawlContainer(ctx, guest)
				if err != nil {
					log.Errorf("cannot crawl container %s (%s), reason: %s",
						guest.Name, guest.ID, err.Error())
				}
				frames[idx] = frame
				if theendisnear.Add(-1) == 0 {
					close(done)
				}
			}()
		}
		// Account for the crawls that never started because of the context
		// getting cancelled.
		if skipped := int64(len(gs) - started); skipped > 0 && theendisnear.Add(-skipped) == 0 {
			close(done)
		}
		<-done
	}
	c.prune(ctx, gs)
	return slices.DeleteFunc(frames, func(f *Frame) bool { return f == nil })
}

// prune tears down the companions of guests not in the specified list, and
// forgets their cached counters.
func (c *Crawler) prune(ctx context.Context, gs []guests.Guest) {
	if c.sandbox == nil {
		return
	}
	alive := map[string]struct{}{}
	for _, guest := range gs {
		alive[guest.ID] = struct{}{}
	}
	for _, id := range c.sandbox.Guests() {
		if _, ok := alive[id]; ok {
			continue
		}
		log.Infof("guest %s has gone, tearing down its companion", id)
		if err := c.sandbox.Teardown(ctx, id); err != nil {
			log.Errorf("cannot tear down companion of guest %s, reason: %s", id, err.Error())
		}
		c.Forget(id)
	}
}

// Forget removes the cached counters of the specified container.
func (c *Crawler) Forget(containerID string) int {
	return c.cache.Evict(func(key string, _ ratecache.Entry) bool {
		return key == containerID || strings.HasPrefix(key, containerID+"-")
	})
}

// crawl runs all collectors against the target of the specified controller,
// adding the features to the frame. A failing collector contributes no
// features at all.
func (c *Crawler) crawl(ctx context.Context, ctrl *controller.Controller, frame *Frame) (*Frame, error) {
	env := &collector.Env{
		Controller:   ctrl,
		Cache:        c.cache,
		Accounting:   c.accounting,
		Runtime:      c.runtime,
		VM:           c.introspector,
		FeatureEpoch: c.epoch,
		Options:      c.options,
	}
	for _, coll := range c.collectors {
		features, err := c.collect(ctx, coll, env)
		if err != nil {
			if c.strict {
				return nil, fmt.Errorf("collecting %s features of %s %s failed: %w",
					coll.Name(), frame.Metadata.SystemType, frame.Metadata.Namespace, err)
			}
			log.Errorf("collecting %s features of %s %s failed: %s",
				coll.Name(), frame.Metadata.SystemType, frame.Metadata.Namespace, err.Error())
			continue
		}
		frame.Features = append(frame.Features, features...)
	}
	return frame, nil
}

// collect runs a single collector, turning panics into errors.
func (c *Crawler) collect(ctx context.Context, coll collector.Collector, env *collector.Env) (features []feature.Feature, err error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collector panicked: %v", r)
		}
	}()
	for f, ferr := range coll.Collect(ctx, env) {
		if ferr != nil {
			return features, ferr
		}
		features = append(features, f)
	}
	return features, nil
}
