// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package collector

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"time"

	"github.com/siemens/nscrawler/cgroupfs"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/engine"
	"github.com/siemens/nscrawler/feature"
	"github.com/siemens/nscrawler/nsexec"
	"github.com/siemens/nscrawler/ratecache"
	"github.com/thediveo/go-plugger/v3"
	"github.com/thediveo/lxkns/species"
)

// Collector produces the features of a single feature type.
type Collector interface {
	// Name returns the feature type this collector produces.
	Name() string
	// Collect returns the features of the target of the passed
	// environment's controller. A collection error ends the sequence.
	Collect(ctx context.Context, env *Env) iter.Seq2[feature.Feature, error]
}

// Env is the environment of a single collection pass for a single target.
type Env struct {
	Controller   *controller.Controller
	Cache        *ratecache.Cache
	Accounting   cgroupfs.Accounting // nil if unavailable
	Runtime      engine.Runtime      // nil if unavailable
	VM           Introspector        // nil if unavailable
	FeatureEpoch time.Time           // only files changed after the epoch; zero for all
	Options      Options
}

// Options tunes individual collectors.
type Options struct {
	// Root is the directory the file and config collectors start at.
	Root string
	// Exclude lists glob patterns of absolute paths to skip.
	Exclude []string
	// KnownConfigs lists config files to always collect, if present.
	KnownConfigs []string
	// DiscoverConfigs enables searching for config files.
	DiscoverConfigs bool
	// AvoidNamespaces collects the file system of containers from the
	// outside instead of entering their mount namespaces.
	AvoidNamespaces bool
	// PerCPU reports the CPU usage of containers per CPU.
	PerCPU bool
	// PackageDB overrides the package manager's database path.
	PackageDB string
}

// DefaultExclude lists the directories skipped by default.
var DefaultExclude = []string{"/proc", "/mnt", "/dev", "/tmp", "/sys"}

// Introspector gathers information about a VM out-of-band, for instance from
// its memory.
type Introspector interface {
	System(ctx context.Context, vm controller.VM) (VMSystem, error)
}

// VMSystem is the state of a VM as seen from the outside.
type VMSystem struct {
	BootTime       time.Time
	IPAddrs        []string
	Distro         string
	OSName         string
	Platform       string
	Release        string
	OSType         string
	Version        string
	MemoryUsed     int64
	MemoryBuffered int64
	MemoryCached   int64
	MemoryFree     int64
}

// Namespace sets collection functions run in.
var (
	AllNamespaces  = nsexec.AllNamespaces
	MountNamespace = []species.NamespaceType{species.CLONE_NEWNS}
	NetNamespace   = []species.NamespaceType{species.CLONE_NEWNET}
)

// Register a collector plugin.
func Register(c Collector) {
	plugger.Group[Collector]().Register(c, plugger.WithPlugin(c.Name()))
}

// Names returns the sorted feature types of all registered collectors.
func Names() []string {
	names := []string{}
	for _, c := range plugger.Group[Collector]().Symbols() {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names
}

// Lookup returns the registered collectors for the specified feature types,
// in the order of the feature types. Unknown feature types are an error.
func Lookup(types ...string) ([]Collector, error) {
	collectors := map[string]Collector{}
	for _, c := range plugger.Group[Collector]().Symbols() {
		collectors[c.Name()] = c
	}
	found := make([]Collector, 0, len(types))
	for _, typ := range types {
		c, ok := collectors[typ]
		if !ok {
			return nil, fmt.Errorf("no collector for feature type %q", typ)
		}
		found = append(found, c)
	}
	return found, nil
}

// Tag turns a sequence of keyed values into a sequence of features of the
// specified type.
func Tag[V any](typ string, seq iter.Seq2[feature.Pair[V], error]) iter.Seq2[feature.Feature, error] {
	return func(yield func(feature.Feature, error) bool) {
		for pair, err := range seq {
			if err != nil {
				yield(feature.Feature{}, err)
				return
			}
			if !yield(feature.Of(typ, pair), nil) {
				return
			}
		}
	}
}

// Fail returns a sequence yielding only the specified error.
func Fail(err error) iter.Seq2[feature.Feature, error] {
	return func(yield func(feature.Feature, error) bool) {
		yield(feature.Feature{}, err)
	}
}

// Unsupported returns a sequence failing with an
// [*controller.UnsupportedModeError] for the active mode of env.
func Unsupported(env *Env, operation string) iter.Seq2[feature.Feature, error] {
	return Fail(&controller.UnsupportedModeError{
		Mode:      env.Controller.Mode(),
		Operation: operation,
	})
}

// CachePrefix returns the prefix of the rate cache keys for the target of c:
// the container ID and PID for containers, so that a restarted container
// doesn't inherit the counters of its previous incarnation, and "INVM"
// otherwise.
func CachePrefix(c *controller.Controller) string {
	if cntr, ok := c.Target().(controller.Container); ok {
		return cntr.ID + "-" + strconv.Itoa(int(cntr.PID)) + "-"
	}
	return "INVM-"
}

// Sleep waits for the specified duration or until the context is done.
func Sleep(ctx context.Context, d time.Duration) error {
	wecker := time.NewTimer(d)
	select {
	case <-wecker.C:
		return nil
	case <-ctx.Done():
		if !wecker.Stop() {
			<-wecker.C
		}
		return ctx.Err()
	}
}

// Run runs the named collection function for the target of env, see
// [controller.RunUnderNamespaces]. When asked to avoid namespaces and the
// target is a container, it reads the container's root file system from the
// outside instead, see [controller.RunAvoidingNamespaces].
func Run[A, V any](
	ctx context.Context,
	env *Env,
	nstypes []species.NamespaceType,
	name string,
	args A,
) iter.Seq2[feature.Pair[V], error] {
	if env.Options.AvoidNamespaces && env.Controller.Configured() == controller.OutOfContainer {
		return controller.RunAvoidingNamespaces[A, V](ctx, env.Controller, name, args)
	}
	return controller.RunUnderNamespaces[A, V](ctx, env.Controller, nstypes, name, args)
}
