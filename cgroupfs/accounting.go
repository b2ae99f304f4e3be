// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package cgroupfs

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/containerd/cgroups/v3"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/model"
)

// Unlimited is the memory limit of cgroups without a limit.
const Unlimited = ^uint64(0)

// CPU is the cumulative CPU usage of a cgroup.
type CPU struct {
	// Usage in nanoseconds, either as a single total or per CPU.
	Usage []uint64
	// User and System give the relative split of the usage between user and
	// system mode; their unit depends on the cgroup version.
	User   float64
	System float64
}

// Memory is the memory usage of a cgroup, in bytes.
type Memory struct {
	Usage      uint64
	Limit      uint64 // Unlimited if there is no limit.
	Cache      uint64
	ActiveFile uint64
}

// Accounting reads the accounting information of the cgroups processes are
// in.
type Accounting interface {
	// Version returns 1 for cgroup v1 (and hybrid) hierarchies, and 2 for the
	// unified hierarchy.
	Version() int
	// CPU returns the CPU usage of the cgroup the specified process is in.
	// When asking for per-CPU usage on a unified hierarchy, the total usage
	// gets returned instead.
	CPU(pid model.PIDType, perCPU bool) (CPU, error)
	// Memory returns the memory usage of the cgroup the specified process is
	// in.
	Memory(pid model.PIDType) (Memory, error)
	// Classify moves the processes of the cgroup the specified process is in
	// into a "block" child cgroup with the specified net_cls class ID,
	// returning the path of the child cgroup. Unified hierarchies have no
	// net_cls controller and report [errors.ErrUnsupported].
	Classify(pid model.PIDType, classid uint32) (string, error)
	// Unclassify moves the processes of a child cgroup created by Classify
	// back into its parent cgroup and removes the child cgroup.
	Unclassify(dir string) error
}

// Option configures the Accounting returned by [New].
type Option func(*options)

type options struct {
	root     string
	procRoot string
	mode     cgroups.CGMode
}

// WithRoot sets the mount point of the cgroup file system, defaulting to
// "/sys/fs/cgroup".
func WithRoot(root string) Option {
	return func(o *options) {
		o.root = root
	}
}

// WithProcRoot sets the mount point of the proc file system used to look up
// the cgroups of processes, defaulting to "/proc".
func WithProcRoot(root string) Option {
	return func(o *options) {
		o.procRoot = root
	}
}

// WithMode overrides the detected cgroup hierarchy mode.
func WithMode(mode cgroups.CGMode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// ErrUnavailable reports a system without any usable cgroup hierarchy.
var ErrUnavailable = errors.New("cgroups unavailable")

// New returns the Accounting adapter for the cgroup hierarchy of this system.
func New(opts ...Option) (Accounting, error) {
	o := options{
		root:     "/sys/fs/cgroup",
		procRoot: "/proc",
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.mode == 0 {
		o.mode = cgroups.Mode()
	}
	switch o.mode {
	case cgroups.Legacy, cgroups.Hybrid:
		log.Debugf("using cgroup v1 accounting at %s", o.root)
		return &v1{root: o.root, procRoot: o.procRoot}, nil
	case cgroups.Unified:
		log.Debugf("using cgroup v2 accounting at %s", o.root)
		return &v2{root: o.root, procRoot: o.procRoot}, nil
	}
	return nil, ErrUnavailable
}

// cgroupPaths returns the v1 cgroup paths of the specified process keyed by
// controller, as well as its path in the unified hierarchy.
func cgroupPaths(procRoot string, pid model.PIDType) (map[string]string, string, error) {
	paths, unified, err := cgroups.ParseCgroupFileUnified(
		procRoot + "/" + strconv.FormatUint(uint64(pid), 10) + "/cgroup")
	if err != nil {
		return nil, "", fmt.Errorf("cannot determine cgroups of process %d, reason: %w", pid, err)
	}
	return paths, unified, nil
}
