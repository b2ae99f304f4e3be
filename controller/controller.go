// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package controller

import (
	"context"
	"strconv"

	"github.com/thediveo/lxkns/log"
)

// RootfsResolver returns the host-visible path of a container's root file
// system.
type RootfsResolver func(ctx context.Context, c Container) (string, error)

// Controller selects the collection strategy for a single target. Its
// configured mode never changes; its active mode only deviates from the
// configured one while delegating into a container's namespaces.
type Controller struct {
	configured Mode
	active     Mode
	target     Target
	resolver   RootfsResolver
}

// Option configures a Controller when creating it with [New].
type Option func(*Controller)

// WithRootfsResolver sets the function for resolving the root file system path
// of a container target, overriding the default of using the container's
// initial process' "/proc/[PID]/root" wormhole.
func WithRootfsResolver(r RootfsResolver) Option {
	return func(c *Controller) {
		c.resolver = r
	}
}

// New returns a Controller for the specified mode and target, or a
// [*ConfigurationError] if the target doesn't fit the mode. OutOfContainer
// requires a [Container] target, OutOfBandVM a [VM], and OfflineImage an
// [Image]. Local accepts a nil target or [LocalHost].
func New(mode Mode, target Target, opts ...Option) (*Controller, error) {
	switch mode {
	case Local:
		if target == nil {
			target = LocalHost{}
		}
		if _, ok := target.(LocalHost); !ok {
			return nil, &ConfigurationError{Mode: mode, Target: target}
		}
	case OfflineImage:
		if img, ok := target.(Image); !ok || img.Mountpoint == "" {
			return nil, &ConfigurationError{Mode: mode, Target: target}
		}
	case OutOfBandVM:
		if _, ok := target.(VM); !ok {
			return nil, &ConfigurationError{Mode: mode, Target: target}
		}
	case OutOfContainer:
		if cntr, ok := target.(Container); !ok || cntr.PID <= 0 {
			return nil, &ConfigurationError{Mode: mode, Target: target}
		}
	default:
		return nil, &ConfigurationError{Mode: mode, Target: target}
	}
	c := &Controller{
		configured: mode,
		active:     mode,
		target:     target,
		resolver:   procRootfs,
	}
	for _, opt := range opts {
		opt(c)
	}
	log.Debugf("new crawl mode controller in mode %s", mode)
	return c, nil
}

// Mode returns the currently active mode.
func (c *Controller) Mode() Mode { return c.active }

// Configured returns the mode the controller was configured with.
func (c *Controller) Configured() Mode { return c.configured }

// Target returns the target the controller was configured with.
func (c *Controller) Target() Target { return c.target }

// Rootfs returns the host-visible root directory of the target: "/" for the
// local host, the mount point of an image, and the root file system path of a
// container. VM targets have no host-visible root and report an
// [*UnsupportedModeError].
func (c *Controller) Rootfs(ctx context.Context) (string, error) {
	switch t := c.target.(type) {
	case LocalHost:
		return "/", nil
	case Image:
		return t.Mountpoint, nil
	case Container:
		if t.Rootfs != "" {
			return t.Rootfs, nil
		}
		return c.resolver(ctx, t)
	}
	return "", &UnsupportedModeError{Mode: c.configured, Operation: "resolving the root file system"}
}

// delegate switches the active mode to Local, returning a function that
// restores the configured mode.
func (c *Controller) delegate() (restore func()) {
	c.active = Local
	return func() { c.active = c.configured }
}

// scope returns the scope for running a collection function in-process.
func (c *Controller) scope(ctx context.Context) (Scope, error) {
	root := "/"
	if c.active == OfflineImage {
		var err error
		if root, err = c.Rootfs(ctx); err != nil {
			return Scope{}, err
		}
	}
	return Scope{Mode: c.active, Root: root}, nil
}

// procRootfs resolves the root file system of a container to the wormhole of
// the container's initial process.
func procRootfs(_ context.Context, c Container) (string, error) {
	return "/proc/" + strconv.FormatUint(uint64(c.PID), 10) + "/root", nil
}
