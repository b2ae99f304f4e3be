// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"errors"
	"time"

	"github.com/thediveo/lxkns/model"
)

// ErrNotSupported is returned by runtimes that cannot carry out a particular
// operation, such as read-only runtimes asked to create containers.
var ErrNotSupported = errors.New("operation not supported by container runtime")

// CompanionLabel marks companion containers created on behalf of guests, so
// that they are never mistaken for guests themselves. Its value is the ID of
// the guest container.
const CompanionLabel = "com.siemens.nscrawler.companion-of"

// Info describes a container.
type Info struct {
	ID     string
	Name   string
	PID    model.PIDType // PID of the initial container process; zero if not running.
	State  string        // such as "running", "paused", "exited".
	Image  string
	Labels map[string]string
	// Command is the initial process and its arguments, if known.
	Command []string
	// Created is zero if unknown.
	Created time.Time
	// Details is the engine-specific inspection document, if any.
	Details any
}

// Running returns true if the container is running.
func (i Info) Running() bool {
	return i.State == "running" && i.PID != 0
}

// Bind is a bind mount of a host path into a container.
type Bind struct {
	Source   string
	Target   string
	ReadOnly bool
}

// CompanionSpec describes a companion container to be created alongside a
// guest container, sharing the guest's PID and network namespaces.
type CompanionSpec struct {
	Name    string
	Image   string
	Command []string
	User    string
	GuestID string
	Binds   []Bind
	CapAdd  []string
	// Seccomp is the seccomp profile in JSON format to apply to the
	// companion; empty for the engine's default profile.
	Seccomp string
	Labels  map[string]string
}

// Runtime is a container engine.
type Runtime interface {
	// Type returns the engine type, such as "docker.com".
	Type() string
	// Containers returns the containers currently known to the engine.
	Containers(ctx context.Context) ([]Info, error)
	// Inspect returns the details of the specified container.
	Inspect(ctx context.Context, id string) (Info, error)
	// RootfsPath returns the host-visible path of the root file system of the
	// specified container.
	RootfsPath(ctx context.Context, id string) (string, error)
	// Create creates and starts a container, returning only after the engine
	// reported it running.
	Create(ctx context.Context, spec CompanionSpec) (Info, error)
	// Remove forcefully removes the specified container.
	Remove(ctx context.Context, id string) error
	// Close releases the resources of the runtime binding.
	Close() error
}

// Layer is an entry in the build history of a container image.
type Layer struct {
	ID        string
	Created   time.Time
	CreatedBy string
	Tags      []string
	Size      int64
	Comment   string
}

// Historian is implemented by runtimes that know the build history of the
// images of their containers.
type Historian interface {
	// History returns the ID of the image of the specified container and the
	// image's build history, most recent layer first.
	History(ctx context.Context, id string) (imageID string, layers []Layer, err error)
}
