// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package controller

import "github.com/thediveo/lxkns/model"

// Target references what to collect features from. It is one of [LocalHost],
// [Container], [VM], or [Image].
type Target interface {
	target()
}

// LocalHost references the host (or VM) the collector runs on.
type LocalHost struct{}

// Container references a live container. Rootfs optionally specifies the
// host-visible path of the container's root file system; if empty, it gets
// resolved on demand.
type Container struct {
	ID     string
	PID    model.PIDType // PID of the container's initial process, as seen by the collector.
	Rootfs string
}

// VM references a virtual machine to be introspected out-of-band.
type VM struct {
	Domain string
	Kernel string
	Distro string
	Arch   string
}

// Image references an offline disk image mounted at Mountpoint.
type Image struct {
	Mountpoint string
}

func (LocalHost) target() {}
func (Container) target() {}
func (VM) target() {}
func (Image) target() {}
