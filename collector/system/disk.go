// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package system

import (
	"context"
	"iter"
	"strings"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
	"github.com/thediveo/go-mntinfo"
	"golang.org/x/sys/unix"
)

const diskAction = "system-disk"

// Disk collects the mounted file systems of a target.
type Disk struct{}

func init() {
	controller.Register[struct{}, feature.Disk](diskAction, collectDisks)
	collector.Register(Disk{})
}

// Name returns "disk".
func (Disk) Name() string { return feature.TypeDisk }

// Collect the mounts of the target's mount namespace, in mount order, keyed
// by mount point with dots replaced by "#".
func (Disk) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	return collector.Tag(feature.TypeDisk,
		controller.RunUnderNamespaces[struct{}, feature.Disk](ctx, env.Controller, collector.MountNamespace, diskAction, struct{}{}))
}

func collectDisks(_ context.Context, scope controller.Scope, _ struct{}, yield func(string, feature.Disk) bool) error {
	if !scope.Local() {
		return &controller.UnsupportedModeError{Mode: scope.Mode, Operation: "collecting mounted file systems"}
	}
	for _, disk := range disks(mounts()) {
		if !yield(strings.ReplaceAll(disk.MountPoint, ".", "#"), disk) {
			return nil
		}
	}
	return nil
}

// mounts returns the mounts of the current mount namespace. When the proc
// file system belongs to a PID namespace we're not a member of, there is no
// "self", so the mounts of the namespace's initial process are used instead.
func mounts() []mntinfo.Mountinfo {
	if mounts := mntinfo.MountsOfPid(-1); len(mounts) > 0 {
		return mounts
	}
	return mntinfo.MountsOfPid(1)
}

func disks(mounts []mntinfo.Mountinfo) []feature.Disk {
	disks := make([]feature.Disk, 0, len(mounts))
	for _, mount := range mounts {
		disk := feature.Disk{
			Device:     mount.Source,
			FsType:     mount.FsType,
			MountPoint: mount.MountPoint,
			Options:    strings.Join(mount.MountOptions, ","),
		}
		var stat unix.Statfs_t
		if unix.Statfs(mount.MountPoint, &stat) == nil {
			disk.Size, disk.FreePct = usage(stat)
		}
		disks = append(disks, disk)
	}
	return disks
}

// usage returns the size in bytes and the percentage of blocks available to
// unprivileged users, rounded to two decimals.
func usage(stat unix.Statfs_t) (size uint64, freepct float64) {
	if stat.Blocks == 0 {
		return 0, 0
	}
	size = stat.Blocks * uint64(stat.Bsize)
	freepct = percent(float64(stat.Bavail) / float64(stat.Blocks))
	return size, freepct
}
