// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package system

import (
	"context"
	"iter"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
	"github.com/thediveo/lxkns/log"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

const osAction = "system-os"

// OS collects the identity of the operating system.
type OS struct{}

func init() {
	controller.Register[struct{}, feature.OS](osAction, collectOS)
	collector.Register(OS{})
}

// Name returns "os".
func (OS) Name() string { return feature.TypeOS }

// Collect the OS identity, keyed by the lower-case system name.
func (OS) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	if env.Controller.Mode() == controller.OutOfBandVM {
		return vmOS(ctx, env)
	}
	return collector.Tag(feature.TypeOS,
		collector.Run[struct{}, feature.OS](ctx, env, collector.AllNamespaces, osAction, struct{}{}))
}

func collectOS(_ context.Context, scope controller.Scope, _ struct{}, yield func(string, feature.OS) bool) error {
	var f feature.OS
	var err error
	switch scope.Mode {
	case controller.Local:
		f, err = localOS(scope)
	case controller.OfflineImage:
		f, err = imageOS(scope)
	default:
		return &controller.UnsupportedModeError{Mode: scope.Mode, Operation: "collecting the OS identity"}
	}
	if err != nil {
		return err
	}
	yield(f.System, f)
	return nil
}

func localOS(scope controller.Scope) (feature.OS, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return feature.OS{}, err
	}
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return feature.OS{}, err
	}
	boot := time.Now().Add(-time.Duration(info.Uptime) * time.Second)
	release, err := OSRelease(scope)
	if err != nil {
		return feature.OS{}, err
	}
	return feature.OS{
		BootTime: strconv.FormatInt(boot.Unix(), 10),
		Uptime:   strconv.FormatInt(int64(info.Uptime), 10),
		IPAddrs:  ipv4Addrs(),
		Distro:   valueOr(release["ID"], "unknown"),
		OSName:   valueOr(release["PRETTY_NAME"], "unknown"),
		Machine:  unix.ByteSliceToString(uts.Machine[:]),
		Release:  unix.ByteSliceToString(uts.Release[:]),
		System:   strings.ToLower(unix.ByteSliceToString(uts.Sysname[:])),
		Version:  unix.ByteSliceToString(uts.Version[:]),
	}, nil
}

// ipv4Addrs returns the IPv4 addresses in the current network namespace,
// except for loopback addresses.
func ipv4Addrs() []string {
	addrs, err := netlink.AddrList(nil, netlink.FAMILY_V4)
	if err != nil {
		log.Warnf("cannot list IPv4 addresses, reason: %s", err.Error())
		return []string{}
	}
	ips := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr.IP.IsLoopback() {
			continue
		}
		ips = append(ips, addr.IP.String())
	}
	return ips
}

func imageOS(scope controller.Scope) (feature.OS, error) {
	release, err := OSRelease(scope)
	if err != nil {
		return feature.OS{}, err
	}
	return feature.OS{
		BootTime: feature.Unsupported,
		Uptime:   feature.Unsupported,
		IPAddrs:  []string{"0.0.0.0"},
		Distro:   valueOr(release["ID"], "unknown"),
		OSName:   valueOr(release["PRETTY_NAME"], "unknown"),
		Machine:  feature.Unsupported,
		Release:  valueOr(kernelRelease(scope), feature.Unsupported),
		System:   "linux",
		Version:  valueOr(release["VERSION_ID"], "unknown"),
	}, nil
}

// kernelRelease returns the latest kernel release with modules installed in
// the file system in scope.
func kernelRelease(scope controller.Scope) string {
	modules, err := scope.Path("/lib/modules")
	if err != nil {
		return ""
	}
	entries, err := os.ReadDir(modules)
	if err != nil {
		return ""
	}
	releases := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			releases = append(releases, entry.Name())
		}
	}
	if len(releases) == 0 {
		return ""
	}
	sort.Strings(releases)
	return releases[len(releases)-1]
}

func vmOS(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	if env.VM == nil {
		return collector.Unsupported(env, "collecting the OS identity without VM introspection")
	}
	return func(yield func(feature.Feature, error) bool) {
		sys, err := env.VM.System(ctx, env.Controller.Target().(controller.VM))
		if err != nil {
			yield(feature.Feature{}, err)
			return
		}
		ostype := strings.ToLower(sys.OSType)
		yield(feature.Feature{
			Key:  ostype,
			Type: feature.TypeOS,
			Value: feature.OS{
				BootTime: strconv.FormatInt(sys.BootTime.Unix(), 10),
				Uptime:   strconv.FormatInt(int64(time.Since(sys.BootTime)/time.Second), 10),
				IPAddrs:  sys.IPAddrs,
				Distro:   sys.Distro,
				OSName:   sys.OSName,
				Machine:  sys.Platform,
				Release:  sys.Release,
				System:   ostype,
				Version:  sys.Version,
			},
		}, nil)
	}
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
