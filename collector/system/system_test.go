// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package system

import (
	"bufio"
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
	"github.com/siemens/nscrawler/ratecache"
	"github.com/thediveo/go-mntinfo"
	"golang.org/x/sys/unix"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

func features(seq iter.Seq2[feature.Feature, error]) ([]feature.Feature, error) {
	var fs []feature.Feature
	for f, err := range seq {
		if err != nil {
			return fs, err
		}
		fs = append(fs, f)
	}
	return fs, nil
}

type fakeIntrospector struct {
	sys collector.VMSystem
}

func (i fakeIntrospector) System(context.Context, controller.VM) (collector.VMSystem, error) {
	return i.sys, nil
}

var _ = Describe("system collectors", func() {

	It("registers its collectors", func() {
		Expect(collector.Names()).To(ContainElements("os", "load", "process", "disk", "metric"))
	})

	It("parses os-release files", func() {
		vars := Successful(parseOSRelease(bufio.NewScanner(strings.NewReader(`# comment
ID=debian
PRETTY_NAME="Debian GNU/Linux 12 (bookworm)"
VERSION_ID='12'

garbage
`))))
		Expect(vars).To(Equal(map[string]string{
			"ID":          "debian",
			"PRETTY_NAME": "Debian GNU/Linux 12 (bookworm)",
			"VERSION_ID":  "12",
		}))
	})

	Context("OS identity", func() {

		It("collects the local OS", func(ctx context.Context) {
			env := &collector.Env{Controller: Successful(controller.New(controller.Local, nil))}
			fs := Successful(features(OS{}.Collect(ctx, env)))
			Expect(fs).To(HaveLen(1))
			Expect(fs[0].Key).To(Equal("linux"))
			Expect(fs[0].Type).To(Equal(feature.TypeOS))
			identity := fs[0].Value.(feature.OS)
			Expect(identity.System).To(Equal("linux"))
			Expect(identity.Release).NotTo(BeEmpty())
			Expect(identity.BootTime).NotTo(Equal(feature.Unsupported))
		})

		It("collects the OS of an offline image", func(ctx context.Context) {
			mnt := GinkgoT().TempDir()
			Expect(os.MkdirAll(filepath.Join(mnt, "etc"), 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(mnt, "etc/os-release"),
				[]byte("ID=alpine\nPRETTY_NAME=\"Alpine Linux v3.20\"\nVERSION_ID=3.20.0\n"), 0o644)).To(Succeed())
			for _, release := range []string{"6.1.0-1", "6.6.7-2"} {
				Expect(os.MkdirAll(filepath.Join(mnt, "lib/modules", release), 0o755)).To(Succeed())
			}

			env := &collector.Env{Controller: Successful(controller.New(controller.OfflineImage, controller.Image{Mountpoint: mnt}))}
			fs := Successful(features(OS{}.Collect(ctx, env)))
			Expect(fs).To(ConsistOf(feature.Feature{
				Key:  "linux",
				Type: feature.TypeOS,
				Value: feature.OS{
					BootTime: feature.Unsupported,
					Uptime:   feature.Unsupported,
					IPAddrs:  []string{"0.0.0.0"},
					Distro:   "alpine",
					OSName:   "Alpine Linux v3.20",
					Machine:  feature.Unsupported,
					Release:  "6.6.7-2",
					System:   "linux",
					Version:  "3.20.0",
				},
			}))
		})

		It("reports unknown distributions for empty images", func(ctx context.Context) {
			env := &collector.Env{Controller: Successful(controller.New(controller.OfflineImage,
				controller.Image{Mountpoint: GinkgoT().TempDir()}))}
			fs := Successful(features(OS{}.Collect(ctx, env)))
			Expect(fs).To(HaveLen(1))
			identity := fs[0].Value.(feature.OS)
			Expect(identity.Distro).To(Equal("unknown"))
			Expect(identity.Release).To(Equal(feature.Unsupported))
		})

		It("introspects VMs", func(ctx context.Context) {
			boot := time.Now().Add(-time.Hour)
			env := &collector.Env{
				Controller: Successful(controller.New(controller.OutOfBandVM, controller.VM{Domain: "vm1"})),
				VM: fakeIntrospector{sys: collector.VMSystem{
					BootTime: boot,
					IPAddrs:  []string{"10.0.0.1"},
					Distro:   "ubuntu",
					OSType:   "Linux",
					Release:  "5.15.0",
				}},
			}
			fs := Successful(features(OS{}.Collect(ctx, env)))
			Expect(fs).To(HaveLen(1))
			Expect(fs[0].Key).To(Equal("linux"))
			identity := fs[0].Value.(feature.OS)
			Expect(identity.IPAddrs).To(ConsistOf("10.0.0.1"))
			Expect(identity.Release).To(Equal("5.15.0"))
		})

		It("fails for VMs without introspection", func(ctx context.Context) {
			env := &collector.Env{Controller: Successful(controller.New(controller.OutOfBandVM, controller.VM{Domain: "vm1"}))}
			_, err := features(OS{}.Collect(ctx, env))
			var unsupported *controller.UnsupportedModeError
			Expect(errors.As(err, &unsupported)).To(BeTrue())
		})

	})

	Context("load", func() {

		It("parses load averages", func() {
			path := filepath.Join(GinkgoT().TempDir(), "loadavg")
			Expect(os.WriteFile(path, []byte("0.52 0.58 0.59 2/1301 2432154\n"), 0o644)).To(Succeed())
			Expect(readLoadavg(path)).To(Equal(feature.Load{Shortterm: 0.52, Midterm: 0.58, Longterm: 0.59}))
		})

		It("rejects malformed load averages", func() {
			path := filepath.Join(GinkgoT().TempDir(), "loadavg")
			Expect(os.WriteFile(path, []byte("0.52 foo\n"), 0o644)).To(Succeed())
			Expect(readLoadavg(path)).Error().To(HaveOccurred())
		})

		It("collects the local load", func(ctx context.Context) {
			env := &collector.Env{Controller: Successful(controller.New(controller.Local, nil))}
			fs := Successful(features(Load{}.Collect(ctx, env)))
			Expect(fs).To(HaveLen(1))
			Expect(fs[0].Key).To(Equal("load"))
		})

		It("doesn't collect the load of images", func(ctx context.Context) {
			env := &collector.Env{Controller: Successful(controller.New(controller.OfflineImage,
				controller.Image{Mountpoint: GinkgoT().TempDir()}))}
			_, err := features(Load{}.Collect(ctx, env))
			var unsupported *controller.UnsupportedModeError
			Expect(errors.As(err, &unsupported)).To(BeTrue())
		})

	})

	Context("processes", func() {

		It("collects the local processes including ourselves", func(ctx context.Context) {
			env := &collector.Env{Controller: Successful(controller.New(controller.Local, nil))}
			fs := Successful(features(Process{}.Collect(ctx, env)))
			Expect(fs).NotTo(BeEmpty())
			pids := make([]int, 0, len(fs))
			var self *feature.Process
			for _, f := range fs {
				proc := f.Value.(feature.Process)
				Expect(f.Key).To(Equal(proc.Name + "/" + strconv.Itoa(proc.PID)))
				pids = append(pids, proc.PID)
				if proc.PID == os.Getpid() {
					self = &proc
				}
			}
			Expect(sort.IntsAreSorted(pids)).To(BeTrue())
			Expect(self).NotTo(BeNil())
			Expect(self.PPID).To(Equal(os.Getppid()))
			Expect(self.UID).To(Equal(os.Getuid()))
			Expect(self.Threads).To(BeNumerically(">", 0))
			Expect(self.Cwd).To(Equal(Successful(os.Getwd())))
		})

	})

	Context("disks", func() {

		It("reports usage of file systems", func() {
			size, free := usage(unix.Statfs_t{Blocks: 1000, Bavail: 333, Bsize: 4096})
			Expect(size).To(Equal(uint64(4096000)))
			Expect(free).To(Equal(33.3))
			Expect(usage(unix.Statfs_t{Bsize: 4096})).To(BeZero())
		})

		It("describes mounts", func() {
			ds := disks([]mntinfo.Mountinfo{{
				MountPoint:   GinkgoT().TempDir(),
				MountOptions: []string{"rw", "relatime"},
				FsType:       "ext4",
				Source:       "/dev/sda1",
			}})
			Expect(ds).To(HaveLen(1))
			Expect(ds[0].Device).To(Equal("/dev/sda1"))
			Expect(ds[0].FsType).To(Equal("ext4"))
			Expect(ds[0].Options).To(Equal("rw,relatime"))
			Expect(ds[0].Size).NotTo(BeZero())
		})

		It("collects the local mounts", func(ctx context.Context) {
			env := &collector.Env{Controller: Successful(controller.New(controller.Local, nil))}
			fs := Successful(features(Disk{}.Collect(ctx, env)))
			Expect(fs).To(ContainElement(And(
				HaveField("Key", "/"),
				HaveField("Type", feature.TypeDisk),
				HaveField("Value.MountPoint", "/"))))
			for _, f := range fs {
				Expect(f.Key).NotTo(ContainSubstring("."))
			}
		})

		It("doesn't collect the mounts of images", func(ctx context.Context) {
			env := &collector.Env{Controller: Successful(controller.New(controller.OfflineImage,
				controller.Image{Mountpoint: GinkgoT().TempDir()}))}
			_, err := features(Disk{}.Collect(ctx, env))
			var unsupported *controller.UnsupportedModeError
			Expect(errors.As(err, &unsupported)).To(BeTrue())
		})

	})

	Context("process metrics", func() {

		const stat = "4242 (my (odd) proc) S 1 4242 4242 0 -1 4194560 100 0 0 0 " +
			"250 50 0 0 20 0 1 0 123456 10485760 512 18446744073709551615 0 0 0 0 0 0 0 0 0 0 0 0 17 3 0 0 0 0 0"

		It("parses process stats", func() {
			sample := Successful(parseStat(stat, 4096))
			Expect(sample.Metric.Name).To(Equal("my (odd) proc"))
			Expect(sample.Metric.Status).To(Equal("sleeping"))
			Expect(sample.Metric.VMS).To(Equal(uint64(10485760)))
			Expect(sample.Metric.RSS).To(Equal(uint64(512 * 4096)))
			Expect(sample.CPUTime).To(Equal(3.0))
			Expect(sample.Starttime).To(Equal(uint64(123456)))

			Expect(parseStat("4242 (foo) S 1", 4096)).Error().To(HaveOccurred())
			Expect(parseStat("garbage", 4096)).Error().To(HaveOccurred())
		})

		It("reads I/O and total memory", func() {
			dir := GinkgoT().TempDir()
			Expect(os.WriteFile(filepath.Join(dir, "io"),
				[]byte("rchar: 1\nwchar: 2\nread_bytes: 4096\nwrite_bytes: 8192\n"), 0o644)).To(Succeed())
			read, write := readIO(filepath.Join(dir, "io"))
			Expect(read).To(Equal(uint64(4096)))
			Expect(write).To(Equal(uint64(8192)))
			read, write = readIO(filepath.Join(dir, "nonexisting"))
			Expect(read).To(BeZero())
			Expect(write).To(BeZero())

			Expect(os.WriteFile(filepath.Join(dir, "meminfo"),
				[]byte("MemTotal:       16318480 kB\nMemFree: 1 kB\n"), 0o644)).To(Succeed())
			Expect(readMemTotal(filepath.Join(dir, "meminfo"))).To(Equal(uint64(16318480 * 1024)))
			Expect(os.WriteFile(filepath.Join(dir, "meminfo"), []byte("MemFree: 1 kB\n"), 0o644)).To(Succeed())
			Expect(readMemTotal(filepath.Join(dir, "meminfo"))).Error().To(HaveOccurred())
		})

		It("collects CPU rates of the local processes and forgets gone processes", func(ctx context.Context) {
			clock := time.Now()
			cache := ratecache.New(ratecache.WithClock(func() time.Time { return clock }))
			cache.Put("INVM-metric-0-0", ratecache.Snapshot{1})
			cache.Put("INVM-interface-lo", ratecache.Snapshot{1})
			env := &collector.Env{Controller: Successful(controller.New(controller.Local, nil)), Cache: cache}

			fs := Successful(features(Metric{}.Collect(ctx, env)))
			var self *feature.Metric
			for _, f := range fs {
				metric := f.Value.(feature.Metric)
				Expect(f.Key).To(Equal(metric.Name + "/" + strconv.Itoa(metric.PID)))
				Expect(metric.CPUPct).To(BeZero())
				if metric.PID == os.Getpid() {
					self = &metric
				}
			}
			Expect(self).NotTo(BeNil())
			Expect(self.RSS).NotTo(BeZero())
			Expect(self.MemPct).To(BeNumerically(">", 0))
			Expect(self.User).NotTo(BeEmpty())
			_, ok := cache.Get("INVM-metric-0-0")
			Expect(ok).To(BeFalse())
			_, ok = cache.Get("INVM-interface-lo")
			Expect(ok).To(BeTrue())

			clock = clock.Add(time.Second)
			for f, err := range (Metric{}).Collect(ctx, env) {
				Expect(err).NotTo(HaveOccurred())
				Expect(f.Value.(feature.Metric).CPUPct).To(BeNumerically(">=", 0))
			}
		})

		It("doesn't collect metrics of images", func(ctx context.Context) {
			env := &collector.Env{Controller: Successful(controller.New(controller.OfflineImage,
				controller.Image{Mountpoint: GinkgoT().TempDir()}))}
			_, err := features(Metric{}.Collect(ctx, env))
			var unsupported *controller.UnsupportedModeError
			Expect(errors.As(err, &unsupported)).To(BeTrue())
		})

	})

})
