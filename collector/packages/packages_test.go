// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package packages

import (
	"bufio"
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"
	. "github.com/thediveo/success"
)

const dpkgStatus = `Package: busybox
Status: install ok installed
Priority: optional
Installed-Size: 2
Architecture: amd64
Version: 1:1.36.1-6
Description: Tiny utilities for small and embedded systems
 BusyBox combines tiny versions of many common UNIX utilities into a single
 small executable.

Package: removed
Status: deinstall ok config-files
Version: 1.0

Package: libc6
Status: install ok installed
Installed-Size: 12000
Architecture: amd64
Version: 2.36-9`

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

// debianImage returns the mount point of a minimal Debian-like image with
// busybox and libc6 installed at the specified times.
func debianImage(busybox, libc time.Time) string {
	GinkgoHelper()
	mnt := GinkgoT().TempDir()
	info := filepath.Join(mnt, DpkgDB, "info")
	Expect(os.MkdirAll(info, 0o755)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(mnt, DpkgDB, "status"), []byte(dpkgStatus), 0o644)).To(Succeed())
	for name, mtime := range map[string]time.Time{
		"busybox.list":      busybox,
		"libc6:amd64.list": libc,
	} {
		path := filepath.Join(info, name)
		Expect(os.WriteFile(path, nil, 0o644)).To(Succeed())
		Expect(os.Chtimes(path, mtime, mtime)).To(Succeed())
	}
	Expect(os.MkdirAll(filepath.Join(mnt, "etc"), 0o755)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(mnt, "etc/os-release"), []byte("ID=debian\n"), 0o644)).To(Succeed())
	return mnt
}

var _ = Describe("package collector", func() {

	busyboxInstalled := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	libcInstalled := time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC)

	It("registers", func() {
		Expect(collector.Names()).To(ContainElement("package"))
	})

	It("parses dpkg status stanzas", func() {
		var names []string
		for stanza, err := range parseDpkgStatus(bufio.NewScanner(strings.NewReader(dpkgStatus))) {
			Expect(err).NotTo(HaveOccurred())
			names = append(names, stanza["Package"])
		}
		Expect(names).To(Equal([]string{"busybox", "removed", "libc6"}))
		Expect(dpkgInstalled("install ok installed")).To(BeTrue())
		Expect(dpkgInstalled("deinstall ok config-files")).To(BeFalse())
	})

	It("detects package managers", func() {
		Expect(detectManager(controller.Scope{Mode: controller.OfflineImage, Root: debianImage(busyboxInstalled, libcInstalled)})).
			To(Equal("dpkg"))

		mnt := GinkgoT().TempDir()
		Expect(detectManager(controller.Scope{Mode: controller.OfflineImage, Root: mnt})).To(BeEmpty())
		Expect(os.MkdirAll(filepath.Join(mnt, RpmDB), 0o755)).To(Succeed())
		Expect(detectManager(controller.Scope{Mode: controller.OfflineImage, Root: mnt})).To(Equal("rpm"))
	})

	It("collects dpkg packages of an image", func(ctx context.Context) {
		mnt := debianImage(busyboxInstalled, libcInstalled)
		env := &collector.Env{Controller: Successful(controller.New(controller.OfflineImage, controller.Image{Mountpoint: mnt}))}
		fs := Successful(features(Packages{}.Collect(ctx, env)))
		Expect(fs).To(Equal([]feature.Feature{
			{Key: "busybox", Type: feature.TypePackage, Value: feature.Package{
				Name: "busybox", Version: "1:1.36.1-6", Size: 2048,
				Installed: "2024-01-02T03:04:05Z", Manager: "dpkg",
			}},
			{Key: "libc6", Type: feature.TypePackage, Value: feature.Package{
				Name: "libc6", Version: "2.36-9", Size: 12000 * 1024,
				Installed: "2025-06-07T08:09:10Z", Manager: "dpkg",
			}},
		}))
	})

	It("skips packages installed before the feature epoch", func(ctx context.Context) {
		mnt := debianImage(busyboxInstalled, libcInstalled)
		env := &collector.Env{
			Controller:   Successful(controller.New(controller.OfflineImage, controller.Image{Mountpoint: mnt})),
			FeatureEpoch: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		fs := Successful(features(Packages{}.Collect(ctx, env)))
		Expect(fs).To(ConsistOf(HaveField("Key", "libc6")))
	})

	It("reports a broken dpkg database", func(ctx context.Context) {
		mnt := GinkgoT().TempDir()
		Expect(os.MkdirAll(filepath.Join(mnt, DpkgDB), 0o755)).To(Succeed())
		env := &collector.Env{Controller: Successful(controller.New(controller.OfflineImage, controller.Image{Mountpoint: mnt}))}
		_, err := features(Packages{}.Collect(ctx, env))
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
	})

	It("yields nothing without a package manager", func(ctx context.Context) {
		env := &collector.Env{Controller: Successful(controller.New(controller.OfflineImage,
			controller.Image{Mountpoint: GinkgoT().TempDir()}))}
		Expect(features(Packages{}.Collect(ctx, env))).To(BeEmpty())
	})

	Context("rpm", func() {

		It("parses query output", func() {
			var pkgs []feature.Package
			for pkg, err := range parseRpmQuery(bufio.NewScanner(strings.NewReader(
				"bash|5.2.26-3.fc40|8120000|1704164645\n\ngpg-pubkey|abc-def|0|(none)\n"))) {
				Expect(err).NotTo(HaveOccurred())
				pkgs = append(pkgs, pkg)
			}
			Expect(pkgs).To(HaveExactElements(
				MatchAllFields(Fields{
					"Name":      Equal("bash"),
					"Version":   Equal("5.2.26-3.fc40"),
					"Size":      Equal(int64(8120000)),
					"Installed": Equal("2024-01-02T03:04:05Z"),
					"Manager":   Equal("rpm"),
				}),
				And(HaveField("Name", "gpg-pubkey"), HaveField("Installed", feature.Unsupported)),
			))
		})

		It("rejects malformed query output", func() {
			var err error
			for _, err = range parseRpmQuery(bufio.NewScanner(strings.NewReader("bash|5.2\n"))) {
			}
			Expect(err).To(MatchError(ContainSubstring("malformed rpm query output")))
		})

		It("runs rpm against the image root and database", func(ctx context.Context) {
			mnt := GinkgoT().TempDir()
			Expect(os.MkdirAll(filepath.Join(mnt, RpmDB), 0o755)).To(Succeed())
			argsfile := filepath.Join(GinkgoT().TempDir(), "args")
			fakerpm := filepath.Join(GinkgoT().TempDir(), "rpm")
			Expect(os.WriteFile(fakerpm, []byte(`#!/bin/sh
echo "$@" > `+argsfile+`
echo 'bash|5.2.26-3.fc40|8120000|1704164645'
`), 0o755)).To(Succeed())
			oldrpm := rpmCommand
			rpmCommand = fakerpm
			DeferCleanup(func() { rpmCommand = oldrpm })

			env := &collector.Env{Controller: Successful(controller.New(controller.OfflineImage, controller.Image{Mountpoint: mnt}))}
			fs := Successful(features(Packages{}.Collect(ctx, env)))
			Expect(fs).To(ConsistOf(HaveField("Key", "bash")))
			Expect(string(Successful(os.ReadFile(argsfile)))).To(HavePrefix("--root " + mnt + " --dbpath " + RpmDB + " -qa"))
		})

		It("reports failing rpm queries", func(ctx context.Context) {
			oldrpm := rpmCommand
			rpmCommand = "/nonexisting/rpm"
			DeferCleanup(func() { rpmCommand = oldrpm })
			var err error
			for _, err = range rpmPackages(ctx, controller.Scope{Mode: controller.Local, Root: "/"}, RpmDB) {
			}
			Expect(err).To(MatchError(ContainSubstring("rpm query failed")))
		})

	})

})
