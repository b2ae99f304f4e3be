// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/sandbox"

	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

func configFile(content string) string {
	path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
	gomega.Expect(os.WriteFile(path, []byte(content), 0o644)).To(gomega.Succeed())
	return path
}

var _ = Describe("configuration", func() {

	It("returns the defaults for a missing file", func() {
		cfg := Successful(Load(filepath.Join(GinkgoT().TempDir(), "nothing.yaml")))
		gomega.Expect(cfg).To(gomega.Equal(Default()))
		gomega.Expect(cfg.Features).To(gomega.HaveExactElements("os", "cpu"))
		gomega.Expect(cfg.Collectors.Exclude).To(gomega.Equal(collector.DefaultExclude))
		gomega.Expect(cfg.Sandbox.User).To(gomega.Equal(sandbox.DefaultUser))
		gomega.Expect(cfg.Level()).To(gomega.Equal(logrus.InfoLevel))
		gomega.Expect(cfg.Epoch()).To(gomega.BeZero())
	})

	It("loads settings on top of the defaults", func() {
		cfg := Successful(Load(configFile(`
features: [os, package, file]
workers: 4
frequency: 90s
collector-timeout: 30s
feature-epoch: "2026-01-02T03:04:05Z"
log-level: debug
engines:
  docker: unix:///run/docker.sock
collectors:
  exclude: [/proc]
  known-configs: [/etc/passwd]
  avoid-namespaces: true
sandbox:
  enabled: true
  host-uid: 4242
  cgroup-root: /sys/fs/cgroup
`)))
		gomega.Expect(cfg.Features).To(gomega.HaveExactElements("os", "package", "file"))
		gomega.Expect(cfg.Workers).To(gomega.Equal(4))
		gomega.Expect(cfg.Frequency).To(gomega.Equal(90 * time.Second))
		gomega.Expect(cfg.CollectorTimeout).To(gomega.Equal(30 * time.Second))
		gomega.Expect(cfg.Level()).To(gomega.Equal(logrus.DebugLevel))
		gomega.Expect(cfg.Epoch()).To(gomega.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
		gomega.Expect(cfg.Engines.Docker).To(gomega.Equal("unix:///run/docker.sock"))
		gomega.Expect(cfg.Engines.Procfs).To(gomega.Equal("/proc"))

		opts := cfg.CollectorOptions()
		gomega.Expect(opts.Root).To(gomega.Equal("/"))
		gomega.Expect(opts.Exclude).To(gomega.HaveExactElements("/proc"))
		gomega.Expect(opts.KnownConfigs).To(gomega.HaveExactElements("/etc/passwd"))
		gomega.Expect(opts.AvoidNamespaces).To(gomega.BeTrue())

		gomega.Expect(cfg.Sandbox.Enabled).To(gomega.BeTrue())
		gomega.Expect(cfg.Sandbox.HostUID).To(gomega.Equal(4242))
		gomega.Expect(cfg.Sandbox.Image).To(gomega.Equal(sandbox.DefaultImage))
	})

	DescribeTable("rejects invalid settings",
		func(content string, reason string) {
			gomega.Expect(Load(configFile(content))).Error().To(gomega.MatchError(gomega.ContainSubstring(reason)))
		},
		Entry("garbage", "features: {", "cannot parse"),
		Entry("no features", "features: []", "no features"),
		Entry("negative workers", "workers: -1", "invalid number of workers"),
		Entry("negative frequency", "frequency: -1s", "invalid crawl frequency"),
		Entry("log level", "log-level: chatty", "invalid log level"),
		Entry("epoch", "feature-epoch: yesterday", "invalid feature epoch"),
		Entry("host uid", "sandbox: {enabled: true, host-uid: 0}", "invalid companion host user ID"),
	)

	It("returns sandbox options", func() {
		cfg := Default()
		cfg.Sandbox.SeccompProfile = "/etc/nscrawler/seccomp.json"
		gomega.Expect(cfg.SandboxOptions()).To(gomega.HaveLen(8))
	})

})
