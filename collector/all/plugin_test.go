// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package all

import (
	"github.com/siemens/nscrawler/collector"
	"github.com/thediveo/go-plugger/v3"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("collector plugins", func() {

	It("has all the feature collector plugins registered", func() {
		Expect(plugger.Group[collector.Collector]().Plugins()).To(ConsistOf(
			"os", "load", "process", "package", "file", "config",
			"cpu", "memory", "interface", "dockerinspect",
			"disk", "metric", "connection", "dockerps", "dockerhistory",
		))
		Expect(collector.Names()).To(HaveLen(15))
	})

	It("looks up collectors in the order asked for", func() {
		cs, err := collector.Lookup("memory", "os")
		Expect(err).NotTo(HaveOccurred())
		Expect(cs).To(HaveLen(2))
		Expect(cs[0].Name()).To(Equal("memory"))
		Expect(cs[1].Name()).To(Equal("os"))

		Expect(collector.Lookup("os", "nada")).Error().To(MatchError(ContainSubstring(`"nada"`)))
	})

})
