// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package sandbox

import (
	"os"
	"path/filepath"

	"github.com/siemens/nscrawler/feature"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

func writeFrame(dir, name, content string) {
	GinkgoHelper()
	Expect(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)).To(Succeed())
}

var _ = Describe("harvesting result frames", func() {

	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("returns nothing for missing or empty directories", func() {
		Expect(Harvest(filepath.Join(dir, "nada"), false)).To(BeEmpty())
		Expect(Harvest(dir, false)).To(BeEmpty())
	})

	It("consumes a single frame end-to-end", func() {
		writeFrame(dir, "1", `metric cpu-0 {"idle": 97.5}`+"\n")
		Expect(Harvest(dir, false)).To(ConsistOf(feature.Feature{
			Key:   "cpu-0",
			Type:  "metric",
			Value: map[string]any{"idle": 97.5},
		}))
		Expect(os.ReadDir(dir)).To(BeEmpty())
	})

	It("consumes frames one at a time in sequence order, never twice", func() {
		writeFrame(dir, "3", "metric c 3\n")
		writeFrame(dir, "1", "metric a 1\n\nmetric a2 {'x': [1]}\n")
		writeFrame(dir, "2", "metric b 2\n")

		Expect(Harvest(dir, false)).To(Equal([]feature.Feature{
			{Key: "a", Type: "metric", Value: 1},
			{Key: "a2", Type: "metric", Value: map[string]any{"x": []any{1}}},
		}))
		Expect(filepath.Join(dir, "1")).NotTo(BeAnExistingFile())
		Expect(Harvest(dir, false)).To(ConsistOf(HaveField("Key", "b")))
		Expect(Harvest(dir, false)).To(ConsistOf(HaveField("Key", "c")))
		Expect(Harvest(dir, false)).To(BeEmpty())
	})

	It("orders frames numerically and ignores non-frame entries", func() {
		writeFrame(dir, "10", "metric ten 10\n")
		writeFrame(dir, "9", "metric nine 9\n")
		writeFrame(dir, "foo", "not a frame\n")
		writeFrame(dir, ".1", "not a frame either\n")
		Expect(os.Mkdir(filepath.Join(dir, "0"), 0o755)).To(Succeed())

		Expect(Harvest(dir, false)).To(ConsistOf(HaveField("Key", "nine")))
		Expect(Harvest(dir, false)).To(ConsistOf(HaveField("Key", "ten")))
		Expect(Harvest(dir, false)).To(BeEmpty())
		Expect(filepath.Join(dir, "foo")).To(BeAnExistingFile())
	})

	It("leaves the newest frame of a running companion alone", func() {
		writeFrame(dir, "9", "metric nine 9\n")
		Expect(Harvest(dir, true)).To(BeEmpty())
		Expect(filepath.Join(dir, "9")).To(BeAnExistingFile())

		// a frame still being written
		writeFrame(dir, "10", "metric ten {'incompl")
		Expect(Harvest(dir, true)).To(ConsistOf(HaveField("Key", "nine")))
		Expect(Harvest(dir, true)).To(BeEmpty())
		Expect(filepath.Join(dir, "10")).To(BeAnExistingFile())

		writeFrame(dir, "10", "metric ten {'complete': True}\n")
		writeFrame(dir, "11", "metric eleven 11\n")
		Expect(Harvest(dir, true)).To(ConsistOf(feature.Feature{
			Key: "ten", Type: "metric", Value: map[string]any{"complete": true}}))
		Expect(Harvest(dir, true)).To(BeEmpty())
		Expect(Harvest(dir, false)).To(ConsistOf(HaveField("Key", "eleven")))
	})

	It("neither skips nor deletes a malformed frame", func() {
		writeFrame(dir, "1", "metric ok 1\nmetric broken\n")
		writeFrame(dir, "2", "metric b 2\n")

		for range 2 {
			features, err := Harvest(dir, false)
			Expect(features).To(BeEmpty())
			var herr *HarvestError
			Expect(err).To(BeAssignableToTypeOf(herr))
			herr = err.(*HarvestError)
			Expect(herr.Line).To(Equal(2))
			Expect(herr.Frame).To(Equal(filepath.Join(dir, "1")))
		}
		Expect(filepath.Join(dir, "1")).To(BeAnExistingFile())
		Expect(filepath.Join(dir, "2")).To(BeAnExistingFile())
	})

	It("rejects unsafe value literals", func() {
		writeFrame(dir, "1", "metric evil !python/object:os.system ls\n")
		_, err := Harvest(dir, false)
		Expect(err).To(MatchError(ContainSubstring("not allowed")))
	})

	It("splits only type and key off a line", func() {
		f := Successful(parseFeatureLine("config\t/etc/motd   {'content': 'hello world'}"))
		Expect(f).To(Equal(feature.Feature{
			Key:   "/etc/motd",
			Type:  "config",
			Value: map[string]any{"content": "hello world"},
		}))
	})

})
