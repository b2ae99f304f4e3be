// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package test

import (
	"bytes"
	"sync"

	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo/v2"
)

// LogToGinkgo sends the log output of the current spec to Ginkgo, which shows
// it only for failing specs. Additionally, GinkgoWriter gets wrapped to
// implement [fmt.Stringer], so specs can check the log output accumulated so
// far.
//
//	BeforeEach(test.LogToGinkgo)
//
//	Eventually(GinkgoWriter.(fmt.Stringer).String).Should(...)
func LogToGinkgo() {
	std := logrus.StandardLogger()
	out, formatter, level := std.Out, std.Formatter, std.GetLevel()
	gw := GinkgoWriter
	GinkgoWriter = &capture{GinkgoWriterInterface: gw}
	std.Out = GinkgoWriter
	std.Formatter = &logrus.TextFormatter{
		TimestampFormat: "15:04:05.000",
		FullTimestamp:   true,
	}
	if level < logrus.DebugLevel {
		std.SetLevel(logrus.DebugLevel)
	}
	DeferCleanup(func() {
		GinkgoWriter = gw
		std.Out = out
		std.Formatter = formatter
		std.SetLevel(level)
	})
}

// capture is a GinkgoWriter keeping a copy of everything written, safe for
// concurrent use.
type capture struct {
	GinkgoWriterInterface
	mu  sync.Mutex
	log bytes.Buffer
}

func (c *capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.GinkgoWriterInterface.Write(p)
	return c.log.Write(p)
}

func (c *capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.String()
}
