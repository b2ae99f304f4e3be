// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package guests

import (
	"context"
	"fmt"
	"time"

	"github.com/siemens/nscrawler/internal/test"
	"github.com/thediveo/whalewatcher/watcher"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
)

const (
	watchSyncMaxWait  = 500 * time.Millisecond
	watchSlowSyncWait = watchSyncMaxWait + 500*time.Millisecond
)

// dawdlingWatcher becomes ready only after a while and then watches until
// its context gets cancelled. Anything else panics.
type dawdlingWatcher struct {
	watcher.Watcher
	ready chan struct{}
}

func newDawdlingWatcher(dawdle time.Duration) *dawdlingWatcher {
	w := &dawdlingWatcher{ready: make(chan struct{})}
	time.AfterFunc(dawdle, func() { close(w.ready) })
	return w
}

func (w *dawdlingWatcher) Type() string { return "fake.io" }
func (w *dawdlingWatcher) API() string { return "unix:///fake.sock" }
func (w *dawdlingWatcher) PID() int { return 42 }
func (w *dawdlingWatcher) ID(context.Context) string { return "FAKE" }
func (w *dawdlingWatcher) Ready() <-chan struct{} { return w.ready }
func (w *dawdlingWatcher) Watch(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

var _ = Describe("starting watches", Serial, func() {

	BeforeEach(test.LogToGinkgo)

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).Within(5 * time.Second).WithPolling(100 * time.Millisecond).
				ShouldNot(HaveLeaked(goodgos))
		})
	})

	It("returns as soon as synchronized and winds down on cancellation", func(ctx context.Context) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		w := newDawdlingWatcher(0)
		start := time.Now()
		startWatch(ctx, w, watchSyncMaxWait)
		Expect(time.Since(start)).To(BeNumerically("<", watchSyncMaxWait))
		Eventually(GinkgoWriter.(fmt.Stringer).String).Should(MatchRegexp(
			`beginning synchronization to 'fake.io' engine .*\n.*synchronized to 'fake.io' container engine .* with ID 'FAKE'`))
		cancel()
		Eventually(GinkgoWriter.(fmt.Stringer).String).Should(ContainSubstring("terminated watch"))
	})

	It("doesn't wait endlessly for synchronization", func(ctx context.Context) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		w := newDawdlingWatcher(watchSlowSyncWait)
		start := time.Now()
		startWatch(ctx, w, watchSyncMaxWait)
		Expect(time.Since(start)).To(And(
			BeNumerically(">=", watchSyncMaxWait),
			BeNumerically("<", watchSlowSyncWait)))
		Eventually(GinkgoWriter.(fmt.Stringer).String).Should(ContainSubstring(
			"'fake.io' container engine (PID 42) not yet synchronized"))
		Eventually(w.Ready()).Within(2 * watchSlowSyncWait).Should(BeClosed())
		cancel()
		Eventually(GinkgoWriter.(fmt.Stringer).String).Should(ContainSubstring("terminated watch"))
	})

})
