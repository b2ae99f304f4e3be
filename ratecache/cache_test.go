// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package ratecache

import (
	"strings"
	"sync"
	"time"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// clock is a manually advanced clock.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ = ginkgo.Describe("rate metric cache", func() {

	var clk *clock
	var cache *Cache

	ginkgo.BeforeEach(func() {
		clk = &clock{now: time.Unix(1700000000, 0)}
		cache = New(WithClock(clk.Now))
	})

	ginkgo.It("misses fresh keys", func() {
		e, ok := cache.Get("foo")
		Expect(ok).To(BeFalse())
		Expect(e).To(BeZero())
	})

	ginkgo.It("returns what was put", func() {
		s := Snapshot{1, 2, 3}
		cache.Put("foo", s)
		s[0] = 42
		e, ok := cache.Get("foo")
		Expect(ok).To(BeTrue())
		Expect(e.Snapshot).To(Equal(Snapshot{1, 2, 3}))
		Expect(e.ObservedAt).To(Equal(clk.Now()))

		clk.Advance(time.Second)
		cache.Put("foo", Snapshot{4})
		e, _ = cache.Get("foo")
		Expect(e.Snapshot).To(Equal(Snapshot{4}))
		Expect(cache.Len()).To(Equal(1))

		cache.Delete("foo")
		_, ok = cache.Get("foo")
		Expect(ok).To(BeFalse())
	})

	ginkgo.It("derives rates", func() {
		cache.Put("foo", Snapshot{100, 1000})
		prev, _ := cache.Get("foo")
		clk.Advance(2500 * time.Millisecond)
		rates, err := Rates(prev, Snapshot{200, 1500}, clk.Now())
		Expect(err).NotTo(HaveOccurred())
		Expect(rates).To(HaveLen(2))
		Expect(rates[0]).To(BeNumerically("~", 40, 1e-9))
		Expect(rates[1]).To(BeNumerically("~", 200, 1e-9))
	})

	ginkgo.It("doesn't divide by zero", func() {
		cache.Put("foo", Snapshot{100})
		prev, _ := cache.Get("foo")
		Expect(Rates(prev, Snapshot{200}, clk.Now())).Error().To(MatchError(ErrNoElapsedTime))
		Expect(Rates(prev, Snapshot{200}, clk.Now().Add(-time.Second))).Error().To(MatchError(ErrNoElapsedTime))
		Expect(Rates(prev, Snapshot{200, 300}, clk.Now().Add(time.Second))).Error().To(HaveOccurred())
	})

	ginkgo.It("observes zero rates first, then actual rates", func() {
		Expect(Observe(cache, "bar", Snapshot{10, 20})).To(Equal(Snapshot{0, 0}))
		clk.Advance(time.Second)
		Expect(Observe(cache, "bar", Snapshot{15, 30})).To(Equal(Snapshot{5, 10}))
		Expect(Observe(cache, "bar", Snapshot{15, 30})).To(Equal(Snapshot{0, 0}))
		e, _ := cache.Get("bar")
		Expect(e.Snapshot).To(Equal(Snapshot{15, 30}))
	})

	ginkgo.It("evicts only what it's told to", func() {
		cache.Put("a-1", Snapshot{1})
		cache.Put("a-2", Snapshot{2})
		cache.Put("b-1", Snapshot{3})
		Expect(cache.Evict(func(key string, _ Entry) bool {
			return strings.HasPrefix(key, "a-")
		})).To(Equal(2))
		Expect(cache.Len()).To(Equal(1))
		_, ok := cache.Get("b-1")
		Expect(ok).To(BeTrue())
	})

	ginkgo.It("survives concurrent writers on distinct keys", func() {
		var wg sync.WaitGroup
		for g := range 8 {
			wg.Add(1)
			go func() {
				defer ginkgo.GinkgoRecover()
				defer wg.Done()
				for i := range 1000 {
					cache.Put(strings.Repeat("k", g+1), Snapshot{float64(i)})
				}
			}()
		}
		wg.Wait()
		Expect(cache.Len()).To(Equal(8))
	})

})
