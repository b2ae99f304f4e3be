// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nsexec

import (
	"context"
	"errors"
	"iter"
	"os"
	"strconv"
	"time"

	"github.com/siemens/nscrawler/feature"
	"github.com/thediveo/lxkns/model"
	"github.com/thediveo/lxkns/species"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/fdooze"
)

type countArgs struct {
	N int
}

type hostinfo struct {
	Hostname string
	PID      int
}

func init() {
	Register[countArgs, int]("test-count", func(ctx context.Context, args countArgs, yield func(string, int) bool) error {
		for i := range args.N {
			if !yield("item-"+strconv.Itoa(i), i) {
				return nil
			}
		}
		return nil
	})
	Register[struct{}, hostinfo]("test-hostinfo", func(ctx context.Context, _ struct{}, yield func(string, hostinfo) bool) error {
		hostname, err := os.Hostname()
		if err != nil {
			return err
		}
		yield("host", hostinfo{Hostname: hostname, PID: os.Getppid()})
		return nil
	})
	Register[struct{}, string]("test-fail", func(ctx context.Context, _ struct{}, yield func(string, string) bool) error {
		if !yield("before", "failure") {
			return nil
		}
		return errors.New("oops")
	})
	Register[struct{}, string]("test-panic", func(ctx context.Context, _ struct{}, yield func(string, string) bool) error {
		panic("boom")
	})
	Register[struct{}, string]("test-exit", func(ctx context.Context, _ struct{}, yield func(string, string) bool) error {
		yield("last", "words")
		os.Exit(42)
		return nil
	})
	Register[struct{}, string]("test-hang", func(ctx context.Context, _ struct{}, yield func(string, string) bool) error {
		yield("first", "and only")
		time.Sleep(time.Hour)
		return nil
	})
}

func collect[V any](seq iter.Seq2[feature.Pair[V], error]) (pairs []feature.Pair[V], err error) {
	for pair, err := range seq {
		if err != nil {
			return pairs, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

var _ = Describe("executing actions", func() {

	BeforeEach(func() {
		goodfds := Filedescriptors()
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(goroutinesUnwindTimeout).WithPolling(goroutinesUnwindPolling).
				ShouldNot(HaveLeaked(goodgos))
			Expect(Filedescriptors()).NotTo(HaveLeakedFds(goodfds))
		})
	})

	It("rejects registering the same action twice", func() {
		Expect(func() {
			Register[countArgs, int]("test-count", func(context.Context, countArgs, func(string, int) bool) error { return nil })
		}).To(PanicWith(ContainSubstring("already registered")))
		Expect(Registered("test-count")).To(BeTrue())
		Expect(Registered("test-nonexisting")).To(BeFalse())
	})

	It("tells gons to join the mount namespace first", func() {
		env, err := namespaceEnv(42, []species.NamespaceType{species.CLONE_NEWNET, species.CLONE_NEWNS, species.CLONE_NEWUTS})
		Expect(err).NotTo(HaveOccurred())
		Expect(env).To(Equal([]string{
			"gons_mnt=/proc/42/ns/mnt",
			"gons_net=/proc/42/ns/net",
			"gons_uts=/proc/42/ns/uts",
			"gons_order=!mnt,!net,!uts",
		}))
		Expect(namespaceEnv(42, []species.NamespaceType{species.CLONE_NEWUTS, species.CLONE_NEWIPC})).To(
			HaveExactElements(
				"gons_uts=/proc/42/ns/uts",
				"gons_ipc=/proc/42/ns/ipc",
				"gons_order=!uts,!ipc"))
		Expect(namespaceEnv(42, nil)).To(BeEmpty())
		Expect(namespaceEnv(42, []species.NamespaceType{species.CLONE_NEWUSER})).Error().To(
			BeAssignableToTypeOf(&UnsupportedNamespaceError{}))
	})

	It("reports unknown actions", func(ctx context.Context) {
		_, err := collect(Execute[struct{}, string](ctx, model.PIDType(os.Getpid()), nil, "test-nonexisting", struct{}{}))
		Expect(err).To(BeAssignableToTypeOf(&UnknownActionError{}))
		_, err = collect(Call[struct{}, string](ctx, "test-nonexisting", struct{}{}))
		Expect(err).To(BeAssignableToTypeOf(&UnknownActionError{}))
	})

	It("streams the same results in the same order as a direct call", func(ctx context.Context) {
		direct, err := collect(Call[countArgs, int](ctx, "test-count", countArgs{N: 100}))
		Expect(err).NotTo(HaveOccurred())
		Expect(direct).To(HaveLen(100))
		execd, err := collect(Execute[countArgs, int](ctx, model.PIDType(os.Getpid()), nil, "test-count", countArgs{N: 100}))
		Expect(err).NotTo(HaveOccurred())
		Expect(execd).To(Equal(direct))
	})

	It("runs in the namespaces of its own process just as a direct call", func(ctx context.Context) {
		if os.Getuid() != 0 {
			Skip("needs root")
		}
		direct, err := collect(Call[struct{}, hostinfo](ctx, "test-hostinfo", struct{}{}))
		Expect(err).NotTo(HaveOccurred())
		execd, err := collect(Execute[struct{}, hostinfo](ctx, model.PIDType(os.Getpid()), AllNamespaces, "test-hostinfo", struct{}{}))
		Expect(err).NotTo(HaveOccurred())
		Expect(execd).To(HaveLen(1))
		Expect(execd[0].Value.Hostname).To(Equal(direct[0].Value.Hostname))
		Expect(execd[0].Value.PID).To(Equal(os.Getpid()))
	})

	It("passes on the error of a failing action after its results", func(ctx context.Context) {
		pairs, err := collect(Execute[struct{}, string](ctx, model.PIDType(os.Getpid()), nil, "test-fail", struct{}{}))
		Expect(pairs).To(ConsistOf(feature.Pair[string]{Key: "before", Value: "failure"}))
		var execerr *ExecutionError
		Expect(errors.As(err, &execerr)).To(BeTrue())
		Expect(execerr.Reason).To(Equal("oops"))
		Expect(execerr.Action).To(Equal("test-fail"))
	})

	It("turns a panicking action into an error", func(ctx context.Context) {
		_, err := collect(Execute[struct{}, string](ctx, model.PIDType(os.Getpid()), nil, "test-panic", struct{}{}))
		Expect(err).To(MatchError(ContainSubstring("panic: boom")))
	})

	It("reports a child terminating without completion", func(ctx context.Context) {
		pairs, err := collect(Execute[struct{}, string](ctx, model.PIDType(os.Getpid()), nil, "test-exit", struct{}{}))
		Expect(pairs).To(ConsistOf(feature.Pair[string]{Key: "last", Value: "words"}))
		var execerr *ExecutionError
		Expect(errors.As(err, &execerr)).To(BeTrue())
		Expect(execerr.ExitCode).To(Equal(42))
		Expect(execerr.Reason).To(BeEmpty())
	})

	It("kills the child when the context gets cancelled", func(ctx context.Context) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		start := time.Now()
		var items int
		var err error
		for _, err = range Execute[struct{}, string](ctx, model.PIDType(os.Getpid()), nil, "test-hang", struct{}{}) {
			if err != nil {
				break
			}
			items++
			cancel()
		}
		Expect(items).To(Equal(1))
		Expect(err).To(MatchError(context.Canceled))
		Expect(time.Since(start)).To(BeNumerically("<", 10*time.Second))
	})

	It("kills the child when the consumer stops early", func(ctx context.Context) {
		var items int
		for _, err := range Execute[countArgs, int](ctx, model.PIDType(os.Getpid()), nil, "test-count", countArgs{N: 1_000_000}) {
			Expect(err).NotTo(HaveOccurred())
			items++
			if items == 10 {
				break
			}
		}
		Expect(items).To(Equal(10))
	})

})
