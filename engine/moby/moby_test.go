// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package moby

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/siemens/nscrawler/engine"
	"github.com/thediveo/morbyd"
	"github.com/thediveo/morbyd/run"
	"github.com/thediveo/morbyd/session"
	"github.com/thediveo/morbyd/timestamper"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/fdooze"
	. "github.com/thediveo/success"
)

const guestName = "nscrawler-moby-guest"
const companionName = "nscrawler-moby-companion"

var _ = Describe("Docker runtime", Serial, Ordered, func() {

	var sess *morbyd.Session
	var guest *morbyd.Container

	BeforeAll(func(ctx context.Context) {
		if os.Getuid() != 0 {
			Skip("needs root")
		}
		sess = Successful(morbyd.NewSession(ctx,
			session.WithAutoCleaning("test.nscrawler=engine.moby")))
		DeferCleanup(func(ctx context.Context) {
			sess.Close(ctx)
		})
		guest = Successful(sess.Run(ctx, "busybox",
			run.WithName(guestName),
			run.WithAutoRemove(),
			run.WithCommand("/bin/sh", "-c", "while true; do sleep 1; done"),
			run.WithCombinedOutput(timestamper.New(GinkgoWriter))))
	})

	BeforeEach(func() {
		goodfds := Filedescriptors()
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(goroutinesUnwindTimeout).WithPolling(goroutinesUnwindPolling).
				ShouldNot(HaveLeaked(goodgos))
			Expect(Filedescriptors()).NotTo(HaveLeakedFds(goodfds))
		})
	})

	It("inspects a running container", NodeTimeout(30*time.Second), func(ctx context.Context) {
		rt := Successful(New(""))
		defer rt.Close()
		Expect(rt.Type()).To(Equal(Type))

		info := Successful(rt.Inspect(ctx, guest.ID))
		Expect(info.Name).To(Equal(guestName))
		Expect(info.Running()).To(BeTrue())
		Expect(info.PID).To(BeEquivalentTo(Successful(guest.PID(ctx))))
		Expect(info.Labels).To(HaveKeyWithValue("test.nscrawler", "engine.moby"))
		Expect(info.Command).To(HaveExactElements("/bin/sh", "-c", "while true; do sleep 1; done"))
		Expect(info.Created).To(BeTemporally("~", time.Now(), time.Minute))

		imageID, layers := Successful2R(rt.History(ctx, guest.ID))
		Expect(imageID).To(HavePrefix("sha256:"))
		Expect(layers).NotTo(BeEmpty())
		Expect(layers).To(ContainElement(HaveField("CreatedBy", Not(BeEmpty()))))

		Expect(rt.Containers(ctx)).To(ContainElement(HaveField("ID", guest.ID)))
		Expect(rt.RootfsPath(ctx, guest.ID)).To(BeADirectory())

		_, err := rt.Inspect(ctx, "nscrawler-no-such-container")
		Expect(err).To(HaveOccurred())
	})

	It("creates a companion sharing the guest's namespaces", NodeTimeout(60*time.Second), func(ctx context.Context) {
		rt := Successful(New(""))
		defer rt.Close()

		frames := GinkgoT().TempDir()
		companion := Successful(rt.Create(ctx, engine.CompanionSpec{
			Name:    companionName,
			Image:   "busybox",
			Command: []string{"/bin/sh", "-c", "while true; do sleep 1; done"},
			User:    "nobody",
			GuestID: guest.ID,
			Binds:   []engine.Bind{{Source: frames, Target: "/frames"}},
			Labels:  map[string]string{"test.nscrawler": "engine.moby"},
		}))
		defer func() {
			Expect(rt.Remove(context.WithoutCancel(ctx), companion.ID)).To(Succeed())
		}()
		Expect(companion.Running()).To(BeTrue())

		guestpid := Successful(guest.PID(ctx))
		for _, ns := range []string{"pid", "net"} {
			Expect(os.Readlink(fmt.Sprintf("/proc/%d/ns/%s", companion.PID, ns))).To(
				Equal(Successful(os.Readlink(fmt.Sprintf("/proc/%d/ns/%s", guestpid, ns)))))
		}
		Expect(os.Readlink(fmt.Sprintf("/proc/%d/ns/mnt", companion.PID))).NotTo(
			Equal(Successful(os.Readlink(fmt.Sprintf("/proc/%d/ns/mnt", guestpid)))))

		Expect(rt.Remove(ctx, companion.ID)).To(Succeed())
		Expect(rt.Remove(ctx, companion.ID)).To(Succeed(), "removing twice")
	})

})
