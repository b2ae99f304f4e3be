// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package containerd

import (
	"context"
	"os"
	"time"

	"github.com/siemens/nscrawler/engine"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

const containerdSocket = "/run/containerd/containerd.sock"

var _ = Describe("containerd runtime", func() {

	It("rejects a dud endpoint", NodeTimeout(30*time.Second), func(ctx context.Context) {
		_, err := New(ctx, "/nowhere/containerd.sock", "")
		Expect(err).To(HaveOccurred())
	})

	It("lists containers read-only", NodeTimeout(30*time.Second), func(ctx context.Context) {
		if os.Getuid() != 0 {
			Skip("needs root")
		}
		if _, err := os.Stat(containerdSocket); err != nil {
			Skip("needs containerd")
		}
		rt := Successful(New(ctx, containerdSocket, "moby"))
		defer rt.Close()
		Expect(rt.Type()).To(Equal(Type))
		Expect(rt.Namespace()).To(Equal("moby"))

		infos := Successful(rt.Containers(ctx))
		for _, info := range infos {
			Expect(info.ID).NotTo(BeEmpty())
			if info.Running() {
				Expect(rt.RootfsPath(ctx, info.ID)).To(BeADirectory())
			}
		}

		_, err := rt.Create(ctx, engine.CompanionSpec{Name: "foo"})
		Expect(err).To(MatchError(engine.ErrNotSupported))
		Expect(rt.Remove(ctx, "foo")).To(MatchError(engine.ErrNotSupported))
	})

})
