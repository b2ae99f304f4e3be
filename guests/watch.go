// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package guests

import (
	"context"
	"time"

	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/whalewatcher/watcher"
)

// startWatch starts the watch on the specified watcher in the background and
// then waits at most maxwait for the watcher to synchronize with the engine's
// workload. The watch continues after startWatch returned until the passed
// context gets cancelled or the watcher closed. Watch errors are only logged.
func startWatch(ctx context.Context, w watcher.Watcher, maxwait time.Duration) {
	log.Infof("beginning synchronization to '%s' engine (PID %d) at API %s",
		w.Type(), w.PID(), w.API())
	go func() {
		err := w.Watch(ctx)
		if err == nil {
			return
		}
		log.Warnf("terminated watch for '%s' container engine (PID %d), reason: %s",
			w.Type(), w.PID(), err.Error())
	}()
	// The ready channel also closes on synchronization errors, so this
	// goroutine terminates for any outcome.
	go func() {
		<-w.Ready()
		idctx, idcancel := context.WithTimeout(ctx, 2*time.Second)
		defer idcancel()
		log.Infof("synchronized to '%s' container engine (PID %d) with ID '%s'",
			w.Type(), w.PID(), w.ID(idctx))
	}()
	wecker := time.NewTimer(maxwait)
	select {
	case <-w.Ready():
		if !wecker.Stop() {
			<-wecker.C
		}
	case <-wecker.C:
		log.Warnf("'%s' container engine (PID %d) not yet synchronized ... continuing in background",
			w.Type(), w.PID())
	}
}
