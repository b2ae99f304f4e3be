// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package guests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	cdclient "github.com/containerd/containerd"
	"github.com/siemens/nscrawler/engine"
	"github.com/siemens/nscrawler/engine/moby"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/model"
	cdengine "github.com/thediveo/whalewatcher/engineclient/containerd"
	criengine "github.com/thediveo/whalewatcher/engineclient/cri"
	"github.com/thediveo/whalewatcher/watcher"
	cdwatcher "github.com/thediveo/whalewatcher/watcher/containerd"
	criwatcher "github.com/thediveo/whalewatcher/watcher/cri"
	mobywatcher "github.com/thediveo/whalewatcher/watcher/moby"
	"golang.org/x/exp/slices"
	runtime "k8s.io/cri-api/pkg/apis/runtime/v1"
)

const versionTimeout = 5 * time.Second

// Source watches container engines for guest containers. It can be safely
// used from multiple goroutines.
type Source struct {
	procfs   string
	maxwait  time.Duration
	creators []creator

	mu       sync.Mutex
	watchers []watcher.Watcher
}

// creator creates a watcher for a particular API endpoint, probing the
// endpoint where the engine client wouldn't notice a dud endpoint by itself.
type creator func(ctx context.Context) (watcher.Watcher, error)

// Option configures a [Source].
type Option func(*Source)

// WithDockerAPI adds the Docker engine at the specified API endpoint URL; an
// empty URL uses the DOCKER_HOST et al. environment variables.
func WithDockerAPI(apiurl string) Option {
	return func(s *Source) {
		s.creators = append(s.creators, func(context.Context) (watcher.Watcher, error) {
			return mobywatcher.New(apiurl, nil)
		})
	}
}

// WithContainerdAPI adds the containerd engine at the specified API socket
// path.
func WithContainerdAPI(apipath string) Option {
	return func(s *Source) {
		s.creators = append(s.creators, func(ctx context.Context) (watcher.Watcher, error) {
			w, err := cdwatcher.New(apipath, nil, cdengine.WithPID(0))
			if err != nil {
				return nil, err
			}
			versionctx, cancel := context.WithTimeout(ctx, versionTimeout)
			defer cancel()
			if _, err := w.Client().(*cdclient.Client).Version(versionctx); err != nil {
				w.Close()
				return nil, err
			}
			return w, nil
		})
	}
}

// WithCRIAPI adds the CRI-compatible engine at the specified API socket path.
func WithCRIAPI(apipath string) Option {
	return func(s *Source) {
		s.creators = append(s.creators, func(ctx context.Context) (watcher.Watcher, error) {
			w, err := criwatcher.New(apipath, nil, criengine.WithPID(0))
			if err != nil {
				return nil, err
			}
			versionctx, cancel := context.WithTimeout(ctx, versionTimeout)
			defer cancel()
			_, err = w.Client().(*criengine.Client).RuntimeService().
				Version(versionctx, &runtime.VersionRequest{Version: "0.1.0"})
			if err != nil {
				w.Close()
				return nil, err
			}
			return w, nil
		})
	}
}

// WithSyncWait sets the maximum duration to wait for each engine watch to
// synchronize before New returns; defaults to 2s.
func WithSyncWait(d time.Duration) Option {
	return func(s *Source) {
		s.maxwait = d
	}
}

// WithProcfs sets the proc file system used for discovering Docker engines
// when no API endpoint has been specified; defaults to "/proc".
func WithProcfs(procfs string) Option {
	return func(s *Source) {
		s.procfs = procfs
	}
}

// New returns a Source watching the configured container engines as long as
// the passed context is alive or until closed. Engines whose endpoints do not
// respond are skipped; New fails only when not a single engine could be
// watched.
func New(ctx context.Context, opts ...Option) (*Source, error) {
	s := &Source{
		procfs:  "/proc",
		maxwait: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.creators) == 0 {
		for _, apiurl := range moby.DiscoverEndpoints(s.procfs) {
			log.Debugf("discovered Docker API endpoint %s", apiurl)
			WithDockerAPI(apiurl)(s)
		}
	}
	var errs []error
	for _, create := range s.creators {
		w, err := create(ctx)
		if err != nil {
			log.Warnf("cannot watch container engine, reason: %s", err.Error())
			errs = append(errs, err)
			continue
		}
		s.watchers = append(s.watchers, w)
	}
	if len(s.watchers) == 0 {
		if len(errs) == 0 {
			return nil, errors.New("no container engine to watch")
		}
		return nil, fmt.Errorf("no container engine to watch, reason: %w", errors.Join(errs...))
	}
	var wg sync.WaitGroup
	wg.Add(len(s.watchers))
	for _, w := range s.watchers {
		go func(w watcher.Watcher) {
			defer wg.Done()
			startWatch(ctx, w, s.maxwait)
		}(w)
	}
	wg.Wait()
	return s, nil
}

// Guests returns the running guest containers of all watched engines, sorted
// by engine type and container name. Companion containers are skipped.
func (s *Source) Guests() []Guest {
	s.mu.Lock()
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()
	guests := []Guest{}
	for _, w := range watchers {
		portfolio := w.Portfolio()
		for _, projectname := range portfolio.Names() {
			project := portfolio.Project(projectname)
			if project == nil {
				continue
			}
			for _, cntr := range project.Containers() {
				if cntr.PID == 0 {
					continue
				}
				if _, ok := cntr.Labels[engine.CompanionLabel]; ok {
					continue
				}
				guests = append(guests, Guest{
					ID:      cntr.ID,
					Name:    cntr.Name,
					PID:     model.PIDType(cntr.PID),
					Engine:  w.Type(),
					Project: cntr.Project,
					Paused:  cntr.Paused,
					Labels:  cntr.Labels,
				})
			}
		}
	}
	sort.Slice(guests, func(i, j int) bool {
		if guests[i].Engine != guests[j].Engine {
			return guests[i].Engine < guests[j].Engine
		}
		return guests[i].Name < guests[j].Name
	})
	return guests
}

// Engines returns the number of container engines under watch.
func (s *Source) Engines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// Close stops watching all container engines.
func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchers {
		w.Close()
	}
	s.watchers = nil
}
