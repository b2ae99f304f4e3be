// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package files

import (
	"context"
	"iter"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
	"github.com/thediveo/lxkns/log"
	"golang.org/x/sys/unix"
)

const configAction = "files-config"

// MaxConfigSize is the size limit of discovered config files.
const MaxConfigSize = 200 * 1024

// configExtensions are the file name extensions of discovered config files.
var configExtensions = []string{
	".xml", ".ini", ".properties", ".conf", ".cnf", ".cfg", ".cf", ".config",
	".allow", ".deny", ".lst",
}

// Config collects the contents of configuration files.
type Config struct{}

type configArgs struct {
	Walk     walkArgs
	Known    []string
	Discover bool
}

func init() {
	controller.Register[configArgs, feature.Config](configAction, collectConfigs)
	collector.Register(Config{})
}

// Name returns "config".
func (Config) Name() string { return feature.TypeConfig }

// Collect the contents of the known config files, given as absolute paths, and, if enabled, of config
// files discovered by name and size, keyed by their paths. Contents are
// reported as UTF-8 with invalid sequences dropped.
func (Config) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	a := configArgs{
		Walk:     newWalkArgs(env),
		Known:    env.Options.KnownConfigs,
		Discover: env.Options.DiscoverConfigs,
	}
	return collector.Tag(feature.TypeConfig,
		collector.Run[configArgs, feature.Config](ctx, env, collector.MountNamespace, configAction, a))
}

func collectConfigs(_ context.Context, scope controller.Scope, a configArgs, yield func(string, feature.Config) bool) error {
	if scope.Mode != controller.Local && scope.Mode != controller.OfflineImage {
		return &controller.UnsupportedModeError{Mode: scope.Mode, Operation: "collecting config files"}
	}
	w := newWalker(scope, a.Walk.Exclude)
	found := map[string]bool{}
	for _, known := range a.Known {
		p := targetPath(known)
		if w.excluded(p) {
			continue
		}
		e, err := w.lstat(p)
		if err != nil || !e.newer(a.Walk.Since) {
			continue
		}
		found[p] = true
	}
	if a.Discover {
		w.walk(a.Walk.Root, func(e entry) bool {
			if isConfigFile(e) && e.newer(a.Walk.Since) {
				found[e.path] = true
			}
			return true
		})
	}
	paths := make([]string, 0, len(found))
	for p := range found {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		hostpath, err := scope.Path(p)
		if err != nil {
			log.Warnf("cannot resolve config file %s, reason: %s", p, err.Error())
			continue
		}
		content, err := os.ReadFile(hostpath)
		if err != nil {
			log.Warnf("cannot read config file %s, reason: %s", p, err.Error())
			continue
		}
		if !yield(p, feature.Config{
			Name:    path.Base(p),
			Content: strings.ToValidUTF8(string(content), ""),
			Path:    p,
		}) {
			return nil
		}
	}
	return nil
}

// isConfigFile returns true for regular files with a config file extension,
// not exceeding MaxConfigSize.
func isConfigFile(e entry) bool {
	return e.stat.Mode&unix.S_IFMT == unix.S_IFREG &&
		e.stat.Size <= MaxConfigSize &&
		slices.Contains(configExtensions, path.Ext(e.path))
}
