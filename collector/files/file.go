// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package files

import (
	"context"
	"iter"
	"os"
	"path"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
	"golang.org/x/sys/unix"
)

const fileAction = "files-file"

// File collects file system metadata.
type File struct{}

func init() {
	controller.Register[walkArgs, feature.File](fileAction, collectFiles)
	collector.Register(File{})
}

// Name returns "file".
func (File) Name() string { return feature.TypeFile }

// Collect the metadata of the file system objects of the target, keyed by
// their paths.
func (File) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	return collector.Tag(feature.TypeFile,
		collector.Run[walkArgs, feature.File](ctx, env, collector.MountNamespace, fileAction, newWalkArgs(env)))
}

// newWalkArgs returns the walk arguments for the options of env.
func newWalkArgs(env *collector.Env) walkArgs {
	a := walkArgs{
		Root:    env.Options.Root,
		Exclude: env.Options.Exclude,
	}
	if a.Root == "" {
		a.Root = "/"
	}
	if a.Exclude == nil {
		a.Exclude = collector.DefaultExclude
	}
	if !env.FeatureEpoch.IsZero() {
		a.Since = env.FeatureEpoch.Unix()
	}
	return a
}

func collectFiles(_ context.Context, scope controller.Scope, a walkArgs, yield func(string, feature.File) bool) error {
	if scope.Mode != controller.Local && scope.Mode != controller.OfflineImage {
		return &controller.UnsupportedModeError{Mode: scope.Mode, Operation: "collecting files"}
	}
	newWalker(scope, a.Exclude).walk(a.Root, func(e entry) bool {
		if !e.newer(a.Since) {
			return true
		}
		return yield(e.path, fileFeature(e))
	})
	return nil
}

func fileFeature(e entry) feature.File {
	f := feature.File{
		Atime: timespec(e.stat.Atim),
		Ctime: timespec(e.stat.Ctim),
		Mtime: timespec(e.stat.Mtim),
		GID:   e.stat.Gid,
		UID:   e.stat.Uid,
		Mode:  e.stat.Mode,
		Name:  path.Base(e.path),
		Path:  e.path,
		Size:  e.stat.Size,
		Type:  fileType(e.stat.Mode),
	}
	if f.Type == "link" {
		if target, err := os.Readlink(e.hostpath); err == nil {
			f.LinksTo = target
		}
	}
	return f
}

func timespec(ts unix.Timespec) float64 {
	return float64(ts.Sec) + float64(ts.Nsec)/1e9
}

func fileType(mode uint32) string {
	switch mode & unix.S_IFMT {
	case unix.S_IFLNK:
		return "link"
	case unix.S_IFREG:
		return "file"
	case unix.S_IFBLK:
		return "block"
	case unix.S_IFDIR:
		return "dir"
	case unix.S_IFCHR:
		return "char"
	case unix.S_IFIFO:
		return "pipe"
	case unix.S_IFSOCK:
		return "socket"
	}
	return "unknown"
}
