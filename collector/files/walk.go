// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package files

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/unsorted"
	"github.com/thediveo/lxkns/log"
	"golang.org/x/sys/unix"
)

// walkArgs are the common arguments of the file and config collection
// functions.
type walkArgs struct {
	Root    string   // where to start, as seen from inside the target
	Exclude []string // glob patterns of absolute paths, as seen from inside the target
	Since   int64    // only files accessed or changed after, in Unix seconds
}

// entry is a file system object found while walking.
type entry struct {
	path     string // as seen from inside the target
	hostpath string // as seen by the collector
	stat     unix.Stat_t
}

// newer returns true if the entry was accessed or changed after the
// specified Unix time.
func (e entry) newer(since int64) bool {
	return e.stat.Ctim.Sec > since || e.stat.Atim.Sec > since
}

func (e entry) isDir() bool {
	return e.stat.Mode&unix.S_IFMT == unix.S_IFDIR
}

// walker walks the file system of a target.
type walker struct {
	scope   controller.Scope
	exclude []string
}

func newWalker(scope controller.Scope, exclude []string) *walker {
	return &walker{scope: scope, exclude: exclude}
}

// excluded returns true if the path or any of its parent directories
// matches any of the exclusion patterns.
func (w *walker) excluded(p string) bool {
	for ; p != "/" && p != "."; p = path.Dir(p) {
		for _, pattern := range w.exclude {
			if ok, _ := path.Match(pattern, p); ok {
				return true
			}
		}
	}
	return false
}

// hostPath returns the collector-visible path for a target path, without
// resolving symbolic links in the final path element.
func (w *walker) hostPath(p string) string {
	if w.scope.Root == "" || w.scope.Root == "/" {
		return p
	}
	return filepath.Join(w.scope.Root, p)
}

// lstat returns the entry for the specified target path.
func (w *walker) lstat(p string) (entry, error) {
	e := entry{path: p, hostpath: w.hostPath(p)}
	err := unix.Lstat(e.hostpath, &e.stat)
	return e, err
}

// walk visits the root and then all file system objects below it
// breadth-first: per directory first its non-directories and then its
// subdirectories, all in lexical order. Objects vanishing while walking
// are skipped. Walking stops when visit returns false.
func (w *walker) walk(root string, visit func(entry) bool) {
	root = targetPath(root)
	rootEntry, err := w.lstat(root)
	if err != nil {
		log.Warnf("cannot walk %s, reason: %s", root, err.Error())
		return
	}
	if !visit(rootEntry) {
		return
	}
	queue := []string{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]
		names, err := unsorted.ReadDirNames(w.hostPath(dir))
		if err != nil {
			log.Debugf("cannot read directory %s, reason: %s", dir, err.Error())
			continue
		}
		sort.Strings(names)
		var subdirs []entry
		for _, name := range names {
			p := path.Join(dir, name)
			if w.excluded(p) {
				continue
			}
			e, err := w.lstat(p)
			if err != nil {
				continue
			}
			if e.isDir() {
				subdirs = append(subdirs, e)
				continue
			}
			if !visit(e) {
				return
			}
		}
		for _, e := range subdirs {
			if !visit(e) {
				return
			}
			queue = append(queue, e.path)
		}
	}
}

// targetPath turns a path from inside the target into a clean absolute path.
func targetPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
