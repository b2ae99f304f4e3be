// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package controller

import (
	"path/filepath"

	"github.com/thediveo/procfsroot"
)

// Scope tells a collection function how to collect: as which mode, and which
// directory to treat as the root of the file system to collect from.
type Scope struct {
	Mode Mode
	Root string
}

// Path returns the host-visible path for the specified absolute path inside
// the scope's root file system. Symbolic links are resolved in the context of
// the scope's root, so that absolute links inside an image or container don't
// escape into the host.
func (s Scope) Path(path string) (string, error) {
	if s.Root == "" || s.Root == "/" {
		return filepath.Clean(path), nil
	}
	resolved, err := procfsroot.EvalSymlinks(path, s.Root, procfsroot.EvalFullPath)
	if err != nil {
		return "", err
	}
	return s.Root + resolved, nil
}

// Local returns true if the scope collects from the file system and kernel
// state of the process it runs in, as opposed to reading from a root
// directory elsewhere.
func (s Scope) Local() bool {
	return s.Mode == Local
}
