// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package unsorted

import "os"

// ReadDir reads the specified directory, returning all its directory entries
// without taking the time to sort them.
func ReadDir(name string) ([]os.DirEntry, error) {
	d, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.ReadDir(-1)
}

// ReadDirNames reads the specified directory, returning only the names of its
// entries, unsorted. This avoids the lstat calls of [ReadDir] for file systems
// that don't report the entry types in their directory listings.
func ReadDirNames(name string) ([]string, error) {
	d, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.Readdirnames(-1)
}
