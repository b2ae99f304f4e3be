// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package controller

import "fmt"

// Mode is the strategy for collecting features.
type Mode uint8

const (
	Local          Mode = iota // the host (or VM) the collector runs on.
	OfflineImage               // a disk image mounted somewhere in the local file system.
	OutOfBandVM                // a virtual machine introspected from the outside.
	OutOfContainer             // a live container seen from the outside.
)

var modeNames = [...]string{
	Local:          "local",
	OfflineImage:   "offline-image",
	OutOfBandVM:    "out-of-band-vm",
	OutOfContainer: "out-of-container",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// ParseMode returns the Mode for the specified textual representation.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("unknown crawl mode %q", s)
}
