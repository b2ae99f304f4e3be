// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package sandbox

import (
	"github.com/cespare/xxhash/v2"
	"github.com/thediveo/lxkns/model"
)

// Companion is a provisioned companion container of a guest.
type Companion struct {
	GuestID     string
	GuestPID    model.PIDType
	ContainerID string
	PID         model.PIDType // initial process of the companion
	ResultDir   string        // host path of the result frame directory
	Policy      Policy
}

// Policy describes the isolation applied to a companion.
type Policy struct {
	// ClassID is the net_cls class ID of the companion's tasks.
	ClassID uint32
	// CgroupDir is the net_cls child cgroup holding the companion's tasks;
	// empty when the companion's traffic has not been classified.
	CgroupDir string
	// Rule is the packet filter rule installed for the companion.
	Rule Rule
	// RuleInstalled is true when Rule has been installed.
	RuleInstalled bool
	// SeccompProfile is the path of the seccomp profile, or
	// [DefaultSeccompProfile].
	SeccompProfile string
}

// classID returns the net_cls class ID for a companion: the configured major
// number, and a minor number derived from the companion's container ID.
func classID(base uint32, containerID string) uint32 {
	minor := uint32(xxhash.Sum64String(containerID) & 0xffff)
	if minor == 0 {
		minor = 1
	}
	return base&0xffff0000 | minor
}
