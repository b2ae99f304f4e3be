// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package sandbox

import "fmt"

// ProvisionError reports failure to create and start the companion of a
// guest.
type ProvisionError struct {
	GuestID string
	Err     error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("cannot provision companion for guest %s, reason: %s",
		e.GuestID, e.Err.Error())
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// IsolationError reports failure to isolate a companion; the companion has
// been torn down.
type IsolationError struct {
	GuestID     string
	CompanionID string
	Err         error
}

func (e *IsolationError) Error() string {
	return fmt.Sprintf("cannot isolate companion %s of guest %s, reason: %s",
		e.CompanionID, e.GuestID, e.Err.Error())
}

func (e *IsolationError) Unwrap() error { return e.Err }

// HarvestError reports a result frame file that cannot be consumed. Line is
// zero when the error does not relate to a particular line.
type HarvestError struct {
	Frame string
	Line  int
	Err   error
}

func (e *HarvestError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid result frame %s, line %d: %s",
			e.Frame, e.Line, e.Err.Error())
	}
	return fmt.Sprintf("cannot harvest result frame %s, reason: %s",
		e.Frame, e.Err.Error())
}

func (e *HarvestError) Unwrap() error { return e.Err }
