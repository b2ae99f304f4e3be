// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nsexec

import "github.com/siemens/nscrawler/internal/codec"

// frameKind tells the parent what a frame from a child carries.
type frameKind uint8

const (
	frameItem frameKind = iota + 1 // a single keyed result.
	frameDone                      // the action completed successfully.
	frameFail                      // the action failed with an error.
)

// frame is the unit of the result stream from a child to its parent.
type frame struct {
	Kind  frameKind        `cbor:"1,keyasint"`
	Key   string           `cbor:"2,keyasint,omitempty"`
	Value codec.RawMessage `cbor:"3,keyasint,omitempty"`
	Error string           `cbor:"4,keyasint,omitempty"`
}

// actionEnv names the environment variable telling a re-executed child which
// action to run.
const actionEnv = "NSCRAWLER_NSEXEC_ACTION"

// framesFd is the file descriptor number of the frame stream in a child.
const framesFd = 3
