// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nsexec

import (
	"fmt"

	"github.com/thediveo/lxkns/model"
	"github.com/thediveo/lxkns/species"
)

// ExecutionError reports that an action running inside the namespaces of
// another process either failed, crashed, or terminated without signalling its
// completion. Results already streamed before the failure have been handed to
// the consumer.
type ExecutionError struct {
	Action   string        // name of the action.
	PID      model.PIDType // PID of the process whose namespaces were to be joined.
	ExitCode int           // exit code of the child, or -1 if killed or not started.
	Reason   string        // error text reported by the child, if any.
	Err      error         // underlying cause on the parent's side, if any.
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("action %q in namespaces of PID %d failed", e.Action, e.PID)
	switch {
	case e.Reason != "":
		msg += ": " + e.Reason
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	default:
		msg += fmt.Sprintf(": terminated without completing, exit code %d", e.ExitCode)
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// UnsupportedNamespaceError reports a namespace type that actions cannot be run
// in.
type UnsupportedNamespaceError struct {
	Type species.NamespaceType
}

func (e *UnsupportedNamespaceError) Error() string {
	return fmt.Sprintf("unsupported namespace type 0x%x", uint64(e.Type))
}

// UnknownActionError reports an action name that has not been registered.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", e.Action)
}
