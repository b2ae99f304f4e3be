// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nsexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/siemens/nscrawler/internal/codec"
	"github.com/thediveo/gons"
)

// CheckAction checks whether this process has been re-executed in order to run
// a registered action. If so, it runs the action, streams its results back to
// the parent, and then terminates the process, never returning. Otherwise,
// CheckAction returns immediately.
//
// CheckAction must be called as early as possible in main (or TestMain), after
// all actions have been registered by their init functions.
func CheckAction() {
	name := os.Getenv(actionEnv)
	if name == "" {
		return
	}
	os.Exit(runAction(name))
}

// runAction runs the named action, returning the exit code for the child.
func runAction(name string) (exitcode int) {
	// Don't let any further re-executions started by the action itself
	// inherit our own instructions.
	for _, env := range os.Environ() {
		if key, _, _ := strings.Cut(env, "="); key == actionEnv || strings.HasPrefix(key, gonsEnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
	frames := os.NewFile(framesFd, "frames")
	if frames == nil {
		fmt.Fprintf(os.Stderr, "nsexec: missing frame stream for action %q\n", name)
		return 2
	}
	defer frames.Close()
	enc := codec.NewEncoder(frames)
	fail := func(err error) int {
		_ = enc.Encode(frame{Kind: frameFail, Error: err.Error()})
		return 1
	}

	if err := gons.Status(); err != nil {
		return fail(fmt.Errorf("cannot join namespaces, reason: %w", err))
	}
	a, ok := lookup(name)
	if !ok {
		return fail(&UnknownActionError{Action: name})
	}
	rawargs, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fail(fmt.Errorf("cannot read arguments, reason: %w", err))
	}

	defer func() {
		if r := recover(); r != nil {
			exitcode = fail(fmt.Errorf("panic: %v", r))
		}
	}()
	var emitErr error
	err = a.run(context.Background(), rawargs, func(key string, value any) bool {
		raw, err := codec.Marshal(value)
		if err == nil {
			err = enc.Encode(frame{Kind: frameItem, Key: key, Value: raw})
		}
		if err != nil {
			emitErr = fmt.Errorf("cannot stream result %q, reason: %w", key, err)
			return false
		}
		return true
	})
	if err = errors.Join(err, emitErr); err != nil {
		return fail(err)
	}
	if err := enc.Encode(frame{Kind: frameDone}); err != nil {
		return 1
	}
	return 0
}
