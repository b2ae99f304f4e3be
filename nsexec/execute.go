// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nsexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/exec"

	"github.com/siemens/nscrawler/feature"
	"github.com/siemens/nscrawler/internal/codec"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/model"
	"github.com/thediveo/lxkns/species"
)

// Execute runs the named action in a new child process that first joins the
// specified namespaces of the process with the specified PID. The results are
// returned as a sequence that yields each result as soon as the child has
// produced it, in the order the child produced it.
//
// The child is started only when the sequence gets iterated. If the child
// fails, crashes, or terminates without signalling completion, the sequence
// yields an [*ExecutionError] as its final element. Breaking out of the
// iteration early kills the child. Execute imposes no timeout of its own;
// cancelling the passed context kills the child instead.
//
// Joining namespaces other than the caller's own requires the necessary
// privileges, usually CAP_SYS_ADMIN and CAP_SYS_CHROOT. Passing no namespace
// types runs the action in a child process without switching namespaces.
func Execute[A, V any](
	ctx context.Context,
	pid model.PIDType,
	nstypes []species.NamespaceType,
	name string,
	args A,
) iter.Seq2[feature.Pair[V], error] {
	return func(yield func(feature.Pair[V], error) bool) {
		var zero feature.Pair[V]
		if !Registered(name) {
			yield(zero, &UnknownActionError{Action: name})
			return
		}
		nsenv, err := namespaceEnv(pid, nstypes)
		if err != nil {
			yield(zero, err)
			return
		}
		rawargs, err := codec.Marshal(args)
		if err != nil {
			yield(zero, fmt.Errorf("cannot encode arguments for action %q, reason: %w", name, err))
			return
		}
		framesr, framesw, err := os.Pipe()
		if err != nil {
			yield(zero, &ExecutionError{Action: name, PID: pid, ExitCode: -1, Err: err})
			return
		}
		defer framesr.Close()

		cmd := exec.CommandContext(ctx, "/proc/self/exe")
		cmd.Args = []string{os.Args[0]}
		cmd.Env = append(append(os.Environ(), actionEnv+"="+name), nsenv...)
		cmd.Stdin = bytes.NewReader(rawargs)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		cmd.ExtraFiles = []*os.File{framesw} // becomes fd 3 in the child.
		err = cmd.Start()
		// The child has its own copy of the write end now; we need to get rid
		// of ours so that we see EOF when the child terminates.
		framesw.Close()
		if err != nil {
			yield(zero, &ExecutionError{Action: name, PID: pid, ExitCode: -1, Err: err})
			return
		}
		log.Debugf("started action %q with PID %d in namespaces of PID %d",
			name, cmd.Process.Pid, pid)

		reaped := false
		reap := func() int {
			reaped = true
			_ = cmd.Wait()
			if cmd.ProcessState == nil {
				return -1
			}
			return cmd.ProcessState.ExitCode()
		}
		defer func() {
			if reaped {
				return
			}
			_ = cmd.Process.Kill()
			reap()
		}()

		dec := codec.NewDecoder(framesr)
		for {
			var f frame
			if err := dec.Decode(&f); err != nil {
				// The child went away without saying goodbye, or garbled
				// its stream.
				exitcode := reap()
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					err = ctx.Err()
				}
				yield(zero, &ExecutionError{Action: name, PID: pid, ExitCode: exitcode, Err: err})
				return
			}
			switch f.Kind {
			case frameItem:
				var v V
				if err := codec.Unmarshal(f.Value, &v); err != nil {
					yield(zero, &ExecutionError{Action: name, PID: pid, ExitCode: -1,
						Err: fmt.Errorf("cannot decode result %q, reason: %w", f.Key, err)})
					return
				}
				if !yield(feature.Pair[V]{Key: f.Key, Value: v}, nil) {
					return
				}
			case frameDone:
				if exitcode := reap(); exitcode != 0 {
					yield(zero, &ExecutionError{Action: name, PID: pid, ExitCode: exitcode, Err: ctx.Err()})
				}
				return
			case frameFail:
				exitcode := reap()
				yield(zero, &ExecutionError{Action: name, PID: pid, ExitCode: exitcode, Reason: f.Error})
				return
			default:
				yield(zero, &ExecutionError{Action: name, PID: pid, ExitCode: -1,
					Err: fmt.Errorf("invalid frame kind %d", f.Kind)})
				return
			}
		}
	}
}
