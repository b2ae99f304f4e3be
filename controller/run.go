// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package controller

import (
	"context"
	"errors"
	"iter"

	"github.com/siemens/nscrawler/feature"
	"github.com/siemens/nscrawler/nsexec"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/species"
)

// ScopedAction is a collection function taking the scope to collect in, and
// its arguments. It hands its keyed results one after another to yield.
type ScopedAction[A, V any] func(ctx context.Context, scope Scope, args A, yield func(key string, value V) bool) error

// scopedArgs carries the scope and the arguments of a collection function into
// a (re-executed) nsexec action.
type scopedArgs[A any] struct {
	Scope Scope
	Args  A
}

// Register a collection function under the specified name, so that it can be
// run by [RunUnderNamespaces] and friends. As with [nsexec.Register], this must
// happen in an init function and names must be unique.
func Register[A, V any](name string, fn ScopedAction[A, V]) {
	nsexec.Register[scopedArgs[A], V](name, func(ctx context.Context, sa scopedArgs[A], yield func(string, V) bool) error {
		return fn(ctx, sa.Scope, sa.Args, yield)
	})
}

// RunUnderNamespaces runs the named collection function, returning its keyed
// results as a sequence.
//
// If the active mode isn't OutOfContainer, the function runs in-process,
// scoped to the active mode. Otherwise, the controller switches its active
// mode to Local and runs the function in the specified namespaces of the
// container, scoped as Local. The active mode switches back to OutOfContainer
// when the sequence ends, regardless of whether it ends because of an error,
// a panic, or the consumer stopping early.
func RunUnderNamespaces[A, V any](
	ctx context.Context,
	c *Controller,
	nstypes []species.NamespaceType,
	name string,
	args A,
) iter.Seq2[feature.Pair[V], error] {
	return func(yield func(feature.Pair[V], error) bool) {
		if c.active != OutOfContainer {
			scope, err := c.scope(ctx)
			if err != nil {
				yield(feature.Pair[V]{}, err)
				return
			}
			forward(nsexec.Call[scopedArgs[A], V](ctx, name, scopedArgs[A]{Scope: scope, Args: args}), yield)
			return
		}
		restore := c.delegate()
		defer restore()
		cntr := c.target.(Container)
		log.Debugf("running %q in namespaces of container %s (PID %d)", name, cntr.ID, cntr.PID)
		forward(nsexec.Execute[scopedArgs[A], V](ctx, cntr.PID, nstypes, name,
			scopedArgs[A]{Scope: Scope{Mode: Local, Root: "/"}, Args: args}), yield)
	}
}

// RunAvoidingNamespaces runs the named collection function in-process against
// the root file system of the container target, scoped as OfflineImage. It
// never enters the container's namespaces and leaves the active mode alone.
// It is available only for controllers configured as OutOfContainer.
func RunAvoidingNamespaces[A, V any](
	ctx context.Context,
	c *Controller,
	name string,
	args A,
) iter.Seq2[feature.Pair[V], error] {
	return func(yield func(feature.Pair[V], error) bool) {
		if c.configured != OutOfContainer {
			yield(feature.Pair[V]{}, &UnsupportedModeError{Mode: c.configured, Operation: "avoiding namespaces"})
			return
		}
		rootfs, err := c.Rootfs(ctx)
		if err != nil {
			yield(feature.Pair[V]{}, err)
			return
		}
		log.Debugf("running %q against root file system %s", name, rootfs)
		forward(nsexec.Call[scopedArgs[A], V](ctx, name,
			scopedArgs[A]{Scope: Scope{Mode: OfflineImage, Root: rootfs}, Args: args}), yield)
	}
}

// CollectWithFallback runs the named collection function as
// [RunUnderNamespaces] does. If the controller is configured as
// OutOfContainer and running in the container's namespaces fails with an
// [*nsexec.ExecutionError], it retries exactly once avoiding the namespaces,
// see [RunAvoidingNamespaces]. In any other mode errors are passed on without
// retrying.
//
// The results of the namespace attempt are buffered until it succeeded, so
// that a failed attempt never leaks partial results before the retry.
func CollectWithFallback[A, V any](
	ctx context.Context,
	c *Controller,
	nstypes []species.NamespaceType,
	name string,
	args A,
) iter.Seq2[feature.Pair[V], error] {
	return func(yield func(feature.Pair[V], error) bool) {
		if c.configured != OutOfContainer {
			forward(RunUnderNamespaces[A, V](ctx, c, nstypes, name, args), yield)
			return
		}
		var pairs []feature.Pair[V]
		var err error
		for pair, perr := range RunUnderNamespaces[A, V](ctx, c, nstypes, name, args) {
			if perr != nil {
				err = perr
				break
			}
			pairs = append(pairs, pair)
		}
		if err == nil {
			for _, pair := range pairs {
				if !yield(pair, nil) {
					return
				}
			}
			return
		}
		var execerr *nsexec.ExecutionError
		if !errors.As(err, &execerr) {
			yield(feature.Pair[V]{}, err)
			return
		}
		log.Warnf("%s, retrying without entering namespaces", err.Error())
		forward(RunAvoidingNamespaces[A, V](ctx, c, name, args), yield)
	}
}

// forward passes all elements of seq on to yield, stopping after the first
// error or when yield asks to stop.
func forward[V any](seq iter.Seq2[feature.Pair[V], error], yield func(feature.Pair[V], error) bool) {
	for pair, err := range seq {
		if !yield(pair, err) || err != nil {
			return
		}
	}
}
