// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nsexec

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/siemens/nscrawler/feature"
	"github.com/siemens/nscrawler/internal/codec"
)

// Action is a collection function that can be run in-process as well as in the
// namespaces of another process. It hands its keyed results one after another
// to yield and stops early as soon as yield returns false.
type Action[A, V any] func(ctx context.Context, args A, yield func(key string, value V) bool) error

// action is the type-erased form of an Action, as run by a re-executed child.
type action struct {
	run func(ctx context.Context, rawargs []byte, emit func(key string, value any) bool) error
}

var (
	actionsMu sync.RWMutex
	actions   = map[string]action{}
)

// Register an action under the specified name. Register panics if the name has
// already been taken. Actions should be registered from init functions, as the
// re-executed child looks up its action right at the start of its main
// function.
func Register[A, V any](name string, fn Action[A, V]) {
	if name == "" || fn == nil {
		panic("nsexec: action name and function must be specified")
	}
	actionsMu.Lock()
	defer actionsMu.Unlock()
	if _, ok := actions[name]; ok {
		panic(fmt.Sprintf("nsexec: action %q already registered", name))
	}
	actions[name] = action{
		run: func(ctx context.Context, rawargs []byte, emit func(string, any) bool) error {
			var args A
			if len(rawargs) > 0 {
				if err := codec.Unmarshal(rawargs, &args); err != nil {
					return fmt.Errorf("cannot decode arguments, reason: %w", err)
				}
			}
			return fn(ctx, args, func(key string, value V) bool {
				return emit(key, value)
			})
		},
	}
}

// Registered returns true if an action has been registered under the specified
// name.
func Registered(name string) bool {
	_, ok := lookup(name)
	return ok
}

func lookup(name string) (action, bool) {
	actionsMu.RLock()
	defer actionsMu.RUnlock()
	a, ok := actions[name]
	return a, ok
}

// Call runs the named action in-process, returning its results as a sequence
// in the same shape as [Execute] does. The arguments and results take the same
// encoding round trip as with Execute, so that callers see identical values
// regardless of where an action ran.
func Call[A, V any](ctx context.Context, name string, args A) iter.Seq2[feature.Pair[V], error] {
	return func(yield func(feature.Pair[V], error) bool) {
		a, ok := lookup(name)
		if !ok {
			yield(feature.Pair[V]{}, &UnknownActionError{Action: name})
			return
		}
		rawargs, err := codec.Marshal(args)
		if err != nil {
			yield(feature.Pair[V]{}, fmt.Errorf("cannot encode arguments for action %q, reason: %w", name, err))
			return
		}
		var emitErr error
		stopped := false
		err = a.run(ctx, rawargs, func(key string, value any) bool {
			raw, err := codec.Marshal(value)
			if err != nil {
				emitErr = err
				return false
			}
			var v V
			if err := codec.Unmarshal(raw, &v); err != nil {
				emitErr = err
				return false
			}
			if !yield(feature.Pair[V]{Key: key, Value: v}, nil) {
				stopped = true
				return false
			}
			return true
		})
		if stopped {
			return
		}
		if emitErr != nil {
			yield(feature.Pair[V]{}, fmt.Errorf("cannot pass on result of action %q, reason: %w", name, emitErr))
			return
		}
		if err != nil {
			yield(feature.Pair[V]{}, err)
		}
	}
}
