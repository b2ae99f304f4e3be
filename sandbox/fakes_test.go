// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package sandbox

import (
	"context"
	"errors"
	"os"
	"slices"
	"strconv"
	"sync"

	"github.com/siemens/nscrawler/cgroupfs"
	"github.com/siemens/nscrawler/engine"
	"github.com/thediveo/lxkns/model"
	"github.com/thediveo/lxkns/species"
)

// fakeRuntime pretends to run companions, which all share the PID of the
// test process.
type fakeRuntime struct {
	mu        sync.Mutex
	rootfs    string
	created   []engine.CompanionSpec
	removed   []string
	running   map[string]bool
	createErr error
	removeErr error
}

var _ engine.Runtime = (*fakeRuntime)(nil)

func newFakeRuntime(rootfs string) *fakeRuntime {
	return &fakeRuntime{rootfs: rootfs, running: map[string]bool{}}
}

func (r *fakeRuntime) Type() string { return "fake" }

func (r *fakeRuntime) Containers(context.Context) ([]engine.Info, error) { return nil, nil }

func (r *fakeRuntime) Inspect(_ context.Context, id string) (engine.Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running[id] {
		return engine.Info{ID: id, State: "exited"}, nil
	}
	return engine.Info{ID: id, State: "running", PID: model.PIDType(os.Getpid())}, nil
}

func (r *fakeRuntime) RootfsPath(context.Context, string) (string, error) { return r.rootfs, nil }

func (r *fakeRuntime) Create(_ context.Context, spec engine.CompanionSpec) (engine.Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return engine.Info{}, r.createErr
	}
	r.created = append(r.created, spec)
	id := "companion-" + strconv.Itoa(len(r.created))
	r.running[id] = true
	return engine.Info{ID: id, Name: spec.Name, State: "running", PID: model.PIDType(os.Getpid())}, nil
}

func (r *fakeRuntime) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
	delete(r.running, id)
	return r.removeErr
}

func (r *fakeRuntime) Close() error { return nil }

func (r *fakeRuntime) stop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, id)
}

func (r *fakeRuntime) Created() []engine.CompanionSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.CompanionSpec{}, r.created...)
}

func (r *fakeRuntime) Removed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.removed...)
}

// fakeFirewall models the rule sets of network namespaces, keyed by the PID
// attached to each namespace. Inserting and deleting rules is idempotent, as
// with iptables.
type fakeFirewall struct {
	mu        sync.Mutex
	rules     map[model.PIDType][]Rule
	inserted  []model.PIDType
	deleted   []model.PIDType
	insertErr error
	deleteErr error
}

var _ Firewall = (*fakeFirewall)(nil)

func (f *fakeFirewall) Insert(_ context.Context, pid model.PIDType, rule Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, pid)
	if f.rules == nil {
		f.rules = map[model.PIDType][]Rule{}
	}
	if !slices.ContainsFunc(f.rules[pid], rule.equal) {
		f.rules[pid] = append([]Rule{rule}, f.rules[pid]...)
	}
	return nil
}

func (f *fakeFirewall) Delete(_ context.Context, pid model.PIDType, rule Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, pid)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if f.rules != nil {
		f.rules[pid] = slices.DeleteFunc(f.rules[pid], rule.equal)
	}
	return nil
}

// Rules returns the rules in the network namespace of the specified PID.
func (f *fakeFirewall) Rules(pid model.PIDType) []Rule {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.rules[pid])
}

func (r Rule) equal(other Rule) bool {
	return r.Table == other.Table && r.Chain == other.Chain && slices.Equal(r.Args, other.Args)
}

// netnsOf returns a network namespace lookup placing the crawler into the
// namespace with inode 1 and all other PIDs into the namespace with the
// specified inode.
func netnsOf(ino uint64) func(model.PIDType) (species.NamespaceID, error) {
	return func(pid model.PIDType) (species.NamespaceID, error) {
		if pid == 0 {
			return species.NamespaceID{Dev: 4, Ino: 1}, nil
		}
		return species.NamespaceID{Dev: 4, Ino: ino}, nil
	}
}

type fakeAccounting struct {
	version      int
	classified   []uint32
	unclassified []string
}

var _ cgroupfs.Accounting = (*fakeAccounting)(nil)

func (a *fakeAccounting) Version() int { return a.version }

func (a *fakeAccounting) CPU(model.PIDType, bool) (cgroupfs.CPU, error) {
	return cgroupfs.CPU{}, nil
}

func (a *fakeAccounting) Memory(model.PIDType) (cgroupfs.Memory, error) {
	return cgroupfs.Memory{}, nil
}

func (a *fakeAccounting) Classify(_ model.PIDType, classid uint32) (string, error) {
	if a.version == 2 {
		return "", errors.ErrUnsupported
	}
	a.classified = append(a.classified, classid)
	return "/sys/fs/cgroup/net_cls/fake/block", nil
}

func (a *fakeAccounting) Unclassify(dir string) error {
	a.unclassified = append(a.unclassified, dir)
	return nil
}
