// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package cgroupfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/thediveo/lxkns/model"
)

// v2 reads accounting information from the unified hierarchy.
type v2 struct {
	root     string
	procRoot string
}

var _ Accounting = (*v2)(nil)

func (a *v2) Version() int { return 2 }

func (a *v2) dir(pid model.PIDType) (string, error) {
	_, unified, err := cgroupPaths(a.procRoot, pid)
	if err != nil {
		return "", err
	}
	if unified == "" {
		return "", fmt.Errorf("process %d not in the unified cgroup hierarchy", pid)
	}
	return filepath.Join(a.root, unified), nil
}

// CPU returns the total usage only, as the unified hierarchy doesn't account
// per CPU. User and System are in microseconds.
func (a *v2) CPU(pid model.PIDType, _ bool) (CPU, error) {
	dir, err := a.dir(pid)
	if err != nil {
		return CPU{}, err
	}
	stat, err := readKeyValues(dir + "/cpu.stat")
	if err != nil {
		return CPU{}, fmt.Errorf("cannot read CPU usage, reason: %w", err)
	}
	return CPU{
		Usage:  []uint64{stat["usage_usec"] * 1000},
		User:   float64(stat["user_usec"]),
		System: float64(stat["system_usec"]),
	}, nil
}

func (a *v2) Memory(pid model.PIDType) (Memory, error) {
	dir, err := a.dir(pid)
	if err != nil {
		return Memory{}, err
	}
	stat, err := readKeyValues(dir + "/memory.stat")
	if err != nil {
		return Memory{}, fmt.Errorf("cannot read memory statistics, reason: %w", err)
	}
	usage, err := readUint(dir + "/memory.current")
	if err != nil {
		return Memory{}, fmt.Errorf("cannot read memory usage, reason: %w", err)
	}
	limit := Unlimited
	maxlimit, err := os.ReadFile(dir + "/memory.max")
	if err != nil {
		return Memory{}, fmt.Errorf("cannot read memory limit, reason: %w", err)
	}
	if m := strings.TrimSpace(string(maxlimit)); m != "max" {
		if limit, err = readUint(dir + "/memory.max"); err != nil {
			return Memory{}, fmt.Errorf("cannot read memory limit, reason: %w", err)
		}
	}
	return Memory{
		Usage:      usage,
		Limit:      limit,
		Cache:      stat["file"],
		ActiveFile: stat["active_file"],
	}, nil
}

func (a *v2) Classify(model.PIDType, uint32) (string, error) {
	return "", fmt.Errorf("net_cls classification on unified cgroup hierarchy: %w", errors.ErrUnsupported)
}

func (a *v2) Unclassify(string) error {
	return nil
}
