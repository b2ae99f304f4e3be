// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package cgroupfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/thediveo/lxkns/model"
)

// v1 reads accounting information from per-controller hierarchies.
type v1 struct {
	root     string
	procRoot string
}

var _ Accounting = (*v1)(nil)

func (a *v1) Version() int { return 1 }

// controllerDir returns the directory of the specified process' cgroup in the
// hierarchy of the specified controller.
func (a *v1) controllerDir(pid model.PIDType, controller string) (string, error) {
	paths, _, err := cgroupPaths(a.procRoot, pid)
	if err != nil {
		return "", err
	}
	path, ok := paths[controller]
	if !ok {
		return "", fmt.Errorf("process %d not in any %s cgroup", pid, controller)
	}
	return filepath.Join(a.root, controller, path), nil
}

func (a *v1) CPU(pid model.PIDType, perCPU bool) (CPU, error) {
	dir, err := a.controllerDir(pid, "cpuacct")
	if err != nil {
		return CPU{}, err
	}
	var cpu CPU
	if perCPU {
		cpu.Usage, err = readUints(dir + "/cpuacct.usage_percpu")
	} else {
		var usage uint64
		usage, err = readUint(dir + "/cpuacct.usage")
		cpu.Usage = []uint64{usage}
	}
	if err != nil {
		return CPU{}, fmt.Errorf("cannot read CPU usage, reason: %w", err)
	}
	stat, err := readKeyValues(dir + "/cpuacct.stat")
	if err != nil {
		return CPU{}, fmt.Errorf("cannot read CPU user/system split, reason: %w", err)
	}
	cpu.User = float64(stat["user"])
	cpu.System = float64(stat["system"])
	return cpu, nil
}

func (a *v1) Memory(pid model.PIDType) (Memory, error) {
	dir, err := a.controllerDir(pid, "memory")
	if err != nil {
		return Memory{}, err
	}
	stat, err := readKeyValues(dir + "/memory.stat")
	if err != nil {
		return Memory{}, fmt.Errorf("cannot read memory statistics, reason: %w", err)
	}
	limit, err := readUint(dir + "/memory.limit_in_bytes")
	if err != nil {
		return Memory{}, fmt.Errorf("cannot read memory limit, reason: %w", err)
	}
	usage, err := readUint(dir + "/memory.usage_in_bytes")
	if err != nil {
		return Memory{}, fmt.Errorf("cannot read memory usage, reason: %w", err)
	}
	return Memory{
		Usage:      usage,
		Limit:      limit,
		Cache:      stat["total_cache"],
		ActiveFile: stat["total_active_file"],
	}, nil
}

func (a *v1) Classify(pid model.PIDType, classid uint32) (string, error) {
	dir, err := a.controllerDir(pid, "net_cls")
	if err != nil {
		return "", err
	}
	block := dir + "/block"
	if err := os.MkdirAll(block, 0o755); err != nil {
		return "", fmt.Errorf("cannot create net_cls block cgroup, reason: %w", err)
	}
	if err := os.WriteFile(block+"/net_cls.classid", []byte(strconv.FormatUint(uint64(classid), 10)), 0o644); err != nil {
		return block, fmt.Errorf("cannot set net_cls class ID, reason: %w", err)
	}
	if err := moveTasks(dir+"/tasks", block+"/tasks"); err != nil {
		return block, err
	}
	return block, nil
}

func (a *v1) Unclassify(dir string) error {
	if err := moveTasks(dir+"/tasks", filepath.Dir(dir)+"/tasks"); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove net_cls block cgroup, reason: %w", err)
	}
	return nil
}

// moveTasks moves all tasks listed in the "from" tasks file into the "to"
// tasks file. Tasks are written one at a time, as the kernel accepts only a
// single task ID per write.
func moveTasks(from, to string) error {
	content, err := os.ReadFile(from)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(to, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("cannot move tasks into %s, reason: %w", to, err)
	}
	defer f.Close()
	for _, task := range strings.Fields(string(content)) {
		if _, err := f.WriteString(task + "\n"); err != nil {
			return fmt.Errorf("cannot move task %s into %s, reason: %w", task, to, err)
		}
	}
	return nil
}
