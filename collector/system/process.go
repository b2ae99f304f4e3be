// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package system

import (
	"bufio"
	"context"
	"iter"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
	"github.com/thediveo/lxkns/model"
)

const processAction = "system-process"

// Process collects the processes of a target.
type Process struct{}

func init() {
	controller.Register[string, feature.Process](processAction, collectProcesses)
	collector.Register(Process{})
}

// Name returns "process".
func (Process) Name() string { return feature.TypeProcess }

// Collect all processes visible in the target's PID namespace, in ascending
// PID order. Processes are keyed by "name/PID".
func (Process) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	return collector.Tag(feature.TypeProcess,
		controller.RunUnderNamespaces[string, feature.Process](ctx, env.Controller, collector.MountNamespace, processAction, "/proc"))
}

func collectProcesses(_ context.Context, scope controller.Scope, procRoot string, yield func(string, feature.Process) bool) error {
	if !scope.Local() {
		return &controller.UnsupportedModeError{Mode: scope.Mode, Operation: "collecting processes"}
	}
	for _, proc := range processes(procRoot) {
		if !yield(proc.Name+"/"+strconv.Itoa(proc.PID), proc) {
			return nil
		}
	}
	return nil
}

// processes returns the processes found in the proc file system of the
// current mount namespace, with procRoot being its mount point. Processes that
// vanish while being looked at get skipped.
func processes(procRoot string) []feature.Process {
	table := model.NewProcessTable(false)
	procs := make([]feature.Process, 0, len(table))
	for pid, proc := range table {
		p := feature.Process{
			PID:     int(pid),
			PPID:    int(proc.PPID),
			Name:    proc.Name,
			Cmdline: proc.Cmdline,
			Cwd:     "unknown",
		}
		base := procRoot + "/" + strconv.Itoa(int(pid))
		if !readStatus(base+"/status", &p) {
			continue
		}
		if cwd, err := os.Readlink(base + "/cwd"); err == nil {
			p.Cwd = cwd
		}
		if p.Cmdline == nil {
			p.Cmdline = []string{}
		}
		procs = append(procs, p)
	}
	sort.Slice(procs, func(a, b int) bool { return procs[a].PID < procs[b].PID })
	return procs
}

// readStatus fills in the state, thread count, and real user ID from the
// status file of a process, returning false if the process is gone.
func readStatus(path string, p *feature.Process) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		fields := strings.Fields(value)
		if len(fields) == 0 {
			continue
		}
		switch name {
		case "State":
			p.State = fields[0]
		case "Threads":
			p.Threads, _ = strconv.Atoi(fields[0])
		case "Uid":
			p.UID, _ = strconv.Atoi(fields[0])
		}
	}
	return scanner.Err() == nil
}
