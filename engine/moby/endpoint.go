// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package moby

import (
	"bufio"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/siemens/nscrawler/unsorted"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/model"
	"github.com/thediveo/procfsroot"
)

// DaemonName is the process name of the Docker engine.
const DaemonName = "dockerd"

// Fields in /proc/[PID]/net/unix, see proc(5).
const (
	netUnixFlagsField = 3
	netUnixTypeField  = 4
	netUnixInodeField = 6
	netUnixPathField  = 7
)

// soAcceptCon flags listening unix domain sockets, and sockStream is the type
// of connection-oriented sockets.
const (
	soAcceptCon = 1 << 16
	sockStream  = 1
)

const socketFdPrefix = "socket:["

// DiscoverEndpoints returns the API endpoint URLs of all Docker engine
// processes found in the specified proc file system (usually "/proc"). The
// endpoints are translated into paths accessible from the caller's mount
// namespace, using the root wormholes of the engine processes.
func DiscoverEndpoints(procfs string) []string {
	endpoints := []string{}
	for _, pid := range findProcesses(procfs, DaemonName) {
		wormhole := procfs + "/" + strconv.FormatUint(uint64(pid), 10) + "/root"
		paths := listeningSocketPaths(procfs, pid)
		slices.Sort(paths)
		for _, path := range paths {
			resolved, err := procfsroot.EvalSymlinks(path, wormhole, procfsroot.EvalFullPath)
			if err != nil {
				log.Warnf("invalid API endpoint at %s in the context of %s", path, wormhole)
				continue
			}
			endpoints = append(endpoints, "unix://"+wormhole+resolved)
		}
	}
	return endpoints
}

// findProcesses returns the PIDs of processes with the specified name.
func findProcesses(procfs string, name string) []model.PIDType {
	entries, err := unsorted.ReadDirNames(procfs)
	if err != nil {
		return nil
	}
	pids := []model.PIDType{}
	for _, entry := range entries {
		pid, err := strconv.ParseUint(entry, 10, 32)
		if err != nil {
			continue
		}
		stat, err := os.ReadFile(procfs + "/" + entry + "/stat")
		if err != nil {
			continue
		}
		if processName(string(stat)) != name {
			continue
		}
		pids = append(pids, model.PIDType(pid))
	}
	return pids
}

// processName returns the name (field #2) from a process stat line. As names
// may contain spaces and closing brackets, the name ends at the last closing
// bracket.
func processName(statline string) string {
	start := strings.IndexByte(statline, '(')
	end := strings.LastIndexByte(statline, ')')
	if start < 0 || end < start {
		return ""
	}
	return statline[start+1 : end]
}

// listeningSocketPaths returns the paths of the listening unix domain sockets
// the specified process has open.
func listeningSocketPaths(procfs string, pid model.PIDType) []string {
	listening := listeningSockets(procfs, pid)
	if len(listening) == 0 {
		return nil
	}
	fdbase := procfs + "/" + strconv.FormatUint(uint64(pid), 10) + "/fd/"
	fds, err := unsorted.ReadDirNames(fdbase)
	if err != nil {
		return nil
	}
	paths := []string{}
	for _, fd := range fds {
		link, err := os.Readlink(fdbase + fd)
		if err != nil || !strings.HasPrefix(link, socketFdPrefix) || !strings.HasSuffix(link, "]") {
			continue
		}
		ino, err := strconv.ParseUint(link[len(socketFdPrefix):len(link)-1], 10, 64)
		if err != nil {
			continue
		}
		if path, ok := listening[ino]; ok {
			paths = append(paths, path)
		}
	}
	return paths
}

// listeningSockets maps the inode numbers of the named, listening unix domain
// sockets visible in the mount namespace of the specified process to their
// paths. Sockets in the abstract namespace are skipped.
func listeningSockets(procfs string, pid model.PIDType) map[uint64]string {
	f, err := os.Open(procfs + "/" + strconv.FormatUint(uint64(pid), 10) + "/net/unix")
	if err != nil {
		return nil
	}
	defer f.Close()
	sox := map[uint64]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		// Fields might be separated by multiple spaces, so don't split on
		// single spaces.
		fields := strings.Fields(scanner.Text())
		if len(fields) <= netUnixPathField || strings.HasPrefix(fields[netUnixPathField], "@") {
			continue
		}
		flags, err := strconv.ParseUint(fields[netUnixFlagsField], 16, 32)
		if err != nil { // header line
			continue
		}
		soxtype, err := strconv.ParseUint(fields[netUnixTypeField], 16, 16)
		if err != nil || soxtype != sockStream || flags != soAcceptCon {
			continue
		}
		ino, err := strconv.ParseUint(fields[netUnixInodeField], 10, 64)
		if err != nil {
			continue
		}
		sox[ino] = fields[netUnixPathField]
	}
	return sox
}
