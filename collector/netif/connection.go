// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package netif

import (
	"context"
	"errors"
	"iter"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/species"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

const connectionsAction = "netif-connections"

// Connection collects the TCP and UDP sockets of the processes of a target.
type Connection struct{}

func init() {
	controller.Register[string, feature.Connection](connectionsAction, collectConnections)
	collector.Register(Connection{})
}

// Name returns "connection".
func (Connection) Name() string { return feature.TypeConnection }

// Collect the IPv4 and IPv6 TCP and UDP sockets of the target's network
// namespace that belong to processes visible in the target's PID namespace,
// keyed "PID/local address/local port" and sorted by PID.
func (Connection) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	return collector.Tag(feature.TypeConnection,
		controller.RunUnderNamespaces[string, feature.Connection](ctx, env.Controller,
			connectionNamespaces, connectionsAction, "/proc"))
}

// connectionNamespaces are the mount namespace for the proc file system with
// the processes owning sockets, and the network namespace with the sockets.
var connectionNamespaces = []species.NamespaceType{species.CLONE_NEWNS, species.CLONE_NEWNET}

// socketDiags are the socket dumps for all combinations of transport and
// address family.
var socketDiags = []struct {
	dump   func(family uint8) ([]*netlink.Socket, error)
	family uint8
	udp    bool
}{
	{netlink.SocketDiagTCP, unix.AF_INET, false},
	{netlink.SocketDiagTCP, unix.AF_INET6, false},
	{netlink.SocketDiagUDP, unix.AF_INET, true},
	{netlink.SocketDiagUDP, unix.AF_INET6, true},
}

func collectConnections(_ context.Context, scope controller.Scope, procRoot string, yield func(string, feature.Connection) bool) error {
	if !scope.Local() {
		return &controller.UnsupportedModeError{Mode: scope.Mode, Operation: "collecting network connections"}
	}
	owners := socketOwners(procRoot)
	var conns []feature.Connection
	var errs []error
	for _, diag := range socketDiags {
		sockets, err := diag.dump(diag.family)
		if err != nil && !errors.Is(err, netlink.ErrDumpInterrupted) {
			// IPv6 might be disabled, so carry on with the other dumps.
			log.Debugf("cannot dump sockets of address family %d, reason: %s", diag.family, err.Error())
			errs = append(errs, err)
			continue
		}
		for _, sock := range sockets {
			owner, ok := owners[uint64(sock.INode)]
			if !ok {
				continue
			}
			conns = append(conns, connection(sock, owner, diag.udp))
		}
	}
	if len(errs) == len(socketDiags) {
		return errors.Join(errs...)
	}
	sort.SliceStable(conns, func(a, b int) bool { return conns[a].PID < conns[b].PID })
	for _, conn := range conns {
		key := strconv.Itoa(conn.PID) + "/" + conn.LocalAddr + "/" + strconv.Itoa(conn.LocalPort)
		if !yield(key, conn) {
			return nil
		}
	}
	return nil
}

func connection(sock *netlink.Socket, owner socketOwner, udp bool) feature.Connection {
	conn := feature.Connection{
		LocalAddr: sock.ID.Source.String(),
		LocalPort: int(sock.ID.SourcePort),
		Name:      owner.name,
		PID:       owner.pid,
		Status:    "NONE",
	}
	if sock.ID.DestinationPort != 0 {
		conn.RemoteAddr = sock.ID.Destination.String()
		conn.RemotePort = int(sock.ID.DestinationPort)
	}
	if !udp {
		conn.Status = tcpStatus(sock.State)
	}
	return conn
}

var tcpStates = map[uint8]string{
	netlink.TCP_ESTABLISHED: "ESTABLISHED",
	netlink.TCP_SYN_SENT:    "SYN_SENT",
	netlink.TCP_SYN_RECV:    "SYN_RECV",
	netlink.TCP_FIN_WAIT1:   "FIN_WAIT1",
	netlink.TCP_FIN_WAIT2:   "FIN_WAIT2",
	netlink.TCP_TIME_WAIT:   "TIME_WAIT",
	netlink.TCP_CLOSE:       "CLOSE",
	netlink.TCP_CLOSE_WAIT:  "CLOSE_WAIT",
	netlink.TCP_LAST_ACK:    "LAST_ACK",
	netlink.TCP_LISTEN:      "LISTEN",
	netlink.TCP_CLOSING:     "CLOSING",
}

func tcpStatus(state uint8) string {
	if status, ok := tcpStates[state]; ok {
		return status
	}
	return "NONE"
}

type socketOwner struct {
	pid  int
	name string
}

// socketOwners maps socket inode numbers to the processes having them open,
// as found in the proc file system mounted at procRoot. Processes we aren't
// allowed to look into are skipped.
func socketOwners(procRoot string) map[uint64]socketOwner {
	owners := map[uint64]socketOwner{}
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return owners
	}
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		base := procRoot + "/" + entry.Name()
		fds, err := os.ReadDir(base + "/fd")
		if err != nil {
			continue
		}
		var name string
		for _, fd := range fds {
			link, err := os.Readlink(base + "/fd/" + fd.Name())
			if err != nil {
				continue
			}
			ino, ok := socketInode(link)
			if !ok {
				continue
			}
			if _, taken := owners[ino]; taken {
				continue
			}
			if name == "" {
				comm, _ := os.ReadFile(base + "/comm")
				name = strings.TrimSuffix(string(comm), "\n")
			}
			owners[ino] = socketOwner{pid: pid, name: name}
		}
	}
	return owners
}

// socketInode returns the inode number of a "socket:[N]" fd link.
func socketInode(link string) (uint64, bool) {
	ino, ok := strings.CutPrefix(link, "socket:[")
	if !ok {
		return 0, false
	}
	ino, ok = strings.CutSuffix(ino, "]")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(ino, 10, 64)
	return n, err == nil
}
