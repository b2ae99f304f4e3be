// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package sandbox

import (
	"context"
	"strconv"

	"github.com/docker/docker/libnetwork/iptables"
	"github.com/siemens/nscrawler/nsexec"
	"github.com/thediveo/lxkns/model"
	"github.com/thediveo/lxkns/ops"
	"github.com/thediveo/lxkns/species"
)

// Rule is a packet filter rule.
type Rule struct {
	Table string
	Chain string
	Args  []string
}

// CompanionDropRule returns the rule dropping all outbound traffic of a
// single companion: traffic owned by the specified user ID and, unless
// classid is zero, carrying the companion's net_cls class ID. The rule
// comment names the companion, so the rules of companions sharing a network
// namespace never collapse into one.
func CompanionDropRule(uid int, companionID string, classid uint32) Rule {
	args := []string{
		"-p", "all",
		"-m", "owner", "--uid-owner", strconv.Itoa(uid),
	}
	if classid != 0 {
		args = append(args, "-m", "cgroup", "--cgroup", strconv.FormatUint(uint64(classid), 10))
	}
	args = append(args,
		"-m", "comment", "--comment", ruleComment(companionID),
		"-j", "DROP")
	return Rule{
		Table: string(iptables.Filter),
		Chain: "OUTPUT",
		Args:  args,
	}
}

// ruleComment returns the packet filter rule comment for a companion,
// keeping within the 256 characters iptables accepts.
func ruleComment(companionID string) string {
	comment := "nscrawler-companion-" + companionID
	if len(comment) > 255 {
		comment = comment[:255]
	}
	return comment
}

// netnsID returns the identifier of the network namespace of the process
// with the specified PID, or of the calling process if pid is zero.
func netnsID(pid model.PIDType) (species.NamespaceID, error) {
	path := "/proc/self/ns/net"
	if pid != 0 {
		path = "/proc/" + strconv.FormatUint(uint64(pid), 10) + "/ns/net"
	}
	return ops.NamespacePath(path).ID()
}

// Firewall installs and removes packet filter rules in the network namespace
// of a process.
type Firewall interface {
	Insert(ctx context.Context, pid model.PIDType, rule Rule) error
	Delete(ctx context.Context, pid model.PIDType, rule Rule) error
}

// Iptables is a [Firewall] programming IPv4 iptables rules. It runs the
// iptables command in a child process attached to the network namespace of
// the specified process.
type Iptables struct{}

var _ Firewall = Iptables{}

const packetFilterAction = "sandbox-packet-filter"

type packetFilterArgs struct {
	Action string
	Rule   Rule
}

func init() {
	nsexec.Register[packetFilterArgs, struct{}](packetFilterAction,
		func(_ context.Context, args packetFilterArgs, _ func(string, struct{}) bool) error {
			return iptables.GetIptable(iptables.IPv4).ProgramRule(
				iptables.Table(args.Rule.Table), args.Rule.Chain,
				iptables.Action(args.Action), args.Rule.Args)
		})
}

// Insert the rule at the top of its chain, unless it already exists.
func (Iptables) Insert(ctx context.Context, pid model.PIDType, rule Rule) error {
	return programRule(ctx, pid, iptables.Insert, rule)
}

// Delete the rule, if it exists.
func (Iptables) Delete(ctx context.Context, pid model.PIDType, rule Rule) error {
	return programRule(ctx, pid, iptables.Delete, rule)
}

func programRule(ctx context.Context, pid model.PIDType, action iptables.Action, rule Rule) error {
	for _, err := range nsexec.Execute[packetFilterArgs, struct{}](ctx, pid,
		[]species.NamespaceType{species.CLONE_NEWNET},
		packetFilterAction, packetFilterArgs{Action: string(action), Rule: rule}) {
		if err != nil {
			return err
		}
	}
	return nil
}
