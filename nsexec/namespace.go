// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nsexec

import (
	"strconv"
	"strings"

	"github.com/thediveo/lxkns/model"
	"github.com/thediveo/lxkns/species"
)

// AllNamespaces lists the namespace types an action can be run in. Joining
// the PID namespace of a target only affects any processes an action itself
// spawns, while the mount namespace gives an action the target's view of its
// file system, including its /proc.
var AllNamespaces = []species.NamespaceType{
	species.CLONE_NEWNS,
	species.CLONE_NEWNET,
	species.CLONE_NEWPID,
	species.CLONE_NEWUTS,
	species.CLONE_NEWIPC,
}

// nsnames maps the supported namespace types to their names in procfs, which
// are also the names used by gons in its environment variables.
var nsnames = map[species.NamespaceType]string{
	species.CLONE_NEWNS:  "mnt",
	species.CLONE_NEWNET: "net",
	species.CLONE_NEWPID: "pid",
	species.CLONE_NEWUTS: "uts",
	species.CLONE_NEWIPC: "ipc",
}

// gonsEnvPrefix prefixes the environment variables telling gons which
// namespaces to join, such as "gons_net=/proc/42/ns/net".
const gonsEnvPrefix = "gons_"

// gonsOrderEnv names the environment variable telling gons in which sequence
// to join the namespaces. A "!" makes gons open a namespace path before the
// first switch, so all paths still resolve in the initial mount namespace.
const gonsOrderEnv = gonsEnvPrefix + "order"

// namespaceEnv returns the gons environment variables for joining the
// specified namespaces of the process with the specified PID. The mount
// namespace is always joined first, the order of the others doesn't matter. An
// unsupported namespace type is reported as an error.
func namespaceEnv(pid model.PIDType, nstypes []species.NamespaceType) ([]string, error) {
	env := make([]string, 0, len(nstypes)+1)
	order := make([]string, 0, len(nstypes))
	base := "/proc/" + strconv.FormatUint(uint64(pid), 10) + "/ns/"
	var mnt bool
	for _, nstype := range nstypes {
		name, ok := nsnames[nstype]
		if !ok {
			return nil, &UnsupportedNamespaceError{Type: nstype}
		}
		if nstype == species.CLONE_NEWNS {
			mnt = true
			continue
		}
		env = append(env, gonsEnvPrefix+name+"="+base+name)
		order = append(order, "!"+name)
	}
	if mnt {
		env = append([]string{gonsEnvPrefix + "mnt=" + base + "mnt"}, env...)
		order = append([]string{"!mnt"}, order...)
	}
	if len(order) > 0 {
		env = append(env, gonsOrderEnv+"="+strings.Join(order, ","))
	}
	return env, nil
}
