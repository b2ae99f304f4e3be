// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package sandbox

import (
	"github.com/siemens/nscrawler/cgroupfs"
)

// Defaults of a [Manager].
const (
	DefaultImage       = "nscrawler-plugins:latest"
	DefaultUser        = "65534:65534"
	DefaultHostUID     = 65534
	DefaultStateDir    = "/var/lib/nscrawler/companions"
	DefaultClassIDBase = 0x00430000
)

// DefaultCommand runs the plugins inside the companion.
var DefaultCommand = []string{"/usr/local/bin/nscrawler-plugins", "--frames", "/frames"}

// Option configures a [Manager].
type Option func(*Manager)

// WithImage sets the companion image.
func WithImage(image string) Option {
	return func(m *Manager) {
		m.image = image
	}
}

// WithCommand sets the command run inside the companion.
func WithCommand(command ...string) Option {
	return func(m *Manager) {
		m.command = command
	}
}

// WithUser sets the unprivileged user inside the companion running the
// plugins, in "uid[:gid]" or user name form. Root is not allowed.
func WithUser(user string) Option {
	return func(m *Manager) {
		m.user = user
	}
}

// WithHostUID sets the user ID the companion's user maps to on the host; it
// owns the result directories and is matched by the packet filter rule.
func WithHostUID(uid int) Option {
	return func(m *Manager) {
		m.hostUID = uid
	}
}

// WithSeccompProfile uses the seccomp profile in JSON format at the specified
// path instead of the built-in profile.
func WithSeccompProfile(path string) Option {
	return func(m *Manager) {
		m.seccompPath = path
	}
}

// WithPtrace allows companions to trace the processes of their guests.
func WithPtrace(allow bool) Option {
	return func(m *Manager) {
		m.allowPtrace = allow
	}
}

// WithStateDir sets the host directory where the result directories of the
// companions get created.
func WithStateDir(dir string) Option {
	return func(m *Manager) {
		m.stateDir = dir
	}
}

// WithAccounting sets the cgroup accounting used for net_cls classification.
func WithAccounting(acc cgroupfs.Accounting) Option {
	return func(m *Manager) {
		m.accounting = acc
	}
}

// WithClassIDBase sets the net_cls major class number, in the upper 16 bits.
func WithClassIDBase(base uint32) Option {
	return func(m *Manager) {
		m.classIDBase = base
	}
}

// WithFirewall sets the packet filter; defaults to [Iptables].
func WithFirewall(fw Firewall) Option {
	return func(m *Manager) {
		m.firewall = fw
	}
}
