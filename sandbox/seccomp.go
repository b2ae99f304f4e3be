// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package sandbox

import (
	"encoding/json"
	"fmt"
	"os"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"
)

// DefaultSeccompProfile names the built-in seccomp profile in
// [Policy.SeccompProfile].
const DefaultSeccompProfile = "builtin:no-ptrace"

// tracingSyscalls are denied unless ptrace is allowed.
var tracingSyscalls = []string{
	"ptrace",
	"process_vm_readv",
	"process_vm_writev",
}

// peekingSyscalls are always denied.
var peekingSyscalls = []string{
	"kcmp",
	"pidfd_getfd",
	"perf_event_open",
}

// SeccompProfile returns the built-in seccomp profile in JSON format: it
// allows all syscalls except for process tracing and inspection ones, which
// fail with EPERM.
func SeccompProfile(allowPtrace bool) ([]byte, error) {
	denied := append([]string{}, peekingSyscalls...)
	if !allowPtrace {
		denied = append(denied, tracingSyscalls...)
	}
	errnoRet := uint(unix.EPERM)
	profile := specs.LinuxSeccomp{
		DefaultAction: specs.ActAllow,
		Syscalls: []specs.LinuxSyscall{
			{
				Names:    denied,
				Action:   specs.ActErrno,
				ErrnoRet: &errnoRet,
			},
		},
	}
	return json.Marshal(profile)
}

// loadSeccompProfile reads and checks the seccomp profile at path.
func loadSeccompProfile(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read seccomp profile, reason: %w", err)
	}
	var profile specs.LinuxSeccomp
	if err := json.Unmarshal(content, &profile); err != nil {
		return nil, fmt.Errorf("invalid seccomp profile %s, reason: %w", path, err)
	}
	if profile.DefaultAction == "" {
		return nil, fmt.Errorf("invalid seccomp profile %s, reason: no default action", path)
	}
	return content, nil
}
