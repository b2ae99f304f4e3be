// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/siemens/nscrawler/cgroupfs"
	"github.com/siemens/nscrawler/engine"
	"github.com/siemens/nscrawler/feature"
	"github.com/siemens/nscrawler/guests"
	"github.com/thediveo/lxkns/log"
	"github.com/thediveo/lxkns/model"
	"github.com/thediveo/lxkns/species"
	"golang.org/x/sys/unix"
)

// Mount points inside companions.
const (
	RootfsMount = "/rootfs_local"
	FramesMount = "/frames"
)

// Manager provisions, isolates, harvests, and tears down the companions of
// guest containers. Companions are tracked in a table keyed by guest ID. A
// Manager can be used from multiple goroutines, as long as each guest is
// served by only one goroutine at a time.
type Manager struct {
	runtime     engine.Runtime
	image       string
	command     []string
	user        string
	hostUID     int
	seccompPath string
	seccomp     []byte
	allowPtrace bool
	stateDir    string
	accounting  cgroupfs.Accounting
	classIDBase uint32
	firewall    Firewall
	netns       func(pid model.PIDType) (species.NamespaceID, error)

	mu         sync.Mutex
	companions map[string]*Companion // by guest ID
}

// NewManager returns a Manager creating companions through the specified
// container runtime.
func NewManager(rt engine.Runtime, opts ...Option) (*Manager, error) {
	m := &Manager{
		runtime:     rt,
		image:       DefaultImage,
		command:     DefaultCommand,
		user:        DefaultUser,
		hostUID:     DefaultHostUID,
		stateDir:    DefaultStateDir,
		classIDBase: DefaultClassIDBase,
		firewall:    Iptables{},
		netns:       netnsID,
		companions:  map[string]*Companion{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.runtime == nil {
		return nil, errors.New("sandbox manager needs a container runtime")
	}
	if isRoot(m.user) {
		return nil, fmt.Errorf("companion user %q must not be root", m.user)
	}
	if m.hostUID <= 0 {
		return nil, fmt.Errorf("invalid host user ID %d for companions", m.hostUID)
	}
	var err error
	if m.seccompPath != "" {
		m.seccomp, err = loadSeccompProfile(m.seccompPath)
	} else {
		m.seccomp, err = SeccompProfile(m.allowPtrace)
	}
	if err != nil {
		return nil, err
	}
	if m.accounting == nil {
		acc, err := cgroupfs.New()
		if err != nil {
			log.Warnf("companion traffic won't be classified, reason: %s", err.Error())
		} else {
			m.accounting = acc
		}
	}
	return m, nil
}

func isRoot(user string) bool {
	name, _, _ := strings.Cut(user, ":")
	return name == "" || name == "root" || name == "0"
}

// Features returns the features of the earliest complete result frame of the
// guest's companion, provisioning the companion first if necessary. As the
// companion is running, its newest frame file is left for a later crawl.
// Failures are logged and result in no features.
func (m *Manager) Features(ctx context.Context, guest guests.Guest) []feature.Feature {
	c, err := m.companion(ctx, guest)
	if err != nil {
		log.Errorf("no plugin features for guest %s (%s): %s",
			guest.Name, guest.ID, err.Error())
		return nil
	}
	features, err := Harvest(c.ResultDir, true)
	if err != nil {
		log.Errorf("no plugin features for guest %s (%s): %s",
			guest.Name, guest.ID, err.Error())
		return nil
	}
	log.Debugf("harvested %d plugin features for guest %s (%s)",
		len(features), guest.Name, guest.ID)
	return features
}

// Companion returns the companion of the specified guest, if any.
func (m *Manager) Companion(guestID string) (Companion, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companions[guestID]
	if !ok {
		return Companion{}, false
	}
	return *c, true
}

// Guests returns the IDs of the guests with companions, sorted.
func (m *Manager) Guests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.companions))
	for id := range m.companions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// companion returns the live companion of the guest, provisioning and
// isolating a new one if there is none yet or the previous one has gone.
func (m *Manager) companion(ctx context.Context, guest guests.Guest) (*Companion, error) {
	m.mu.Lock()
	c := m.companions[guest.ID]
	m.mu.Unlock()
	if c != nil {
		if m.alive(ctx, c) {
			return c, nil
		}
		log.Infof("companion %s of guest %s has gone, provisioning anew",
			c.ContainerID, guest.ID)
		if err := m.Teardown(ctx, guest.ID); err != nil {
			log.Warnf("incomplete teardown of companion %s: %s", c.ContainerID, err.Error())
		}
	}
	c, err := m.provision(ctx, guest)
	if err != nil {
		return nil, err
	}
	if err := m.isolate(ctx, c); err != nil {
		return nil, &IsolationError{
			GuestID:     guest.ID,
			CompanionID: c.ContainerID,
			Err:         errors.Join(err, m.teardown(ctx, c)),
		}
	}
	m.mu.Lock()
	m.companions[guest.ID] = c
	m.mu.Unlock()
	log.Infof("companion %s (PID %d) of guest %s ready",
		c.ContainerID, c.PID, guest.ID)
	return c, nil
}

// alive returns true if the companion's initial process is still running.
func (m *Manager) alive(ctx context.Context, c *Companion) bool {
	info, err := m.runtime.Inspect(ctx, c.ContainerID)
	if err != nil {
		return false
	}
	return info.Running() && info.PID == c.PID
}

// provision creates and starts a companion for the guest.
func (m *Manager) provision(ctx context.Context, guest guests.Guest) (*Companion, error) {
	if guest.ID == "" {
		return nil, &ProvisionError{Err: errors.New("guest without ID")}
	}
	rootfs, err := m.runtime.RootfsPath(ctx, guest.ID)
	if err != nil {
		return nil, &ProvisionError{GuestID: guest.ID, Err: err}
	}
	resultDir := filepath.Join(m.stateDir, guest.ID)
	if err := os.MkdirAll(resultDir, 0o700); err != nil {
		return nil, &ProvisionError{GuestID: guest.ID, Err: err}
	}
	if err := os.Chown(resultDir, m.hostUID, -1); err != nil {
		_ = os.RemoveAll(resultDir)
		return nil, &ProvisionError{GuestID: guest.ID, Err: err}
	}
	capadd := []string{"DAC_READ_SEARCH"}
	if m.allowPtrace {
		capadd = append(capadd, "SYS_PTRACE")
	}
	log.Debugf("provisioning companion for guest %s from image %s", guest.ID, m.image)
	info, err := m.runtime.Create(ctx, engine.CompanionSpec{
		Name:    companionName(guest.ID),
		Image:   m.image,
		Command: m.command,
		User:    m.user,
		GuestID: guest.ID,
		Binds: []engine.Bind{
			{Source: rootfs, Target: RootfsMount, ReadOnly: true},
			{Source: resultDir, Target: FramesMount},
		},
		CapAdd:  capadd,
		Seccomp: string(m.seccomp),
		Labels:  map[string]string{engine.CompanionLabel: guest.ID},
	})
	if err != nil {
		_ = os.RemoveAll(resultDir)
		return nil, &ProvisionError{GuestID: guest.ID, Err: err}
	}
	profile := m.seccompPath
	if profile == "" {
		profile = DefaultSeccompProfile
	}
	return &Companion{
		GuestID:     guest.ID,
		GuestPID:    guest.PID,
		ContainerID: info.ID,
		PID:         info.PID,
		ResultDir:   resultDir,
		Policy:      Policy{SeccompProfile: profile},
	}, nil
}

func companionName(guestID string) string {
	if len(guestID) > 12 {
		guestID = guestID[:12]
	}
	return "nscrawler-companion-" + guestID
}

// isolate classifies the companion's traffic and installs its packet filter
// rule, recording what has been applied in the companion's policy. Without
// classified traffic the rule can only match the companion's user ID, which
// is acceptable only outside the host network namespace.
func (m *Manager) isolate(ctx context.Context, c *Companion) error {
	c.Policy.ClassID = classID(m.classIDBase, c.ContainerID)
	if m.accounting != nil {
		dir, err := m.accounting.Classify(c.PID, c.Policy.ClassID)
		switch {
		case errors.Is(err, errors.ErrUnsupported):
			log.Infof("not classifying traffic of companion %s: %s", c.ContainerID, err.Error())
		case err != nil:
			c.Policy.CgroupDir = dir
			return fmt.Errorf("cannot classify traffic, reason: %w", err)
		default:
			c.Policy.CgroupDir = dir
		}
	}
	var classid uint32
	if c.Policy.CgroupDir != "" {
		classid = c.Policy.ClassID
	} else {
		hostns, err := m.inHostNetns(c.PID)
		if err != nil {
			return fmt.Errorf("cannot determine network namespace, reason: %w", err)
		}
		if hostns {
			return errors.New("cannot isolate unclassified traffic in the host network namespace")
		}
	}
	c.Policy.Rule = CompanionDropRule(m.hostUID, c.ContainerID, classid)
	if err := m.firewall.Insert(ctx, c.PID, c.Policy.Rule); err != nil {
		return fmt.Errorf("cannot install packet filter rule, reason: %w", err)
	}
	c.Policy.RuleInstalled = true
	return nil
}

// inHostNetns returns true if the process with the specified PID is attached
// to the network namespace of the crawler.
func (m *Manager) inHostNetns(pid model.PIDType) (bool, error) {
	host, err := m.netns(0)
	if err != nil {
		return false, err
	}
	netns, err := m.netns(pid)
	if err != nil {
		return false, err
	}
	return netns == host, nil
}

// Teardown removes the companion of the specified guest together with its
// packet filter rule, net_cls cgroup, and result directory. All removals are
// attempted even if some fail.
func (m *Manager) Teardown(ctx context.Context, guestID string) error {
	m.mu.Lock()
	c, ok := m.companions[guestID]
	delete(m.companions, guestID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.teardown(ctx, c)
}

// Close tears down all companions.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	companions := m.companions
	m.companions = map[string]*Companion{}
	m.mu.Unlock()
	var errs []error
	for _, c := range companions {
		errs = append(errs, m.teardown(ctx, c))
	}
	return errors.Join(errs...)
}

// teardown undoes the isolation of a companion and removes it. The net_cls
// child cgroup goes before the container, as the engine cannot remove the
// container's cgroup while it still has children.
func (m *Manager) teardown(ctx context.Context, c *Companion) error {
	log.Debugf("tearing down companion %s of guest %s", c.ContainerID, c.GuestID)
	var errs []error
	if c.Policy.RuleInstalled {
		// The rule lives in the network namespace shared with the guest,
		// which is gone when neither process is left.
		if pid := netnsHolder(c); pid != 0 {
			if err := m.firewall.Delete(ctx, pid, c.Policy.Rule); err != nil {
				errs = append(errs, fmt.Errorf("cannot remove packet filter rule, reason: %w", err))
			}
		}
	}
	if c.Policy.CgroupDir != "" && m.accounting != nil {
		if err := m.accounting.Unclassify(c.Policy.CgroupDir); err != nil {
			errs = append(errs, err)
		}
	}
	if c.ContainerID != "" {
		if err := m.runtime.Remove(ctx, c.ContainerID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(c.ResultDir); err != nil {
		errs = append(errs, fmt.Errorf("cannot remove result directory, reason: %w", err))
	}
	return errors.Join(errs...)
}

// netnsHolder returns a process attached to the network namespace of the
// companion, or zero.
func netnsHolder(c *Companion) model.PIDType {
	for _, pid := range []model.PIDType{c.PID, c.GuestPID} {
		if pid == 0 {
			continue
		}
		if err := unix.Kill(int(pid), 0); err == nil || err == unix.EPERM {
			return pid
		}
	}
	return 0
}
