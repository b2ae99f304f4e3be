// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/siemens/nscrawler/cgroupfs"
	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/sandbox"
)

// DefaultPath is where the configuration is read from unless told otherwise.
const DefaultPath = "/etc/nscrawler/config.yaml"

// Config is the complete configuration of a crawler process.
type Config struct {
	Features         []string      `yaml:"features"`
	Workers          int           `yaml:"workers"`
	Frequency        time.Duration `yaml:"frequency"` // zero crawls only once.
	FeatureEpoch     string        `yaml:"feature-epoch"`
	CollectorTimeout time.Duration `yaml:"collector-timeout"`
	StrictPlugins    bool          `yaml:"strict-plugins"`
	LogLevel         string        `yaml:"log-level"`
	Engines          Engines       `yaml:"engines"`
	Collectors       Collectors    `yaml:"collectors"`
	Sandbox          Sandbox       `yaml:"sandbox"`
}

// Engines lists the API endpoints of the container engines to watch. With no
// endpoints at all, Docker engines get discovered from the running processes.
type Engines struct {
	Docker              string `yaml:"docker"`
	Containerd          string `yaml:"containerd"`
	ContainerdNamespace string `yaml:"containerd-namespace"`
	CRI                 string `yaml:"cri"`
	Procfs              string `yaml:"procfs"`
}

// Collectors tunes the built-in collectors.
type Collectors struct {
	Root            string   `yaml:"root"`
	Exclude         []string `yaml:"exclude"`
	KnownConfigs    []string `yaml:"known-configs"`
	DiscoverConfigs bool     `yaml:"discover-configs"`
	AvoidNamespaces bool     `yaml:"avoid-namespaces"`
	PerCPU          bool     `yaml:"per-cpu"`
	PackageDB       string   `yaml:"package-db"`
}

// Sandbox configures the companion containers running untrusted plugins.
type Sandbox struct {
	Enabled        bool     `yaml:"enabled"`
	Image          string   `yaml:"image"`
	Command        []string `yaml:"command"`
	User           string   `yaml:"user"`
	HostUID        int      `yaml:"host-uid"`
	SeccompProfile string   `yaml:"seccomp-profile"`
	AllowPtrace    bool     `yaml:"allow-ptrace"`
	StateDir       string   `yaml:"state-dir"`
	CgroupRoot     string   `yaml:"cgroup-root"`
	ClassIDBase    uint32   `yaml:"classid-base"`
}

// Default returns the configuration used in absence of a configuration file.
func Default() *Config {
	return &Config{
		Features: []string{"os", "cpu"},
		LogLevel: "info",
		Engines: Engines{
			Procfs: "/proc",
		},
		Collectors: Collectors{
			Root:    "/",
			Exclude: slices.Clone(collector.DefaultExclude),
		},
		Sandbox: Sandbox{
			Image:       sandbox.DefaultImage,
			Command:     slices.Clone(sandbox.DefaultCommand),
			User:        sandbox.DefaultUser,
			HostUID:     sandbox.DefaultHostUID,
			StateDir:    sandbox.DefaultStateDir,
			ClassIDBase: sandbox.DefaultClassIDBase,
		},
	}
}

// Load reads the configuration from the specified file, on top of the
// defaults. A file that doesn't exist yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("cannot read configuration, reason: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse configuration %s, reason: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s, reason: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings that otherwise would fail only late, in the
// middle of crawling.
func (c *Config) Validate() error {
	if len(c.Features) == 0 {
		return errors.New("no features to crawl")
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid number of workers %d", c.Workers)
	}
	if c.Frequency < 0 {
		return fmt.Errorf("invalid crawl frequency %s", c.Frequency)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.Epoch(); err != nil {
		return err
	}
	if c.Sandbox.Enabled && c.Sandbox.HostUID <= 0 {
		return fmt.Errorf("invalid companion host user ID %d", c.Sandbox.HostUID)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return lvl, nil
}

// Epoch returns the configured feature epoch, or the zero time if none has
// been configured.
func (c *Config) Epoch() (time.Time, error) {
	if c.FeatureEpoch == "" {
		return time.Time{}, nil
	}
	epoch, err := time.Parse(time.RFC3339, c.FeatureEpoch)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid feature epoch %q, reason: %w", c.FeatureEpoch, err)
	}
	return epoch, nil
}

// CollectorOptions returns the tuning of the built-in collectors.
func (c *Config) CollectorOptions() collector.Options {
	return collector.Options{
		Root:            c.Collectors.Root,
		Exclude:         c.Collectors.Exclude,
		KnownConfigs:    c.Collectors.KnownConfigs,
		DiscoverConfigs: c.Collectors.DiscoverConfigs,
		AvoidNamespaces: c.Collectors.AvoidNamespaces,
		PerCPU:          c.Collectors.PerCPU,
		PackageDB:       c.Collectors.PackageDB,
	}
}

// SandboxOptions returns the options for a companion manager.
func (c *Config) SandboxOptions() ([]sandbox.Option, error) {
	opts := []sandbox.Option{
		sandbox.WithImage(c.Sandbox.Image),
		sandbox.WithCommand(c.Sandbox.Command...),
		sandbox.WithUser(c.Sandbox.User),
		sandbox.WithHostUID(c.Sandbox.HostUID),
		sandbox.WithPtrace(c.Sandbox.AllowPtrace),
		sandbox.WithStateDir(c.Sandbox.StateDir),
		sandbox.WithClassIDBase(c.Sandbox.ClassIDBase),
	}
	if c.Sandbox.SeccompProfile != "" {
		opts = append(opts, sandbox.WithSeccompProfile(c.Sandbox.SeccompProfile))
	}
	if c.Sandbox.CgroupRoot != "" {
		acc, err := cgroupfs.New(cgroupfs.WithRoot(c.Sandbox.CgroupRoot))
		if err != nil {
			return nil, fmt.Errorf("no cgroup accounting at %s, reason: %w", c.Sandbox.CgroupRoot, err)
		}
		opts = append(opts, sandbox.WithAccounting(acc))
	}
	return opts, nil
}
