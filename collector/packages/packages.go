// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package packages

import (
	"context"
	"iter"
	"os"
	"time"

	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/collector/system"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
	"github.com/thediveo/lxkns/log"
)

const packagesAction = "packages"

// Default package database locations, relative to the root of the file
// system.
const (
	DpkgDB = "/var/lib/dpkg"
	RpmDB  = "/var/lib/rpm"
)

// Packages collects installed packages.
type Packages struct{}

// args are the arguments of the package collection function.
type args struct {
	DBPath string // overrides the default database location
	Since  int64  // only packages installed at or after, in Unix seconds; 0 for all
}

func init() {
	controller.Register[args, feature.Package](packagesAction, collectPackages)
	collector.Register(Packages{})
}

// Name returns "package".
func (Packages) Name() string { return feature.TypePackage }

// Collect the installed packages, keyed by package name.
func (Packages) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	a := args{DBPath: env.Options.PackageDB}
	if !env.FeatureEpoch.IsZero() {
		a.Since = env.FeatureEpoch.Unix()
	}
	if env.Options.AvoidNamespaces && env.Controller.Configured() == controller.OutOfContainer {
		return collector.Tag(feature.TypePackage,
			controller.RunAvoidingNamespaces[args, feature.Package](ctx, env.Controller, packagesAction, a))
	}
	return collector.Tag(feature.TypePackage,
		controller.CollectWithFallback[args, feature.Package](ctx, env.Controller, collector.AllNamespaces, packagesAction, a))
}

func collectPackages(ctx context.Context, scope controller.Scope, a args, yield func(string, feature.Package) bool) error {
	if scope.Mode != controller.Local && scope.Mode != controller.OfflineImage {
		return &controller.UnsupportedModeError{Mode: scope.Mode, Operation: "collecting packages"}
	}
	manager := detectManager(scope)
	var pkgs iter.Seq2[feature.Package, error]
	switch manager {
	case "dpkg":
		pkgs = dpkgPackages(scope, valueOr(a.DBPath, DpkgDB))
	case "rpm":
		pkgs = rpmPackages(ctx, scope, valueOr(a.DBPath, RpmDB))
	default:
		log.Warnf("no supported package manager found")
		return nil
	}
	for pkg, err := range pkgs {
		if err != nil {
			return err
		}
		if a.Since != 0 && pkg.Installed != "" && pkg.Installed != feature.Unsupported &&
			installedBefore(pkg.Installed, a.Since) {
			continue
		}
		if !yield(pkg.Name, pkg) {
			return nil
		}
	}
	return nil
}

// detectManager returns the package manager of the file system in scope,
// going by the distribution first and by the presence of package databases
// second.
func detectManager(scope controller.Scope) string {
	if release, err := system.OSRelease(scope); err == nil {
		switch release["ID"] {
		case "debian", "ubuntu":
			return "dpkg"
		case "rhel", "redhat", "fedora", "centos":
			return "rpm"
		}
	}
	for _, candidate := range []struct{ db, manager string }{
		{DpkgDB, "dpkg"},
		{RpmDB, "rpm"},
	} {
		path, err := scope.Path(candidate.db)
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return candidate.manager
		}
	}
	return ""
}

func installedBefore(installed string, since int64) bool {
	t, err := time.Parse(time.RFC3339, installed)
	if err != nil {
		return false
	}
	return t.Unix() < since
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
