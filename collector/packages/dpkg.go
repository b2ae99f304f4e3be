// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package packages

import (
	"bufio"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
)

// dpkgPackages returns the installed packages listed in the dpkg status
// database below dbpath, in database order. The installation time is the
// modification time of a package's file list.
func dpkgPackages(scope controller.Scope, dbpath string) iter.Seq2[feature.Package, error] {
	return func(yield func(feature.Package, error) bool) {
		dbdir, err := scope.Path(dbpath)
		if err != nil {
			yield(feature.Package{}, err)
			return
		}
		f, err := os.Open(filepath.Join(dbdir, "status"))
		if err != nil {
			yield(feature.Package{}, err)
			return
		}
		defer f.Close()
		stanzas := parseDpkgStatus(bufio.NewScanner(f))
		for stanza, err := range stanzas {
			if err != nil {
				yield(feature.Package{}, err)
				return
			}
			if !dpkgInstalled(stanza["Status"]) {
				continue
			}
			pkg := feature.Package{
				Name:      stanza["Package"],
				Version:   stanza["Version"],
				Installed: dpkgInstallTime(dbdir, stanza["Package"], stanza["Architecture"]),
				Manager:   "dpkg",
			}
			if kib, err := strconv.ParseInt(stanza["Installed-Size"], 10, 64); err == nil {
				pkg.Size = kib * 1024
			}
			if !yield(pkg, nil) {
				return
			}
		}
	}
}

// parseDpkgStatus returns the stanzas of a dpkg status file, skipping
// continuation lines.
func parseDpkgStatus(scanner *bufio.Scanner) iter.Seq2[map[string]string, error] {
	return func(yield func(map[string]string, error) bool) {
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		stanza := map[string]string{}
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				if len(stanza) > 0 && !yield(stanza, nil) {
					return
				}
				stanza = map[string]string{}
				continue
			}
			if line[0] == ' ' || line[0] == '\t' {
				continue
			}
			name, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			stanza[name] = strings.TrimSpace(value)
		}
		if err := scanner.Err(); err != nil {
			yield(nil, err)
			return
		}
		if len(stanza) > 0 {
			yield(stanza, nil)
		}
	}
}

// dpkgInstalled returns true for the status "install ok installed".
func dpkgInstalled(status string) bool {
	fields := strings.Fields(status)
	return len(fields) == 3 && fields[2] == "installed"
}

func dpkgInstallTime(dbdir, name, arch string) string {
	candidates := []string{name + ".list"}
	if arch != "" {
		candidates = append(candidates, name+":"+arch+".list")
	}
	for _, candidate := range candidates {
		info, err := os.Stat(filepath.Join(dbdir, "info", candidate))
		if err == nil {
			return info.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return feature.Unsupported
}
