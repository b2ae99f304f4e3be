// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package packages

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"iter"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
)

// rpmQueryFormat lists name, version-release, size and install time, separated
// by "|".
const rpmQueryFormat = `%{NAME}|%{VERSION}-%{RELEASE}|%{SIZE}|%{INSTALLTIME}\n`

// rpmCommand is the rpm binary; replaceable in tests.
var rpmCommand = "rpm"

// rpmPackages queries the rpm database below dbpath using the rpm binary of
// the collector.
func rpmPackages(ctx context.Context, scope controller.Scope, dbpath string) iter.Seq2[feature.Package, error] {
	return func(yield func(feature.Package, error) bool) {
		root := scope.Root
		if root == "" {
			root = "/"
		}
		cmd := exec.CommandContext(ctx, rpmCommand,
			"--root", root, "--dbpath", dbpath,
			"-qa", "--queryformat", rpmQueryFormat)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err != nil {
			yield(feature.Package{}, fmt.Errorf("rpm query failed: %w, %s",
				err, strings.TrimSpace(stderr.String())))
			return
		}
		for pkg, err := range parseRpmQuery(bufio.NewScanner(bytes.NewReader(out))) {
			if !yield(pkg, err) || err != nil {
				return
			}
		}
	}
}

func parseRpmQuery(scanner *bufio.Scanner) iter.Seq2[feature.Package, error] {
	return func(yield func(feature.Package, error) bool) {
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			fields := strings.Split(line, "|")
			if len(fields) != 4 {
				yield(feature.Package{}, fmt.Errorf("malformed rpm query output %q", line))
				return
			}
			pkg := feature.Package{
				Name:      fields[0],
				Version:   fields[1],
				Installed: feature.Unsupported,
				Manager:   "rpm",
			}
			pkg.Size, _ = strconv.ParseInt(fields[2], 10, 64)
			if secs, err := strconv.ParseInt(fields[3], 10, 64); err == nil {
				pkg.Installed = time.Unix(secs, 0).UTC().Format(time.RFC3339)
			}
			if !yield(pkg, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(feature.Package{}, err)
		}
	}
}
