// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package system

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/siemens/nscrawler/controller"
)

var osReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

// OSRelease returns the os-release variables of the file system in scope;
// an empty map if there is no os-release file.
func OSRelease(scope controller.Scope) (map[string]string, error) {
	for _, path := range osReleasePaths {
		hostpath, err := scope.Path(path)
		if err != nil {
			continue
		}
		f, err := os.Open(hostpath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		defer f.Close()
		return parseOSRelease(bufio.NewScanner(f))
	}
	return map[string]string{}, nil
}

func parseOSRelease(scanner *bufio.Scanner) (map[string]string, error) {
	vars := map[string]string{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(value, `"`):
			if unquoted, err := strconv.Unquote(value); err == nil {
				value = unquoted
			} else {
				value = strings.Trim(value, `"`)
			}
		case strings.HasPrefix(value, "'"):
			value = strings.Trim(value, "'")
		}
		vars[name] = value
	}
	return vars, scanner.Err()
}
