// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package cgroupfs

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// readUint returns the single unsigned integer value from the specified file.
func readUint(path string) (uint64, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(content)), 10, 64)
}

// readUints returns the whitespace-separated unsigned integer values from the
// first line of the specified file.
func readUints(path string) ([]uint64, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	line, _, _ := strings.Cut(string(content), "\n")
	fields := strings.Fields(line)
	values := make([]uint64, 0, len(fields))
	for _, field := range fields {
		value, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// readKeyValues returns the "key value" pairs from a flat keyed file, such as
// "memory.stat" or "cpuacct.stat". Lines with non-numeric values are skipped.
func readKeyValues(path string) (map[string]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	kv := map[string]uint64{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), " ")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		if err != nil {
			continue
		}
		kv[key] = v
	}
	return kv, scanner.Err()
}
