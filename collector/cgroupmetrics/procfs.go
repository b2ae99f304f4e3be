// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package cgroupmetrics

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// procRoot is where the host's proc file system is mounted.
var procRoot = "/proc"

// Indices of the columns in the per-CPU lines of /proc/stat.
const (
	statUser = iota
	statNice
	statSystem
	statIdle
	statIOWait
	statIRQ
	statSoftIRQ
	statSteal
	statColumns
)

// readCPUTimes returns the cumulative per-CPU times from /proc/stat, in
// ascending CPU order.
func readCPUTimes() ([][]float64, error) {
	f, err := os.Open(procRoot + "/stat")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	times := [][]float64{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || !strings.HasPrefix(fields[0], "cpu") || fields[0] == "cpu" {
			continue
		}
		if len(fields) < 1+statColumns {
			// older kernels lack the steal column.
			fields = append(fields, make([]string, 1+statColumns-len(fields))...)
		}
		cpu := make([]float64, statColumns)
		for idx := range cpu {
			if fields[1+idx] == "" {
				continue
			}
			cpu[idx], err = strconv.ParseFloat(fields[1+idx], 64)
			if err != nil {
				return nil, fmt.Errorf("malformed %s/stat: %w", procRoot, err)
			}
		}
		times = append(times, cpu)
	}
	return times, scanner.Err()
}

// readMeminfo returns the values from /proc/meminfo in bytes.
func readMeminfo() (map[string]int64, error) {
	f, err := os.Open(procRoot + "/meminfo")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info := map[string]int64{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		fields := strings.Fields(value)
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}
		if len(fields) > 1 && fields[1] == "kB" {
			v *= 1024
		}
		info[name] = v
	}
	return info, scanner.Err()
}
