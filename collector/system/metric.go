// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package system

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/moby/sys/user"
	"github.com/siemens/nscrawler/collector"
	"github.com/siemens/nscrawler/controller"
	"github.com/siemens/nscrawler/feature"
	"github.com/siemens/nscrawler/ratecache"
)

const metricAction = "system-metric"

// clockTicks is USER_HZ, the unit of the CPU times in /proc/[PID]/stat.
const clockTicks = 100

// Metric collects the resource usage of the processes of a target.
type Metric struct{}

// metricSample is a process metric together with the cumulative CPU time it
// has used so far, in seconds.
type metricSample struct {
	Metric    feature.Metric
	CPUTime   float64
	Starttime uint64
}

func init() {
	controller.Register[string, metricSample](metricAction, collectMetrics)
	collector.Register(Metric{})
}

// Name returns "metric".
func (Metric) Name() string { return feature.TypeMetric }

// Collect the resource usage of all processes visible in the target's PID
// namespace, in ascending PID order and keyed by "name/PID". The CPU usage
// is a rate and thus needs a rate cache; it is zero on the first collection
// of a process, as well as without a rate cache.
func (Metric) Collect(ctx context.Context, env *collector.Env) iter.Seq2[feature.Feature, error] {
	return func(yield func(feature.Feature, error) bool) {
		prefix := collector.CachePrefix(env.Controller) + "metric-"
		seen := map[string]struct{}{}
		for pair, err := range controller.RunUnderNamespaces[string, metricSample](
			ctx, env.Controller, collector.MountNamespace, metricAction, "/proc") {
			if err != nil {
				yield(feature.Feature{}, err)
				return
			}
			metric := pair.Value.Metric
			if env.Cache != nil {
				key := prefix + strconv.Itoa(metric.PID) + "-" + strconv.FormatUint(pair.Value.Starttime, 10)
				seen[key] = struct{}{}
				rates := ratecache.Observe(env.Cache, key, ratecache.Snapshot{pair.Value.CPUTime})
				metric.CPUPct = percent(rates[0])
			}
			if !yield(feature.Feature{Key: pair.Key, Type: feature.TypeMetric, Value: metric}, nil) {
				return
			}
		}
		if env.Cache == nil {
			return
		}
		// forget the CPU times of processes that are gone.
		env.Cache.Evict(func(key string, _ ratecache.Entry) bool {
			_, ok := seen[key]
			return !ok && strings.HasPrefix(key, prefix)
		})
	}
}

func collectMetrics(_ context.Context, scope controller.Scope, procRoot string, yield func(string, metricSample) bool) error {
	if !scope.Local() {
		return &controller.UnsupportedModeError{Mode: scope.Mode, Operation: "collecting process metrics"}
	}
	memTotal, err := readMemTotal(procRoot + "/meminfo")
	if err != nil {
		return err
	}
	users := map[int]string{}
	for _, pid := range pids(procRoot) {
		sample, uid, ok := readMetric(procRoot, pid)
		if !ok {
			continue
		}
		name, known := users[uid]
		if !known {
			name = strconv.Itoa(uid)
			if u, err := user.LookupUid(uid); err == nil {
				name = u.Name
			}
			users[uid] = name
		}
		sample.Metric.User = name
		if memTotal > 0 {
			sample.Metric.MemPct = percent(float64(sample.Metric.RSS) / float64(memTotal))
		}
		if !yield(sample.Metric.Name+"/"+strconv.Itoa(pid), sample) {
			return nil
		}
	}
	return nil
}

// pids returns the PIDs in the proc file system mounted at procRoot, in
// ascending order.
func pids(procRoot string) []int {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil
	}
	pids := make([]int, 0, len(entries))
	for _, entry := range entries {
		if pid, err := strconv.Atoi(entry.Name()); err == nil && entry.IsDir() {
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	return pids
}

// readMetric returns the metric of the specified process and its real user
// ID. It returns false for zombies and processes that are gone.
func readMetric(procRoot string, pid int) (metricSample, int, bool) {
	base := procRoot + "/" + strconv.Itoa(pid)
	stat, err := os.ReadFile(base + "/stat")
	if err != nil {
		return metricSample{}, 0, false
	}
	sample, err := parseStat(string(stat), os.Getpagesize())
	if err != nil || sample.Metric.Status == "zombie" {
		return metricSample{}, 0, false
	}
	sample.Metric.PID = pid
	var proc feature.Process
	if !readStatus(base+"/status", &proc) {
		return metricSample{}, 0, false
	}
	sample.Metric.Read, sample.Metric.Write = readIO(base + "/io")
	return sample, proc.UID, true
}

// parseStat parses the contents of a /proc/[PID]/stat file.
func parseStat(stat string, pagesize int) (metricSample, error) {
	open := strings.IndexByte(stat, '(')
	closing := strings.LastIndexByte(stat, ')')
	if open < 0 || closing < open {
		return metricSample{}, fmt.Errorf("malformed process stat %q", stat)
	}
	// fields following the command name, starting with the state (3).
	fields := strings.Fields(stat[closing+1:])
	if len(fields) < 22 {
		return metricSample{}, fmt.Errorf("malformed process stat %q", stat)
	}
	field := func(n int) uint64 {
		v, _ := strconv.ParseUint(fields[n-3], 10, 64)
		return v
	}
	return metricSample{
		Metric: feature.Metric{
			Name:   stat[open+1 : closing],
			Status: processStatus(fields[0]),
			VMS:    field(23),
			RSS:    field(24) * uint64(pagesize),
		},
		CPUTime:   float64(field(14)+field(15)) / clockTicks,
		Starttime: field(22),
	}, nil
}

var statusNames = map[string]string{
	"R": "running",
	"S": "sleeping",
	"D": "disk-sleep",
	"Z": "zombie",
	"T": "stopped",
	"t": "tracing-stop",
	"X": "dead",
	"x": "dead",
	"I": "idle",
	"K": "wake-kill",
	"W": "waking",
	"P": "parked",
}

func processStatus(state string) string {
	if name, ok := statusNames[state]; ok {
		return name
	}
	return state
}

// readIO returns the bytes a process caused to be read from and written to
// storage, or zeros if we aren't allowed to know.
func readIO(path string) (read, write uint64) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		switch name {
		case "read_bytes":
			read, _ = strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		case "write_bytes":
			write, _ = strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		}
	}
	return read, write
}

// readMemTotal returns the total memory in bytes.
func readMemTotal(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || name != "MemTotal" {
			continue
		}
		fields := strings.Fields(value)
		if len(fields) == 0 {
			break
		}
		kib, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed %s: %w", path, err)
		}
		return kib * 1024, nil
	}
	return 0, fmt.Errorf("no MemTotal in %s", path)
}

// percent returns the ratio in percent, rounded to two decimals.
func percent(ratio float64) float64 {
	return math.Round(ratio*10000) / 100
}
