// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package sandbox

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/siemens/nscrawler/feature"
	"github.com/siemens/nscrawler/unsorted"
)

// maxFrameLine limits the length of a single result frame line.
const maxFrameLine = 4 * 1024 * 1024

// Harvest consumes the earliest result frame file in the specified directory,
// returning its features in file order and then deleting the file. Only files
// with plain decimal names count as frame files. A missing or empty directory
// yields no features and no error.
//
// While its companion is running, the newest frame file might still be in the
// making. With running set, Harvest thus leaves the newest frame file alone
// until a later one shows up.
//
// A frame file that cannot be parsed is reported as a [*HarvestError] and
// stays in place, so later frame files won't get consumed before it.
func Harvest(dir string, running bool) ([]feature.Feature, error) {
	frame, ok, err := earliestFrame(dir, running)
	if err != nil || !ok {
		return nil, err
	}
	content, err := os.ReadFile(frame)
	if err != nil {
		return nil, &HarvestError{Frame: frame, Err: err}
	}
	features, err := parseFrame(frame, content)
	if err != nil {
		return nil, err
	}
	// Features of a frame we could not delete would be delivered again.
	if err := os.Remove(frame); err != nil {
		return nil, &HarvestError{Frame: frame, Err: err}
	}
	return features, nil
}

// earliestFrame returns the path of the frame file with the lowest sequence
// number in dir. With holdNewest set, the frame file with the highest
// sequence number never gets returned.
func earliestFrame(dir string, holdNewest bool) (string, bool, error) {
	entries, err := unsorted.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, &HarvestError{Frame: dir, Err: err}
	}
	type frame struct {
		seq  uint64
		name string
	}
	frames := make([]frame, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		seq, err := strconv.ParseUint(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		frames = append(frames, frame{seq: seq, name: entry.Name()})
	}
	if holdNewest && len(frames) > 0 {
		newest := 0
		for idx := range frames {
			if frames[idx].seq > frames[newest].seq {
				newest = idx
			}
		}
		frames = slices.Delete(frames, newest, newest+1)
	}
	if len(frames) == 0 {
		return "", false, nil
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].seq < frames[j].seq })
	return filepath.Join(dir, frames[0].name), true, nil
}

// parseFrame parses the lines of a frame file, skipping blank lines.
func parseFrame(frame string, content []byte) ([]feature.Feature, error) {
	features := []feature.Feature{}
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameLine)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		f, err := parseFeatureLine(line)
		if err != nil {
			return nil, &HarvestError{Frame: frame, Line: lineno, Err: err}
		}
		features = append(features, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, &HarvestError{Frame: frame, Err: err}
	}
	return features, nil
}

// parseFeatureLine parses "<type> <key> <value-literal>", where the value
// literal is everything after the key and thus may contain whitespace.
func parseFeatureLine(line string) (feature.Feature, error) {
	typ, rest := nextField(line)
	key, literal := nextField(rest)
	if typ == "" || key == "" || literal == "" {
		return feature.Feature{}, errors.New("expected <type> <key> <value>")
	}
	value, err := DecodeLiteral(literal)
	if err != nil {
		return feature.Feature{}, err
	}
	return feature.Feature{Key: key, Type: typ, Value: value}, nil
}

// nextField splits off the leading whitespace-delimited field of s.
func nextField(s string) (field string, rest string) {
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, ""
	}
	return s[:end], strings.TrimLeftFunc(s[end:], unicode.IsSpace)
}
