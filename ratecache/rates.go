// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package ratecache

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoElapsedTime reports that no time has passed between two snapshots (or
// the clock went backwards), so no rate can be derived from them.
var ErrNoElapsedTime = errors.New("no time elapsed between counter snapshots")

// Rates returns the per-second rates of change between the previous entry and
// the current snapshot observed at now. Snapshots of differing lengths are
// reported as an error, and so are snapshots without time elapsed in between,
// using [ErrNoElapsedTime].
func Rates(prev Entry, curr Snapshot, now time.Time) (Snapshot, error) {
	if len(prev.Snapshot) != len(curr) {
		return nil, fmt.Errorf("mismatching counter snapshot lengths %d and %d",
			len(prev.Snapshot), len(curr))
	}
	elapsed := now.Sub(prev.ObservedAt).Seconds()
	if elapsed <= 0 {
		return nil, ErrNoElapsedTime
	}
	rates := make(Snapshot, len(curr))
	for idx := range curr {
		rates[idx] = (curr[idx] - prev.Snapshot[idx]) / elapsed
	}
	return rates, nil
}

// Observe returns the rates for the current snapshot with respect to the
// snapshot previously stored under the specified key, and then stores the
// current snapshot. If there is no previous snapshot, or no rate can be
// derived from it, Observe returns all-zero rates.
func Observe(c *Cache, key string, curr Snapshot) Snapshot {
	now := c.Now()
	prev, ok := c.Get(key)
	c.putAt(key, curr, now)
	if !ok {
		return make(Snapshot, len(curr))
	}
	rates, err := Rates(prev, curr, now)
	if err != nil {
		return make(Snapshot, len(curr))
	}
	return rates
}
