// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

// Package all pulls in all built-in feature collectors.
package all

import (
	_ "github.com/siemens/nscrawler/collector/cgroupmetrics" // cpu, memory
	_ "github.com/siemens/nscrawler/collector/dockerinspect" // dockerinspect
	_ "github.com/siemens/nscrawler/collector/dockerps"      // dockerps, dockerhistory
	_ "github.com/siemens/nscrawler/collector/files"         // file, config
	_ "github.com/siemens/nscrawler/collector/netif"         // interface, connection
	_ "github.com/siemens/nscrawler/collector/packages"      // package
	_ "github.com/siemens/nscrawler/collector/system"        // os, load, process, metric, disk
)
