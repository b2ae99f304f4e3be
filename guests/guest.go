// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package guests

import (
	"github.com/thediveo/lxkns/model"
)

// Guest is a running container to be crawled from the outside.
type Guest struct {
	ID      string
	Name    string
	PID     model.PIDType // initial container process
	Engine  string        // engine type, such as "docker.com"
	Project string        // composer project, if any
	Paused  bool
	Labels  map[string]string
}
