// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package nscrawler

import (
	"time"

	"github.com/google/uuid"
	"github.com/siemens/nscrawler/feature"
)

// System types of frames.
const (
	SystemHost      = "host"
	SystemImage     = "image"
	SystemVM        = "vm"
	SystemContainer = "container"
)

// Frame is the result of a single collection pass for a single target.
type Frame struct {
	Metadata Metadata          `json:"metadata"`
	Features []feature.Feature `json:"features"`
}

// Metadata describes a frame.
type Metadata struct {
	UUID          string    `json:"uuid"`
	Timestamp     time.Time `json:"timestamp"`
	SystemType    string    `json:"system_type"`
	Namespace     string    `json:"namespace"`
	Features      []string  `json:"features"`
	ContainerID   string    `json:"container_long_id,omitempty"`
	ContainerName string    `json:"container_name,omitempty"`
	Engine        string    `json:"container_engine,omitempty"`
	Project       string    `json:"project,omitempty"`
}

func newFrame(systemType, namespace string, features []string) *Frame {
	return &Frame{
		Metadata: Metadata{
			UUID:       uuid.NewString(),
			Timestamp:  time.Now().UTC(),
			SystemType: systemType,
			Namespace:  namespace,
			Features:   features,
		},
		Features: []feature.Feature{},
	}
}
