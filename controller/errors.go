// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package controller

import "fmt"

// ConfigurationError reports a mode and target that don't fit together.
type ConfigurationError struct {
	Mode   Mode
	Target Target
}

func (e *ConfigurationError) Error() string {
	if e.Target == nil {
		return fmt.Sprintf("crawl mode %s requires a target", e.Mode)
	}
	return fmt.Sprintf("crawl mode %s cannot be used with a target of type %T", e.Mode, e.Target)
}

// UnsupportedModeError reports an operation that has no implementation for a
// particular mode, such as enumerating live processes of an offline image.
type UnsupportedModeError struct {
	Mode      Mode
	Operation string
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("%s not supported in crawl mode %s", e.Operation, e.Mode)
}
