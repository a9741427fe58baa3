// Package l1 defines how an arm controller is identified and found
// by remote tools.
package l1

import (
	"strings"
)

// ControllerRef is a reference to an arm controller.
type ControllerRef struct {
	// Type is controller type (arm model).
	Type string
	// ID is unique ID of the device.
	ID string
}

// Name retrieves the name from ref, also used as the topic prefix.
func (r ControllerRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates ControllerRef is valid.
func (r ControllerRef) IsValid() bool {
	return r.Type != "" && r.ID != "" &&
		!strings.ContainsAny(r.Type, "/+#") && !strings.ContainsAny(r.ID, "/+#")
}

// ParseRef parses "type/id".
func ParseRef(name string) (ref ControllerRef, ok bool) {
	items := strings.Split(name, "/")
	if len(items) != 2 {
		return
	}
	ref.Type, ref.ID = items[0], items[1]
	return ref, ref.IsValid()
}

// ControllerMeta provides metadata for an arm controller.
type ControllerMeta struct {
	Description string            `json:"description,omitempty"`
	Port        string            `json:"port,omitempty"`
	Profile     string            `json:"profile,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// ControllerInfo provides information of an arm controller.
type ControllerInfo struct {
	Ref  ControllerRef
	Meta ControllerMeta
}
