package alert

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/couchcryptid/tempest-monitor/internal/domain"
)

// devicesKey holds the ordered serial list in the status document.
const devicesKey = "devices"

// Registry holds the status of every device ever seen, keyed by serial, plus
// the order in which serials were first registered. It is not safe for
// concurrent use; the owner serializes access.
type Registry struct {
	entries map[string]domain.DeviceEntry
	order   []string
}

// Device is a registry entry paired with its serial.
type Device struct {
	Serial string `json:"serial"`
	domain.DeviceEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]domain.DeviceEntry)}
}

// Load replaces the registry contents with the document read from src and
// returns the number of devices restored. A nil, unreadable or malformed
// source leaves the registry empty and returns 0.
func (r *Registry) Load(src io.Reader) int {
	r.reset()
	if src == nil {
		return 0
	}

	var doc map[string]json.RawMessage
	if err := json.NewDecoder(src).Decode(&doc); err != nil {
		return 0
	}
	var serials []string
	if raw, ok := doc[devicesKey]; ok {
		if err := json.Unmarshal(raw, &serials); err != nil {
			return 0
		}
	}

	entries := make(map[string]domain.DeviceEntry, len(serials))
	order := make([]string, 0, len(serials))
	for _, serial := range serials {
		raw, ok := doc[serial]
		if !ok || serial == devicesKey {
			continue
		}
		if _, dup := entries[serial]; dup {
			continue
		}
		var e domain.DeviceEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return 0
		}
		entries[serial] = e
		order = append(order, serial)
	}

	r.entries = entries
	r.order = order
	return len(order)
}

// Save writes the whole registry to w as one JSON document with sorted keys
// and four-space indentation.
func (r *Registry) Save(w io.Writer) error {
	doc := make(map[string]any, len(r.entries)+1)
	order := r.KnownSerials()
	doc[devicesKey] = order
	for _, serial := range order {
		doc[serial] = r.entries[serial]
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// Get returns a copy of the entry for serial.
func (r *Registry) Get(serial string) (domain.DeviceEntry, bool) {
	e, ok := r.entries[serial]
	if !ok {
		return domain.DeviceEntry{}, false
	}
	return e.Clone(), true
}

// Upsert stores e under serial, registering the serial if it is new. The
// reserved "devices" key cannot be stored; it would overwrite the serial list
// in the status document.
func (r *Registry) Upsert(serial string, e domain.DeviceEntry) {
	if !ValidSerial(serial) {
		return
	}
	if _, ok := r.entries[serial]; !ok {
		r.order = append(r.order, serial)
	}
	r.entries[serial] = e.Clone()
}

// ValidSerial reports whether serial can be kept in the registry.
func ValidSerial(serial string) bool {
	return serial != "" && serial != devicesKey
}

// KnownSerials returns serials in registration order.
func (r *Registry) KnownSerials() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered devices.
func (r *Registry) Len() int { return len(r.order) }

// Snapshot returns a copy of every entry in registration order.
func (r *Registry) Snapshot() []Device {
	out := make([]Device, 0, len(r.order))
	for _, serial := range r.order {
		out = append(out, Device{Serial: serial, DeviceEntry: r.entries[serial].Clone()})
	}
	return out
}

func (r *Registry) reset() {
	r.entries = make(map[string]domain.DeviceEntry)
	r.order = nil
}
