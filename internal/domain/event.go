package domain

import (
	"time"

	"github.com/google/uuid"
)

// Scope names the class of device an event concerns.
type Scope string

const (
	ScopeStation Scope = "station"
	ScopeHub     Scope = "hub"
)

// EventKind identifies a notable state transition.
type EventKind string

const (
	EventNewOK        EventKind = "new_ok"
	EventNewError     EventKind = "new_error"
	EventOnline       EventKind = "online"
	EventOffline      EventKind = "offline"
	EventReboot       EventKind = "reboot"
	EventFirmware     EventKind = "firmware"
	EventSensorsOK    EventKind = "sensors_ok"
	EventSensorsError EventKind = "sensors_error"
	EventBatteryOK    EventKind = "batt_ok"
	EventBatteryLow   EventKind = "batt_low"
	EventBatteryCrit  EventKind = "batt_critical"
	EventStrike       EventKind = "strike"
	EventPrecip       EventKind = "precip"
)

// EventPayload carries the values a notification template needs. Fields not
// relevant to an event kind are left zero.
type EventPayload struct {
	Firmware    *int   `json:"firmware,omitempty"`
	OldFirmware *int   `json:"old_firmware,omitempty"`
	Uptime      *int64 `json:"uptime,omitempty"`
	OldUptime   *int64 `json:"old_uptime,omitempty"`

	SensorStatus    string `json:"station_sensors,omitempty"`
	OldSensorStatus string `json:"old_station_sensors,omitempty"`

	BatteryVoltage *float64     `json:"battvolts,omitempty"`
	BatteryMode    *BatteryMode `json:"battmode,omitempty"`
	BatteryHealth  *int         `json:"battery_health,omitempty"`

	StrikeDistance *float64 `json:"strike_distance,omitempty"`
	StrikeEnergy   *float64 `json:"strike_energy,omitempty"`

	ResetReasons string `json:"reset_reasons,omitempty"`
	LastSeen     int64  `json:"last_seen,omitempty"`
}

// Event is the outcome of evaluating a record or sweeping for offline
// devices.
type Event struct {
	Scope        Scope        `json:"scope"`
	DeviceSerial string       `json:"serial"`
	Kind         EventKind    `json:"event"`
	Payload      EventPayload `json:"payload"`
}

// Severity classifies a notification for the delivery transport.
type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notification is the rendered, transport-agnostic message handed to sinks.
type Notification struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Severity     Severity  `json:"severity"`
	Scope        Scope     `json:"scope,omitempty"`
	DeviceSerial string    `json:"serial,omitempty"`
	Event        EventKind `json:"event,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewNotification renders an event into a Notification stamped with now.
func NewNotification(ev Event, now time.Time) Notification {
	title, body, sev := Format(ev)
	return Notification{
		ID:           uuid.NewString(),
		Title:        title,
		Body:         body,
		Severity:     sev,
		Scope:        ev.Scope,
		DeviceSerial: ev.DeviceSerial,
		Event:        ev.Kind,
		CreatedAt:    now.UTC(),
	}
}

// NewLifecycleNotification builds a message about the monitor itself, such
// as startup or shutdown.
func NewLifecycleNotification(body string, sev Severity, now time.Time) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Title:     "WeatherFlow",
		Body:      body,
		Severity:  sev,
		CreatedAt: now.UTC(),
	}
}

// OutputEvent is a serialized notification destined for a message broker.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
