// Package alert turns decoded Tempest records into device state transitions.
//
// The [Engine] keeps one [domain.DeviceEntry] per serial in a [Registry] and
// reports at most one [domain.Event] per record. The [Scanner] sweeps the same
// registry for devices that have stopped reporting. Neither type locks; the
// caller serializes access to the shared registry.
package alert

import (
	"errors"

	"github.com/couchcryptid/tempest-monitor/internal/domain"
	"github.com/jonboulle/clockwork"
)

// ErrMalformedRecord is returned for a record the engine cannot attribute to
// a device. The registry is left untouched.
var ErrMalformedRecord = errors.New("malformed record")

// statusReport is the common view of device_status and hub_status packets.
type statusReport struct {
	scope        domain.Scope
	serial       string
	firmware     *int
	uptime       *int64
	sensors      string
	voltage      *float64
	health       *int
	resetReasons string
}

// rule inspects a report against a working copy of the device entry. It may
// update the copy and returns an event when it fires.
type rule struct {
	name        string
	stationOnly bool
	apply       func(r statusReport, e *domain.DeviceEntry) *domain.Event
}

// statusRules run in order after the new-device check; the first rule to
// return an event ends evaluation.
var statusRules = []rule{
	{name: "online", apply: checkOnline},
	{name: "reboot", apply: checkReboot},
	{name: "firmware", apply: checkFirmware},
	{name: "sensors", stationOnly: true, apply: checkSensors},
	{name: "battery", stationOnly: true, apply: checkBattery},
}

// Engine evaluates records against the registry.
type Engine struct {
	reg   *Registry
	clock clockwork.Clock
	rules []rule
}

// NewEngine returns an Engine over reg. A nil clock uses wall time.
func NewEngine(reg *Registry, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{reg: reg, clock: clock, rules: statusRules}
}

// Evaluate applies rec to the registry and returns the resulting event, or
// nil when nothing notable happened. Observations and rapid wind samples
// never produce events.
func (en *Engine) Evaluate(rec domain.Record) (*domain.Event, error) {
	switch r := rec.(type) {
	case *domain.DeviceStatus:
		if r == nil {
			return nil, ErrMalformedRecord
		}
		return en.evaluateStatus(stationReport(r))
	case *domain.HubStatus:
		if r == nil {
			return nil, ErrMalformedRecord
		}
		return en.evaluateStatus(hubReport(r))
	case *domain.LightningStrike:
		if r == nil || r.DeviceSerial == "" {
			return nil, ErrMalformedRecord
		}
		return &domain.Event{
			Scope:        domain.ScopeStation,
			DeviceSerial: r.DeviceSerial,
			Kind:         domain.EventStrike,
			Payload:      domain.EventPayload{StrikeDistance: r.Distance, StrikeEnergy: r.Energy},
		}, nil
	case *domain.PrecipitationEvent:
		if r == nil || r.DeviceSerial == "" {
			return nil, ErrMalformedRecord
		}
		return &domain.Event{
			Scope:        domain.ScopeStation,
			DeviceSerial: r.DeviceSerial,
			Kind:         domain.EventPrecip,
		}, nil
	case nil:
		return nil, ErrMalformedRecord
	default:
		return nil, nil
	}
}

func stationReport(d *domain.DeviceStatus) statusReport {
	return statusReport{
		scope:    domain.ScopeStation,
		serial:   d.DeviceSerial,
		firmware: d.FirmwareRevision,
		uptime:   d.Uptime,
		sensors:  d.SensorStatusText,
		voltage:  d.Voltage,
		health:   d.BatteryHealth,
	}
}

func hubReport(h *domain.HubStatus) statusReport {
	return statusReport{
		scope:        domain.ScopeHub,
		serial:       h.DeviceSerial,
		firmware:     h.FirmwareRevision,
		uptime:       h.Uptime,
		resetReasons: h.ResetReasons,
	}
}

func (en *Engine) evaluateStatus(r statusReport) (*domain.Event, error) {
	if !ValidSerial(r.serial) {
		return nil, ErrMalformedRecord
	}
	now := en.clock.Now().Unix()

	stored, ok := en.reg.Get(r.serial)
	if !ok {
		entry, ev := newDevice(r, now)
		en.reg.Upsert(r.serial, entry)
		return ev, nil
	}

	e := stored.Clone()
	if now > e.LastSeen {
		e.LastSeen = now
	}
	for _, rl := range en.rules {
		if rl.stationOnly && r.scope != domain.ScopeStation {
			continue
		}
		if ev := rl.apply(r, &e); ev != nil {
			en.reg.Upsert(r.serial, e)
			return ev, nil
		}
	}
	en.reg.Upsert(r.serial, e)
	return nil, nil
}

// newDevice builds the first entry for a serial. A station is new_ok only
// when firmware, uptime and a healthy sensor status were all reported; a hub
// needs firmware and uptime.
func newDevice(r statusReport, now int64) (domain.DeviceEntry, *domain.Event) {
	e := domain.DeviceEntry{
		Type:         domain.DeviceType(r.scope),
		Firmware:     r.firmware,
		Uptime:       r.uptime,
		SensorStatus: r.sensors,
		LastSeen:     now,
		Status:       domain.StatusOnline,
	}
	if r.scope == domain.ScopeStation && r.sensors == "" {
		e.SensorStatus = domain.SensorStatusUnknown
	}
	if r.scope == domain.ScopeStation && r.voltage != nil {
		mode := SeedBatteryMode(*r.voltage)
		e.BatteryVoltage = r.voltage
		e.BatteryMode = &mode
	}

	kind := domain.EventNewOK
	if r.firmware == nil || r.uptime == nil {
		kind = domain.EventNewError
	}
	if r.scope == domain.ScopeStation && r.sensors != domain.SensorStatusOK {
		kind = domain.EventNewError
	}

	return e.Clone(), &domain.Event{
		Scope:        r.scope,
		DeviceSerial: r.serial,
		Kind:         kind,
		Payload: domain.EventPayload{
			Firmware:       r.firmware,
			Uptime:         r.uptime,
			SensorStatus:   e.SensorStatus,
			BatteryVoltage: r.voltage,
			BatteryHealth:  r.health,
		},
	}
}

func checkOnline(r statusReport, e *domain.DeviceEntry) *domain.Event {
	if e.Online() {
		return nil
	}
	e.Status = domain.StatusOnline
	if r.uptime != nil {
		e.Uptime = r.uptime
	}
	return &domain.Event{
		Scope:        r.scope,
		DeviceSerial: r.serial,
		Kind:         domain.EventOnline,
		Payload:      domain.EventPayload{Uptime: e.Uptime, LastSeen: e.LastSeen},
	}
}

// checkReboot records the reported uptime whether or not it fires.
func checkReboot(r statusReport, e *domain.DeviceEntry) *domain.Event {
	if r.uptime == nil {
		return nil
	}
	old := e.Uptime
	e.Uptime = r.uptime
	if old == nil || *r.uptime >= *old {
		return nil
	}
	return &domain.Event{
		Scope:        r.scope,
		DeviceSerial: r.serial,
		Kind:         domain.EventReboot,
		Payload: domain.EventPayload{
			Uptime:       r.uptime,
			OldUptime:    old,
			Firmware:     r.firmware,
			ResetReasons: r.resetReasons,
		},
	}
}

func checkFirmware(r statusReport, e *domain.DeviceEntry) *domain.Event {
	if r.firmware == nil {
		return nil
	}
	old := e.Firmware
	if old == nil {
		e.Firmware = r.firmware
		return nil
	}
	if *old == *r.firmware {
		return nil
	}
	e.Firmware = r.firmware
	return &domain.Event{
		Scope:        r.scope,
		DeviceSerial: r.serial,
		Kind:         domain.EventFirmware,
		Payload:      domain.EventPayload{Firmware: r.firmware, OldFirmware: old},
	}
}

func checkSensors(r statusReport, e *domain.DeviceEntry) *domain.Event {
	if r.sensors == "" {
		return nil
	}
	old := e.SensorStatus
	// Entries restored from a status file without the field seed silently.
	if old == "" {
		e.SensorStatus = r.sensors
		return nil
	}
	if old == r.sensors {
		return nil
	}
	e.SensorStatus = r.sensors

	kind := domain.EventSensorsError
	if r.sensors == domain.SensorStatusOK {
		kind = domain.EventSensorsOK
	}
	return &domain.Event{
		Scope:        r.scope,
		DeviceSerial: r.serial,
		Kind:         kind,
		Payload: domain.EventPayload{
			SensorStatus:    r.sensors,
			OldSensorStatus: old,
			BatteryVoltage:  e.BatteryVoltage,
			BatteryMode:     e.BatteryMode,
		},
	}
}

// checkBattery stores the latest voltage and alerts only when the mode
// changes. The first voltage seen for a station seeds the mode silently.
func checkBattery(r statusReport, e *domain.DeviceEntry) *domain.Event {
	if r.voltage == nil {
		return nil
	}
	volts := *r.voltage
	e.BatteryVoltage = &volts
	if e.BatteryMode == nil {
		mode := SeedBatteryMode(volts)
		e.BatteryMode = &mode
		return nil
	}

	current := *e.BatteryMode
	next := NextBatteryMode(current, volts)
	if next == current {
		return nil
	}
	e.BatteryMode = &next
	return &domain.Event{
		Scope:        r.scope,
		DeviceSerial: r.serial,
		Kind:         batteryEvent(next),
		Payload: domain.EventPayload{
			BatteryVoltage: &volts,
			BatteryMode:    &next,
			BatteryHealth:  r.health,
		},
	}
}

// RuleOrder lists the status rules in evaluation order, after the new-device
// check.
func (en *Engine) RuleOrder() []string {
	names := make([]string, len(en.rules))
	for i, rl := range en.rules {
		names[i] = rl.name
	}
	return names
}
