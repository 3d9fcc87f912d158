package domain

// DeviceType distinguishes a Tempest sensor unit from its hub.
type DeviceType string

const (
	DeviceStation DeviceType = "station"
	DeviceHub     DeviceType = "hub"
)

// OnlineStatus is the liveness state tracked per device.
type OnlineStatus string

const (
	StatusOnline  OnlineStatus = "online"
	StatusOffline OnlineStatus = "offline"
)

// BatteryMode is the Tempest power-saving tier. Higher modes sample less
// often to conserve charge.
type BatteryMode int

const (
	BatteryModeFull    BatteryMode = 0
	BatteryModeSaver1  BatteryMode = 1
	BatteryModeSaver2  BatteryMode = 2
	BatteryModeSaver3  BatteryMode = 3
	BatteryModeInvalid BatteryMode = 5
)

// Description lists what the station does in this mode.
func (m BatteryMode) Description() string {
	switch m {
	case BatteryModeFull:
		return "* All sensors enabled and operating at full performance\n* Wind sampling interval every 3 seconds"
	case BatteryModeSaver1:
		return "* Wind sampling interval set to 6 seconds"
	case BatteryModeSaver2:
		return "* Wind sampling interval set to one minute"
	case BatteryModeSaver3:
		return "* Wind sampling interval set to 5 minutes\n* All other sensors' sampling interval set to 5 minutes\n* Haptic Rain sensor disabled from active listening"
	default:
		return "* ERROR - Invalid Battery Mode"
	}
}

// DeviceEntry is the persisted status of one device. The JSON layout is
// shared with status files written by earlier versions of the monitor.
type DeviceEntry struct {
	BatteryMode    *BatteryMode `json:"battmode,omitempty"`
	BatteryVoltage *float64     `json:"battvolts,omitempty"`
	Firmware       *int         `json:"firmware,omitempty"`
	LastSeen       int64        `json:"last_seen"`
	Status         OnlineStatus `json:"status"`
	SensorStatus   string       `json:"station_sensors,omitempty"`
	Type           DeviceType   `json:"type"`
	Uptime         *int64       `json:"uptime,omitempty"`
}

// Clone returns a deep copy so callers can mutate it without touching the
// original.
func (e DeviceEntry) Clone() DeviceEntry {
	out := e
	if e.BatteryMode != nil {
		m := *e.BatteryMode
		out.BatteryMode = &m
	}
	if e.BatteryVoltage != nil {
		v := *e.BatteryVoltage
		out.BatteryVoltage = &v
	}
	if e.Firmware != nil {
		f := *e.Firmware
		out.Firmware = &f
	}
	if e.Uptime != nil {
		u := *e.Uptime
		out.Uptime = &u
	}
	return out
}

// Online reports whether the device is currently marked online.
func (e DeviceEntry) Online() bool { return e.Status == StatusOnline }
