package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds     int64
		granularity int
		want        string
	}{
		{0, 3, "0 seconds"},
		{1, 3, "1 second"},
		{59, 3, "59 seconds"},
		{61, 3, "1 minute, 1 second"},
		{600, 3, "10 minutes"},
		{7200, 3, "2 hours"},
		{694861, 3, "1 week, 1 day, 1 hour"},
		{694861, 5, "1 week, 1 day, 1 hour, 1 minute, 1 second"},
		{1670133, 2, "2 weeks, 5 days"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds, tt.granularity), "seconds=%d", tt.seconds)
	}
}

func TestSeverityFor(t *testing.T) {
	tests := map[EventKind]Severity{
		EventNewOK:         SeverityOK,
		EventOnline:        SeverityOK,
		EventBatteryOK:     SeverityOK,
		EventSensorsOK:     SeverityOK,
		EventFirmware:      SeverityWarning,
		EventReboot:        SeverityWarning,
		EventBatteryLow:    SeverityWarning,
		EventNewError:      SeverityError,
		EventOffline:       SeverityError,
		EventSensorsError:  SeverityError,
		EventBatteryCrit:   SeverityError,
		EventStrike:        SeverityInfo,
		EventPrecip:        SeverityInfo,
		EventKind("bogus"): SeverityError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, SeverityFor(kind), "kind=%s", kind)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		title string
		body  string
		sev   Severity
	}{
		{
			name: "reboot",
			event: Event{Scope: ScopeStation, DeviceSerial: "ST-1", Kind: EventReboot,
				Payload: EventPayload{OldUptime: ptr(int64(600)), Uptime: ptr(int64(30))}},
			title: "Station ST-1 Has Rebooted",
			body:  "Uptime was: 600 seconds (10 minutes)",
			sev:   SeverityWarning,
		},
		{
			name: "hub reboot with reset reasons",
			event: Event{Scope: ScopeHub, DeviceSerial: "HB-1", Kind: EventReboot,
				Payload: EventPayload{OldUptime: ptr(int64(61)), ResetReasons: "Brownout reset"}},
			title: "Hub HB-1 Has Rebooted",
			body:  "Uptime was: 61 seconds (1 minute, 1 second)\nReset Reason: Brownout reset",
			sev:   SeverityWarning,
		},
		{
			name: "firmware",
			event: Event{Scope: ScopeStation, DeviceSerial: "ST-1", Kind: EventFirmware,
				Payload: EventPayload{OldFirmware: ptr(100), Firmware: ptr(101)}},
			title: "Station ST-1 Firmware has Changed",
			body:  "*Old Firmware:* 100\n*New Firmware:* 101",
			sev:   SeverityWarning,
		},
		{
			name: "offline",
			event: Event{Scope: ScopeHub, DeviceSerial: "HB-1", Kind: EventOffline,
				Payload: EventPayload{Uptime: ptr(int64(7200))}},
			title: "Hub HB-1 Has Gone Offline",
			body:  "Uptime was: 7200 seconds (2 hours)",
			sev:   SeverityError,
		},
		{
			name: "online",
			event: Event{Scope: ScopeStation, DeviceSerial: "ST-1", Kind: EventOnline,
				Payload: EventPayload{Uptime: ptr(int64(1))}},
			title: "Station ST-1 Is Now Back Online",
			body:  "Uptime is: 1 seconds (1 second)",
			sev:   SeverityOK,
		},
		{
			name: "battery ok",
			event: Event{Scope: ScopeStation, DeviceSerial: "ST-1", Kind: EventBatteryOK,
				Payload: EventPayload{BatteryVoltage: ptr(2.48), BatteryMode: ptr(BatteryModeFull)}},
			title: "Station ST-1 Battery is now OK - Mode 0",
			body:  "Battery Voltage is: 2.48\n* All sensors enabled and operating at full performance\n* Wind sampling interval every 3 seconds",
			sev:   SeverityOK,
		},
		{
			name: "battery low",
			event: Event{Scope: ScopeStation, DeviceSerial: "ST-1", Kind: EventBatteryLow,
				Payload: EventPayload{BatteryVoltage: ptr(2.37), BatteryMode: ptr(BatteryModeSaver2)}},
			title: "Station ST-1 Battery is Low - Mode 2",
			body:  "Battery Voltage is: 2.37\n* Wind sampling interval set to one minute",
			sev:   SeverityWarning,
		},
		{
			name: "battery critical invalid mode",
			event: Event{Scope: ScopeStation, DeviceSerial: "ST-1", Kind: EventBatteryCrit,
				Payload: EventPayload{BatteryVoltage: ptr(2.36), BatteryMode: ptr(BatteryModeInvalid)}},
			title: "Station ST-1 Battery is Critical - Mode 5",
			body:  "Battery Voltage is: 2.36\n* ERROR - Invalid Battery Mode",
			sev:   SeverityError,
		},
		{
			name: "strike",
			event: Event{Scope: ScopeStation, DeviceSerial: "ST-1", Kind: EventStrike,
				Payload: EventPayload{StrikeDistance: ptr(27.0), StrikeEnergy: ptr(3848.0)}},
			title: "Station ST-1 Lightning has Been Detected",
			body:  "Lightning @ 27 km\nEnergy Level is 3848",
			sev:   SeverityInfo,
		},
		{
			name:  "precip",
			event: Event{Scope: ScopeStation, DeviceSerial: "ST-1", Kind: EventPrecip},
			title: "Station ST-1 Rain has Been Detected",
			body:  "It is Raining",
			sev:   SeverityInfo,
		},
		{
			name: "sensors error",
			event: Event{Scope: ScopeStation, DeviceSerial: "ST-1", Kind: EventSensorsError,
				Payload: EventPayload{SensorStatus: "8, Pressure Failed", OldSensorStatus: "OK", BatteryVoltage: ptr(2.6), BatteryMode: ptr(BatteryModeFull)}},
			title: "Station ST-1 Sensor Status has changed - FAILURE",
			body:  "Sensor Status is: 8, Pressure Failed\nSensor Status Was: OK\nBattery Status: 2.6\nBattery Mode: 0",
			sev:   SeverityError,
		},
		{
			name: "sensors ok without battery",
			event: Event{Scope: ScopeStation, DeviceSerial: "ST-1", Kind: EventSensorsOK,
				Payload: EventPayload{SensorStatus: "OK", OldSensorStatus: "8, Pressure Failed"}},
			title: "Station ST-1 Sensor Status is now OK",
			body:  "Was: 8, Pressure Failed\nBattery Status: Unknown\nBattery Mode: Unknown",
			sev:   SeverityOK,
		},
		{
			name: "new station",
			event: Event{Scope: ScopeStation, DeviceSerial: "ST-1", Kind: EventNewOK,
				Payload: EventPayload{Firmware: ptr(129), Uptime: ptr(int64(86400)), SensorStatus: "OK", BatteryVoltage: ptr(2.6), BatteryHealth: ptr(64)}},
			title: "Station ST-1 has been Identified",
			body:  "*Serial*: ST-1\n*Firmware*: 129\n*Uptime*: 1 day\n*Sensor Status*: OK\n*Battery Status*: 2.6\n*Battery Health*: 64%",
			sev:   SeverityOK,
		},
		{
			name: "new hub",
			event: Event{Scope: ScopeHub, DeviceSerial: "HB-1", Kind: EventNewOK,
				Payload: EventPayload{Firmware: ptr(171), Uptime: ptr(int64(60))}},
			title: "Hub HB-1 has been Identified",
			body:  "*Serial*: HB-1\n*Firmware*: 171\n*Uptime*: 1 minute",
			sev:   SeverityOK,
		},
		{
			name:  "new station missing fields",
			event: Event{Scope: ScopeStation, DeviceSerial: "ST-2", Kind: EventNewError},
			title: "Station ST-2 has been Identified",
			body:  "*Serial*: ST-2\n*Firmware*: Unknown\n*Uptime*: Unknown\n*Sensor Status*: Unknown\n*Battery Status*: Unknown\n*Battery Health*: Unknown%",
			sev:   SeverityError,
		},
		{
			name:  "unknown event",
			event: Event{Scope: ScopeStation, DeviceSerial: "ST-1", Kind: "bogus"},
			title: "Station ST-1 Unknown Event",
			body:  "type:station - topic:bogus",
			sev:   SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body, sev := Format(tt.event)
			assert.Equal(t, tt.title, title)
			assert.Equal(t, tt.body, body)
			assert.Equal(t, tt.sev, sev)
		})
	}
}

func TestNewNotification(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := Event{Scope: ScopeStation, DeviceSerial: "ST-1", Kind: EventPrecip}

	n := NewNotification(ev, now)

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "Station ST-1 Rain has Been Detected", n.Title)
	assert.Equal(t, SeverityInfo, n.Severity)
	assert.Equal(t, ScopeStation, n.Scope)
	assert.Equal(t, "ST-1", n.DeviceSerial)
	assert.Equal(t, EventPrecip, n.Event)
	assert.Equal(t, now, n.CreatedAt)
}

func TestSerializeNotification(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("device notification", func(t *testing.T) {
		n := NewNotification(Event{Scope: ScopeHub, DeviceSerial: "HB-1", Kind: EventOffline}, now)
		out, err := SerializeNotification(n)
		require.NoError(t, err)

		assert.Equal(t, []byte("HB-1"), out.Key)
		assert.Equal(t, "error", out.Headers["severity"])
		assert.Equal(t, "offline", out.Headers["event"])
		assert.Equal(t, n.ID, out.Headers["notification_id"])
		assert.Equal(t, "2026-03-01T12:00:00Z", out.Headers["created_at"])

		var decoded Notification
		require.NoError(t, json.Unmarshal(out.Value, &decoded))
		assert.Equal(t, n, decoded)
	})

	t.Run("lifecycle notification", func(t *testing.T) {
		n := NewLifecycleNotification("WeatherFlow Monitor Starting", SeverityOK, now)
		out, err := SerializeNotification(n)
		require.NoError(t, err)
		assert.Equal(t, []byte("monitor"), out.Key)
		assert.Equal(t, "", out.Headers["event"])
	})
}
