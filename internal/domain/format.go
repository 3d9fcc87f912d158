package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const unknownValue = SensorStatusUnknown

// Format renders an event as a notification title, body and severity.
func Format(ev Event) (title, body string, sev Severity) {
	sev = SeverityFor(ev.Kind)
	title = fmt.Sprintf("%s %s ", capitalize(string(ev.Scope)), ev.DeviceSerial)
	p := ev.Payload

	switch ev.Kind {
	case EventFirmware:
		title += "Firmware has Changed"
		body = fmt.Sprintf("*Old Firmware:* %s\n*New Firmware:* %s", intText(p.OldFirmware), intText(p.Firmware))
	case EventReboot:
		title += "Has Rebooted"
		body = "Uptime was: " + uptimeText(p.OldUptime)
		if p.ResetReasons != "" {
			body += "\nReset Reason: " + p.ResetReasons
		}
	case EventOffline:
		title += "Has Gone Offline"
		body = "Uptime was: " + uptimeText(p.Uptime)
	case EventOnline:
		title += "Is Now Back Online"
		body = "Uptime is: " + uptimeText(p.Uptime)
	case EventBatteryOK:
		title += "Battery is now OK - Mode 0"
		body = batteryText(p)
	case EventBatteryLow:
		title += "Battery is Low - Mode " + modeText(p.BatteryMode)
		body = batteryText(p)
	case EventBatteryCrit:
		title += "Battery is Critical - Mode " + modeText(p.BatteryMode)
		body = batteryText(p)
	case EventStrike:
		title += "Lightning has Been Detected"
		if p.StrikeDistance != nil && p.StrikeEnergy != nil {
			body = fmt.Sprintf("Lightning @ %s km\nEnergy Level is %s", floatText(p.StrikeDistance), floatText(p.StrikeEnergy))
		} else {
			body = "Lightning strike reported"
		}
	case EventPrecip:
		title += "Rain has Been Detected"
		body = "It is Raining"
	case EventSensorsOK:
		title += "Sensor Status is now OK"
		body = "Was: " + p.OldSensorStatus +
			"\nBattery Status: " + floatText(p.BatteryVoltage) +
			"\nBattery Mode: " + modeText(p.BatteryMode)
	case EventSensorsError:
		title += "Sensor Status has changed - FAILURE"
		body = "Sensor Status is: " + p.SensorStatus +
			"\nSensor Status Was: " + p.OldSensorStatus +
			"\nBattery Status: " + floatText(p.BatteryVoltage) +
			"\nBattery Mode: " + modeText(p.BatteryMode)
	case EventNewOK, EventNewError:
		title += "has been Identified"
		body = fmt.Sprintf("*Serial*: %s\n*Firmware*: %s\n*Uptime*: %s", ev.DeviceSerial, intText(p.Firmware), durationText(p.Uptime))
		if ev.Scope == ScopeStation {
			sensors := p.SensorStatus
			if sensors == "" {
				sensors = unknownValue
			}
			body += "\n*Sensor Status*: " + sensors
			body += "\n*Battery Status*: " + floatText(p.BatteryVoltage)
			body += "\n*Battery Health*: " + intText(p.BatteryHealth) + "%"
		}
	default:
		title += "Unknown Event"
		body = fmt.Sprintf("type:%s - topic:%s", ev.Scope, ev.Kind)
	}
	return title, body, sev
}

// SeverityFor classifies an event kind. Unrecognised kinds are errors.
func SeverityFor(kind EventKind) Severity {
	switch kind {
	case EventNewOK, EventOnline, EventBatteryOK, EventSensorsOK:
		return SeverityOK
	case EventFirmware, EventReboot, EventBatteryLow:
		return SeverityWarning
	case EventStrike, EventPrecip:
		return SeverityInfo
	default:
		return SeverityError
	}
}

var durationUnits = []struct {
	name    string
	seconds int64
}{
	{"weeks", 604800},
	{"days", 86400},
	{"hours", 3600},
	{"minutes", 60},
	{"seconds", 1},
}

// FormatDuration breaks seconds into weeks, days, hours, minutes and seconds
// and keeps the first granularity non-zero units, e.g. "2 days, 1 hour, 5
// minutes".
func FormatDuration(seconds int64, granularity int) string {
	if seconds <= 0 {
		return "0 seconds"
	}
	var parts []string
	for _, u := range durationUnits {
		n := seconds / u.seconds
		if n == 0 {
			continue
		}
		seconds -= n * u.seconds
		name := u.name
		if n == 1 {
			name = strings.TrimSuffix(name, "s")
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, name))
	}
	if granularity > 0 && len(parts) > granularity {
		parts = parts[:granularity]
	}
	return strings.Join(parts, ", ")
}

// SerializeNotification encodes n for a broker, keyed by device serial.
func SerializeNotification(n Notification) (OutputEvent, error) {
	value, err := json.Marshal(n)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("marshal notification: %w", err)
	}
	key := n.DeviceSerial
	if key == "" {
		key = "monitor"
	}
	return OutputEvent{
		Key:   []byte(key),
		Value: value,
		Headers: map[string]string{
			"severity":        string(n.Severity),
			"event":           string(n.Event),
			"notification_id": n.ID,
			"created_at":      n.CreatedAt.Format(time.RFC3339),
		},
	}, nil
}

func batteryText(p EventPayload) string {
	mode := BatteryModeInvalid
	if p.BatteryMode != nil {
		mode = *p.BatteryMode
	}
	return "Battery Voltage is: " + floatText(p.BatteryVoltage) + "\n" + mode.Description()
}

func uptimeText(v *int64) string {
	if v == nil {
		return unknownValue
	}
	return fmt.Sprintf("%d seconds (%s)", *v, FormatDuration(*v, 3))
}

func durationText(v *int64) string {
	if v == nil {
		return unknownValue
	}
	return FormatDuration(*v, 3)
}

func intText(v *int) string {
	if v == nil {
		return unknownValue
	}
	return strconv.Itoa(*v)
}

func floatText(v *float64) string {
	if v == nil {
		return unknownValue
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func modeText(m *BatteryMode) string {
	if m == nil {
		return unknownValue
	}
	return strconv.Itoa(int(*m))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
