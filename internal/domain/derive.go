package domain

import (
	"fmt"
	"math"
	"strings"
)

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CompassText converts a bearing in degrees to a 16-point compass label.
func CompassText(degrees float64) string {
	idx := int(degrees/22.5+0.5) % 16
	if idx < 0 {
		idx += 16
	}
	return compassPoints[idx]
}

// BatteryHealthUnhealthy is returned by BatteryHealth for voltages at or
// below 2.1 V.
const BatteryHealthUnhealthy = 255

// BatteryHealth maps a battery voltage to a 0-100 charge percentage. 2.35 V
// is empty and anything from about 2.74 V upward is full.
func BatteryHealth(volts float64) int {
	switch {
	case volts >= 2.35 && volts <= 2.9:
		return int(math.Min((volts-2.35)*256, 100))
	case volts > 2.1:
		return 0
	default:
		return BatteryHealthUnhealthy
	}
}

// SensorStatusOK is the text reported for a healthy sensor bitfield.
const SensorStatusOK = "OK"

// SensorStatusUnknown is stored for a station first seen without a sensor
// bitfield, so a later healthy report counts as a change.
const SensorStatusUnknown = "Unknown"

// Bit 0x4 is the lightning disturber flag; it never fails a station.
const sensorLightningDisturber = 0x4

var sensorFlags = []struct {
	bit  uint32
	text string
}{
	{0x1, "Lightning failed"},
	{0x2, "Lightning noise"},
	{0x8, "Pressure Failed"},
	{0x10, "Temperature Failed"},
	{0x20, "Humidity Failed"},
	{0x40, "Wind Failed"},
	{0x80, "Precip failed"},
	{0x100, "UV Failed"},
	// Bits 10 through 17 are WeatherFlow internal. Their names are kept
	// verbatim without further interpretation.
	{0x200, "bit 10"},
	{0x400, "bit 11"},
	{0x800, "?Batt Mode 1"},
	{0x1000, "?Batt Mode 2"},
	{0x2000, "?Batt Mode 3"},
	{0x4000, "bit 15"},
	{0x8000, "Power Booster Depleted"},
	{0x10000, "Power Booster Shore Power"},
}

const sensorKnownBits = 0x1ffff

// SensorStatusText renders a device_status sensor bitfield as
// "<code>, <flag>, <flag>" or "OK".
func SensorStatusText(status uint32) string {
	if status == 0 || status == sensorLightningDisturber {
		return SensorStatusOK
	}
	parts := []string{fmt.Sprint(status)}
	for _, f := range sensorFlags {
		if status&f.bit != 0 {
			parts = append(parts, f.text)
		}
	}
	if unknown := status &^ sensorKnownBits; unknown != 0 {
		parts = append(parts, fmt.Sprintf("unknown bits %#x", unknown))
	}
	return strings.Join(parts, ", ")
}

// SensorStatusBinary renders the bitfield in 0b notation.
func SensorStatusBinary(status uint32) string {
	return fmt.Sprintf("%#b", status)
}

// RSSIQuality names a received signal strength in dBm.
func RSSIQuality(rssi int) string {
	switch {
	case rssi >= -50:
		return "Excellent"
	case rssi >= -60:
		return "Very Good"
	case rssi >= -70:
		return "Good"
	case rssi >= -80:
		return "Low"
	case rssi >= -90:
		return "Very Low"
	case rssi >= -100:
		return "Poor"
	default:
		return "Bad"
	}
}

var resetFlags = []struct {
	code string
	text string
}{
	{"BOR", "Brownout reset"},
	{"PIN", "PIN reset"},
	{"POR", "Power reset"},
	{"SFT", "Software reset"},
	{"WDG", "Watchdog reset"},
	{"WWD", "Window watchdog reset"},
	{"LPW", "Low-power reset"},
}

// HubResetReasons expands a hub reset_flags string such as "BOR,PIN,POR"
// into readable reasons joined by "|".
func HubResetReasons(flags string) string {
	var reasons []string
	for _, f := range resetFlags {
		if strings.Contains(flags, f.code) {
			reasons = append(reasons, f.text)
		}
	}
	return strings.Join(reasons, "|")
}

// RadioStatusText describes the hub radio status bitfield.
func RadioStatusText(status int) string {
	parts := []string{"Radio Off"}
	if status&1 != 0 {
		parts[0] = "Radio On"
	}
	if status&2 != 0 {
		parts = append(parts, "Radio Active")
	}
	if status&4 != 0 {
		parts = append(parts, "BLE Connected")
	}
	return strings.Join(parts, "|")
}

// MaskSerial hides the last three characters of a serial number.
func MaskSerial(serial string) string {
	if len(serial) <= 3 {
		return "xxx"
	}
	return serial[:len(serial)-3] + "xxx"
}
