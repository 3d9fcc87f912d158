package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompassText(t *testing.T) {
	tests := []struct {
		degrees float64
		want    string
	}{
		{0, "N"},
		{11.24, "N"},
		{11.25, "NNE"},
		{90, "E"},
		{144, "SE"},
		{180, "S"},
		{270, "W"},
		{348.75, "N"},
		{359, "N"},
		{360, "N"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompassText(tt.degrees), "degrees=%v", tt.degrees)
	}
}

func TestBatteryHealth(t *testing.T) {
	tests := []struct {
		name  string
		volts float64
		want  int
	}{
		{"empty", 2.35, 0},
		{"partial", 2.41, 15},
		{"capped", 2.8, 100},
		{"upper bound", 2.9, 100},
		{"above range", 3.5, 0},
		{"below empty", 2.2, 0},
		{"unhealthy boundary", 2.1, BatteryHealthUnhealthy},
		{"unhealthy", 1.9, BatteryHealthUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BatteryHealth(tt.volts))
		})
	}
}

func TestSensorStatusText(t *testing.T) {
	tests := []struct {
		status uint32
		want   string
	}{
		{0, "OK"},
		{4, "OK"},
		{8, "8, Pressure Failed"},
		{6, "6, Lightning noise"},
		{328, "328, Pressure Failed, Wind Failed, UV Failed"},
		{0x8000, "32768, Power Booster Depleted"},
		{0x10000, "65536, Power Booster Shore Power"},
		{0x2800, "10240, ?Batt Mode 1, ?Batt Mode 3"},
		{0x20008, "131080, Pressure Failed, unknown bits 0x20000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SensorStatusText(tt.status), "status=%d", tt.status)
	}
}

func TestSensorStatusBinary(t *testing.T) {
	assert.Equal(t, "0b0", SensorStatusBinary(0))
	assert.Equal(t, "0b101001000", SensorStatusBinary(328))
}

func TestRSSIQuality(t *testing.T) {
	tests := []struct {
		rssi int
		want string
	}{
		{-17, "Excellent"},
		{-50, "Excellent"},
		{-51, "Very Good"},
		{-60, "Very Good"},
		{-70, "Good"},
		{-80, "Low"},
		{-87, "Very Low"},
		{-100, "Poor"},
		{-101, "Bad"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RSSIQuality(tt.rssi), "rssi=%d", tt.rssi)
	}
}

func TestHubResetReasons(t *testing.T) {
	assert.Equal(t, "Brownout reset|PIN reset|Power reset", HubResetReasons("BOR,PIN,POR"))
	assert.Equal(t, "Software reset|Watchdog reset|Window watchdog reset|Low-power reset", HubResetReasons("LPW,WWD,WDG,SFT"))
	assert.Empty(t, HubResetReasons(""))
}

func TestRadioStatusText(t *testing.T) {
	assert.Equal(t, "Radio Off", RadioStatusText(0))
	assert.Equal(t, "Radio On|Radio Active", RadioStatusText(3))
	assert.Equal(t, "Radio Off|BLE Connected", RadioStatusText(4))
	assert.Equal(t, "Radio On|Radio Active|BLE Connected", RadioStatusText(7))
}

func TestMaskSerial(t *testing.T) {
	assert.Equal(t, "ST-00000xxx", MaskSerial("ST-00000512"))
	assert.Equal(t, "xxx", MaskSerial("AB"))
}
