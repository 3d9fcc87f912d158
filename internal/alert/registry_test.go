package alert

import (
	"bytes"
	"strings"
	"testing"

	"github.com/couchcryptid/tempest-monitor/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stationEntry() domain.DeviceEntry {
	return domain.DeviceEntry{
		Type:           domain.DeviceStation,
		Firmware:       ptr(129),
		Uptime:         ptr(int64(1000)),
		SensorStatus:   "OK",
		BatteryVoltage: ptr(2.59),
		BatteryMode:    ptr(domain.BatteryModeFull),
		LastSeen:       1700000000,
		Status:         domain.StatusOnline,
	}
}

func TestRegistry_SaveFormat(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert(testStation, stationEntry())

	var buf bytes.Buffer
	require.NoError(t, reg.Save(&buf))

	want := `{
    "ST-00000512": {
        "battmode": 0,
        "battvolts": 2.59,
        "firmware": 129,
        "last_seen": 1700000000,
        "status": "online",
        "station_sensors": "OK",
        "type": "station",
        "uptime": 1000
    },
    "devices": [
        "ST-00000512"
    ]
}
`
	assert.Equal(t, want, buf.String())
}

func TestRegistry_RoundTrip(t *testing.T) {
	reg := NewRegistry()
	hub := domain.DeviceEntry{Type: domain.DeviceHub, Firmware: ptr(171), Uptime: ptr(int64(5)), LastSeen: 1700000100, Status: domain.StatusOffline}
	reg.Upsert(testStation, stationEntry())
	reg.Upsert(testHub, hub)

	var buf bytes.Buffer
	require.NoError(t, reg.Save(&buf))

	restored := NewRegistry()
	assert.Equal(t, 2, restored.Load(&buf))
	assert.Equal(t, []string{testStation, testHub}, restored.KnownSerials())

	if diff := cmp.Diff(reg.Snapshot(), restored.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_LoadLegacyStatusFile(t *testing.T) {
	// Older monitors stored extra keys alongside the entry fields.
	doc := `{
    "HB-00013030": {"firmware": 171, "last_seen": 1700000000, "status": "online", "type": "hub", "uptime": 99},
    "ST-00000512": {"Battery Health (%)": 61, "battmode": 1, "battvolts": 2.4, "firmware": 129,
        "last_seen": 1700000000, "old_station_sensors": "OK", "status": "offline",
        "station_sensors": "8, Pressure Failed", "type": "station", "uptime": 1000},
    "devices": ["ST-00000512", "HB-00013030", "ST-MISSING"]
}`
	reg := NewRegistry()
	assert.Equal(t, 2, reg.Load(strings.NewReader(doc)))
	assert.Equal(t, []string{testStation, testHub}, reg.KnownSerials())

	e, ok := reg.Get(testStation)
	require.True(t, ok)
	assert.Equal(t, domain.BatteryModeSaver1, *e.BatteryMode)
	assert.Equal(t, "8, Pressure Failed", e.SensorStatus)
	assert.Equal(t, domain.StatusOffline, e.Status)
}

func TestRegistry_LoadTolerant(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"not json", "garbage"},
		{"devices not a list", `{"devices": "ST-1"}`},
		{"bad entry", `{"devices": ["ST-1"], "ST-1": {"last_seen": "yesterday"}}`},
		{"truncated", `{"devices": ["ST-1"], "ST-1": {"last_se`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			reg.Upsert(testStation, stationEntry())

			assert.Equal(t, 0, reg.Load(strings.NewReader(tt.doc)))
			assert.Zero(t, reg.Len())
			_, ok := reg.Get(testStation)
			assert.False(t, ok)
		})
	}

	t.Run("nil reader", func(t *testing.T) {
		assert.Equal(t, 0, NewRegistry().Load(nil))
	})
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert(testStation, stationEntry())

	e, _ := reg.Get(testStation)
	*e.Uptime = 1
	*e.BatteryMode = domain.BatteryModeSaver3

	stored, _ := reg.Get(testStation)
	assert.Equal(t, int64(1000), *stored.Uptime)
	assert.Equal(t, domain.BatteryModeFull, *stored.BatteryMode)
}

func TestRegistry_UpsertKeepsOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert("B", domain.DeviceEntry{Type: domain.DeviceStation})
	reg.Upsert("A", domain.DeviceEntry{Type: domain.DeviceHub})
	reg.Upsert("B", domain.DeviceEntry{Type: domain.DeviceStation, LastSeen: 5})

	assert.Equal(t, []string{"B", "A"}, reg.KnownSerials())
	assert.Equal(t, 2, reg.Len())

	snap := reg.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "B", snap[0].Serial)
	assert.Equal(t, int64(5), snap[0].LastSeen)
}

func TestRegistry_ReservedSerialRejected(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert("ST-1", domain.DeviceEntry{Type: domain.DeviceStation, LastSeen: 7})
	reg.Upsert("devices", domain.DeviceEntry{Type: domain.DeviceStation})
	reg.Upsert("", domain.DeviceEntry{Type: domain.DeviceHub})

	assert.Equal(t, []string{"ST-1"}, reg.KnownSerials())
	assert.False(t, ValidSerial("devices"))
	assert.True(t, ValidSerial("ST-1"))

	var buf bytes.Buffer
	require.NoError(t, reg.Save(&buf))
	restored := NewRegistry()
	assert.Equal(t, 1, restored.Load(&buf))
	e, ok := restored.Get("ST-1")
	require.True(t, ok)
	assert.Equal(t, int64(7), e.LastSeen)
}

func TestRegistry_SaveEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRegistry().Save(&buf))
	assert.Equal(t, "{\n    \"devices\": []\n}\n", buf.String())
}
