package alert

import (
	"testing"
	"time"

	"github.com/couchcryptid/tempest-monitor/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOfflineTimeout = 360 * time.Second

func seenAt(t time.Time, typ domain.DeviceType) domain.DeviceEntry {
	return domain.DeviceEntry{Type: typ, Uptime: ptr(int64(3600)), LastSeen: t.Unix(), Status: domain.StatusOnline}
}

func TestScanner_Sweep(t *testing.T) {
	t.Run("reports a device past the timeout", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(testEpoch)
		reg := NewRegistry()
		reg.Upsert(testStation, seenAt(testEpoch, domain.DeviceStation))
		sc := NewScanner(reg, clock, 0)

		clock.Advance(361 * time.Second)
		ev := sc.Sweep(testOfflineTimeout)

		require.NotNil(t, ev)
		assert.Equal(t, domain.EventOffline, ev.Kind)
		assert.Equal(t, domain.ScopeStation, ev.Scope)
		assert.Equal(t, testStation, ev.DeviceSerial)
		assert.Equal(t, int64(3600), *ev.Payload.Uptime)
		assert.Equal(t, testEpoch.Unix(), ev.Payload.LastSeen)

		e, _ := reg.Get(testStation)
		assert.Equal(t, domain.StatusOffline, e.Status)

		assert.Nil(t, sc.Sweep(testOfflineTimeout), "an offline device is reported once")
	})

	t.Run("exact timeout is not offline", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(testEpoch)
		reg := NewRegistry()
		reg.Upsert(testStation, seenAt(testEpoch, domain.DeviceStation))
		sc := NewScanner(reg, clock, 0)

		clock.Advance(360 * time.Second)
		assert.Nil(t, sc.Sweep(testOfflineTimeout))
	})

	t.Run("recent device stays online", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(testEpoch)
		reg := NewRegistry()
		reg.Upsert(testStation, seenAt(testEpoch.Add(100*time.Second), domain.DeviceStation))
		sc := NewScanner(reg, clock, 0)

		clock.Advance(200 * time.Second)
		assert.Nil(t, sc.Sweep(testOfflineTimeout))
	})

	t.Run("one device per call in registration order", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(testEpoch)
		reg := NewRegistry()
		reg.Upsert(testHub, seenAt(testEpoch, domain.DeviceHub))
		reg.Upsert(testStation, seenAt(testEpoch, domain.DeviceStation))
		sc := NewScanner(reg, clock, 0)
		clock.Advance(time.Hour)

		first := sc.Sweep(testOfflineTimeout)
		require.NotNil(t, first)
		assert.Equal(t, testHub, first.DeviceSerial)
		assert.Equal(t, domain.ScopeHub, first.Scope)

		second := sc.Sweep(testOfflineTimeout)
		require.NotNil(t, second)
		assert.Equal(t, testStation, second.DeviceSerial)

		assert.Nil(t, sc.Sweep(testOfflineTimeout))
	})
}

func TestScanner_GracePeriod(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	reg := NewRegistry()
	reg.Upsert(testStation, seenAt(testEpoch.Add(-time.Hour), domain.DeviceStation))
	sc := NewScanner(reg, clock, DefaultOfflineGrace)

	assert.Nil(t, sc.Sweep(testOfflineTimeout))
	clock.Advance(DefaultOfflineGrace)
	assert.Nil(t, sc.Sweep(testOfflineTimeout), "grace period is inclusive")

	clock.Advance(time.Second)
	ev := sc.Sweep(testOfflineTimeout)
	require.NotNil(t, ev)
	assert.Equal(t, domain.EventOffline, ev.Kind)
}

func TestScanner_OfflineThenOnline(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	reg := NewRegistry()
	en := NewEngine(reg, clock)
	sc := NewScanner(reg, clock, 0)

	require.NotNil(t, evaluate(t, en, stationStatus(withUptime(100))))
	clock.Advance(10 * time.Minute)
	ev := sc.Sweep(testOfflineTimeout)
	require.NotNil(t, ev)
	assert.Equal(t, domain.EventOffline, ev.Kind)

	ev = evaluate(t, en, stationStatus(withUptime(700)))
	require.NotNil(t, ev)
	assert.Equal(t, domain.EventOnline, ev.Kind)
	assert.Nil(t, sc.Sweep(testOfflineTimeout))
}
