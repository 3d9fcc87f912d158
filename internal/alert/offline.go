package alert

import (
	"time"

	"github.com/couchcryptid/tempest-monitor/internal/domain"
	"github.com/jonboulle/clockwork"
)

// DefaultOfflineGrace suppresses sweeps right after startup, before restored
// devices have had a chance to report in.
const DefaultOfflineGrace = 120 * time.Second

// Scanner finds devices that have stopped reporting.
type Scanner struct {
	reg   *Registry
	clock clockwork.Clock
	start time.Time
	grace time.Duration
}

// NewScanner returns a Scanner whose grace period starts now.
func NewScanner(reg *Registry, clock clockwork.Clock, grace time.Duration) *Scanner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scanner{reg: reg, clock: clock, start: clock.Now(), grace: grace}
}

// Sweep marks the first online device, in registration order, that has not
// been seen for longer than timeout as offline and returns its event. At most
// one device is reported per call. Sweep returns nil during the grace period.
func (s *Scanner) Sweep(timeout time.Duration) *domain.Event {
	now := s.clock.Now()
	if s.grace > 0 && !now.After(s.start.Add(s.grace)) {
		return nil
	}
	limit := int64(timeout / time.Second)

	for _, serial := range s.reg.KnownSerials() {
		e, ok := s.reg.Get(serial)
		if !ok || !e.Online() {
			continue
		}
		if e.LastSeen+limit >= now.Unix() {
			continue
		}
		e.Status = domain.StatusOffline
		s.reg.Upsert(serial, e)
		return &domain.Event{
			Scope:        domain.Scope(e.Type),
			DeviceSerial: serial,
			Kind:         domain.EventOffline,
			Payload:      domain.EventPayload{Uptime: e.Uptime, LastSeen: e.LastSeen},
		}
	}
	return nil
}
