package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/tempest-monitor/internal/alert"
	"github.com/couchcryptid/tempest-monitor/internal/domain"
	"github.com/couchcryptid/tempest-monitor/internal/observability"
	"github.com/jonboulle/clockwork"
)

// PacketSource yields one raw datagram per call. Errors that report
// Timeout() == true mean no packet arrived and are not failures.
type PacketSource interface {
	ReadPacket(ctx context.Context) ([]byte, error)
}

// Notifier delivers a notification to the configured sinks.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// StateStore persists the registry document between runs.
type StateStore interface {
	Load() ([]byte, error)
	Store(data []byte) error
}

// TelemetrySink receives every decoded record. Implementations must not block.
type TelemetrySink interface {
	Write(rec domain.Record)
}

// Options tunes the monitor loop. Zero durations take the defaults below.
type Options struct {
	OfflineTimeout time.Duration
	OfflineGrace   time.Duration
	SweepInterval  time.Duration
	SaveInterval   time.Duration

	Clock     clockwork.Clock
	Telemetry TelemetrySink
}

const (
	DefaultOfflineTimeout = 360 * time.Second
	DefaultSweepInterval  = 10 * time.Second
	DefaultSaveInterval   = 600 * time.Second
)

// Monitor runs the receive-decode-evaluate-notify loop.
type Monitor struct {
	source    PacketSource
	notifier  Notifier
	store     StateStore
	telemetry TelemetrySink
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	opts      Options

	// mu guards reg and everything engine and scanner touch through it.
	mu      sync.Mutex
	reg     *alert.Registry
	engine  *alert.Engine
	scanner *alert.Scanner

	dirty atomic.Bool
	ready atomic.Bool
}

// New creates a Monitor with an empty registry. Call Restore to load the
// previous run's state before Run.
func New(src PacketSource, n Notifier, store StateStore, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Monitor {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.OfflineTimeout <= 0 {
		opts.OfflineTimeout = DefaultOfflineTimeout
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.SaveInterval <= 0 {
		opts.SaveInterval = DefaultSaveInterval
	}

	reg := alert.NewRegistry()
	return &Monitor{
		source:    src,
		notifier:  n,
		store:     store,
		telemetry: opts.Telemetry,
		logger:    logger,
		metrics:   metrics,
		clock:     opts.Clock,
		opts:      opts,
		reg:       reg,
		engine:    alert.NewEngine(reg, opts.Clock),
		scanner:   alert.NewScanner(reg, opts.Clock, opts.OfflineGrace),
	}
}

// CheckReadiness returns nil once the monitor has decoded at least one packet,
// or an error describing why the service is not yet ready.
func (m *Monitor) CheckReadiness(_ context.Context) error {
	if !m.ready.Load() {
		return errors.New("monitor has not decoded any packets yet")
	}
	return nil
}

// Devices returns a snapshot of the registry in registration order.
func (m *Monitor) Devices() []alert.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reg.Snapshot()
}

// Restore replaces the registry with the stored document. An unreadable or
// malformed document leaves the registry empty.
func (m *Monitor) Restore() int {
	data, err := m.store.Load()
	if err != nil {
		m.logger.Warn("status file unavailable, starting empty", "error", err)
		data = nil
	}

	m.mu.Lock()
	n := m.reg.Load(bytes.NewReader(data))
	m.mu.Unlock()

	m.metrics.DevicesTracked.Set(float64(n))
	m.logger.Info("device status restored", "devices", n)
	return n
}

// Save writes the registry document to the store. The lock is released
// before the write.
func (m *Monitor) Save() error {
	var buf bytes.Buffer
	m.mu.Lock()
	err := m.reg.Save(&buf)
	m.mu.Unlock()
	if err == nil {
		err = m.store.Store(buf.Bytes())
	}
	if err != nil {
		m.metrics.StateSaves.WithLabelValues("error").Inc()
		m.logger.Error("save device status failed", "error", err)
		return err
	}
	m.dirty.Store(false)
	m.metrics.StateSaves.WithLabelValues("success").Inc()
	return nil
}

// Announce sends a lifecycle notification that is not tied to a device.
func (m *Monitor) Announce(ctx context.Context, body string, sev domain.Severity) {
	n := domain.NewLifecycleNotification(body, sev, m.clock.Now())
	if err := m.notifier.Notify(ctx, n); err != nil {
		m.logger.Error("lifecycle notification failed", "error", err, "body", body)
	}
}

// Run executes the monitor loop until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started",
		"offline_timeout", m.opts.OfflineTimeout,
		"offline_grace", m.opts.OfflineGrace,
		"sweep_interval", m.opts.SweepInterval,
	)
	m.metrics.MonitorRunning.Set(1)
	defer m.metrics.MonitorRunning.Set(0)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.runTimers(ctx)
	}()
	defer wg.Wait()

	// Exponential backoff on socket errors: start at 200ms, double, cap at 5s.
	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			m.logger.Info("monitor stopping", "reason", ctx.Err())
			return nil
		}

		data, err := m.source.ReadPacket(ctx)
		if err != nil {
			if ctx.Err() != nil || isTimeout(err) {
				continue
			}
			m.logger.Error("read packet failed", "error", err)
			m.metrics.ReadErrors.Inc()
			if !sleepWithContext(ctx, backoff) {
				continue
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = minBackoff

		m.handlePacket(ctx, data)
		m.sweep(ctx)
	}
}

func (m *Monitor) runTimers(ctx context.Context) {
	sweepTicker := m.clock.NewTicker(m.opts.SweepInterval)
	defer sweepTicker.Stop()
	saveTicker := m.clock.NewTicker(m.opts.SaveInterval)
	defer saveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweepTicker.Chan():
			m.sweep(ctx)
		case <-saveTicker.Chan():
			if m.dirty.Load() {
				_ = m.Save() // logged and counted in Save
			}
		}
	}
}

// handlePacket decodes one datagram and hands the resulting event, if any,
// to the notifier. Decode failures never reach the engine.
func (m *Monitor) handlePacket(ctx context.Context, data []byte) {
	start := time.Now()
	m.metrics.PacketsReceived.Inc()

	rec, err := domain.Decode(data)
	if err != nil {
		m.logger.Debug("dropping datagram", "error", err, "bytes", len(data))
		m.metrics.DecodeErrors.WithLabelValues(domain.DecodeReason(err)).Inc()
		return
	}
	m.metrics.RecordsDecoded.WithLabelValues(string(rec.Kind())).Inc()
	m.ready.Store(true)

	if m.telemetry != nil {
		m.telemetry.Write(rec)
	}

	m.mu.Lock()
	ev, err := m.engine.Evaluate(rec)
	devices := m.reg.Len()
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("record rejected", "error", err, "type", rec.Kind())
		m.metrics.EvaluateErrors.Inc()
		return
	}
	m.metrics.DevicesTracked.Set(float64(devices))
	if rec.Kind() == domain.KindDeviceStatus || rec.Kind() == domain.KindHubStatus {
		m.dirty.Store(true)
	}

	if ev != nil {
		m.publish(ctx, *ev)
	}
	m.metrics.PacketProcessingDuration.Observe(time.Since(start).Seconds())
}

// sweep reports every device that has gone quiet, one scanner call at a time.
func (m *Monitor) sweep(ctx context.Context) {
	for {
		m.mu.Lock()
		ev := m.scanner.Sweep(m.opts.OfflineTimeout)
		m.mu.Unlock()
		if ev == nil {
			return
		}
		m.dirty.Store(true)
		m.publish(ctx, *ev)
	}
}

func (m *Monitor) publish(ctx context.Context, ev domain.Event) {
	n := domain.NewNotification(ev, m.clock.Now())
	m.metrics.EventsEmitted.WithLabelValues(string(ev.Kind)).Inc()
	m.logger.Info("device event",
		"serial", ev.DeviceSerial,
		"scope", ev.Scope,
		"event", ev.Kind,
		"severity", n.Severity,
	)
	if err := m.notifier.Notify(ctx, n); err != nil {
		m.logger.Error("notification failed", "error", err, "serial", ev.DeviceSerial, "event", ev.Kind)
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

const (
	minBackoff = 200 * time.Millisecond
	maxBackoff = 5 * time.Second
)

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
