// Command stationsim impersonates a Tempest station and hub by sending
// device_status and hub_status datagrams that walk the monitor through its
// alert rules: new device, firmware change, reboot, sensor failure, battery
// saving modes and offline detection.
//
// Usage:
//
//	go run ./cmd/stationsim \
//	  -target 127.0.0.1:50222 \
//	  -scenario battery \
//	  -interval 3s
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	defaultStation = "ST-99999123"
	defaultHub     = "HB-99998234"
)

// stationState is the set of device_status values a step controls.
type stationState struct {
	Firmware int
	Uptime   int64
	Voltage  float64
	Sensors  uint32
}

// step is one datagram plus what the monitor should say about it.
type step struct {
	expect string
	hub    bool
	state  stationState
	// pause before sending, on top of the interval.
	pause time.Duration
}

func baseline() stationState {
	return stationState{Firmware: 100, Uptime: 1000, Voltage: 2.666}
}

func with(mut func(*stationState)) stationState {
	s := baseline()
	mut(&s)
	return s
}

var scenarios = map[string][]step{
	"new": {
		{expect: "New station, or nothing if already known", state: baseline()},
	},
	"sensors": {
		{expect: "New station, or nothing if already known", state: baseline()},
		{expect: "No notification", state: baseline()},
		{expect: "Station sensors failed", state: with(func(s *stationState) { s.Sensors = 328 })},
		{expect: "Station sensors are OK", state: baseline()},
	},
	"firmware": {
		{expect: "New station, or nothing if already known", state: baseline()},
		{expect: "Firmware has changed", state: with(func(s *stationState) { s.Firmware = 101 })},
	},
	"reboot": {
		{expect: "Has rebooted", state: with(func(s *stationState) { s.Uptime, s.Firmware = 600, 101 })},
		{expect: "Has rebooted (firmware incremented with lower uptime)", state: with(func(s *stationState) { s.Uptime, s.Firmware = 30, 102 })},
		{expect: "No notification", state: with(func(s *stationState) { s.Uptime, s.Firmware = 30, 102 })},
	},
	"battery": {
		{expect: "No notification", state: with(func(s *stationState) { s.Voltage = 2.59 })},
		{expect: "No notification", state: with(func(s *stationState) { s.Voltage = 2.59 })},
		{expect: "OK -> low battery", state: with(func(s *stationState) { s.Voltage = 2.39 })},
		{expect: "Low -> critical battery", state: with(func(s *stationState) { s.Voltage, s.Firmware = 2.29, 102 })},
		{expect: "Critical -> low battery", state: with(func(s *stationState) { s.Voltage, s.Firmware = 2.37, 102 })},
		{expect: "Low -> OK battery", state: with(func(s *stationState) { s.Voltage, s.Firmware = 2.48, 102 })},
		{expect: "OK -> critical battery", state: with(func(s *stationState) { s.Voltage, s.Firmware = 2.28, 102 })},
		{expect: "Critical -> OK battery", state: with(func(s *stationState) { s.Voltage, s.Firmware = 2.66, 102 })},
	},
	"offline": {
		{expect: "Station reporting", state: with(func(s *stationState) { s.Uptime, s.Firmware = 100, 102 })},
		{expect: "Station back online (an offline alert should precede this)", state: with(func(s *stationState) { s.Uptime, s.Firmware = 100, 102 }), pause: 140 * time.Second},
	},
	"hub": {
		{expect: "New hub, or nothing if already known", hub: true, state: baseline()},
		{expect: "Hub has rebooted", hub: true, state: with(func(s *stationState) { s.Uptime = 10 })},
	},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	target := flag.String("target", "127.0.0.1:50222", "UDP address to send to (255.255.255.255:50222 broadcasts)")
	scenario := flag.String("scenario", "sensors", "scenario to play: "+strings.Join(scenarioNames(), ", "))
	interval := flag.Duration("interval", 3*time.Second, "delay between datagrams")
	station := flag.String("station", defaultStation, "station serial number")
	hub := flag.String("hub", defaultHub, "hub serial number")
	flag.Parse()

	steps, ok := scenarios[*scenario]
	if !ok {
		flag.Usage()
		return fmt.Errorf("unknown scenario %q", *scenario)
	}

	conn, err := net.Dial("udp4", *target)
	if err != nil {
		return fmt.Errorf("dial %s: %w", *target, err)
	}
	defer conn.Close() //nolint:errcheck // exiting

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	for i, s := range steps {
		if i > 0 {
			if err := sleep(ctx, clock, *interval+s.pause); err != nil {
				return err
			}
		}
		pkt, err := s.packet(*station, *hub, clock.Now())
		if err != nil {
			return err
		}
		if _, err := conn.Write(pkt); err != nil {
			return fmt.Errorf("send step %d: %w", i+1, err)
		}
		fmt.Printf("[%d/%d] %s\n  expect: %s\n", i+1, len(steps), pkt, s.expect)
	}
	return nil
}

func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}

// packet renders the step as the JSON a hub would broadcast.
func (s step) packet(station, hub string, now time.Time) ([]byte, error) {
	if s.hub {
		return json.Marshal(map[string]any{
			"type":              "hub_status",
			"serial_number":     hub,
			"firmware_revision": fmt.Sprint(s.state.Firmware),
			"uptime":            s.state.Uptime,
			"rssi":              -62,
			"timestamp":         now.Unix(),
			"reset_flags":       "BOR,PIN,POR",
			"seq":               48,
			"radio_stats":       []int{2, 1, 0, 3, 2839},
		})
	}
	return json.Marshal(map[string]any{
		"type":              "device_status",
		"serial_number":     station,
		"hub_sn":            hub,
		"timestamp":         now.Unix(),
		"uptime":            s.state.Uptime,
		"voltage":           s.state.Voltage,
		"firmware_revision": s.state.Firmware,
		"rssi":              -51,
		"hub_rssi":          0,
		"sensor_status":     s.state.Sensors,
		"debug":             0,
	})
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for n := range scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
