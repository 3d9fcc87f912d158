// Command wfdump prints every WeatherFlow datagram heard on the local network
// as decoded JSON, one record per line, and a per-type tally on exit. It is
// useful for checking that a hub is reachable before running the monitor.
//
// Usage:
//
//	go run ./cmd/wfdump \
//	  -addr 0.0.0.0:50222 \
//	  -types device_status,hub_status \
//	  -privacy
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/couchcryptid/tempest-monitor/internal/adapter/udp"
	"github.com/couchcryptid/tempest-monitor/internal/domain"
)

func main() {
	addr := flag.String("addr", "0.0.0.0:50222", "UDP address to listen on")
	types := flag.String("types", "", "comma-separated record types to print (default all)")
	privacy := flag.Bool("privacy", false, "mask the last three characters of serial numbers")
	pretty := flag.Bool("pretty", false, "indent JSON output")
	count := flag.Int("count", 0, "stop after printing this many records (0 = unlimited)")
	duration := flag.Duration("duration", 0, "stop after this long (0 = until interrupted)")
	flag.Parse()

	if code := run(*addr, *types, *privacy, *pretty, *count, *duration); code != 0 {
		os.Exit(code)
	}
}

func run(addr, types string, privacy, pretty bool, count int, duration time.Duration) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	l, err := udp.Listen(ctx, addr, 4096, time.Second, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		return 1
	}
	defer l.Close() //nolint:errcheck // exiting

	d := newDumper(os.Stdout, parseTypes(types), privacy, pretty)
	for count == 0 || d.printed < count {
		data, err := l.ReadPacket(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, udp.ErrReadTimeout) {
				continue
			}
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			return 1
		}
		d.handle(data)
	}

	d.summary(os.Stderr)
	return 0
}

func parseTypes(s string) map[domain.Kind]bool {
	if s == "" {
		return nil
	}
	out := make(map[domain.Kind]bool)
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out[domain.Kind(t)] = true
		}
	}
	return out
}

// dumper decodes datagrams and writes the ones that pass the type filter.
type dumper struct {
	out     io.Writer
	types   map[domain.Kind]bool
	privacy bool
	pretty  bool

	printed  int
	received int
	byKind   map[string]int
	failures map[string]int
}

func newDumper(out io.Writer, types map[domain.Kind]bool, privacy, pretty bool) *dumper {
	return &dumper{
		out:      out,
		types:    types,
		privacy:  privacy,
		pretty:   pretty,
		byKind:   make(map[string]int),
		failures: make(map[string]int),
	}
}

func (d *dumper) handle(data []byte) {
	d.received++
	rec, err := domain.Decode(data)
	if err != nil {
		d.failures[domain.DecodeReason(err)]++
		fmt.Fprintf(d.out, "### ERROR ### %v\n", err)
		return
	}
	d.byKind[string(rec.Kind())]++
	if d.types != nil && !d.types[rec.Kind()] {
		return
	}

	doc, err := d.render(rec)
	if err != nil {
		fmt.Fprintf(d.out, "### ERROR ### encode %s: %v\n", rec.Kind(), err)
		return
	}
	fmt.Fprintf(d.out, "%s\n", doc)
	d.printed++
}

func (d *dumper) render(rec domain.Record) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if !d.privacy && !d.pretty {
		return raw, nil
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if d.privacy {
		for _, key := range []string{"serial_number", "hub_sn"} {
			if s, ok := fields[key].(string); ok && s != "" {
				fields[key] = domain.MaskSerial(s)
			}
		}
	}
	if d.pretty {
		return json.MarshalIndent(fields, "", "    ")
	}
	return json.Marshal(fields)
}

func (d *dumper) summary(w io.Writer) {
	fmt.Fprintf(w, "\n=== Summary: %d datagrams, %d printed ===\n", d.received, d.printed)
	for _, k := range sortedKeys(d.byKind) {
		fmt.Fprintf(w, "  %-14s %d\n", k, d.byKind[k])
	}
	if len(d.failures) == 0 {
		fmt.Fprintln(w, "  PASS: no decode failures")
		return
	}
	for _, k := range sortedKeys(d.failures) {
		fmt.Fprintf(w, "  FAIL: %-18s %d\n", k, d.failures[k])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
