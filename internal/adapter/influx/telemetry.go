// Package influx exports decoded Tempest records to InfluxDB as points.
package influx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/tempest-monitor/internal/domain"
	"github.com/couchcryptid/tempest-monitor/internal/observability"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	pingTimeout   = 10 * time.Second
	batchSize     = 100
	flushInterval = 10_000 // milliseconds
)

var ErrConnectionFailed = errors.New("influxdb connection failed")

// Config holds the InfluxDB v2 connection settings.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Writer batches points through the non-blocking write API. It implements
// pipeline.TelemetrySink.
type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   *slog.Logger
}

// Connect pings the server and starts the background error reader.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger, metrics *observability.Metrics) (*Writer, error) {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(batchSize).
			SetFlushInterval(flushInterval))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	w := &Writer{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		logger:   logger,
	}
	go func() {
		for err := range w.writeAPI.Errors() {
			metrics.TelemetryErrors.Inc()
			logger.Warn("influx write failed", "error", err)
		}
	}()
	logger.Info("influx telemetry enabled", "url", cfg.URL, "bucket", cfg.Bucket)
	return w, nil
}

// Write queues rec for the next batch. Records without any measurement are
// skipped.
func (w *Writer) Write(rec domain.Record) {
	if p := pointFor(rec, time.Now()); p != nil {
		w.writeAPI.WritePoint(p)
	}
}

// Close flushes pending points and releases the client.
func (w *Writer) Close() error {
	w.writeAPI.Flush()
	w.client.Close()
	return nil
}

// pointFor maps a record onto a point. fallback stamps records that carry
// no time of their own.
func pointFor(rec domain.Record, fallback time.Time) *write.Point {
	h := rec.Meta()
	tags := map[string]string{"serial": h.DeviceSerial}
	if h.HubSerial != "" {
		tags["hub"] = h.HubSerial
	}
	fields := map[string]interface{}{}
	ts := fallback
	if h.Timestamp > 0 {
		ts = time.Unix(h.Timestamp, 0)
	}

	var measurement string
	switch r := rec.(type) {
	case *domain.Observation:
		measurement = "observation"
		ts = epochOr(r.TimeEpoch, ts)
		addFloat(fields, "wind_lull", r.WindLull)
		addFloat(fields, "wind_avg", r.WindAvg)
		addFloat(fields, "wind_gust", r.WindGust)
		addFloat(fields, "wind_direction", r.WindDirection)
		addFloat(fields, "station_pressure", r.StationPressure)
		addFloat(fields, "air_temperature", r.AirTemperature)
		addFloat(fields, "relative_humidity", r.RelativeHumidity)
		addFloat(fields, "illuminance", r.Illuminance)
		addFloat(fields, "uv_index", r.UVIndex)
		addFloat(fields, "solar_radiation", r.SolarRadiation)
		addFloat(fields, "rain_accumulated", r.RainAccumulated)
		addFloat(fields, "precipitation_type", r.PrecipitationType)
		addFloat(fields, "lightning_avg_distance", r.LightningAvgDistance)
		addFloat(fields, "lightning_count", r.LightningCount)
		addFloat(fields, "battery_voltage", r.BatteryVoltage)
		addInt(fields, "battery_health", r.BatteryHealth)
		if r.AirTemperatureFailed {
			fields["air_temperature_failed"] = true
		}
	case *domain.RapidWind:
		measurement = "rapid_wind"
		ts = epochOr(r.TimeEpoch, ts)
		addFloat(fields, "wind_speed", r.WindSpeed)
		addFloat(fields, "wind_direction", r.WindDirection)
	case *domain.LightningStrike:
		measurement = "lightning_strike"
		ts = epochOr(r.TimeEpoch, ts)
		addFloat(fields, "distance_km", r.Distance)
		addFloat(fields, "energy", r.Energy)
	case *domain.PrecipitationEvent:
		measurement = "precipitation"
		ts = epochOr(r.TimeEpoch, ts)
		fields["started"] = 1
	case *domain.DeviceStatus:
		measurement = "device_status"
		addInt64(fields, "uptime", r.Uptime)
		addFloat(fields, "voltage", r.Voltage)
		addInt(fields, "firmware_revision", r.FirmwareRevision)
		addInt(fields, "rssi", r.RSSI)
		addInt(fields, "hub_rssi", r.HubRSSI)
		addInt(fields, "battery_health", r.BatteryHealth)
		if r.SensorStatus != nil {
			fields["sensor_status"] = int64(*r.SensorStatus)
		}
	case *domain.HubStatus:
		measurement = "hub_status"
		addInt64(fields, "uptime", r.Uptime)
		addInt(fields, "firmware_revision", r.FirmwareRevision)
		addInt(fields, "rssi", r.RSSI)
		addInt64(fields, "seq", r.Seq)
		if r.Radio != nil {
			addInt(fields, "radio_reboot_count", r.Radio.RebootCount)
			addInt(fields, "radio_i2c_bus_errors", r.Radio.I2CBusErrors)
		}
	default:
		return nil
	}

	if len(fields) == 0 {
		return nil
	}
	return write.NewPoint(measurement, tags, fields, ts)
}

func epochOr(epoch *float64, def time.Time) time.Time {
	if epoch == nil || *epoch <= 0 {
		return def
	}
	return time.Unix(int64(*epoch), 0)
}

func addFloat(fields map[string]interface{}, key string, v *float64) {
	if v != nil {
		fields[key] = *v
	}
}

func addInt(fields map[string]interface{}, key string, v *int) {
	if v != nil {
		fields[key] = int64(*v)
	}
}

func addInt64(fields map[string]interface{}, key string, v *int64) {
	if v != nil {
		fields[key] = *v
	}
}
