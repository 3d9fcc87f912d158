package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// obsFieldCount is the number of positional fields in an obs_st row.
const obsFieldCount = 18

// airTemperatureFailed is the reading a Tempest reports when its
// temperature sensor has failed.
const airTemperatureFailed = -44.99

// Decode turns one UDP datagram into a typed Record. On failure the Record is
// nil and the error is a *DecodeError.
func Decode(raw []byte) (Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, &DecodeError{Reason: ErrNotStructured, Err: err}
	}

	typeRaw, ok := fields["type"]
	if !ok {
		return nil, &DecodeError{Reason: ErrUnknownType}
	}
	var kind string
	if err := json.Unmarshal(typeRaw, &kind); err != nil {
		return nil, &DecodeError{Reason: ErrUnknownType, Err: err}
	}

	p := &packet{kind: kind, fields: fields}
	var (
		rec Record
		err error
	)
	switch Kind(kind) {
	case KindObservation:
		rec, err = p.observation()
	case KindRapidWind:
		rec, err = p.rapidWind()
	case KindLightning:
		rec, err = p.lightning()
	case KindPrecipitation:
		rec, err = p.precipitation()
	case KindDeviceStatus:
		rec, err = p.deviceStatus()
	case KindHubStatus:
		rec, err = p.hubStatus()
	default:
		return nil, &DecodeError{Reason: ErrUnknownType, Type: kind}
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// packet is a parsed JSON object awaiting destructuring into a Record.
type packet struct {
	kind   string
	fields map[string]json.RawMessage
}

func (p *packet) fail(reason error, field string, err error) *DecodeError {
	return &DecodeError{Reason: reason, Type: p.kind, Field: field, Err: err}
}

func (p *packet) header(needTimestamp bool) (Header, error) {
	h := Header{Type: Kind(p.kind)}

	serial, err := p.requiredString("serial_number")
	if err != nil {
		return h, err
	}
	h.DeviceSerial = serial

	if raw, ok := p.fields["hub_sn"]; ok && !isNull(raw) {
		var hub string
		if err := json.Unmarshal(raw, &hub); err != nil {
			return h, p.fail(ErrNumericCoercion, "hub_sn", err)
		}
		h.HubSerial = hub
	}

	ts, err := p.int64Field("timestamp")
	if err != nil {
		return h, err
	}
	if ts == nil {
		if needTimestamp {
			return h, p.fail(ErrMissingField, "timestamp", nil)
		}
	} else {
		h.Timestamp = *ts
	}
	return h, nil
}

func (p *packet) requiredString(key string) (string, error) {
	raw, ok := p.fields[key]
	if !ok || isNull(raw) {
		return "", p.fail(ErrMissingField, key, nil)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", p.fail(ErrMissingField, key, err)
	}
	if s == "" {
		return "", p.fail(ErrMissingField, key, nil)
	}
	return s, nil
}

func (p *packet) floatField(key string) (*float64, error) {
	v, err := parseFloat(p.fields[key])
	if err != nil {
		return nil, p.fail(ErrNumericCoercion, key, err)
	}
	return v, nil
}

func (p *packet) int64Field(key string) (*int64, error) {
	v, err := p.floatField(key)
	if err != nil || v == nil {
		return nil, err
	}
	n := int64(*v)
	return &n, nil
}

func (p *packet) intField(key string) (*int, error) {
	v, err := p.floatField(key)
	if err != nil || v == nil {
		return nil, err
	}
	n := int(*v)
	return &n, nil
}

// firmware accepts both numeric and numeric-string revisions; hubs report
// the latter.
func (p *packet) firmware() (*int, error) {
	raw := p.fields["firmware_revision"]
	if raw == nil || isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, p.fail(ErrNumericCoercion, "firmware_revision", err)
		}
		return &n, nil
	}
	return p.intField("firmware_revision")
}

// row returns the positional array stored under key. When nested is set the
// value is an array of rows and the first row is returned.
func (p *packet) row(key string, nested bool) ([]json.RawMessage, error) {
	raw, ok := p.fields[key]
	if !ok || isNull(raw) {
		return nil, p.fail(ErrMissingField, key, nil)
	}
	if nested {
		var rows []json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, p.fail(ErrNumericCoercion, key, err)
		}
		if len(rows) == 0 {
			return nil, p.fail(ErrShortObservation, key, nil)
		}
		raw = rows[0]
	}
	var row []json.RawMessage
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, p.fail(ErrNumericCoercion, key, err)
	}
	return row, nil
}

// zip maps the elements of row onto dst in order. Missing trailing elements
// leave their destinations nil.
func (p *packet) zip(key string, row []json.RawMessage, dst ...**float64) error {
	for i, target := range dst {
		if i >= len(row) {
			return nil
		}
		v, err := parseFloat(row[i])
		if err != nil {
			return p.fail(ErrNumericCoercion, key+"["+strconv.Itoa(i)+"]", err)
		}
		*target = v
	}
	return nil
}

func (p *packet) observation() (*Observation, error) {
	h, err := p.header(false)
	if err != nil {
		return nil, err
	}
	row, err := p.row("obs", true)
	if err != nil {
		return nil, err
	}
	if len(row) < obsFieldCount {
		return nil, p.fail(ErrShortObservation, "obs", nil)
	}

	o := &Observation{Header: h}
	if err := p.zip("obs", row,
		&o.TimeEpoch, &o.WindLull, &o.WindAvg, &o.WindGust, &o.WindDirection,
		&o.WindSampleInterval, &o.StationPressure, &o.AirTemperature,
		&o.RelativeHumidity, &o.Illuminance, &o.UVIndex, &o.SolarRadiation,
		&o.RainAccumulated, &o.PrecipitationType, &o.LightningAvgDistance,
		&o.LightningCount, &o.BatteryVoltage, &o.ReportInterval,
	); err != nil {
		return nil, err
	}
	o.stamp(o.TimeEpoch)

	if o.FirmwareRevision, err = p.firmware(); err != nil {
		return nil, err
	}
	if o.WindDirection != nil {
		o.WindDirectionText = CompassText(*o.WindDirection)
	}
	if o.BatteryVoltage != nil {
		health := BatteryHealth(*o.BatteryVoltage)
		o.BatteryHealth = &health
	}
	if o.AirTemperature != nil && *o.AirTemperature == airTemperatureFailed {
		o.AirTemperature = nil
		o.AirTemperatureFailed = true
	}
	return o, nil
}

func (p *packet) rapidWind() (*RapidWind, error) {
	h, err := p.header(false)
	if err != nil {
		return nil, err
	}
	row, err := p.row("ob", false)
	if err != nil {
		return nil, err
	}
	w := &RapidWind{Header: h}
	if err := p.zip("ob", row, &w.TimeEpoch, &w.WindSpeed, &w.WindDirection); err != nil {
		return nil, err
	}
	w.stamp(w.TimeEpoch)
	if w.WindDirection != nil {
		w.WindDirectionText = CompassText(*w.WindDirection)
	}
	return w, nil
}

func (p *packet) lightning() (*LightningStrike, error) {
	h, err := p.header(false)
	if err != nil {
		return nil, err
	}
	row, err := p.row("evt", false)
	if err != nil {
		return nil, err
	}
	s := &LightningStrike{Header: h}
	if err := p.zip("evt", row, &s.TimeEpoch, &s.Distance, &s.Energy); err != nil {
		return nil, err
	}
	s.stamp(s.TimeEpoch)
	return s, nil
}

func (p *packet) precipitation() (*PrecipitationEvent, error) {
	h, err := p.header(false)
	if err != nil {
		return nil, err
	}
	row, err := p.row("evt", false)
	if err != nil {
		return nil, err
	}
	e := &PrecipitationEvent{Header: h}
	if err := p.zip("evt", row, &e.TimeEpoch); err != nil {
		return nil, err
	}
	e.stamp(e.TimeEpoch)
	return e, nil
}

func (p *packet) deviceStatus() (*DeviceStatus, error) {
	h, err := p.header(true)
	if err != nil {
		return nil, err
	}
	d := &DeviceStatus{Header: h}
	if d.Uptime, err = p.int64Field("uptime"); err != nil {
		return nil, err
	}
	if d.Voltage, err = p.floatField("voltage"); err != nil {
		return nil, err
	}
	if d.FirmwareRevision, err = p.firmware(); err != nil {
		return nil, err
	}
	if d.RSSI, err = p.intField("rssi"); err != nil {
		return nil, err
	}
	if d.HubRSSI, err = p.intField("hub_rssi"); err != nil {
		return nil, err
	}
	if d.Debug, err = p.intField("debug"); err != nil {
		return nil, err
	}
	status, err := p.floatField("sensor_status")
	if err != nil {
		return nil, err
	}
	if status != nil {
		if *status < 0 {
			return nil, p.fail(ErrNumericCoercion, "sensor_status", nil)
		}
		bits := uint32(*status)
		d.SensorStatus = &bits
		d.SensorStatusText = SensorStatusText(bits)
		d.SensorStatusBinary = SensorStatusBinary(bits)
	}

	if d.Voltage != nil {
		health := BatteryHealth(*d.Voltage)
		d.BatteryHealth = &health
	}
	if d.RSSI != nil {
		d.RSSIQuality = RSSIQuality(*d.RSSI)
	}
	if d.HubRSSI != nil {
		d.HubRSSIQuality = RSSIQuality(*d.HubRSSI)
	}
	return d, nil
}

func (p *packet) hubStatus() (*HubStatus, error) {
	h, err := p.header(true)
	if err != nil {
		return nil, err
	}
	h.HubSerial = h.DeviceSerial

	hs := &HubStatus{Header: h}
	if hs.FirmwareRevision, err = p.firmware(); err != nil {
		return nil, err
	}
	if hs.Uptime, err = p.int64Field("uptime"); err != nil {
		return nil, err
	}
	if hs.RSSI, err = p.intField("rssi"); err != nil {
		return nil, err
	}
	if hs.Seq, err = p.int64Field("seq"); err != nil {
		return nil, err
	}
	if raw, ok := p.fields["reset_flags"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &hs.ResetFlags); err != nil {
			return nil, p.fail(ErrNumericCoercion, "reset_flags", err)
		}
		hs.ResetReasons = HubResetReasons(hs.ResetFlags)
	}
	if hs.RSSI != nil {
		hs.RSSIQuality = RSSIQuality(*hs.RSSI)
	}

	if raw, ok := p.fields["radio_stats"]; ok && !isNull(raw) {
		radio, err := p.radio()
		if err != nil {
			return nil, err
		}
		hs.Radio = radio
	}
	return hs, nil
}

func (p *packet) radio() (*Radio, error) {
	row, err := p.row("radio_stats", false)
	if err != nil {
		return nil, err
	}
	var version, reboots, i2c, status, network *float64
	if err := p.zip("radio_stats", row, &version, &reboots, &i2c, &status, &network); err != nil {
		return nil, err
	}
	r := &Radio{
		Version:      toInt(version),
		RebootCount:  toInt(reboots),
		I2CBusErrors: toInt(i2c),
		Status:       toInt(status),
		NetworkID:    toInt(network),
	}
	if r.Status != nil {
		r.StatusText = RadioStatusText(*r.Status)
	}
	return r, nil
}

func parseFloat(raw json.RawMessage) (*float64, error) {
	if raw == nil || isNull(raw) {
		return nil, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func toInt(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}
