package domain

// Kind is the packet discriminator carried in the "type" field of every
// datagram broadcast by a Tempest hub.
type Kind string

const (
	KindObservation   Kind = "obs_st"
	KindRapidWind     Kind = "rapid_wind"
	KindLightning     Kind = "evt_strike"
	KindPrecipitation Kind = "evt_precip"
	KindDeviceStatus  Kind = "device_status"
	KindHubStatus     Kind = "hub_status"
)

// Record is a decoded, typed telemetry packet. Implementations are the six
// pointer types below; callers switch on the concrete type.
type Record interface {
	Kind() Kind
	Meta() Header
}

// Header holds the fields shared by every record variant.
type Header struct {
	Type         Kind   `json:"type"`
	DeviceSerial string `json:"serial_number,omitempty"`
	HubSerial    string `json:"hub_sn,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

func (h Header) Kind() Kind   { return h.Type }
func (h Header) Meta() Header { return h }

// stamp fills Timestamp from the first element of an array-shaped packet
// when the datagram carried no top-level timestamp.
func (h *Header) stamp(epoch *float64) {
	if h.Timestamp == 0 && epoch != nil && *epoch > 0 {
		h.Timestamp = int64(*epoch)
	}
}

// Observation is a Tempest obs_st row. The 18 measurement fields follow the
// positional order of the wire array; any of them may be null on the wire.
type Observation struct {
	Header

	TimeEpoch            *float64 `json:"time_epoch"`
	WindLull             *float64 `json:"wind_lull"`               // m/s
	WindAvg              *float64 `json:"wind_avg"`                // m/s
	WindGust             *float64 `json:"wind_gust"`               // m/s
	WindDirection        *float64 `json:"wind_direction"`          // degrees
	WindSampleInterval   *float64 `json:"wind_sample_interval"`    // seconds
	StationPressure      *float64 `json:"station_pressure"`        // mb
	AirTemperature       *float64 `json:"air_temperature"`         // C
	RelativeHumidity     *float64 `json:"relative_humidity"`       // %
	Illuminance          *float64 `json:"illuminance"`             // lux
	UVIndex              *float64 `json:"uv_index"`
	SolarRadiation       *float64 `json:"solar_radiation"`         // W/m^2
	RainAccumulated      *float64 `json:"rain_accumulated"`        // mm over the previous minute
	PrecipitationType    *float64 `json:"precipitation_type"`      // 0 none, 1 rain, 2 hail, 3 rain+hail
	LightningAvgDistance *float64 `json:"lightning_avg_distance"`  // km
	LightningCount       *float64 `json:"lightning_count"`
	BatteryVoltage       *float64 `json:"battery_voltage"`         // volts
	ReportInterval       *float64 `json:"report_interval_minutes"` // minutes

	FirmwareRevision     *int   `json:"firmware_revision,omitempty"`
	WindDirectionText    string `json:"wind_direction_text,omitempty"`
	BatteryHealth        *int   `json:"battery_health,omitempty"`
	AirTemperatureFailed bool   `json:"air_temperature_failed,omitempty"`
}

// RapidWind is a 3-second wind sample.
type RapidWind struct {
	Header

	TimeEpoch         *float64 `json:"time_epoch"`
	WindSpeed         *float64 `json:"wind_speed"`
	WindDirection     *float64 `json:"wind_direction"`
	WindDirectionText string   `json:"wind_direction_text,omitempty"`
}

// LightningStrike is an evt_strike event.
type LightningStrike struct {
	Header

	TimeEpoch *float64 `json:"time_epoch"`
	Distance  *float64 `json:"distance_km"`
	Energy    *float64 `json:"energy"`
}

// PrecipitationEvent is an evt_precip "rain start" event.
type PrecipitationEvent struct {
	Header

	TimeEpoch *float64 `json:"time_epoch"`
}

// DeviceStatus is the periodic health report of a station sensor unit.
type DeviceStatus struct {
	Header

	Uptime           *int64   `json:"uptime,omitempty"`
	Voltage          *float64 `json:"voltage,omitempty"`
	FirmwareRevision *int     `json:"firmware_revision,omitempty"`
	RSSI             *int     `json:"rssi,omitempty"`
	HubRSSI          *int     `json:"hub_rssi,omitempty"`
	SensorStatus     *uint32  `json:"sensor_status,omitempty"`
	Debug            *int     `json:"debug,omitempty"`

	BatteryHealth      *int   `json:"battery_health,omitempty"`
	SensorStatusText   string `json:"sensor_status_text,omitempty"`
	SensorStatusBinary string `json:"sensor_status_binary,omitempty"`
	RSSIQuality        string `json:"rssi_quality,omitempty"`
	HubRSSIQuality     string `json:"hub_rssi_quality,omitempty"`
}

// HubStatus is the periodic health report of a hub gateway. The hub reports
// its own serial in serial_number; HubSerial mirrors it.
type HubStatus struct {
	Header

	FirmwareRevision *int   `json:"firmware_revision,omitempty"`
	Uptime           *int64 `json:"uptime,omitempty"`
	RSSI             *int   `json:"rssi,omitempty"`
	ResetFlags       string `json:"reset_flags,omitempty"`
	Seq              *int64 `json:"seq,omitempty"`
	Radio            *Radio `json:"radio_stats,omitempty"`

	RSSIQuality  string `json:"rssi_quality,omitempty"`
	ResetReasons string `json:"reset_reasons,omitempty"`
}

// Radio is the decoded radio_stats array of a hub_status packet.
type Radio struct {
	Version      *int   `json:"version,omitempty"`
	RebootCount  *int   `json:"reboot_count,omitempty"`
	I2CBusErrors *int   `json:"i2c_bus_errors,omitempty"`
	Status       *int   `json:"status,omitempty"`
	StatusText   string `json:"status_text,omitempty"`
	NetworkID    *int   `json:"network_id,omitempty"`
}
