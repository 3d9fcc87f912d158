// Package domain models WeatherFlow Tempest telemetry and the notifications
// derived from it.
//
// # Data Source
//
// A Tempest hub broadcasts one JSON object per UDP datagram on port 50222.
// Every object carries a "type" discriminator and the "serial_number" of the
// device that produced it. See the WeatherFlow Tempest UDP reference (v171)
// at https://weatherflow.github.io/Tempest/api/udp/v171/.
//
// # Packet Shapes
//
//	obs_st        "obs": [[18 positional values]]      -> [Observation]
//	rapid_wind    "ob":  [time, speed, direction]      -> [RapidWind]
//	evt_strike    "evt": [time, distance, energy]      -> [LightningStrike]
//	evt_precip    "evt": [time]                        -> [PrecipitationEvent]
//	device_status flat object with "timestamp"         -> [DeviceStatus]
//	hub_status    flat object with "timestamp"         -> [HubStatus]
//
// An obs_st row with fewer than 18 values is rejected. The shorter event
// arrays may be truncated; missing trailing values decode as absent.
//
// # Conventions
//
// Any positional value may be JSON null. Absent and null values are nil
// pointers, never zero.
//
// Air temperature of exactly -44.99 C is the sensor-failed sentinel. The
// decoder nulls the reading and sets AirTemperatureFailed.
//
// Hubs report firmware_revision as a numeric string ("171"); stations send a
// number. Both decode to an int.
//
// Battery health maps 2.35 V to 0% and rises 1% per 1/256 V, capped at 100.
// Voltages at or below 2.1 V yield [BatteryHealthUnhealthy].
//
// Sensor status is a bitfield. 0 and the lightning disturber bit alone are
// "OK"; anything else is rendered as "<code>, <flag>, ...". Bits 10 to 17
// are WeatherFlow internal and keep their vendor names.
//
// # Battery Modes
//
// Tempest firmware throttles sampling in four tiers as charge falls. The
// tier boundaries use hysteresis so a station hovering at a threshold does
// not flap between modes. [BatteryMode.Description] lists the effect of each
// tier.
//
// # Status File
//
// [DeviceEntry] uses the JSON keys of the monitor's status file: type,
// firmware, uptime, station_sensors, battvolts, battmode, last_seen, status.
package domain
