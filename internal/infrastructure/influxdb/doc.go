// Package influxdb exports component status telemetry to InfluxDB v2.
//
// The hub's own history is the bus's RAM ring; long-term numeric series
// (temperatures, power readings, brightness levels) go to InfluxDB when
// the integration is enabled. Writes are batched and non-blocking so a
// slow or absent time-series database never stalls registry mutations.
package influxdb
