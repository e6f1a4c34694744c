package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStatusMetric records a numeric component status reading.
//
// This is the primary telemetry path: the history recorder calls it for
// every status_changed event carrying a numeric (or boolean, mapped to
// 0/1) value. The write is non-blocking; data is batched and sent
// asynchronously.
//
// Example:
//
//	client.WriteStatusMetric("thermostat.1", "temperature", 21.5)
func (c *Client) WriteStatusMetric(componentUID string, statusUID string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"component_status",
		map[string]string{
			"component_uid": componentUID,
			"status_uid":    statusUID,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit WriteStatusMetric, e.g. bus
// throughput gauges.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
