package timeseries

import (
	"context"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"
	"liyu1981.xyz/plant-station-service/pkg/common"
	"liyu1981.xyz/plant-station-service/pkg/models"
)

const Measurement = "sensor_data"

// InfluxMirror copies stored readings into an InfluxDB v2 bucket for
// dashboards. The relational store stays the source of truth.
type InfluxMirror struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
}

func NewInfluxMirror(url string, token string, org string, bucket string) *InfluxMirror {
	client := influxdb2.NewClient(url, token)
	return &InfluxMirror{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		org:      org,
		bucket:   bucket,
	}
}

func fieldsOf(stored *models.StoredReading) map[string]any {
	fields := map[string]any{
		"temperature":        stored.Temperature,
		"humidity":           stored.Humidity,
		"moisture":           stored.Moisture,
		"hic":                stored.Hic,
		"battery_voltage":    stored.BatteryVoltage,
		"battery_percentage": stored.BatteryPercentage,
	}
	if stored.Pressure != nil {
		fields["pressure"] = *stored.Pressure
	}
	return fields
}

func (m *InfluxMirror) Write(ctx context.Context, stored *models.StoredReading) error {
	point := influxdb2.NewPoint(Measurement,
		map[string]string{
			"device_id": stored.DeviceID,
			"plant_id":  strconv.FormatUint(uint64(stored.PlantID), 10),
			"uid":       stored.UID,
		},
		fieldsOf(stored),
		stored.Timestamp,
	)

	if err := m.writeAPI.WritePoint(ctx, point); err != nil {
		return err
	}

	common.GetLoggerWith(common.LoggerNameTimeseries).Debug("Mirrored reading",
		zap.Uint("id", stored.ID), zap.String("bucket", m.bucket))
	return nil
}

func (m *InfluxMirror) Close() {
	m.client.Close()
}
