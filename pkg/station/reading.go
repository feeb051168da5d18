package station

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/plant-station-service/pkg/common"
	"liyu1981.xyz/plant-station-service/pkg/models"
)

type readingInput struct {
	Temperature       float64
	Humidity          float64
	Moisture          float64
	Pressure          float64
	Hic               float64
	BatteryVoltage    float64
	BatteryPercentage float64
}

// presence is checked before the schema runs so a legitimate 0 reading is
// never mistaken for a missing field.
var requiredReadingFields = []string{
	"temperature",
	"humidity",
	"moisture",
	"hic",
	"batteryVoltage",
	"batteryPercentage",
}

var readingSchema = z.Struct(z.Shape{
	"temperature":       z.Float64(),
	"humidity":          z.Float64(),
	"moisture":          z.Float64(),
	"pressure":          z.Float64(),
	"hic":               z.Float64(),
	"batteryVoltage":    z.Float64(),
	"batteryPercentage": z.Float64(),
})

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ParseReading builds a Reading from a decoded payload. Numeric strings are
// coerced; missing, non-numeric, NaN and infinite fields are rejected.
func ParseReading(data map[string]any) (*models.Reading, error) {
	if data == nil {
		return nil, fmt.Errorf("payload must be a JSON object")
	}

	var invalid []string
	for _, field := range requiredReadingFields {
		if v, ok := data[field]; !ok || v == nil {
			invalid = append(invalid, field)
		}
	}

	var in readingInput
	if issues := readingSchema.Parse(data, &in); issues != nil {
		for field := range issues {
			if strings.HasPrefix(field, "$") || slices.Contains(invalid, field) {
				continue
			}
			invalid = append(invalid, field)
		}
	}

	_, hasPressure := data["pressure"]
	hasPressure = hasPressure && data["pressure"] != nil

	checks := map[string]float64{
		"temperature":       in.Temperature,
		"humidity":          in.Humidity,
		"moisture":          in.Moisture,
		"hic":               in.Hic,
		"batteryVoltage":    in.BatteryVoltage,
		"batteryPercentage": in.BatteryPercentage,
	}
	if hasPressure {
		checks["pressure"] = in.Pressure
	}
	for field, v := range checks {
		if !isFinite(v) && !slices.Contains(invalid, field) {
			invalid = append(invalid, field)
		}
	}

	if len(invalid) > 0 {
		slices.Sort(invalid)
		return nil, fmt.Errorf("missing or non-numeric fields: %s", strings.Join(invalid, ", "))
	}

	reading := &models.Reading{
		Temperature:       in.Temperature,
		Humidity:          in.Humidity,
		Moisture:          in.Moisture,
		Hic:               in.Hic,
		BatteryVoltage:    in.BatteryVoltage,
		BatteryPercentage: in.BatteryPercentage,
	}
	if hasPressure {
		pressure := in.Pressure
		reading.Pressure = &pressure
	}
	return reading, nil
}

func (s *Station) appendReading(ctx context.Context, plantID uint, reading *models.Reading) (*models.SensorData, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameStationCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryReading),
	)

	row := models.SensorData{
		PlantID:           plantID,
		Temperature:       reading.Temperature,
		Humidity:          reading.Humidity,
		Moisture:          reading.Moisture,
		Pressure:          reading.Pressure,
		Hic:               reading.Hic,
		BatteryVoltage:    reading.BatteryVoltage,
		BatteryPercentage: reading.BatteryPercentage,
	}

	var stored models.SensorData
	err := s.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.First(&stored, row.ID).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Stored reading for plant", zap.Uint("plant_id", plantID), zap.Uint("id", stored.ID))
	return &stored, nil
}

type IReadingStoreImpl struct {
	station *Station
}

func (ir *IReadingStoreImpl) Append(ctx context.Context, plantID uint, reading *models.Reading) (*models.SensorData, error) {
	return ir.station.appendReading(ctx, plantID, reading)
}

func (s *Station) GetIReadingStore() IReadingStore {
	return &IReadingStoreImpl{station: s}
}
