package station

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/plant-station-service/pkg/common"
	"liyu1981.xyz/plant-station-service/pkg/models"
)

func (s *Station) registerPlant(ctx context.Context, uid string, deviceID string, plantName string) (*models.Plant, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameStationCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryPlant),
	)

	owner, err := s.findOwnerRecord(ctx, uid)
	if err != nil {
		return nil, err
	}

	var existing models.Plant
	err = s.Db.Conn.WithContext(ctx).First(&existing, "device_id = ?", deviceID).Error
	if err == nil {
		return nil, fmt.Errorf("%w: %q", ErrDeviceTaken, deviceID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	plant := models.Plant{
		UserID:    owner.ID,
		DeviceID:  deviceID,
		PlantName: plantName,
	}
	if err := s.Db.Conn.WithContext(ctx).Create(&plant).Error; err != nil {
		return nil, err
	}

	logger.Info("Registered plant", zap.Uint("plant_id", plant.ID), zap.String("device_id", deviceID), zap.String("uid", uid))
	return &plant, nil
}

func toReadingView(d models.SensorData) models.ReadingView {
	return models.ReadingView{
		ID:                d.ID,
		Timestamp:         d.Timestamp,
		Temperature:       d.Temperature,
		Humidity:          d.Humidity,
		Moisture:          d.Moisture,
		Pressure:          d.Pressure,
		Hic:               d.Hic,
		BatteryVoltage:    d.BatteryVoltage,
		BatteryPercentage: d.BatteryPercentage,
	}
}

// getHistory returns every plant of uid with its newest readings first.
func (s *Station) getHistory(ctx context.Context, uid string, limit int) ([]models.PlantHistory, error) {
	owner, err := s.findOwnerRecord(ctx, uid)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.Options.HistoryLimit
	}

	var plants []models.Plant
	if err := s.Db.Conn.WithContext(ctx).
		Where("user_id = ?", owner.ID).
		Order("id asc").
		Find(&plants).Error; err != nil {
		return nil, err
	}

	history := make([]models.PlantHistory, 0, len(plants))
	for _, plant := range plants {
		var rows []models.SensorData
		if err := s.Db.Conn.WithContext(ctx).
			Where("plant_id = ?", plant.ID).
			Order("timestamp desc, id desc").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return nil, err
		}
		history = append(history, models.PlantHistory{
			PlantID:   plant.ID,
			PlantName: plant.PlantName,
			DeviceID:  plant.DeviceID,
			Readings:  common.Mapper(rows, toReadingView),
		})
	}
	return history, nil
}

type IPlantImpl struct {
	station *Station
}

func (ip *IPlantImpl) RegisterPlant(ctx context.Context, uid string, deviceID string, plantName string) (*models.Plant, error) {
	return ip.station.registerPlant(ctx, uid, deviceID, plantName)
}

func (ip *IPlantImpl) GetHistory(ctx context.Context, uid string, limit int) ([]models.PlantHistory, error) {
	return ip.station.getHistory(ctx, uid, limit)
}

func (s *Station) GetIPlant() IPlant {
	return &IPlantImpl{station: s}
}
