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

func (s *Station) findOwnerRecord(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := s.Db.Conn.WithContext(ctx).First(&user, "uid = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOwner, uid)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Station) findEntityByDeviceID(ctx context.Context, deviceID string) (*models.Plant, error) {
	var plant models.Plant
	err := s.Db.Conn.WithContext(ctx).Preload("User").First(&plant, "device_id = ?", deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, deviceID)
	}
	if err != nil {
		return nil, err
	}
	return &plant, nil
}

func (s *Station) resolveOwner(ctx context.Context, deviceID string, uid string) (*models.OwnerChain, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameStationCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryResolver),
	)

	var owner *models.User
	if uid != "" {
		var err error
		if owner, err = s.findOwnerRecord(ctx, uid); err != nil {
			return nil, err
		}
	}

	plant, err := s.findEntityByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if owner != nil && plant.UserID != owner.ID {
		return nil, fmt.Errorf("%w: %q is not registered to owner %q", ErrUnknownDevice, deviceID, uid)
	}

	chain := &models.OwnerChain{
		PlantID:   plant.ID,
		PlantName: plant.PlantName,
		DeviceID:  plant.DeviceID,
		UserID:    plant.UserID,
		UID:       plant.User.UID,
	}

	logger.Debug("Resolved device owner", zap.Reflect("chain", chain))
	return chain, nil
}

type IResolverImpl struct {
	station *Station
}

func (ir *IResolverImpl) ResolveOwner(ctx context.Context, deviceID string, uid string) (*models.OwnerChain, error) {
	return ir.station.resolveOwner(ctx, deviceID, uid)
}

func (s *Station) GetIResolver() IResolver {
	return &IResolverImpl{station: s}
}
