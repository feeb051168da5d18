package station

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"liyu1981.xyz/plant-station-service/pkg/common"
	"liyu1981.xyz/plant-station-service/pkg/models"
)

// IngestRequest is one inbound reading as delivered by any transport.
type IngestRequest struct {
	DeviceID string
	UID      string
	Payload  map[string]any
}

const mirrorTimeout = 5 * time.Second

var identityValidator = z.String().Min(1).Required()

func validateIdentity(identity *string) z.ZogIssueList {
	return identityValidator.Validate(identity)
}

func reject(err error) error {
	return &IngestError{Stage: StageRejected, Err: err}
}

// Ingest runs RECEIVED -> VALIDATED -> RESOLVED -> PERSISTED -> BROADCAST.
// The returned outcome is fixed once the reading is persisted; broadcast and
// mirroring happen afterwards on their own goroutine and never affect it.
// Nothing is retried here: a failed insert is reported, not repeated.
func (s *Station) Ingest(ctx context.Context, req IngestRequest) (*models.StoredReading, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameStationCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryIngest),
	).With(zap.String("device_id", req.DeviceID), zap.String("uid", req.UID))

	logger.Debug("Reading received", zap.String("stage", string(StageReceived)))

	deviceID := strings.TrimSpace(req.DeviceID)
	if issues := validateIdentity(&deviceID); issues != nil {
		logger.Warn("Rejected reading", zap.Error(ErrMissingDeviceIdentity))
		return nil, reject(ErrMissingDeviceIdentity)
	}

	uid := strings.TrimSpace(req.UID)
	if s.Options.RequireOwnerIdentity {
		if issues := validateIdentity(&uid); issues != nil {
			logger.Warn("Rejected reading", zap.Error(ErrMissingOwnerIdentity))
			return nil, reject(ErrMissingOwnerIdentity)
		}
	}

	reading, err := ParseReading(req.Payload)
	if err != nil {
		logger.Warn("Rejected reading", zap.Error(err))
		return nil, reject(fmt.Errorf("%w: %w", ErrInvalidReading, err))
	}
	logger.Debug("Reading validated", zap.String("stage", string(StageValidated)))

	chain, err := s.Resolver.ResolveOwner(ctx, deviceID, uid)
	if err != nil {
		if errors.Is(err, ErrUnknownDevice) || errors.Is(err, ErrUnknownOwner) {
			logger.Warn("Rejected reading", zap.Error(err))
			return nil, reject(fmt.Errorf("%w: %w", ErrUnresolvedOwner, err))
		}
		logger.Error("Owner lookup failed", zap.Error(err))
		return nil, &IngestError{Stage: StageRejected, Err: fmt.Errorf("%w: %w", ErrLookupFailure, err)}
	}
	logger.Debug("Owner resolved", zap.String("stage", string(StageResolved)), zap.Uint("plant_id", chain.PlantID))

	row, err := s.Reading.Append(ctx, chain.PlantID, reading)
	if err != nil {
		logger.Error("Failed to persist reading", zap.Uint("plant_id", chain.PlantID), zap.Error(err))
		return nil, &IngestError{Stage: StagePersistFailed, Err: fmt.Errorf("%w: %w", ErrPersistFailure, err)}
	}

	stored := &models.StoredReading{
		SensorData: *row,
		DeviceID:   chain.DeviceID,
		PlantName:  chain.PlantName,
		UID:        chain.UID,
	}
	logger.Info("Reading persisted",
		zap.String("stage", string(StagePersisted)),
		zap.Uint("plant_id", stored.PlantID),
		zap.Uint("id", stored.ID))

	s.dispatch(context.WithoutCancel(ctx), stored, logger)
	return stored, nil
}

func (s *Station) dispatch(ctx context.Context, stored *models.StoredReading, logger *zap.Logger) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		if s.Broadcaster != nil {
			s.Broadcaster.Broadcast(stored.UID, models.NewUpdate(stored))
			logger.Debug("Reading broadcast", zap.String("stage", string(StageBroadcast)), zap.Uint("id", stored.ID))
		}

		if s.Mirror != nil {
			mctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
			defer cancel()
			if err := s.Mirror.Write(mctx, stored); err != nil {
				logger.Warn("Failed to mirror reading", zap.Uint("id", stored.ID), zap.Error(err))
			}
		}
	}()
}
