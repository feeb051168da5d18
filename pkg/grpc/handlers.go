package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	z "github.com/Oudwins/zog"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/plant-station-service/pkg/common"
	"liyu1981.xyz/plant-station-service/pkg/station"
)

var deviceIdValidator = z.String().Min(1).Required()

func validateDeviceID(deviceID *string) z.ZogIssueList {
	return deviceIdValidator.Validate(deviceID)
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// toStatus maps station errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, station.ErrUnresolvedOwner):
		return status.Error(codes.NotFound, err.Error())
	case station.IsRejection(err):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func (s *ReadingServer) PostReading(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	deviceID := stringField(req, "deviceId")
	if issues := validateDeviceID(&deviceID); issues != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", station.ErrMissingDeviceIdentity)
	}

	reading := req.GetFields()["reading"].GetStructValue()
	if reading == nil {
		return nil, status.Error(codes.InvalidArgument, "validation error: reading must be an object")
	}

	stored, err := s.Station.Ingest(ctx, station.IngestRequest{
		DeviceID: deviceID,
		UID:      stringField(req, "uid"),
		Payload:  reading.AsMap(),
	})
	if err != nil {
		if !station.IsRejection(err) {
			common.GetLoggerWith(common.LoggerNameGrpcServer).Error("PostReading failed",
				zap.String("device_id", deviceID), zap.Error(err))
		}
		return nil, toStatus(err)
	}

	return structpb.NewStruct(map[string]any{
		"id":        stored.ID,
		"plantId":   stored.PlantID,
		"timestamp": stored.Timestamp.Format(time.RFC3339Nano),
	})
}

var limiterValidator = z.Struct(z.Shape{
	"rate":  z.Float64().Required(),
	"burst": z.Float64().Required(),
})

type limiterInput struct {
	Rate  float64
	Burst float64
}

func (s *ReadingServer) PostLimiter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	deviceID := stringField(req, "deviceId")
	if issues := validateDeviceID(&deviceID); issues != nil {
		return nil, status.Errorf(codes.InvalidArgument, "validation error: %v", station.ErrMissingDeviceIdentity)
	}

	var in limiterInput
	if issues := limiterValidator.Parse(req.AsMap(), &in); issues != nil {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("validation error: %v", issues))
	}

	return structpb.NewStruct(map[string]any{
		"applied": s.SetLimiter(deviceID, in.Rate, int(in.Burst)),
	})
}
