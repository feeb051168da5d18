package grpc

import (
	"golang.org/x/time/rate"
	"liyu1981.xyz/plant-station-service/pkg/station"
)

type ReadingServer struct {
	Station          *station.Station
	RateLimiterStore *station.RateLimiterStore
}

var _ ReadingServiceServer = (*ReadingServer)(nil)

func (s *ReadingServer) CheckDeviceLimiter(deviceID string) bool {
	return s.RateLimiterStore.Allow(deviceID)
}

func (s *ReadingServer) SetLimiter(deviceID string, deviceRate float64, deviceBurst int) bool {
	return s.RateLimiterStore.SetLimiter(deviceID, rate.Limit(deviceRate), deviceBurst)
}
