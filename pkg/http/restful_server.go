package http

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"liyu1981.xyz/plant-station-service/pkg/live"
	"liyu1981.xyz/plant-station-service/pkg/station"
	"liyu1981.xyz/plant-station-service/pkg/ws"
)

type RestfulServer struct {
	Server           *gin.Engine
	Station          *station.Station
	Broadcaster      *live.Broadcaster
	Live             *ws.Server
	RateLimiterStore *station.RateLimiterStore
	// BearerToken guards device routes when non-empty.
	BearerToken string
}

func (rs *RestfulServer) CheckDeviceLimiter(deviceID string) bool {
	return rs.RateLimiterStore.Allow(deviceID)
}

func (rs *RestfulServer) SetLimiter(deviceID string, deviceRate float64, deviceBurst int) bool {
	return rs.RateLimiterStore.SetLimiter(deviceID, rate.Limit(deviceRate), deviceBurst)
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)

	device := rs.Server.Group("/", rs.RequireBearer())
	{
		device.POST("/readings", rs.PostReading)
		// path kept for devices flashed against the older firmware
		device.POST("/weather", rs.PostReading)
		device.POST("/plants", rs.PostPlant)
		device.POST("/devices/:device_id/limiter", rs.PostLimiter)
	}

	rs.Server.GET("/users/:uid/plants", rs.GetUserPlants)

	if rs.Live != nil {
		rs.Server.GET("/ws", gin.WrapH(rs.Live))
	}
}
