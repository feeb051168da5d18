package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"liyu1981.xyz/plant-station-service/pkg/common"
	"liyu1981.xyz/plant-station-service/pkg/station"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

// statusFor maps station errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, station.ErrUnresolvedOwner), errors.Is(err, station.ErrUnknownOwner):
		return http.StatusNotFound
	case errors.Is(err, station.ErrDeviceTaken):
		return http.StatusConflict
	case station.IsRejection(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (rs *RestfulServer) PostReading(c *gin.Context) {
	deviceID := strings.TrimSpace(c.GetHeader(common.HeaderDeviceID))

	if deviceID != "" && !rs.CheckDeviceLimiter(deviceID) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return
	}

	stored, err := rs.Station.Ingest(c.Request.Context(), station.IngestRequest{
		DeviceID: deviceID,
		UID:      c.GetHeader(common.HeaderUID),
		Payload:  payload,
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Data stored",
		"id":        stored.ID,
		"plantId":   stored.PlantID,
		"timestamp": stored.Timestamp,
	})
}

type PlantRequest struct {
	PlantName string `json:"plant_name"`
}

var plantNameValidator = z.String().Min(1).Max(100).Required()

func (rs *RestfulServer) PostPlant(c *gin.Context) {
	deviceID := strings.TrimSpace(c.GetHeader(common.HeaderDeviceID))
	uid := strings.TrimSpace(c.GetHeader(common.HeaderUID))
	if deviceID == "" || uid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Device-ID and UID headers are required"})
		return
	}

	var req PlantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return
	}
	req.PlantName = strings.TrimSpace(req.PlantName)
	if issues := plantNameValidator.Validate(&req.PlantName); issues != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plant_name must be 1 to 100 characters"})
		return
	}

	plant, err := rs.Station.Plant.RegisterPlant(c.Request.Context(), uid, deviceID, req.PlantName)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			common.GetLoggerWith(common.LoggerNameRestfulServer).Error("Failed to register plant",
				zap.String("device_id", deviceID), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Plant created", "plant_id": plant.ID})
}

func (rs *RestfulServer) GetUserPlants(c *gin.Context) {
	uid := c.Param("uid")

	plants, err := rs.Station.Plant.GetHistory(c.Request.Context(), uid, 0)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, plants)
}

type LimiterRequest struct {
	Rate  float64 `json:"rate"`
	Burst int     `json:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"rate":  z.Float64().Required(),
	"burst": z.Int().Required(),
})

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	deviceID := c.Param("device_id")

	var req LimiterRequest
	if err := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	// without a limiter store this is accepted but has no effect
	applied := rs.SetLimiter(deviceID, req.Rate, req.Burst)

	c.JSON(http.StatusOK, gin.H{"applied": applied})
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if rs.Broadcaster != nil {
		stats := rs.Broadcaster.Stats()
		body["sessions"] = stats.Sessions
		body["delivered"] = stats.Delivered
		body["failed"] = stats.Failed
	}
	c.JSON(http.StatusOK, body)
}
