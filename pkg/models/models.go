package models

import "time"

// User is the owner record. UID is the public identity that devices and live
// sessions declare; ID is the internal key plants reference.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	UID       string `gorm:"uniqueIndex;not null"`
	Username  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time

	Plants []Plant `gorm:"foreignKey:UserID"`
}

// Plant is the owned entity bridging a device to its owning user.
type Plant struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	DeviceID  string `gorm:"uniqueIndex;not null"`
	PlantName string `gorm:"not null"`
	CreatedAt time.Time

	User       User         `gorm:"foreignKey:UserID"`
	SensorData []SensorData `gorm:"foreignKey:PlantID"`
}

// SensorData is a persisted reading.
type SensorData struct {
	ID                uint      `gorm:"primaryKey"`
	PlantID           uint      `gorm:"not null;index:idx_plant_id_timestamp,priority:1"`
	Timestamp         time.Time `gorm:"autoCreateTime;index:idx_plant_id_timestamp,priority:2,sort:desc"`
	Temperature       float64
	Humidity          float64
	Moisture          float64
	Pressure          *float64
	Hic               float64
	BatteryVoltage    float64
	BatteryPercentage float64
}

// Reading is one validated sensor sample. Construct it with
// station.ParseReading; it is never modified afterwards.
type Reading struct {
	Temperature       float64
	Humidity          float64
	Moisture          float64
	Pressure          *float64
	Hic               float64
	BatteryVoltage    float64
	BatteryPercentage float64
}

// OwnerChain is the read-only projection of device -> plant -> user.
type OwnerChain struct {
	PlantID   uint
	PlantName string
	DeviceID  string
	UserID    uint
	UID       string
}

// StoredReading is what the store hands back after an append, forwarded
// verbatim to the broadcaster.
type StoredReading struct {
	SensorData
	DeviceID  string
	PlantName string
	UID       string
}

const (
	UpdateTypeUpdate  string = "update"
	UpdateTypeHistory string = "history"
)

// Update is the envelope pushed to live sessions for each stored reading.
type Update struct {
	Type              string    `json:"type"`
	ID                uint      `json:"id"`
	PlantID           uint      `json:"plantId"`
	PlantName         string    `json:"plantName"`
	DeviceID          string    `json:"deviceId"`
	Timestamp         time.Time `json:"timestamp"`
	Temperature       float64   `json:"temperature"`
	Humidity          float64   `json:"humidity"`
	Moisture          float64   `json:"moisture"`
	Pressure          *float64  `json:"pressure,omitempty"`
	Hic               float64   `json:"hic"`
	BatteryVoltage    float64   `json:"batteryVoltage"`
	BatteryPercentage float64   `json:"batteryPercentage"`
}

func NewUpdate(s *StoredReading) Update {
	return Update{
		Type:              UpdateTypeUpdate,
		ID:                s.ID,
		PlantID:           s.PlantID,
		PlantName:         s.PlantName,
		DeviceID:          s.DeviceID,
		Timestamp:         s.Timestamp,
		Temperature:       s.Temperature,
		Humidity:          s.Humidity,
		Moisture:          s.Moisture,
		Pressure:          s.Pressure,
		Hic:               s.Hic,
		BatteryVoltage:    s.BatteryVoltage,
		BatteryPercentage: s.BatteryPercentage,
	}
}

// ReadingView is one row of a plant's history.
type ReadingView struct {
	ID                uint      `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	Temperature       float64   `json:"temperature"`
	Humidity          float64   `json:"humidity"`
	Moisture          float64   `json:"moisture"`
	Pressure          *float64  `json:"pressure,omitempty"`
	Hic               float64   `json:"hic"`
	BatteryVoltage    float64   `json:"batteryVoltage"`
	BatteryPercentage float64   `json:"batteryPercentage"`
}

type PlantHistory struct {
	PlantID   uint          `json:"plantId"`
	PlantName string        `json:"plantName"`
	DeviceID  string        `json:"deviceId"`
	Readings  []ReadingView `json:"readings"`
}

// History is sent once to a session right after it binds.
type History struct {
	Type   string         `json:"type"`
	Plants []PlantHistory `json:"plants"`
}
