package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"liyu1981.xyz/plant-station-service/pkg/common"
)

const (
	DBTypeFile   = "file"
	DBTypeMemory = "memory"

	DefaultHTTPHostPort = ":3001"
	DefaultRate         = 5.0
	DefaultBurst        = 10
	DefaultMqttTopic    = "plants/+/readings"
	DefaultMqttClientID = "plant-station"
)

type Config struct {
	DBType string

	HTTPHostPort string
	// GRPCHostPort empty disables the gRPC listener.
	GRPCHostPort string

	DefaultRate  float64
	DefaultBurst int

	BearerToken        string
	SessionJWTSecret   string
	RequireOwnerHeader bool

	MqttBrokerURL string
	MqttTopic     string
	MqttClientID  string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

func env(key string, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// FromEnv reads the process environment. Errors name the offending key.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBType:             env(common.EnvKeyPlantDBType, DBTypeFile),
		HTTPHostPort:       env(common.EnvKeyPlantHttpHostPort, DefaultHTTPHostPort),
		GRPCHostPort:       env(common.EnvKeyPlantGrpcHostPort, ""),
		DefaultRate:        DefaultRate,
		DefaultBurst:       DefaultBurst,
		BearerToken:        env(common.EnvKeyPlantBearerToken, ""),
		SessionJWTSecret:   env(common.EnvKeyPlantSessionJwtSecret, ""),
		RequireOwnerHeader: common.EnvBool(common.EnvKeyPlantRequireOwnerHeader, false),
		MqttBrokerURL:      env(common.EnvKeyPlantMqttBrokerURL, ""),
		MqttTopic:          env(common.EnvKeyPlantMqttTopic, DefaultMqttTopic),
		MqttClientID:       env(common.EnvKeyPlantMqttClientID, DefaultMqttClientID),
		InfluxURL:          env(common.EnvKeyPlantInfluxURL, ""),
		InfluxToken:        env(common.EnvKeyPlantInfluxToken, ""),
		InfluxOrg:          env(common.EnvKeyPlantInfluxOrg, ""),
		InfluxBucket:       env(common.EnvKeyPlantInfluxBucket, ""),
	}

	switch cfg.DBType {
	case DBTypeFile, DBTypeMemory:
	default:
		return nil, fmt.Errorf("unknown %s %q, should be %q or %q", common.EnvKeyPlantDBType, cfg.DBType, DBTypeFile, DBTypeMemory)
	}

	if v := env(common.EnvKeyPlantDefaultRate, ""); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate < 0 {
			return nil, fmt.Errorf("invalid %s %q, should be a non-negative float64 value", common.EnvKeyPlantDefaultRate, v)
		}
		cfg.DefaultRate = rate
	}

	if v := env(common.EnvKeyPlantDefaultBurst, ""); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil || burst < 0 {
			return nil, fmt.Errorf("invalid %s %q, should be a non-negative int value", common.EnvKeyPlantDefaultBurst, v)
		}
		cfg.DefaultBurst = burst
	}

	if cfg.InfluxURL != "" && (cfg.InfluxOrg == "" || cfg.InfluxBucket == "") {
		return nil, fmt.Errorf("%s is set but %s or %s is missing",
			common.EnvKeyPlantInfluxURL, common.EnvKeyPlantInfluxOrg, common.EnvKeyPlantInfluxBucket)
	}

	return cfg, nil
}

func (c *Config) MqttEnabled() bool {
	return c.MqttBrokerURL != ""
}

func (c *Config) InfluxEnabled() bool {
	return c.InfluxURL != ""
}
