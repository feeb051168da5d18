package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyPlantDBType string = "PLANT_DB_TYPE"
	EnvKeyPlantDbPath string = "PLANT_DB_PATH"

	EnvKeyPlantHttpHostPort string = "PLANT_HTTP_HOST_PORT"
	EnvKeyPlantGrpcHostPort string = "PLANT_GRPC_HOST_PORT"

	EnvKeyPlantDefaultRate  string = "PLANT_DEFAULT_RATE"
	EnvKeyPlantDefaultBurst string = "PLANT_DEFAULT_BURST"

	EnvKeyPlantBearerToken        string = "PLANT_BEARER_TOKEN"
	EnvKeyPlantSessionJwtSecret   string = "PLANT_SESSION_JWT_SECRET"
	EnvKeyPlantRequireOwnerHeader string = "PLANT_REQUIRE_OWNER_HEADER"

	EnvKeyPlantMqttBrokerURL string = "PLANT_MQTT_BROKER_URL"
	EnvKeyPlantMqttTopic     string = "PLANT_MQTT_TOPIC"
	EnvKeyPlantMqttClientID  string = "PLANT_MQTT_CLIENT_ID"

	EnvKeyPlantInfluxURL    string = "PLANT_INFLUX_URL"
	EnvKeyPlantInfluxToken  string = "PLANT_INFLUX_TOKEN"
	EnvKeyPlantInfluxOrg    string = "PLANT_INFLUX_ORG"
	EnvKeyPlantInfluxBucket string = "PLANT_INFLUX_BUCKET"

	HeaderDeviceID string = "Device-ID"
	HeaderUID      string = "UID"

	LoggerNameStationCore   string = "station_core"
	LoggerNameLiveHub       string = "live_hub"
	LoggerNameWsSession     string = "ws_session"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameGrpcServer    string = "grpc_server"
	LoggerNameMqttIngress   string = "mqtt_ingress"
	LoggerNameTimeseries    string = "timeseries"

	LoggerFieldCategory string = "category"

	LoggerCategoryIngest    string = "ingest"
	LoggerCategoryResolver  string = "resolver"
	LoggerCategoryReading   string = "reading"
	LoggerCategoryPlant     string = "plant"
	LoggerCategoryRegistry  string = "registry"
	LoggerCategoryBroadcast string = "broadcast"
)
