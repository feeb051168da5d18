package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"gorm.io/gorm"
	"liyu1981.xyz/plant-station-service/pkg/common"
	"liyu1981.xyz/plant-station-service/pkg/config"
	"liyu1981.xyz/plant-station-service/pkg/db"
	plantGrpc "liyu1981.xyz/plant-station-service/pkg/grpc"
	plantHttp "liyu1981.xyz/plant-station-service/pkg/http"
	"liyu1981.xyz/plant-station-service/pkg/live"
	"liyu1981.xyz/plant-station-service/pkg/mqtt"
	"liyu1981.xyz/plant-station-service/pkg/station"
	"liyu1981.xyz/plant-station-service/pkg/timeseries"
	"liyu1981.xyz/plant-station-service/pkg/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	httpAddr := pflag.String("http-addr", "", "HTTP listen address, overrides "+common.EnvKeyPlantHttpHostPort)
	grpcAddr := pflag.String("grpc-addr", "", "gRPC listen address, overrides "+common.EnvKeyPlantGrpcHostPort)
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading %s: %v", *envFile, err)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	if *httpAddr != "" {
		cfg.HTTPHostPort = *httpAddr
	}
	if *grpcAddr != "" {
		cfg.GRPCHostPort = *grpcAddr
	}

	logger := common.GetLogger()
	defer common.SyncLogger()

	var dialector gorm.Dialector
	switch cfg.DBType {
	case config.DBTypeMemory:
		dialector = db.UseMemorySqliteDialector()
	default:
		dialector = db.UseSqliteDialector()
	}
	database, err := db.Open(dialector)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	broadcaster := live.NewBroadcaster(live.NewRegistry())
	core := station.New(database, broadcaster, station.Options{
		RequireOwnerIdentity: cfg.RequireOwnerHeader,
	})

	if cfg.InfluxEnabled() {
		mirror := timeseries.NewInfluxMirror(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
		defer mirror.Close()
		core.WithServices(station.ServiceOpts{Mirror: mirror})
		logger.Info("Mirroring readings to InfluxDB", zap.String("url", cfg.InfluxURL), zap.String("bucket", cfg.InfluxBucket))
	}

	limiters := station.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst)
	logger.Info("Rate limiter created with:",
		zap.String("default_limiter",
			fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst)))

	var grpcServer *grpc.Server
	if cfg.GRPCHostPort != "" {
		grpcServer = plantGrpc.NewServer(&plantGrpc.ReadingServer{
			Station:          core,
			RateLimiterStore: limiters,
		}, cfg.BearerToken)

		listener, err := net.Listen("tcp", cfg.GRPCHostPort)
		if err != nil {
			log.Fatalf("failed to listen: %v", err)
		}

		go func() {
			logger.Info("Starting gRPC server on: " + cfg.GRPCHostPort)
			if err := grpcServer.Serve(listener); err != nil {
				logger.Error("gRPC server stopped", zap.Error(err))
			}
		}()
	}

	var ingress *mqtt.Ingress
	if cfg.MqttEnabled() {
		client, err := mqtt.NewClient(cfg.MqttBrokerURL, cfg.MqttClientID)
		if err != nil {
			log.Fatal(err)
		}
		ingress = mqtt.NewIngress(client, cfg.MqttTopic, core, limiters)
		if err := ingress.Start(); err != nil {
			log.Fatal(err)
		}
	}

	rs := &plantHttp.RestfulServer{
		Server:      gin.Default(),
		Station:     core,
		Broadcaster: broadcaster,
		Live: ws.NewServer(broadcaster.Registry(), core.Plant, ws.Options{
			BindSecret:   []byte(cfg.SessionJWTSecret),
			HistoryLimit: core.Options.HistoryLimit,
		}),
		RateLimiterStore: limiters,
		BearerToken:      cfg.BearerToken,
	}
	rs.Setup()

	httpServer := &http.Server{
		Addr:    cfg.HTTPHostPort,
		Handler: rs.Server,
	}

	go func() {
		logger.Info("Starting HTTP server on: " + cfg.HTTPHostPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed to serve: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if ingress != nil {
		ingress.Stop()
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}

	// live sessions are hijacked connections, Shutdown does not close them
	for session := range broadcaster.Registry().All() {
		_ = session.Close()
	}

	core.Wait()
	logger.Info("Stopped")
}
