package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"gorm.io/driver/sqlite"
	"liyu1981.xyz/plant-station-service/pkg/common"
	"liyu1981.xyz/plant-station-service/pkg/db"
	plantGrpc "liyu1981.xyz/plant-station-service/pkg/grpc"
	"liyu1981.xyz/plant-station-service/pkg/models"
)

var (
	maxPlants    = pflag.Int("plants", 1000, "number of plants to register")
	plantsPerUID = pflag.Int("plants-per-owner", 10, "plants registered under each owner")
	httpHostPort = pflag.String("http", "127.0.0.1:3001", "HTTP address of the server")
	grpcHostPort = pflag.String("grpc", "127.0.0.1:10801", "gRPC address of the server")
	dbPath       = pflag.String("db", "plant_station.db", "sqlite file of the server, used to seed owners")
	bearerToken  = pflag.String("token", "", "device bearer token")
)

var grpcClient *plantGrpc.ReadingServiceClient

var rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

func main() {
	pflag.Parse()

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", *httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}
	fmt.Printf("http server verified\n")

	conn, err := grpc.NewClient(*grpcHostPort, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal("Failed to connect to gRPC server:", err)
	}
	defer conn.Close()
	grpcClient = plantGrpc.NewReadingServiceClient(conn)

	uids := seedOwners()
	fmt.Printf("seeded %v owners\n", len(uids))

	var startTime time.Time
	var usedTime time.Duration

	deviceIDs := make([]string, *maxPlants)
	owners := make([]string, *maxPlants)
	startTime = time.Now()
	wg := sync.WaitGroup{}
	for i := range *maxPlants {
		deviceIDs[i] = uuid.NewString()
		owners[i] = uids[i%len(uids)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			registerPlant(deviceIDs[i], owners[i], fmt.Sprintf("plant-%d", i))
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)
	fmt.Printf(
		"registered %v plants: used time=%v seconds, throughput=%v action/second\n",
		*maxPlants, usedTime.Seconds(), float64(*maxPlants)/usedTime.Seconds(),
	)

	var received atomic.Int64
	sessions := openSessions(uids, &received)
	defer func() {
		for _, s := range sessions {
			s.Close()
		}
	}()
	fmt.Printf("opened %v live sessions\n", len(sessions))

	var failed atomic.Int64
	startTime = time.Now()
	wg = sync.WaitGroup{}
	for i := range *maxPlants {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := postReading(deviceIDs[i], owners[i]); err != nil {
				failed.Add(1)
				fmt.Printf("\nerror: %v\n", err)
			}
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)
	fmt.Printf(
		"posted %v readings (%v failed): used time=%v seconds, throughput=%v action/second\n",
		*maxPlants, failed.Load(), usedTime.Seconds(), float64(*maxPlants)/usedTime.Seconds(),
	)

	want := int64(*maxPlants) - failed.Load()
	deadline := time.Now().Add(5 * time.Second)
	for received.Load() < want && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	fmt.Printf("live updates received: %v of %v\n", received.Load(), want)
}

func seedOwners() []string {
	database, err := db.Open(sqlite.Open(*dbPath))
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer database.Close()

	count := int(math.Ceil(float64(*maxPlants) / float64(*plantsPerUID)))
	uids := make([]string, count)
	for i := range count {
		uid := uuid.NewString()
		user := models.User{UID: uid, Username: "bench-" + uid, Email: uid + "@bench.test"}
		if err := database.Conn.Create(&user).Error; err != nil {
			log.Fatal("Failed to seed owner:", err)
		}
		uids[i] = uid
	}
	return uids
}

func flipCoin() bool {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Int31n(100000)%2 == 0
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndMu.Lock()
	val := min + rnd.Float64()*(max-min)
	rndMu.Unlock()
	multiplier := math.Pow10(decimal)
	return math.Round(val*multiplier) / multiplier
}

func newRequest(method string, path string, body any, deviceID string, uid string) *http.Request {
	jsonData, _ := json.Marshal(body)
	req, err := http.NewRequest(method, fmt.Sprintf("http://%s%s", *httpHostPort, path), bytes.NewBuffer(jsonData))
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.HeaderDeviceID, deviceID)
	req.Header.Set(common.HeaderUID, uid)
	if *bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+*bearerToken)
	}
	return req
}

func registerPlant(deviceID string, uid string, name string) {
	resp, err := http.DefaultClient.Do(newRequest(http.MethodPost, "/plants", map[string]string{"plant_name": name}, deviceID, uid))
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		panic(fmt.Sprintf("register plant for %s: status %d", deviceID, resp.StatusCode))
	}
}

func openSessions(uids []string, received *atomic.Int64) []*websocket.Conn {
	sessions := make([]*websocket.Conn, 0, len(uids))
	for _, uid := range uids {
		conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws", *httpHostPort), nil)
		if err != nil {
			log.Fatal("Failed to open live session:", err)
		}
		if err := conn.WriteJSON(map[string]string{"uid": uid}); err != nil {
			log.Fatal("Failed to bind live session:", err)
		}

		go func() {
			for {
				var envelope struct {
					Type string `json:"type"`
				}
				if err := conn.ReadJSON(&envelope); err != nil {
					return
				}
				if envelope.Type == models.UpdateTypeUpdate {
					received.Add(1)
				}
			}
		}()
		sessions = append(sessions, conn)
	}
	return sessions
}

func postReading(deviceID string, uid string) error {
	reading := map[string]any{
		"temperature":       rndFloat64(10.0, 35.0, 2),
		"humidity":          rndFloat64(20.0, 90.0, 2),
		"moisture":          rndFloat64(0.0, 100.0, 2),
		"hic":               rndFloat64(10.0, 40.0, 2),
		"batteryVoltage":    rndFloat64(3.0, 4.2, 2),
		"batteryPercentage": rndFloat64(0.0, 100.0, 0),
	}

	if flipCoin() {
		resp, err := http.DefaultClient.Do(newRequest(http.MethodPost, "/readings", reading, deviceID, uid))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("http status %d for %s", resp.StatusCode, deviceID)
		}
		return nil
	}

	req, err := plantGrpc.NewReadingRequest(deviceID, uid, reading)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if *bearerToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+*bearerToken)
	}
	_, err = grpcClient.PostReading(ctx, req)
	return err
}
