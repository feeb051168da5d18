package station

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/plant-station-service/pkg/db"
	"liyu1981.xyz/plant-station-service/pkg/live"
	"liyu1981.xyz/plant-station-service/pkg/models"
	"liyu1981.xyz/plant-station-service/pkg/station/mocks"
)

func GetMockStationWithMemorySqliteDialector(t *testing.T, useMockReading, useMockResolver bool) (
	*gomock.Controller,
	*Station,
	*live.Broadcaster,
	*mocks.MockIReadingStore,
	*mocks.MockIResolver,
) {
	ctrl := gomock.NewController(t)

	mockReading := mocks.NewMockIReadingStore(ctrl)
	mockResolver := mocks.NewMockIResolver(ctrl)

	database, err := db.Open(db.UseMemorySqliteDialector())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	broadcaster := live.NewBroadcaster(live.NewRegistry())
	s := New(database, broadcaster, Options{})

	opts := ServiceOpts{}
	if useMockReading {
		opts.Reading = mockReading
	}
	if useMockResolver {
		opts.Resolver = mockResolver
	}
	s.WithServices(opts)

	return ctrl, s, broadcaster, mockReading, mockResolver
}

func seedOwner(t *testing.T, s *Station, uid string) *models.User {
	t.Helper()
	user := models.User{UID: uid, Username: uid + "-" + uuid.NewString()[:8], Email: uid + "@" + uuid.NewString()[:8] + ".test"}
	require.NoError(t, s.Db.Conn.Create(&user).Error)
	return &user
}

func seedPlant(t *testing.T, s *Station, owner *models.User, deviceID string, name string) *models.Plant {
	t.Helper()
	plant := models.Plant{UserID: owner.ID, DeviceID: deviceID, PlantName: name}
	require.NoError(t, s.Db.Conn.Create(&plant).Error)
	return &plant
}

func validPayload() map[string]any {
	return map[string]any{
		"temperature":       21.5,
		"humidity":          40.0,
		"moisture":          55.0,
		"hic":               22.0,
		"batteryVoltage":    3.7,
		"batteryPercentage": 80.0,
	}
}

var errSessionClosed = errors.New("session closed")

type recordingSession struct {
	id string

	mu       sync.Mutex
	received [][]byte
	closed   bool
}

func newRecordingSession() *recordingSession {
	return &recordingSession{id: uuid.NewString()}
}

func (r *recordingSession) ID() string { return r.id }

func (r *recordingSession) Send(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errSessionClosed
	}
	r.received = append(r.received, payload)
	return nil
}

func (r *recordingSession) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingSession) Updates(t *testing.T) []models.Update {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	updates := make([]models.Update, 0, len(r.received))
	for _, raw := range r.received {
		var u models.Update
		require.NoError(t, json.Unmarshal(raw, &u))
		updates = append(updates, u)
	}
	return updates
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}
