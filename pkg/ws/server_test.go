package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liyu1981.xyz/plant-station-service/pkg/common"
	"liyu1981.xyz/plant-station-service/pkg/live"
	"liyu1981.xyz/plant-station-service/pkg/models"
	_ "liyu1981.xyz/plant-station-service/pkg/testing"
)

type fakeHistory struct {
	plants []models.PlantHistory
	err    error
}

func (f *fakeHistory) GetHistory(_ context.Context, uid string, _ int) ([]models.PlantHistory, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.plants, nil
}

type envelope struct {
	Type   string                `json:"type"`
	ID     uint                  `json:"id"`
	Plants []models.PlantHistory `json:"plants"`
}

func startServer(t *testing.T, history HistorySource, opts Options) (*live.Broadcaster, string) {
	t.Helper()
	common.SetTestLoggerNop()

	broadcaster := live.NewBroadcaster(live.NewRegistry())
	srv := httptest.NewServer(NewServer(broadcaster.Registry(), history, opts))
	t.Cleanup(srv.Close)

	return broadcaster, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var e envelope
	require.NoError(t, json.Unmarshal(raw, &e))
	return e
}

func expectPolicyClose(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "expected close error, got %v", err)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}

func TestSession_BindReceivesHistoryThenUpdates(t *testing.T) {
	history := &fakeHistory{plants: []models.PlantHistory{{PlantID: 7, PlantName: "Basil", DeviceID: "AA:BB:CC"}}}
	broadcaster, url := startServer(t, history, Options{})

	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(map[string]string{"uid": "u1"}))

	first := readEnvelope(t, conn)
	assert.Equal(t, models.UpdateTypeHistory, first.Type)
	require.Len(t, first.Plants, 1)
	assert.Equal(t, uint(7), first.Plants[0].PlantID)

	require.Eventually(t, func() bool {
		return broadcaster.Registry().Count("u1") == 1
	}, 2*time.Second, 10*time.Millisecond)

	broadcaster.Broadcast("u1", models.Update{Type: models.UpdateTypeUpdate, ID: 42})

	update := readEnvelope(t, conn)
	assert.Equal(t, models.UpdateTypeUpdate, update.Type)
	assert.Equal(t, uint(42), update.ID)
}

func TestSession_OtherOwnersReceiveNothing(t *testing.T) {
	broadcaster, url := startServer(t, &fakeHistory{}, Options{})

	u1 := dial(t, url)
	u2 := dial(t, url)
	require.NoError(t, u1.WriteJSON(map[string]string{"uid": "u1"}))
	require.NoError(t, u2.WriteJSON(map[string]string{"uid": "u2"}))
	readEnvelope(t, u1)
	readEnvelope(t, u2)

	broadcaster.Broadcast("u2", models.Update{Type: models.UpdateTypeUpdate, ID: 1})
	assert.Equal(t, uint(1), readEnvelope(t, u2).ID)

	require.NoError(t, u1.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := u1.ReadMessage()
	assert.Error(t, err)
}

func TestSession_FirstMessageMustBind(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"not json", "hello"},
		{"no uid", `{"name":"u1"}`},
		{"blank uid", `{"uid":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broadcaster, url := startServer(t, &fakeHistory{}, Options{})

			conn := dial(t, url)
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.frame)))
			expectPolicyClose(t, conn)
			assert.Equal(t, 0, broadcaster.Registry().Len())
		})
	}
}

func TestSession_RebindIsAViolation(t *testing.T) {
	broadcaster, url := startServer(t, &fakeHistory{}, Options{})

	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(map[string]string{"uid": "u1"}))
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"uid": "u2"}))
	expectPolicyClose(t, conn)

	require.Eventually(t, func() bool {
		return broadcaster.Registry().Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_BoundMessagesAreInert(t *testing.T) {
	broadcaster, url := startServer(t, &fakeHistory{}, Options{})

	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(map[string]string{"uid": "u1"}))
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping from client")))
	require.NoError(t, conn.WriteJSON(map[string]string{"query": "latest"}))

	broadcaster.Broadcast("u1", models.Update{Type: models.UpdateTypeUpdate, ID: 5})
	assert.Equal(t, uint(5), readEnvelope(t, conn).ID)
	assert.Equal(t, 1, broadcaster.Registry().Count("u1"))
}

func TestSession_DisconnectUnregisters(t *testing.T) {
	broadcaster, url := startServer(t, &fakeHistory{}, Options{})

	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(map[string]string{"uid": "u1"}))
	readEnvelope(t, conn)
	require.Equal(t, 1, broadcaster.Registry().Count("u1"))

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return broadcaster.Registry().Count("u1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_HistoryFailureKeepsBinding(t *testing.T) {
	broadcaster, url := startServer(t, &fakeHistory{err: errors.New("db down")}, Options{})

	conn := dial(t, url)
	require.NoError(t, conn.WriteJSON(map[string]string{"uid": "u1"}))

	first := readEnvelope(t, conn)
	assert.Equal(t, models.UpdateTypeHistory, first.Type)
	assert.Empty(t, first.Plants)
	assert.Equal(t, 1, broadcaster.Registry().Count("u1"))
}

func signBindToken(t *testing.T, secret []byte, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestSession_BindToken(t *testing.T) {
	secret := []byte("bind-secret")

	t.Run("valid", func(t *testing.T) {
		broadcaster, url := startServer(t, &fakeHistory{}, Options{BindSecret: secret})
		conn := dial(t, url)
		require.NoError(t, conn.WriteJSON(bindMessage{UID: "u1", Token: signBindToken(t, secret, "u1")}))
		assert.Equal(t, models.UpdateTypeHistory, readEnvelope(t, conn).Type)
		assert.Equal(t, 1, broadcaster.Registry().Count("u1"))
	})

	t.Run("missing", func(t *testing.T) {
		_, url := startServer(t, &fakeHistory{}, Options{BindSecret: secret})
		conn := dial(t, url)
		require.NoError(t, conn.WriteJSON(bindMessage{UID: "u1"}))
		expectPolicyClose(t, conn)
	})

	t.Run("subject mismatch", func(t *testing.T) {
		_, url := startServer(t, &fakeHistory{}, Options{BindSecret: secret})
		conn := dial(t, url)
		require.NoError(t, conn.WriteJSON(bindMessage{UID: "u1", Token: signBindToken(t, secret, "u2")}))
		expectPolicyClose(t, conn)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, url := startServer(t, &fakeHistory{}, Options{BindSecret: secret})
		conn := dial(t, url)
		require.NoError(t, conn.WriteJSON(bindMessage{UID: "u1", Token: signBindToken(t, []byte("other"), "u1")}))
		expectPolicyClose(t, conn)
	})
}

func TestSession_SendAfterCloseFails(t *testing.T) {
	common.SetTestLoggerNop()

	s := &Session{send: make(chan []byte, 1), done: make(chan struct{})}
	require.NoError(t, s.Send([]byte("a")))
	assert.ErrorIs(t, s.Send([]byte("b")), ErrSendBufferFull)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Send([]byte("c")), ErrSessionClosed)
}
