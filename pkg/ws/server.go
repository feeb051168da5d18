package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"liyu1981.xyz/plant-station-service/pkg/common"
	"liyu1981.xyz/plant-station-service/pkg/live"
	"liyu1981.xyz/plant-station-service/pkg/models"
)

// HistorySource loads the projection sent right after a session binds.
type HistorySource interface {
	GetHistory(ctx context.Context, uid string, limit int) ([]models.PlantHistory, error)
}

type Options struct {
	// BindSecret enables HS256 bind tokens whose subject must equal the uid.
	BindSecret   []byte
	HistoryLimit int
	CheckOrigin  func(r *http.Request) bool
}

// Server upgrades HTTP requests into live sessions bound through registry.
type Server struct {
	registry     *live.Registry
	history      HistorySource
	bindSecret   []byte
	historyLimit int
	upgrader     websocket.Upgrader
}

func NewServer(registry *live.Registry, history HistorySource, opts Options) *Server {
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Server{
		registry:     registry,
		history:      history,
		bindSecret:   opts.BindSecret,
		historyLimit: opts.HistoryLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// ServeHTTP blocks for the lifetime of the connection.
func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		common.GetLoggerWith(common.LoggerNameWsSession).Warn("Upgrade failed", zap.Error(err))
		return
	}

	session := newSession(srv, conn)
	session.logger.Info("Session opened", zap.String("remote", r.RemoteAddr))
	// history loads must not be cut short by the handler's request context
	session.run(context.WithoutCancel(r.Context()))
}
