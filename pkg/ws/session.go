package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"liyu1981.xyz/plant-station-service/pkg/common"
	"liyu1981.xyz/plant-station-service/pkg/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 16
)

var (
	ErrProtocolViolation = errors.New("protocol violation")
	ErrSessionClosed     = errors.New("session closed")
	ErrSendBufferFull    = errors.New("send buffer full")
)

type state int

const (
	statePending state = iota
	stateBound
)

// bindMessage is the first client frame. Token is only checked when the
// server has a bind secret.
type bindMessage struct {
	UID   string `json:"uid"`
	Token string `json:"token,omitempty"`
}

// Session is one live websocket connection. Outbound frames go through a
// buffered channel drained by a single writer goroutine; the read loop is
// the only goroutine touching state.
type Session struct {
	id     string
	conn   *websocket.Conn
	server *Server
	logger *zap.Logger

	state state
	owner string

	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	closeFrame []byte
}

func newSession(server *Server, conn *websocket.Conn) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		conn:   conn,
		server: server,
		logger: common.GetLoggerWith(common.LoggerNameWsSession, zap.String("session_id", id)),
		state:  statePending,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Send queues payload without blocking. A full buffer counts as a failed
// delivery so a stalled client cannot hold up the broadcaster.
func (s *Session) Send(payload []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.send <- payload:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		return ErrSendBufferFull
	}
}

func (s *Session) Close() error {
	s.shutdown(websocket.CloseNormalClosure, "")
	return nil
}

func (s *Session) shutdown(code int, reason string) {
	s.closeOnce.Do(func() {
		s.closeFrame = websocket.FormatCloseMessage(code, reason)
		close(s.done)
	})
}

func (s *Session) run(ctx context.Context) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()

	s.readLoop(ctx)

	s.server.registry.Unregister(s)
	s.shutdown(websocket.CloseNormalClosure, "")
	<-writerDone
	s.logger.Info("Session closed", zap.String("owner", s.owner))
}

func (s *Session) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Session read failed", zap.Error(err))
			}
			return
		}

		if err := s.dispatch(ctx, message); err != nil {
			s.logger.Warn("Closing session", zap.Error(err))
			s.shutdown(websocket.ClosePolicyViolation, err.Error())
			return
		}
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Warn("Session write failed", zap.Error(err))
				s.shutdown(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.shutdown(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage, s.closeFrame, time.Now().Add(writeWait))
			return
		}
	}
}

// dispatch handles one inbound frame. Pending sessions must bind; bound
// sessions ignore everything except another bind attempt.
func (s *Session) dispatch(ctx context.Context, message []byte) error {
	switch s.state {
	case statePending:
		return s.bind(ctx, message)
	case stateBound:
		var msg bindMessage
		if err := json.Unmarshal(message, &msg); err == nil && msg.UID != "" {
			return fmt.Errorf("%w: session already bound to %q", ErrProtocolViolation, s.owner)
		}
		return nil
	}
	return nil
}

func (s *Session) bind(ctx context.Context, message []byte) error {
	var msg bindMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return fmt.Errorf("%w: first message must be a bind object", ErrProtocolViolation)
	}
	uid := strings.TrimSpace(msg.UID)
	if uid == "" {
		return fmt.Errorf("%w: first message carries no uid", ErrProtocolViolation)
	}
	if err := s.server.verifyBindToken(msg.Token, uid); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}

	if err := s.server.registry.Register(s, uid); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
	s.state = stateBound
	s.owner = uid
	s.logger.Info("Session bound", zap.String("owner", uid))

	s.sendHistory(ctx, uid)
	return nil
}

func (s *Session) sendHistory(ctx context.Context, uid string) {
	if s.server.history == nil {
		return
	}

	plants, err := s.server.history.GetHistory(ctx, uid, s.server.historyLimit)
	if err != nil {
		s.logger.Warn("Failed to load history", zap.String("owner", uid), zap.Error(err))
		plants = []models.PlantHistory{}
	}

	payload, err := json.Marshal(models.History{Type: models.UpdateTypeHistory, Plants: plants})
	if err != nil {
		s.logger.Error("Failed to encode history", zap.Error(err))
		return
	}
	if err := s.Send(payload); err != nil {
		s.logger.Warn("Failed to queue history", zap.Error(err))
	}
}

func (srv *Server) verifyBindToken(token string, uid string) error {
	if len(srv.bindSecret) == 0 {
		return nil
	}
	if token == "" {
		return errors.New("bind token required")
	}

	_, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return srv.bindSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithSubject(uid))
	if err != nil {
		return fmt.Errorf("bind token rejected: %w", err)
	}
	return nil
}
