package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type ConnConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     defaultSendBuffer,
	}
}

// Server runs websocket sessions against a Registry.
//
// Each connection gets exactly two goroutines: the caller of Serve reads,
// and a writer owns every data frame written to the socket. Control frames
// go through WriteControl, which gorilla allows concurrently with the writer.
type Server struct {
	registry *Registry
	cfg      ConnConfig
	logger   *zap.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewServer(registry *Registry, cfg ConnConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		registry: registry,
		cfg:      cfg,
		logger:   logger,
		conns:    make(map[*websocket.Conn]struct{}),
	}
}

// Serve drives conn, already authenticated as userID, until it closes.
//
// The session joins the registry only after the client sends
// {"type":"join","data":"<userId>"} naming the authenticated user. A join
// naming anyone else closes the connection with a policy violation. Frames
// after a successful join are ignored.
func (s *Server) Serve(conn *websocket.Conn, userID uuid.UUID) {
	s.track(conn)
	defer s.untrack(conn)

	sess := NewSession(userID, s.cfg.SendBuffer)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(conn, sess)
	}()

	if s.readPump(conn, sess) {
		s.registry.Leave(sess)
	}
	sess.Close()
	<-writerDone
	_ = conn.Close()

	s.logger.Debug("websocket session ended", zap.String("user_id", userID.String()))
}

// Close drops every open connection. Their Serve calls return shortly after.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

func (s *Server) track(c *websocket.Conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(c *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// readPump returns whether the session had joined the registry.
func (s *Server) readPump(conn *websocket.Conn, sess *Session) bool {
	conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	joined := false
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Debug("websocket read failed", zap.String("user_id", sess.UserID.String()), zap.Error(err))
			}
			return joined
		}
		if joined {
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != eventJoin {
			continue
		}

		var claimed string
		_ = json.Unmarshal(frame.Data, &claimed)
		if id, err := uuid.Parse(claimed); err != nil || id != sess.UserID {
			s.logger.Warn("websocket join rejected",
				zap.String("user_id", sess.UserID.String()),
				zap.String("claimed", claimed),
			)
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "join does not match token")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.WriteWait))
			return false
		}

		s.registry.Join(sess)
		joined = true
		s.logger.Debug("websocket session joined", zap.String("user_id", sess.UserID.String()))
	}
}

func (s *Server) writePump(conn *websocket.Conn, sess *Session) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-sess.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.WriteWait))
			return

		case ev := <-sess.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("websocket write failed", zap.String("user_id", sess.UserID.String()), zap.Error(err))
				_ = conn.Close()
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteWait)); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
