package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openw3/world3/internal/session"
)

const (
	writeWait   = 10 * time.Second
	outboundCap = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The simulator is served same-origin in development and behind a
	// reverse proxy in deployment; origin policy lives there.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSink buffers outbound messages so the compute worker never blocks on a
// slow socket. A full buffer or a dead peer surfaces as a Send error, which
// the session treats as cancellation.
type wsSink struct {
	conn *websocket.Conn

	mu     sync.Mutex
	out    chan []byte
	closed bool
}

var errSlowClient = errors.New("client not keeping up")

func newWSSink(conn *websocket.Conn) *wsSink {
	return &wsSink{conn: conn, out: make(chan []byte, outboundCap)}
}

func (s *wsSink) Send(msg session.ServerMsg) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("connection closed")
	}
	select {
	case s.out <- data:
		return nil
	default:
		return errSlowClient
	}
}

// writePump drains the outbound buffer onto the socket. It exits on the
// first write failure or when close() seals the channel.
func (s *wsSink) writePump() {
	for data := range s.out {
		if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (s *wsSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}

// handleWS upgrades the connection, pins a fresh session to it, and runs
// the read loop until the peer disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	log := s.log.WithField("remote", conn.RemoteAddr().String())
	log.Info("client connected")

	sink := newWSSink(conn)
	go sink.writePump()

	sess := session.New(s.runner, s.store, sink, log)
	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
		sess.SetHooks(session.Hooks{
			RunStarted:   s.metrics.RunsStarted.Inc,
			RunCompleted: s.metrics.RunsCompleted.Inc,
			RunDiverged:  s.metrics.RunsDiverged.Inc,
		})
	}

	defer func() {
		sess.Close()
		sink.close()
		conn.Close()
		if s.metrics != nil {
			s.metrics.ActiveSessions.Dec()
		}
		log.Info("client disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("read failed")
			}
			return
		}
		msg, err := session.ParseClientMsg(data)
		if err != nil {
			// Malformed input never tears the connection down.
			_ = sink.Send(session.NewClientError(err))
			continue
		}
		sess.Handle(msg)
	}
}
