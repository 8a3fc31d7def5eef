package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Server upgrades HTTP requests to websocket sessions and runs their pumps.
// Identity is not authenticated here: the handler trusts the userId carried
// by the join frame, validation happens upstream of this service.
type Server struct {
	log        *slog.Logger
	table      *Table
	handler    FrameHandler
	bufferSize int
	upgrader   websocket.Upgrader
}

func NewServer(log *slog.Logger, table *Table, handler FrameHandler, bufferSize int) *Server {
	return &Server{
		log:        log,
		table:      table,
		handler:    handler,
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sess := NewSession(conn, s.bufferSize, s.log)
	s.table.Add(sess)
	defer s.table.Remove(sess.ID())

	s.log.Info("connection opened", "session_id", sess.ID(), "remote", r.RemoteAddr)

	go sess.WritePump()
	sess.ReadPump(r.Context(), s.handler)

	s.log.Info("connection closed", "session_id", sess.ID())
}
