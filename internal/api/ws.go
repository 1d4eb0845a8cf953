package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// handleToasts streams achievement toasts as JSON text frames. The optional
// slot query parameter narrows the stream to one save.
func (s *Server) handleToasts(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "toast stream disabled")
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	q, unsubscribe := s.hub.Subscribe(r.URL.Query().Get("slot"))
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case t := <-q.C():
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(t); err != nil {
				s.log.Debug("toast write failed", "err", err)
				return
			}
		}
	}
}
