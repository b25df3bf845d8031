package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/promptd/promptd/internal/engine"
)

// wsClient serializes writes for one streaming connection
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(ev engine.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(ev)
}

// handleWebSocket runs the streaming protocol: the client sends one
// JSON payload per request (the /api/auto fields plus requestId) and
// receives typed events; done or error is always the last event for a
// request. Closing the socket cancels every in-flight request on it.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := &wsClient{conn: conn}

	// Connection-scoped context: a closed socket cancels in-flight work
	connCtx, cancelConn := context.WithCancel(r.Context())
	defer cancelConn()

	var wg sync.WaitGroup
	defer func() {
		cancelConn()
		wg.Wait()
		conn.Close()
	}()

	for {
		var req autoRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read error", "error", err)
			}
			return
		}

		if req.Prompt == "" {
			client.write(engine.Event{
				Type:      engine.EventError,
				RequestID: req.RequestID,
				Error:     "missing prompt",
				ErrorKind: "bad_request",
			})
			continue
		}

		wg.Add(1)
		go func(req autoRequest) {
			defer wg.Done()
			_, _, err := s.app.Engine.Process(connCtx, req.toEngineRequest(), func(ev engine.Event) {
				if werr := client.write(ev); werr != nil {
					log.Debug("websocket write failed", "error", werr)
				}
			})
			if err != nil {
				log.Debug("streamed request failed", "requestId", req.RequestID, "error", err)
			}
		}(req)
	}
}
