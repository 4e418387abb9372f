package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	stateWSReadLimit  = 4 << 10
	stateWSPongWait   = 60 * time.Second
	stateWSPingPeriod = 30 * time.Second
)

var stateWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// stateWSMessage is the JSON shape sent to the client.
type stateWSMessage struct {
	Type  string        `json:"type"`
	State stateResponse `json:"state"`
}

// StateWS handles GET /ws. It pushes the session state on connect and after every transition.
// The page uses it to reload when a generation settles instead of polling.
func (h *Handler) StateWS(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller(w, r)
	// pass w.Header() so a freshly issued session cookie reaches the client
	conn, err := stateWSUpgrader.Upgrade(w, r, w.Header())
	if err != nil {
		log.Warn().Err(err).Msg("state ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := ctrl.Subscribe()
	defer cancel()

	// reader: only control frames are expected; any read error ends the connection
	closed := make(chan struct{})
	conn.SetReadLimit(stateWSReadLimit)
	conn.SetReadDeadline(time.Now().Add(stateWSPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(stateWSPongWait))
		return nil
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Debug().Err(err).Msg("state ws read")
				}
				return
			}
		}
	}()

	if err := writeWSJSON(conn, stateWSMessage{Type: "state", State: newStateResponse(ctrl.State())}); err != nil {
		log.Debug().Err(err).Msg("state ws write")
		return
	}

	ticker := time.NewTicker(stateWSPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := writeWSJSON(conn, stateWSMessage{Type: "state", State: newStateResponse(st)}); err != nil {
				log.Debug().Err(err).Msg("state ws write")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeWSJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	return conn.WriteJSON(v)
}
