package ws

import (
	"encoding/json"
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicenotes/internal/ports"
)

func WSHandler(
	hub *Hub,
	recordings ports.RecordingService,
	cfg ClientConfig,
	log *logger.ZapLogger,
) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		// Upgrade replies to the client itself on failure
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Log(logger.LogEntry{
				Level:   "warn",
				Message: "ws upgrade failed",
				Error:   err,
			})
			return
		}

		client := NewClient(conn, cfg)

		activeID, active := recordings.ActiveSessionID()
		hello, err := json.Marshal(ports.NewConnectedEvent(activeID, active, recordings.SessionCount()))
		if err != nil {
			client.Close()
			return
		}

		// queued before Subscribe so it is always the first frame
		_ = client.Deliver(hello)
		hub.Subscribe(client)

		log.Log(logger.LogEntry{
			Level:   "info",
			Message: "ws viewer connected",
			Fields:  map[string]any{"remote": r.RemoteAddr},
		})

		defer func() {
			hub.Unsubscribe(client)
			log.Log(logger.LogEntry{
				Level:   "info",
				Message: "ws viewer disconnected",
				Fields:  map[string]any{"remote": r.RemoteAddr},
			})
		}()

		go client.writePump()
		client.readPump()
	}
}
