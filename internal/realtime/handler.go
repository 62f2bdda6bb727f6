package realtime

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"
)

// HandleWebSocket returns an HTTP handler that upgrades connections and runs
// them against the registry until they disconnect.
func HandleWebSocket(registry *Registry, handler Handler, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // same-origin enforcement happens at the proxy
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		client := NewClient(uuid.NewString(), registry, handler, conn, logger)
		client.Run(r.Context())
	}
}
