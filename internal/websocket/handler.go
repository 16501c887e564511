package websocket

import (
	"log"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/overhill/internal/auth"
)

// HandleActivityFeed returns an HTTP handler that upgrades an authenticated
// owner connection to WebSocket and streams that household's share activity.
func HandleActivityFeed(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID := auth.HouseholdID(r.Context())
		if householdID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // Allow connections from any origin (household LAN)
		})
		if err != nil {
			log.Printf("websocket: accept: %v", err)
			return
		}

		client := NewClient(hub, conn)
		client.Run(r.Context(), householdID)
	}
}
