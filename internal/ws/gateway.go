package ws

import (
	"errors"
	"log/slog"
	"net/http"

	"linkup-realtime/internal/auth"
	"linkup-realtime/internal/store"
)

// ServeWS is the connection handshake: verify the bearer credential,
// resolve it to a live account, and only then upgrade and bind the
// connection. A failed handshake terminates the attempt with no
// observable side effect: no room joined, no presence change.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr

	token := auth.ExtractToken(r)
	claims, err := hub.verifier.VerifyToken(token)
	if err != nil {
		slog.Warn("[WS] Token rejected", "from", remoteAddr, "error", err)
		if errors.Is(err, auth.ErrTokenMissing) {
			http.Error(w, "Unauthorized: token required", http.StatusUnauthorized)
		} else {
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
		}
		return
	}

	// The token may outlive the account; a deleted user cannot connect.
	user, err := hub.store.LookupUser(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("[WS] Token resolved to unknown user", "user", claims.Subject, "from", remoteAddr)
			http.Error(w, "Unauthorized: unknown user", http.StatusUnauthorized)
			return
		}
		slog.Error("[WS] Failed to resolve user", "user", claims.Subject, "from", remoteAddr, "error", err)
		http.Error(w, "Unable to verify user", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("[WS] Failed to upgrade connection", "user", user.ID, "error", err)
		return
	}

	client := newClient(hub, conn, user.ID, user.Name)
	slog.Info("[WS] Connection established", "user", client.userID, "conn", client.id, "from", remoteAddr)

	client.hub.register <- client

	go client.WritePump()
	go client.DispatchLoop()
	go client.ReadPump()
}
