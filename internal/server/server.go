package server

import (
	"net/http"
)

// Handler assembles the WS and API routes. There is no UI here; rendering is
// an external collaborator consuming the same endpoints. Callers own the
// http.Server so they control shutdown.
func Handler(hub *Hub, conv Conversation, store SessionStore) http.Handler {
	mux := http.NewServeMux()

	registerWSRoute(mux, hub, conv)
	registerAPIRoutes(mux, conv, store)

	return mux
}
