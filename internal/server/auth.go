package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/playperu/coup/internal/game"
)

// Resolver verifies session tokens.
type Resolver interface {
	Resolve(token string) (game.Identity, error)
}

var errNoSession = errors.New("no valid session")

// identityFromRequest reads a Bearer token, or the token query parameter for
// WebSocket and EventSource clients that cannot set headers.
func identityFromRequest(r *http.Request, ids Resolver) (game.Identity, error) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return game.Identity{}, errNoSession
	}
	return ids.Resolve(token)
}
