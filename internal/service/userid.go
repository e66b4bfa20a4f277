package service

import (
	"net/http"
	"strings"

	"iptrail/internal/constants"
)

// UserResolver determines the authenticated user identity for a request,
// or nil when the request is anonymous. Implementations can be swapped to
// match whatever authentication layer fronts the service.
type UserResolver interface {
	ResolveUserID(r *http.Request) *string
}

// HeaderUserResolver reads the user identity from a trusted header set by
// an upstream authentication proxy, falling back to the HTTP basic-auth
// username.
type HeaderUserResolver struct {
	header string
}

func NewHeaderUserResolver(header string) *HeaderUserResolver {
	if header == "" {
		header = constants.DefaultUserIDHeader
	}
	return &HeaderUserResolver{header: header}
}

func (h *HeaderUserResolver) ResolveUserID(r *http.Request) *string {
	if r == nil {
		return nil
	}

	if value := strings.TrimSpace(r.Header.Get(h.header)); value != "" {
		return &value
	}

	if user, _, ok := r.BasicAuth(); ok && user != "" {
		return &user
	}

	return nil
}
