package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/models"
)

type ctxKey string

const callerKey ctxKey = "caller"

// Channel selects the credentials an endpoint accepts. The three channels
// are never interchangeable: an app key never resolves to a user.
type Channel int

const (
	// ChannelWeb accepts a web session only.
	ChannelWeb Channel = iota
	// ChannelWebOrUserKey accepts a web session or a user Api-Key.
	ChannelWebOrUserKey
	// ChannelApp accepts an app Api-Key, checked by the service itself.
	ChannelApp
)

type CallerKind int

const (
	CallerWebSession CallerKind = iota + 1
	CallerUserAPIKey
	CallerApp
)

// Caller is the resolved principal of a request.
type Caller struct {
	Kind       CallerKind
	Identity   *models.Identity
	SessionKey string
	AppKey     string
}

// webSessionToken returns the signed session from the cookie or a Bearer
// Authorization header.
func webSessionToken(r *http.Request) string {
	if c, err := r.Cookie(common.SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// resolveCaller identifies the principal of r on channel ch. A missing or
// bad credential is common.ErrorUnauthorized.
func (s *Server) resolveCaller(r *http.Request, ch Channel) (*Caller, error) {
	ctx := r.Context()
	apiKey := r.Header.Get(common.APIKeyHeaderName)

	if ch == ChannelApp {
		if apiKey == "" {
			return nil, common.ErrorUnauthorized
		}
		return &Caller{Kind: CallerApp, AppKey: apiKey}, nil
	}

	if tok := webSessionToken(r); tok != "" {
		identity, session, err := s.svc.Accounts.ResolveWebSession(ctx, tok)
		if err != nil {
			return nil, err
		}
		return &Caller{Kind: CallerWebSession, Identity: identity, SessionKey: session.SessionKey}, nil
	}

	if ch == ChannelWebOrUserKey && apiKey != "" {
		identity, err := s.svc.Credentials.ResolveUserAPIKey(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		return &Caller{Kind: CallerUserAPIKey, Identity: identity}, nil
	}

	return nil, common.ErrorUnauthorized
}

// authenticate resolves the caller before next runs and rejects the request
// when that fails.
func (s *Server) authenticate(ch Channel, style errorStyle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := s.resolveCaller(r, ch)
			if err != nil {
				s.fail(w, r, style, err)
				return
			}
			ctx := context.WithValue(r.Context(), callerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func callerFrom(ctx context.Context) *Caller {
	c, _ := ctx.Value(callerKey).(*Caller)
	return c
}

// clientIP returns the address set by middleware.RealIP without its port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
