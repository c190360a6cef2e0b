package httpapi

import (
	"errors"
	"net/http"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/services"
)

func (s *Server) handleCalcAuth(w http.ResponseWriter, r *http.Request) {
	var req CalcAuthRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, styleAuth, err)
		return
	}

	identity, token, err := s.svc.Credentials.LoginCalculator(r.Context(), req.Username, req.CalcKey, clientIP(r))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, styleAuth, http.StatusNotFound, "User not found or invalid credentials")
			return
		}
		s.fail(w, r, styleAuth, err)
		return
	}

	writeJSON(w, http.StatusOK, CalcAuthResponse{
		AuthSuccess:  true,
		Username:     identity.UserName,
		SessionToken: token.Token,
	})
}

// handleSessionAuth lets an app exchange a user's session token for the
// user's profile.
func (s *Server) handleSessionAuth(w http.ResponseWriter, r *http.Request) {
	appKey := r.Header.Get(common.APIKeyHeaderName)
	if appKey == "" {
		writeError(w, styleAuth, http.StatusUnauthorized, "Invalid App API Key")
		return
	}

	var req SessionAuthRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, styleAuth, err)
		return
	}

	identity, err := s.svc.Grants.AuthenticateSession(r.Context(), appKey, req.SessionToken, clientIP(r))
	if err != nil {
		var grantErr *services.GrantRequiredError
		switch {
		case errors.As(err, &grantErr):
			writeJSON(w, http.StatusForbidden, map[string]any{
				"auth_success": false,
				"error":        grantErr.Error(),
				"grant_url":    grantErr.GrantURL,
			})
		case errors.Is(err, common.ErrorUnauthorized):
			writeError(w, styleAuth, http.StatusUnauthorized, "Invalid App API Key")
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, styleAuth, http.StatusNotFound, "Invalid session token")
		default:
			s.fail(w, r, styleAuth, err)
		}
		return
	}

	type sessionAuthResponse struct {
		AuthSuccess bool `json:"auth_success"`
		ProfileResponse
	}
	writeJSON(w, http.StatusOK, sessionAuthResponse{AuthSuccess: true, ProfileResponse: newProfileResponse(identity)})
}

func (s *Server) handleValidityCheck(w http.ResponseWriter, r *http.Request) {
	var req ValidityCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, styleAuth, err)
		return
	}

	if err := s.svc.Credentials.CheckSessionToken(r.Context(), req.Username, req.SessionToken); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, styleAuth, http.StatusNotFound, "Invalid session token")
			return
		}
		s.fail(w, r, styleAuth, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "valid": true})
}
