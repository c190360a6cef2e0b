package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tkbstudios/tinet/internal/common"
)

func appIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("appid"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) handleGrantRequest(w http.ResponseWriter, r *http.Request) {
	appID, ok := appIDParam(r)
	if !ok {
		writeError(w, styleMessage, http.StatusBadRequest, "Invalid app id")
		return
	}

	prompt, err := s.svc.Grants.RequestGrant(r.Context(), callerFrom(r.Context()).Identity, appID)
	if err != nil {
		s.fail(w, r, styleMessage, err)
		return
	}
	writeJSON(w, http.StatusOK, GrantPromptResponse{
		Success:        true,
		AppID:          prompt.AppID,
		AppName:        prompt.AppName,
		AppDescription: prompt.AppDescription,
		AlreadyGranted: prompt.AlreadyGranted,
	})
}

func (s *Server) handleGrantConfirm(w http.ResponseWriter, r *http.Request) {
	appID, ok := appIDParam(r)
	if !ok {
		writeError(w, styleMessage, http.StatusBadRequest, "Invalid app id")
		return
	}

	var req GrantConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, errInvalidJSON) {
			writeError(w, styleMessage, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		writeError(w, styleMessage, http.StatusBadRequest, "Password is required in JSON payload")
		return
	}

	_, created, err := s.svc.Grants.ConfirmGrant(r.Context(), callerFrom(r.Context()).Identity, appID, req.Password, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorForbidden):
			writeError(w, styleMessage, http.StatusForbidden, "Access denied")
		case errors.Is(err, common.ErrorInvalidApp):
			writeError(w, styleMessage, http.StatusBadRequest, "Invalid app id")
		default:
			s.fail(w, r, styleMessage, err)
		}
		return
	}

	msg := "Access granted!"
	if !created {
		msg = "Access already granted"
	}
	writeJSON(w, http.StatusOK, GrantConfirmResponse{Success: true, Message: msg, AppID: appID})
}

func (s *Server) handleRevokeGrant(w http.ResponseWriter, r *http.Request) {
	appID, ok := appIDParam(r)
	if !ok {
		writeError(w, styleMessage, http.StatusBadRequest, "Invalid app id")
		return
	}

	if err := s.svc.Grants.Revoke(r.Context(), callerFrom(r.Context()).Identity, appID, clientIP(r)); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, styleMessage, http.StatusNotFound, "Access was never granted to this app")
			return
		}
		s.fail(w, r, styleMessage, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Access revoked"})
}

func (s *Server) handleListGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := s.svc.Grants.ListGrants(r.Context(), callerFrom(r.Context()).Identity)
	if err != nil {
		s.fail(w, r, styleMessage, err)
		return
	}
	out := make([]GrantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, GrantResponse{
			AppID:          g.AppID,
			AppName:        g.AppName,
			AppDescription: g.AppDescription,
			GrantedDate:    g.GrantedDate,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
