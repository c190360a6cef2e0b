package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/tivars"
	"github.com/tkbstudios/tinet/internal/server/services"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:       serviceName,
		Identifier: serviceIdentifier,
		Version:    serviceVersion,
		ServerTime: time.Now().UTC(),
		YourIP:     clientIP(r),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, styleMessage, err)
		return
	}

	identity, err := s.svc.Accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			writeError(w, styleMessage, http.StatusConflict, "Username already taken")
			return
		}
		s.fail(w, r, styleMessage, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "username": identity.UserName})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, styleMessage, err)
		return
	}

	login, err := s.svc.Accounts.Login(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, styleMessage, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		s.fail(w, r, styleMessage, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    login.Token,
		Path:     "/",
		Expires:  login.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		Username:  login.Identity.UserName,
		Session:   login.Token,
		ExpiresAt: login.ExpiresAt,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())
	if err := s.svc.Accounts.Logout(r.Context(), caller.Identity, caller.SessionKey, clientIP(r)); err != nil {
		s.fail(w, r, styleMessage, err)
		return
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Logged out"})
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	identity := callerFrom(r.Context()).Identity
	writeJSON(w, http.StatusOK, map[string]string{
		"username": identity.UserName,
		"email":    identity.Email,
	})
}

func (s *Server) handleAuditHistory(w http.ResponseWriter, r *http.Request) {
	limit := services.DefaultAuditHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, styleError, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.svc.Audit.History(r.Context(), callerFrom(r.Context()).Identity.UserName, limit)
	if err != nil {
		s.fail(w, r, styleError, err)
		return
	}

	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{Action: e.Action, IP: e.IP, CreatedAt: e.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNewAPIKey(w http.ResponseWriter, r *http.Request) {
	key, err := s.svc.Credentials.IssueAPIKey(r.Context(), callerFrom(r.Context()).Identity, clientIP(r))
	if err != nil {
		s.fail(w, r, styleError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"api_key": key})
}

func (s *Server) handleKeyfileDownload(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.Credentials.IssueCalculatorKeyfile(r.Context(), callerFrom(r.Context()).Identity, clientIP(r))
	if err != nil {
		s.fail(w, r, styleError, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(tivars.KeyfileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleExpireCalcSessions(w http.ResponseWriter, r *http.Request) {
	identity := callerFrom(r.Context()).Identity
	if _, err := s.svc.Credentials.ExpireAllSessionTokens(r.Context(), identity, clientIP(r)); err != nil {
		s.fail(w, r, styleError, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: fmt.Sprintf("All tokens associated with user %s have been expired.", identity.UserName),
	})
}

func (s *Server) handleExpireWebSessions(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())
	if err := s.svc.Credentials.ExpireAllWebSessions(r.Context(), caller.Identity, caller.SessionKey); err != nil {
		s.fail(w, r, styleError, err)
		return
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "All sessions for the current user expired successfully"})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Accounts.DeleteAccount(r.Context(), callerFrom(r.Context()).Identity); err != nil {
		s.fail(w, r, styleError, err)
		return
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Account deleted"})
}
