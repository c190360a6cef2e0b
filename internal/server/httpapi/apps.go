package httpapi

import (
	"net/http"
)

func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.svc.Apps.List(r.Context(), callerFrom(r.Context()).Identity)
	if err != nil {
		s.fail(w, r, styleError, err)
		return
	}
	out := make([]AppResponse, 0, len(apps))
	for i := range apps {
		out = append(out, newAppResponse(&apps[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateApp(w http.ResponseWriter, r *http.Request) {
	var req CreateAppRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, styleError, err)
		return
	}

	app, err := s.svc.Apps.CreateAppKey(r.Context(), callerFrom(r.Context()).Identity, req.Name, req.Description)
	if err != nil {
		s.fail(w, r, styleError, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAppResponse(app))
}

func (s *Server) handleDeleteApp(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, styleError, http.StatusBadRequest, "No key provided")
		return
	}
	if err := s.svc.Apps.DeleteKey(r.Context(), callerFrom(r.Context()).Identity, key); err != nil {
		s.fail(w, r, styleError, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "App key deleted"})
}

func (s *Server) handleExpireApp(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, styleError, http.StatusBadRequest, "No key provided")
		return
	}
	if err := s.svc.Apps.Expire(r.Context(), callerFrom(r.Context()).Identity, key); err != nil {
		s.fail(w, r, styleError, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "App key expired"})
}
