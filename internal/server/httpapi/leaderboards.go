package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/services"
)

// failLedger writes ledger errors with the messages apps rely on.
func (s *Server) failLedger(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, styleError, http.StatusUnauthorized, "Invalid App API Key")
	case errors.Is(err, services.ErrLeaderboardMismatch):
		writeError(w, styleError, http.StatusForbidden, sentinelMessage(err, common.ErrorForbidden))
	case errors.Is(err, services.ErrEntryNotFound),
		errors.Is(err, services.ErrLeaderboardNotFound),
		errors.Is(err, services.ErrUserNotFound):
		writeError(w, styleError, http.StatusNotFound, sentinelMessage(err, common.ErrorNotFound))
	default:
		s.fail(w, r, styleError, err)
	}
}

// sentinelMessage strips the "<sentinel>: " prefix of a wrapped error.
func sentinelMessage(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

func (s *Server) handleListLeaderboards(w http.ResponseWriter, r *http.Request) {
	lbs, err := s.svc.Ledger.List(r.Context())
	if err != nil {
		s.fail(w, r, styleError, err)
		return
	}
	out := make([]LeaderboardResponse, 0, len(lbs))
	for i := range lbs {
		out = append(out, newLeaderboardResponse(&lbs[i], nil))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, styleError, http.StatusBadRequest, "Invalid leaderboard id")
		return
	}
	view, err := s.svc.Ledger.Get(r.Context(), id)
	if err != nil {
		s.failLedger(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLeaderboardResponse(view.Leaderboard, view.Entries))
}

func (s *Server) handleCreateLeaderboard(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaderboardRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, styleError, err)
		return
	}
	lb, err := s.svc.Ledger.CreateLeaderboard(r.Context(), callerFrom(r.Context()).AppKey, req.Title, req.Description)
	if err != nil {
		s.failLedger(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newLeaderboardResponse(lb, nil))
}

func scoreMessage(op services.ScoreOp, res *services.ScoreResult) string {
	switch {
	case res.Created:
		return "Leaderboard entry created successfully"
	case op == services.OpSet:
		return "Leaderboard entry score set successfully"
	default:
		return "Leaderboard entry updated successfully"
	}
}

func (s *Server) handleScore(op services.ScoreOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScoreRequest
		if err := decodeJSON(r, &req); err != nil {
			s.fail(w, r, styleError, err)
			return
		}

		appKey := callerFrom(r.Context()).AppKey
		var (
			res *services.ScoreResult
			err error
		)
		switch op {
		case services.OpIncrement:
			res, err = s.svc.Ledger.Increment(r.Context(), appKey, req.LeaderboardID, req.Username, *req.Count)
		case services.OpDecrement:
			res, err = s.svc.Ledger.Decrement(r.Context(), appKey, req.LeaderboardID, req.Username, *req.Count)
		default:
			res, err = s.svc.Ledger.SetScore(r.Context(), appKey, req.LeaderboardID, req.Username, *req.Count)
		}
		if err != nil {
			s.failLedger(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, ScoreResponse{Success: true, Message: scoreMessage(op, res), Score: res.Score})
	}
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	var req DeleteEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, styleError, err)
		return
	}
	if err := s.svc.Ledger.Delete(r.Context(), callerFrom(r.Context()).AppKey, req.LeaderboardID, req.Username); err != nil {
		s.failLedger(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Leaderboard entry deleted successfully"})
}
