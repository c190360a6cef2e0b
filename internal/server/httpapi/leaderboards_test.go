package httpapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerEnv struct {
	ts     *testServer
	appKey string
	lbID   int64
}

func newLedgerEnv(t *testing.T) *ledgerEnv {
	t.Helper()
	ts := newTestServer(t)
	dev := ts.signup("dev", "pw-dev")
	ts.signup("alice", "pw-alice")

	rec := ts.do(http.MethodPost, "/v1/apps", CreateAppRequest{Name: "Game", Description: "a game"}, withSession(dev))
	require.Equal(t, http.StatusCreated, rec.Code)
	app := decode[AppResponse](t, rec)

	rec = ts.do(http.MethodPost, "/v1/leaderboards", CreateLeaderboardRequest{Title: "High scores"}, withAPIKey(app.Key))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lb := decode[LeaderboardResponse](t, rec)
	assert.Equal(t, "No description", lb.Description)

	return &ledgerEnv{ts: ts, appKey: app.Key, lbID: lb.ID}
}

func scoreCount(n int64) *int64 { return &n }

func TestLeaderboard_ScoreRoutes(t *testing.T) {
	env := newLedgerEnv(t)
	ts := env.ts

	tests := []struct {
		name      string
		path      string
		count     int64
		wantMsg   string
		wantScore int64
	}{
		{"first increment creates", "/v1/leaderboards/increment", 5, "Leaderboard entry created successfully", 5},
		{"increment adds", "/v1/leaderboards/increment", 3, "Leaderboard entry updated successfully", 8},
		{"decrement subtracts", "/v1/leaderboards/decrement", 10, "Leaderboard entry updated successfully", -2},
		{"set assigns", "/v1/leaderboards/set", 42, "Leaderboard entry score set successfully", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, tt.path, ScoreRequest{LeaderboardID: env.lbID, Username: "alice", Count: scoreCount(tt.count)}, withAPIKey(env.appKey))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decode[ScoreResponse](t, rec)
			assert.Equal(t, tt.wantMsg, resp.Message)
			assert.Equal(t, tt.wantScore, resp.Score)
		})
	}

	rec := ts.do(http.MethodGet, fmt.Sprintf("/v1/leaderboards/%d", env.lbID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[LeaderboardResponse](t, rec)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, LeaderboardEntryResponse{Username: "alice", Score: 42}, view.Entries[0])

	rec = ts.do(http.MethodGet, "/v1/leaderboards", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]LeaderboardResponse](t, rec), 1)
}

func TestLeaderboard_Authorization(t *testing.T) {
	env := newLedgerEnv(t)
	ts := env.ts

	other := ts.signup("other", "pw-other")
	rec := ts.do(http.MethodPost, "/v1/apps", CreateAppRequest{Name: "Other", Description: "x"}, withSession(other))
	require.Equal(t, http.StatusCreated, rec.Code)
	otherKey := decode[AppResponse](t, rec).Key

	tests := []struct {
		name     string
		key      string
		req      ScoreRequest
		wantCode int
		wantBody string
	}{
		{
			name:     "unknown app key",
			key:      "bogus",
			req:      ScoreRequest{LeaderboardID: env.lbID, Username: "alice", Count: scoreCount(1)},
			wantCode: http.StatusUnauthorized,
			wantBody: `{"success":false,"error":"Invalid App API Key"}`,
		},
		{
			name:     "foreign leaderboard",
			key:      otherKey,
			req:      ScoreRequest{LeaderboardID: env.lbID, Username: "alice", Count: scoreCount(1)},
			wantCode: http.StatusForbidden,
			wantBody: `{"success":false,"error":"Leaderboard does not match the App API Key"}`,
		},
		{
			name:     "missing leaderboard",
			key:      env.appKey,
			req:      ScoreRequest{LeaderboardID: 9999, Username: "alice", Count: scoreCount(1)},
			wantCode: http.StatusNotFound,
			wantBody: `{"success":false,"error":"Leaderboard does not exist"}`,
		},
		{
			name:     "missing user",
			key:      env.appKey,
			req:      ScoreRequest{LeaderboardID: env.lbID, Username: "ghost", Count: scoreCount(1)},
			wantCode: http.StatusNotFound,
			wantBody: `{"success":false,"error":"User does not exist"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/v1/leaderboards/increment", tt.req, withAPIKey(tt.key))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}

	rec = ts.do(http.MethodPost, "/v1/leaderboards/increment", ScoreRequest{LeaderboardID: env.lbID, Username: "alice", Count: scoreCount(1)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLeaderboard_DeleteEntry(t *testing.T) {
	env := newLedgerEnv(t)
	ts := env.ts

	rec := ts.do(http.MethodPost, "/v1/leaderboards/increment", ScoreRequest{LeaderboardID: env.lbID, Username: "alice", Count: scoreCount(1)}, withAPIKey(env.appKey))
	require.Equal(t, http.StatusOK, rec.Code)

	del := DeleteEntryRequest{LeaderboardID: env.lbID, Username: "alice"}
	rec = ts.do(http.MethodDelete, "/v1/leaderboards/delete", del, withAPIKey(env.appKey))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Leaderboard entry deleted successfully"}`, rec.Body.String())

	rec = ts.do(http.MethodDelete, "/v1/leaderboards/delete", del, withAPIKey(env.appKey))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Leaderboard entry does not exist for the given username"}`, rec.Body.String())
}

func TestLeaderboard_GetErrors(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/v1/leaderboards/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/v1/leaderboards/7", nil).Code)
}

func TestLeaderboard_ScoreRequiresCount(t *testing.T) {
	env := newLedgerEnv(t)
	ts := env.ts

	for _, path := range []string{"/v1/leaderboards/increment", "/v1/leaderboards/decrement", "/v1/leaderboards/set"} {
		t.Run(path, func(t *testing.T) {
			body := fmt.Sprintf(`{"leaderboard_id":%d,"username":"alice"}`, env.lbID)
			rec := ts.do(http.MethodPost, path, body, withAPIKey(env.appKey))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			resp := decode[map[string]any](t, rec)
			assert.Equal(t, false, resp["success"])
			assert.Contains(t, resp["error"], "count")
		})
	}

	rec := ts.do(http.MethodGet, fmt.Sprintf("/v1/leaderboards/%d", env.lbID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[LeaderboardResponse](t, rec).Entries)

	rec = ts.do(http.MethodPost, "/v1/leaderboards/set", ScoreRequest{LeaderboardID: env.lbID, Username: "alice", Count: scoreCount(0)}, withAPIKey(env.appKey))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(0), decode[ScoreResponse](t, rec).Score)
}
