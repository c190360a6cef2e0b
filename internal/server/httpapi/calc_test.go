package httpapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// calcLogin issues a keyfile for userName and trades its key for a session
// token.
func (ts *testServer) calcLogin(userName, session string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodGet, "/v1/user/keyfile/download", nil, withSession(session))
	require.Equal(ts.t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/v1/user/calc/auth", CalcAuthRequest{Username: userName, CalcKey: ts.calcKey(userName)})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[CalcAuthResponse](ts.t, rec)
	require.True(ts.t, resp.AuthSuccess)
	require.Len(ts.t, resp.SessionToken, 256)
	return resp.SessionToken
}

func TestCalcAuth(t *testing.T) {
	ts := newTestServer(t)
	session := ts.signup("alice", "pw-alice")
	ts.calcLogin("alice", session)

	rec := ts.do(http.MethodPost, "/v1/user/calc/auth", CalcAuthRequest{Username: "alice", CalcKey: "wrong"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"auth_success":false,"error":"User not found or invalid credentials"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/v1/user/calc/auth", CalcAuthRequest{Username: "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidityCheck(t *testing.T) {
	ts := newTestServer(t)
	session := ts.signup("alice", "pw-alice")
	token := ts.calcLogin("alice", session)

	rec := ts.do(http.MethodPost, "/v1/user/sessions/validity-check", ValidityCheckRequest{Username: "alice", SessionToken: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"valid":true}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/v1/user/sessions/validity-check", ValidityCheckRequest{Username: "alice", SessionToken: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/v1/user/sessions/expireallcalc", nil, withSession(session))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"All tokens associated with user alice have been expired."}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/v1/user/sessions/validity-check", ValidityCheckRequest{Username: "alice", SessionToken: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"auth_success":false,"error":"Session token expired"}`, rec.Body.String())
}

func TestAppSessionHandshake(t *testing.T) {
	ts := newTestServer(t)
	devSession := ts.signup("dev", "pw-dev")
	aliceSession := ts.signup("alice", "pw-alice")
	token := ts.calcLogin("alice", aliceSession)

	rec := ts.do(http.MethodPost, "/v1/apps", CreateAppRequest{Name: "Game", Description: "a game"}, withSession(devSession))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	app := decode[AppResponse](t, rec)

	auth := func() *http.Response {
		return ts.do(http.MethodPost, "/v1/user/sessions/auth", SessionAuthRequest{SessionToken: token}, withAPIKey(app.Key)).Result()
	}

	rec = ts.do(http.MethodPost, "/v1/user/sessions/auth", SessionAuthRequest{SessionToken: token}, withAPIKey(app.Key))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"auth_success":false,"error":"User has not granted access to the app","grant_url":"https://tinet.test/oauth/request?appid=%d"}`, app.ID), rec.Body.String())

	grantPath := fmt.Sprintf("/v1/oauth/request?appid=%d", app.ID)
	rec = ts.do(http.MethodGet, grantPath, nil, withSession(aliceSession))
	require.Equal(t, http.StatusOK, rec.Code)
	prompt := decode[GrantPromptResponse](t, rec)
	assert.Equal(t, "Game", prompt.AppName)
	assert.False(t, prompt.AlreadyGranted)

	rec = ts.do(http.MethodPost, grantPath, GrantConfirmRequest{Password: "wrong"}, withSession(aliceSession))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, grantPath, GrantConfirmRequest{Password: "pw-alice"}, withSession(aliceSession))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Access granted!", decode[GrantConfirmResponse](t, rec).Message)

	rec = ts.do(http.MethodPost, grantPath, GrantConfirmRequest{Password: "pw-alice"}, withSession(aliceSession))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Access already granted", decode[GrantConfirmResponse](t, rec).Message)

	rec = ts.do(http.MethodPost, "/v1/user/sessions/auth", SessionAuthRequest{SessionToken: token}, withAPIKey(app.Key))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decode[map[string]any](t, rec)
	assert.Equal(t, true, profile["auth_success"])
	assert.Equal(t, "alice", profile["username"])

	rec = ts.do(http.MethodGet, "/v1/grants", nil, withSession(aliceSession))
	require.Equal(t, http.StatusOK, rec.Code)
	grants := decode[[]GrantResponse](t, rec)
	require.Len(t, grants, 1)
	assert.Equal(t, app.ID, grants[0].AppID)

	rec = ts.do(http.MethodDelete, fmt.Sprintf("/v1/grants?appid=%d", app.ID), nil, withSession(aliceSession))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusForbidden, auth().StatusCode)
}

func TestSessionAuth_Errors(t *testing.T) {
	ts := newTestServer(t)
	session := ts.signup("alice", "pw-alice")
	token := ts.calcLogin("alice", session)

	rec := ts.do(http.MethodPost, "/v1/user/sessions/auth", SessionAuthRequest{SessionToken: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"auth_success":false,"error":"Invalid App API Key"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/v1/user/sessions/auth", SessionAuthRequest{SessionToken: token}, withAPIKey("bogus"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"auth_success":false,"error":"Invalid App API Key"}`, rec.Body.String())

	rec = ts.do(http.MethodPost, "/v1/apps", CreateAppRequest{Name: "Game", Description: "a game"}, withSession(session))
	require.Equal(t, http.StatusCreated, rec.Code)
	app := decode[AppResponse](t, rec)

	rec = ts.do(http.MethodPost, "/v1/user/sessions/auth", SessionAuthRequest{SessionToken: "unknown"}, withAPIKey(app.Key))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"auth_success":false,"error":"Invalid session token"}`, rec.Body.String())

	// An expired app key is rejected before the session token is looked at.
	rec = ts.do(http.MethodPost, "/v1/apps/expire?key="+app.Key, nil, withSession(session))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodPost, "/v1/user/sessions/auth", SessionAuthRequest{SessionToken: token}, withAPIKey(app.Key))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGrantRequest_InvalidAppID(t *testing.T) {
	ts := newTestServer(t)
	session := ts.signup("alice", "pw-alice")

	rec := ts.do(http.MethodGet, "/v1/oauth/request?appid=abc", nil, withSession(session))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Invalid app id"}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/v1/oauth/request?appid=999", nil, withSession(session))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Unknown", decode[GrantPromptResponse](t, rec).AppName)

	rec = ts.do(http.MethodPost, "/v1/oauth/request?appid=999", GrantConfirmRequest{Password: "pw-alice"}, withSession(session))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/v1/oauth/request?appid=999", "{}", withSession(session))
	assert.JSONEq(t, `{"success":false,"message":"Password is required in JSON payload"}`, rec.Body.String())
}
