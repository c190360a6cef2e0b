package httpapi

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	session := ts.signup("alice", "pw-alice")

	rec := ts.upload("/v1/user/files/upload", map[string]string{"a.txt": "hello", "b.bin": "12345678"}, withSession(session))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	up := decode[UploadResponse](t, rec)
	require.Len(t, up.Files, 2)
	for _, f := range up.Files {
		assert.True(t, f.Success, f.Message)
	}

	rec = ts.upload("/v1/user/files/upload", map[string]string{"a.txt": "again"}, withSession(session))
	require.Equal(t, http.StatusOK, rec.Code)
	up = decode[UploadResponse](t, rec)
	require.Len(t, up.Files, 1)
	assert.False(t, up.Files[0].Success)
	assert.Equal(t, "Error: File a.txt already exists", up.Files[0].Message)

	rec = ts.do(http.MethodGet, "/v1/user/files/list", nil, withSession(session))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"files":["a.txt","b.bin"]}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/v1/user/files/download?filename=a.txt", nil, withSession(session))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
	assert.Equal(t, `attachment; filename="a.txt"`, rec.Header().Get("Content-Disposition"))

	rec = ts.do(http.MethodGet, "/v1/user/files/usage", nil, withSession(session))
	require.Equal(t, http.StatusOK, rec.Code)
	usage := decode[UsageResponse](t, rec)
	assert.Equal(t, int64(13), usage.UsedBytes)
	assert.Equal(t, int64(32*1024*1024), usage.QuotaBytes)

	rec = ts.do(http.MethodDelete, "/v1/user/files/delete", DeleteFilesRequest{Filenames: []string{"a.txt", "missing.txt"}}, withSession(session))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"deleted_files":["a.txt"],"not_found_files":["missing.txt"]}`, rec.Body.String())
}

func TestFiles_QuotaPerFile(t *testing.T) {
	cfg := testConfig()
	cfg.QuotaBytes = 10
	ts := newTestServerWith(t, cfg)
	session := ts.signup("alice", "pw-alice")

	rec := ts.upload("/v1/user/files/upload", map[string]string{"big.bin": strings.Repeat("x", 11)}, withSession(session))
	require.Equal(t, http.StatusOK, rec.Code)
	up := decode[UploadResponse](t, rec)
	require.Len(t, up.Files, 1)
	assert.False(t, up.Files[0].Success)
	assert.Contains(t, up.Files[0].Message, "will exceed the")
}

func TestFiles_BodyLargerThanQuotaRejected(t *testing.T) {
	cfg := testConfig()
	cfg.QuotaBytes = 10
	ts := newTestServerWith(t, cfg)
	session := ts.signup("alice", "pw-alice")

	rec := ts.upload("/v1/user/files/upload", map[string]string{"huge.bin": strings.Repeat("x", 2*multipartOverhead)}, withSession(session))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Contains(t, decode[map[string]any](t, rec)["message"], "bucket limit")

	rec = ts.do(http.MethodGet, "/v1/user/files/list", nil, withSession(session))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"files":[]}`, rec.Body.String())
}

func TestFiles_Errors(t *testing.T) {
	ts := newTestServer(t)
	session := ts.signup("alice", "pw-alice")

	rec := ts.upload("/v1/user/files/upload", map[string]string{}, withSession(session))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Error: No files provided"}`, rec.Body.String())

	rec = ts.do(http.MethodDelete, "/v1/user/files/delete", "not json", withSession(session))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Error: Invalid JSON format in request body"}`, rec.Body.String())

	rec = ts.do(http.MethodDelete, "/v1/user/files/delete", DeleteFilesRequest{}, withSession(session))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Error: No filenames provided"}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/v1/user/files/download", nil, withSession(session))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Error: No filename provided"}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/v1/user/files/download?filename=nope.txt", nil, withSession(session))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Error: File 'nope.txt' does not exist."}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/v1/user/files/list", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFiles_IsolatedPerUser(t *testing.T) {
	ts := newTestServer(t)
	bob := ts.signup("bob", "pw-bob")
	bobby := ts.signup("bobby", "pw-bobby")

	rec := ts.upload("/v1/user/files/upload", map[string]string{"secret.txt": "s"}, withSession(bobby))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/v1/user/files/list", nil, withSession(bob))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"files":[]}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/v1/user/files/download?filename=secret.txt", nil, withSession(bob))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
