package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/application/ports"
	"ledger/domain/entity"
	"ledger/infrastructure/blobstore"
	"ledger/infrastructure/config"
	apihttp "ledger/infrastructure/http"
	"ledger/infrastructure/http/handlers"
	"ledger/infrastructure/http/middleware"
	"ledger/infrastructure/repository"
	"ledger/infrastructure/storage/adapters/fs"
	"ledger/internal/ledger"
	"ledger/internal/report"
	"ledger/internal/testutil"
)

var pngData = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

type fixture struct {
	cfg     *config.Config
	repos   ports.Repositories
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := testutil.NewEnv(t)

	cfg := config.DefaultConfig()
	cfg.Storage.BucketOrPath = t.TempDir()
	cfg.Ledger.MaxMediaBytes = 1 << 20
	cfg.Ledger.MaxMediaItems = 3

	repos, err := repository.NewRepositories(env.DB, env.Obs)
	require.NoError(t, err)
	storage, err := fs.NewStorage(cfg.Storage.BucketOrPath, env.Logger, env.Metrics)
	require.NoError(t, err)
	blobs := blobstore.New(storage, "", cfg.Storage.PublicBaseURL, env.Logger, env.Metrics)

	manager, err := ledger.NewManager(env.DB, repos, blobs, cfg.Ledger, env.Obs)
	require.NoError(t, err)
	reports, err := report.NewService(env.DB, repos, manager, env.Obs)
	require.NoError(t, err)

	server, err := apihttp.NewServer(cfg, apihttp.Deps{DB: env.DB, Ledger: manager, Reports: reports}, env.Obs)
	require.NoError(t, err)

	return &fixture{cfg: cfg, repos: repos, handler: server.Handler()}
}

func (f *fixture) token(t *testing.T, role entity.Role) string {
	t.Helper()
	user := testutil.SeedUser(t, f.repos, string(role), role)
	tok, err := middleware.SignToken(f.cfg.Auth.JWTSecret, user.ID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

type upload struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestServer_Health(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Authentication(t *testing.T) {
	f := newFixture(t)
	user := testutil.SeedUser(t, f.repos, "Ari", entity.RoleAdmin)

	expired, err := middleware.SignToken(f.cfg.Auth.JWTSecret, user.ID, entity.RoleAdmin, -time.Minute)
	require.NoError(t, err)
	foreign, err := middleware.SignToken("another-secret", user.ID, entity.RoleAdmin, time.Hour)
	require.NoError(t, err)
	badRole, err := middleware.SignToken(f.cfg.Auth.JWTSecret, user.ID, entity.Role("Janitor"), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing header", "", "authorization header is missing"},
		{"not bearer", "Token abc", "invalid authorization format"},
		{"expired", "Bearer " + expired, "token has expired"},
		{"wrong secret", "Bearer " + foreign, "token is invalid"},
		{"unknown role", "Bearer " + badRole, "invalid token claims"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/progress", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := f.do(t, req, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestServer_RoleTable(t *testing.T) {
	f := newFixture(t)
	rpt := testutil.SeedReport(t, f.repos, "")

	tests := []struct {
		name string
		role entity.Role
		req  func() *http.Request
		want int
	}{
		{"technician cannot delete progress", entity.RoleTechnician,
			func() *http.Request { return jsonRequest(http.MethodDelete, "/api/v1/progress/all", "") }, http.StatusForbidden},
		{"sub-admin cannot list progress", entity.RoleSubAdmin,
			func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/v1/progress", nil) }, http.StatusForbidden},
		{"faculty lists progress", entity.RoleFaculty,
			func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/v1/progress", nil) }, http.StatusOK},
		{"workshop cannot add progress", entity.RoleWorkshop,
			func() *http.Request {
				return multipartRequest(t, "/api/v1/progress", map[string]string{"report_id": rpt.ID})
			}, http.StatusForbidden},
		{"sub-admin sets priority", entity.RoleSubAdmin,
			func() *http.Request {
				return jsonRequest(http.MethodPut, "/api/v1/reports/"+rpt.ID+"/priority", `{"priority":"High"}`)
			}, http.StatusOK},
		{"technician cannot assign", entity.RoleTechnician,
			func() *http.Request {
				return jsonRequest(http.MethodPut, "/api/v1/reports/"+rpt.ID+"/technician", `{"technician_id":"x"}`)
			}, http.StatusForbidden},
		{"head of workshop cannot delete reports", entity.RoleHeadOfWorkshop,
			func() *http.Request { return jsonRequest(http.MethodDelete, "/api/v1/reports", `{"ids":["x"]}`) }, http.StatusForbidden},
		{"department reads a report", entity.RoleDepartment,
			func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+rpt.ID, nil) }, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.req(), f.token(t, tt.role))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_ProgressLifecycle(t *testing.T) {
	f := newFixture(t)
	rpt := testutil.SeedReport(t, f.repos, "")
	tech := f.token(t, entity.RoleTechnician)
	head := f.token(t, entity.RoleHeadOfWorkshop)

	add := func(status entity.ProgressStatus, files ...upload) *httptest.ResponseRecorder {
		return f.do(t, multipartRequest(t, "/api/v1/progress", map[string]string{
			"report_id":   rpt.ID,
			"status":      string(status),
			"description": "checked wiring",
		}, files...), tech)
	}

	rec := add(entity.StatusPending, upload{"files", "before.png", pngData}, upload{"files[]", "after.png", pngData})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[map[string]interface{}](t, rec)
	assert.Len(t, first["media_urls"], 2)

	time.Sleep(2 * time.Millisecond)
	rec = add(entity.StatusInProgress)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decode[map[string]interface{}](t, rec)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/progress?report_id="+rpt.ID, nil), tech)
	require.Equal(t, http.StatusOK, rec.Code)
	views := decode[[]entity.ProgressView](t, rec)
	require.Len(t, views, 2)
	assert.Equal(t, second["progress_id"], views[0].ID)
	assert.Len(t, views[1].Media, 2)

	rec = f.do(t, jsonRequest(http.MethodPut, "/api/v1/progress/"+views[1].ID+"/status", `{"status":"Done"}`), head)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, entity.StatusDone, decode[entity.Progress](t, rec).Status)

	body := `{"ids":["` + views[0].ID + `"]}`
	rec = f.do(t, jsonRequest(http.MethodDelete, "/api/v1/progress", body), head)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	deleted := decode[handlers.DeletionResponse](t, rec)
	assert.Equal(t, 1, deleted.Deleted)
	require.Len(t, deleted.Reports, 1)
	require.NotNil(t, deleted.Reports[0].CurrentProgressID)
	assert.Equal(t, first["progress_id"], *deleted.Reports[0].CurrentProgressID)
}

func TestServer_ProgressErrors(t *testing.T) {
	f := newFixture(t)
	rpt := testutil.SeedReport(t, f.repos, "")
	admin := f.token(t, entity.RoleAdmin)

	tests := []struct {
		name string
		req  func() *http.Request
		want int
		code ledger.Code
	}{
		{"unknown status", func() *http.Request {
			return multipartRequest(t, "/api/v1/progress", map[string]string{
				"report_id": rpt.ID, "status": "Teleported", "description": "x"})
		}, http.StatusBadRequest, ledger.CodeInvalidInput},
		{"unknown report", func() *http.Request {
			return multipartRequest(t, "/api/v1/progress", map[string]string{
				"report_id": "missing", "status": "Pending", "description": "x"})
		}, http.StatusNotFound, ledger.CodeInvalidReference},
		{"text file", func() *http.Request {
			return multipartRequest(t, "/api/v1/progress", map[string]string{
				"report_id": rpt.ID, "status": "Pending", "description": "x"},
				upload{"files", "notes.txt", []byte("plain text")})
		}, http.StatusBadRequest, ledger.CodeInvalidInput},
		{"empty selector", func() *http.Request {
			return jsonRequest(http.MethodDelete, "/api/v1/progress", "")
		}, http.StatusBadRequest, ledger.CodeInvalidSelector},
		{"two selectors", func() *http.Request {
			return jsonRequest(http.MethodDelete, "/api/v1/progress?report_id="+rpt.ID, `{"ids":["a"]}`)
		}, http.StatusBadRequest, ledger.CodeInvalidSelector},
		{"status of unknown entry", func() *http.Request {
			return jsonRequest(http.MethodPut, "/api/v1/progress/missing/status", `{"status":"Done"}`)
		}, http.StatusNotFound, ledger.CodeInvalidReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.req(), admin)
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, string(tt.code), decode[handlers.ErrorResponse](t, rec).Error)
		})
	}
}

func TestServer_ReportLifecycle(t *testing.T) {
	f := newFixture(t)
	admin := f.token(t, entity.RoleAdmin)

	rec := f.do(t, multipartRequest(t, "/api/v1/reports", map[string]string{
		"reporter_name": "Dana",
		"phone_number":  "+60123456789",
		"location":      string(entity.LocationInRoom),
		"room":          "B-204",
		"description":   "Projector flickers",
		"latitude":      "3.14",
	}, upload{"photo", "projector.png", pngData}), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[report.CreateReportResult](t, rec)
	require.NotNil(t, created.Report.CurrentProgressID)
	assert.Equal(t, created.ProgressID, *created.Report.CurrentProgressID)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+created.Report.ID, nil), admin)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[entity.ReportView](t, rec)
	require.NotNil(t, view.CurrentStatus)
	assert.Equal(t, entity.StatusIncoming, *view.CurrentStatus)

	rec = f.do(t, jsonRequest(http.MethodDelete, "/api/v1/reports", `{"ids":["`+created.Report.ID+`"]}`), admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[handlers.DeletionResponse](t, rec).Deleted)

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+created.Report.ID, nil), admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CreateReportRequiresPhoto(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, multipartRequest(t, "/api/v1/reports", map[string]string{
		"reporter_name": "Dana",
		"phone_number":  "+60123456789",
		"location":      string(entity.LocationInRoom),
		"room":          "B-204",
		"description":   "Projector flickers",
	}), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	reports, err := f.repos.Reports().List(context.Background(), ports.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, reports)
}
