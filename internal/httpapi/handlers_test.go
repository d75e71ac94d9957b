package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pbx-admin/internal/audit"
	"pbx-admin/internal/auth"
	"pbx-admin/internal/calls"
	"pbx-admin/internal/config"
	"pbx-admin/internal/extensions"
	"pbx-admin/internal/switchctl"

	"github.com/gin-gonic/gin"
)

type stubTransport struct {
	connected bool
	responses map[string]string
	requests  []string
}

func (s *stubTransport) IsConnected() bool { return s.connected }
func (s *stubTransport) Close()            {}
func (s *stubTransport) Request(ctx context.Context, command string) string {
	s.requests = append(s.requests, command)
	return s.responses[command]
}

type api struct {
	r         *gin.Engine
	auth      *auth.Manager
	extRepo   *extensions.MemoryRepo
	ext       *extensions.Service
	auditRepo *audit.MemoryRepo
	tr        *stubTransport
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}

	tr := &stubTransport{connected: true, responses: map[string]string{}}
	ctrl := switchctl.NewController(func(ctx context.Context) switchctl.Transport { return tr })

	extRepo := extensions.NewMemoryRepo()
	ext := extensions.NewService(extRepo, extensions.NewMemoryCache())

	auditRepo := audit.NewMemoryRepo()
	auditor := audit.NewService(auditRepo)

	callSvc := calls.NewService(ext, ctrl, nil, auditor)

	h := Handlers{
		Auth:       mgr,
		Switch:     ctrl,
		Calls:      callSvc,
		Extensions: ext,
		Audit:      auditor,
	}

	r := gin.New()
	Register(r, auth.RequireAccessToken(mgr), h)

	return &api{r: r, auth: mgr, extRepo: extRepo, ext: ext, auditRepo: auditRepo, tr: tr}
}

func (a *api) token(t *testing.T, userID, accountID, role string) string {
	t.Helper()
	pair, err := a.auth.IssuePair(time.Now(), userID, accountID, role)
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	return pair.AccessToken
}

func (a *api) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  bool            `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return e
}

func TestLoginIssuesUsableToken(t *testing.T) {
	a := newAPI(t)
	a.tr.responses["api status"] = "UP 0 years\nSessionCount 3"

	w := a.do(t, http.MethodPost, "/v1/auth/login", "", `{"user_id":"u1","account_id":"1","role":"operator"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", w.Code, w.Body.String())
	}
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &tokens); err != nil || tokens.AccessToken == "" {
		t.Fatalf("no access token in %s", w.Body.String())
	}

	w = a.do(t, http.MethodGet, "/v1/switch/status", tokens.AccessToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status with issued token: %d %s", w.Code, w.Body.String())
	}
}

func TestRegistrationsEmpty(t *testing.T) {
	a := newAPI(t)
	a.tr.responses["api show registrations"] = "0 total\r\n"

	w := a.do(t, http.MethodGet, "/v1/switch/registrations", a.token(t, "u1", "1", "agent"), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	e := decode(t, w)
	if !e.Status || e.Message != "Successfully fetched" {
		t.Fatalf("unexpected envelope %+v", e)
	}
	var rows []map[string]string
	if err := json.Unmarshal(e.Data, &rows); err != nil || len(rows) != 0 {
		t.Fatalf("expected empty rows, got %s", e.Data)
	}
}

func TestRegistrationsRefreshLivenessCache(t *testing.T) {
	a := newAPI(t)
	a.extRepo.Put(extensions.Endpoint{AccountID: 1, Number: "1001", AssignedUserID: "u1"})
	a.tr.responses["api show registrations"] = "reg_user,realm\n1001,example.com\n\n1 total.\n"

	w := a.do(t, http.MethodGet, "/v1/switch/registrations", a.token(t, "u1", "1", "operator"), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	live, err := a.ext.IsRegistered(context.Background(), 1, "1001")
	if err != nil || !live {
		t.Fatalf("expected cache to mark 1001 registered, got live=%v err=%v", live, err)
	}
}

func TestOriginateHappyPath(t *testing.T) {
	a := newAPI(t)
	a.extRepo.Put(extensions.Endpoint{AccountID: 1, Number: "1001", AssignedUserID: "u1", Registered: true})
	a.extRepo.Put(extensions.Endpoint{AccountID: 1, Number: "1002", AssignedUserID: "u2", Registered: true})

	w := a.do(t, http.MethodPost, "/v1/calls/originate", a.token(t, "u1", "1", "agent"),
		`{"src":"1001","destination":"1002"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	e := decode(t, w)
	if !e.Status || e.Message != "success." {
		t.Fatalf("unexpected envelope %+v", e)
	}

	want := "api originate {origination_caller_id_number=1001}user/1002 1001 default XML"
	found := false
	for _, req := range a.tr.requests {
		if req == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("dial command not sent, saw %v", a.tr.requests)
	}

	evs := a.auditRepo.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeOriginate || evs[0].DestinationExt != "1002" {
		t.Fatalf("unexpected audit trail %+v", evs)
	}
}

func TestOriginateDestinationOffline(t *testing.T) {
	a := newAPI(t)
	a.extRepo.Put(extensions.Endpoint{AccountID: 1, Number: "1001", AssignedUserID: "u1", Registered: true})
	a.extRepo.Put(extensions.Endpoint{AccountID: 1, Number: "1002", AssignedUserID: "u2", Registered: false})

	w := a.do(t, http.MethodPost, "/v1/calls/originate", a.token(t, "u1", "1", "agent"),
		`{"src":"1001","destination":"1002"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	e := decode(t, w)
	if e.Status || e.Message != "1002 offline." {
		t.Fatalf("unexpected envelope %+v", e)
	}
	if len(a.tr.requests) != 0 {
		t.Fatalf("switch must not be dialed on refusal, saw %v", a.tr.requests)
	}
}

func TestOriginateUnknownExtension(t *testing.T) {
	a := newAPI(t)
	a.extRepo.Put(extensions.Endpoint{AccountID: 1, Number: "1001", AssignedUserID: "u1", Registered: true})

	w := a.do(t, http.MethodPost, "/v1/calls/originate", a.token(t, "u1", "1", "agent"),
		`{"src":"1001","destination":"1002"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if e := decode(t, w); e.Message != "1002 not available." {
		t.Fatalf("unexpected envelope %+v", e)
	}
}

func TestOriginateAccountMismatch(t *testing.T) {
	a := newAPI(t)

	w := a.do(t, http.MethodPost, "/v1/calls/originate", a.token(t, "u1", "1", "agent"),
		`{"src":"1001","destination":"1002","account_id":2}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("cross-account originate should be forbidden, got %d: %s", w.Code, w.Body.String())
	}

	// super_admin may target another account; with nothing provisioned
	// there the refusal comes from the authorizer, not RBAC.
	w = a.do(t, http.MethodPost, "/v1/calls/originate", a.token(t, "root", "1", "super_admin"),
		`{"src":"1001","destination":"1002","account_id":2}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
}

func TestSwitchUnreachable(t *testing.T) {
	a := newAPI(t)
	a.tr.connected = false

	w := a.do(t, http.MethodGet, "/v1/switch/status", a.token(t, "u1", "1", "owner"), "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if e := decode(t, w); e.Status || e.Message != "switch not connected" {
		t.Fatalf("unexpected envelope %+v", e)
	}
}

func TestSwitchRBAC(t *testing.T) {
	a := newAPI(t)
	a.tr.responses["api reloadxml"] = "+OK [Success] reloading configuration"
	a.tr.responses["api shutdown"] = "+OK shutting down"

	if w := a.do(t, http.MethodPost, "/v1/switch/reloadxml", a.token(t, "u1", "1", "agent"), ""); w.Code != http.StatusForbidden {
		t.Fatalf("agent reloadxml: %d", w.Code)
	}
	w := a.do(t, http.MethodPost, "/v1/switch/reloadxml", a.token(t, "u1", "1", "operator"), "")
	if w.Code != http.StatusOK {
		t.Fatalf("operator reloadxml: %d %s", w.Code, w.Body.String())
	}
	if e := decode(t, w); !e.Status || e.Message != "success" {
		t.Fatalf("unexpected envelope %+v", e)
	}

	if w := a.do(t, http.MethodPost, "/v1/switch/shutdown", a.token(t, "u1", "1", "operator"), ""); w.Code != http.StatusForbidden {
		t.Fatalf("operator shutdown: %d", w.Code)
	}
	if w := a.do(t, http.MethodPost, "/v1/switch/shutdown", a.token(t, "u1", "1", "owner"), ""); w.Code != http.StatusOK {
		t.Fatalf("owner shutdown: %d", w.Code)
	}

	if w := a.do(t, http.MethodGet, "/v1/switch/status", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status: %d", w.Code)
	}
}

func TestSwitchCommandsAudited(t *testing.T) {
	a := newAPI(t)
	a.tr.responses["api reloadacl"] = "+OK acl reloaded"

	w := a.do(t, http.MethodPost, "/v1/switch/reloadacl", a.token(t, "u1", "1", "owner"), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	evs := a.auditRepo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(evs))
	}
	e := evs[0]
	if e.Type != audit.EventTypeSwitchControl || e.Command != "reloadacl" || e.AccountID != 1 || e.ActorUserID != "u1" {
		t.Fatalf("unexpected audit event %+v", e)
	}
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	if w := a.do(t, http.MethodGet, "/healthz", "", ""); w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
}
