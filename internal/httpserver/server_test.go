package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/dockmetrics/internal/blob"
	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dockmetrics/internal/index"
	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
	"github.com/MrSnakeDoc/dockmetrics/internal/policy"
	"github.com/MrSnakeDoc/dockmetrics/internal/service"
	redisstore "github.com/MrSnakeDoc/dockmetrics/internal/store/redis"
	"github.com/MrSnakeDoc/dockmetrics/internal/version"
)

const helloID = "#workflow/github.com/dockstore/hello"

var entryPath = "/entries/" + url.PathEscape(helloID)

type testServer struct {
	handler http.Handler
	mr      *miniredis.Miniredis
	deps    deps.Deps
}

func newTestServer(t *testing.T, mutate func(*deps.Deps)) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	store := redisstore.NewStore(client)
	idx := index.NewPartnerIndex(store, 64, time.Minute)
	pol := policy.NewStaticHolder(policy.Default())
	svc := service.New(store, blob.NewMemory(), idx, pol, logger.NewNop())

	d := deps.Deps{
		Logger:              logger.NewNop(),
		StartTime:           time.Now(),
		Build:               version.Get(),
		TimeNow:             time.Now,
		SubmitBurst:         100,
		SubmitRefillPerMin:  100,
		Service:             svc,
		Store:               store,
		Partners:            idx,
		Policy:              pol,
		PolicyReloadTrigger: make(chan struct{}, 1),
		AggregateTrigger:    make(chan struct{}, 1),
	}
	if mutate != nil {
		mutate(&d)
	}
	return &testServer{handler: httpserver.NewRouter(d, 5*time.Second), mr: mr, deps: d}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	r := httptest.NewRequest(method, target, rd)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Dockstore-User", "alice")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func helloEntry() domain.Entry {
	files := []domain.SourceFile{{Path: "/Dockstore.wdl"}}
	return domain.Entry{
		Kind: domain.KindWorkflow,
		Workflow: &domain.WorkflowDetails{
			SourceControl: "github.com", Organization: "dockstore", Repository: "hello",
		},
		Versions: []domain.Version{
			{Name: "1.0", Description: "first", SourceFiles: files},
			{Name: "empty"},
		},
	}
}

func submission(statuses ...domain.ExecutionStatus) domain.ExecutionsRequest {
	var req domain.ExecutionsRequest
	for i, st := range statuses {
		req.RunExecutions = append(req.RunExecutions, domain.RunExecution{
			ExecutionStatus: st,
			DateExecuted:    time.Date(2024, 4, 1, 0, 0, i, 0, time.UTC),
			ExecutionTime:   "PT1M",
		})
	}
	return req
}

func (s *testServer) register(t *testing.T) {
	t.Helper()
	if w := s.do(t, http.MethodPut, entryPath, helloEntry()); w.Code != http.StatusCreated {
		t.Fatalf("register status = %d body %s", w.Code, w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode[map[string]any](t, w)
	if body["status"] != "ok" || body["go_version"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestReadyz(t *testing.T) {
	s := newTestServer(t, nil)
	if w := s.do(t, http.MethodGet, "/readyz", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	s.mr.Close()
	if w := s.do(t, http.MethodGet, "/readyz", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status with redis down = %d, want 503", w.Code)
	}
}

func TestRegisterEntry(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t)

	w := s.do(t, http.MethodPut, entryPath, helloEntry())
	if w.Code != http.StatusOK {
		t.Errorf("second register status = %d, want 200", w.Code)
	}

	other := "/entries/" + url.PathEscape("#workflow/github.com/dockstore/other")
	if w := s.do(t, http.MethodPut, other, helloEntry()); w.Code != http.StatusBadRequest {
		t.Errorf("mismatched id status = %d, want 400", w.Code)
	}
	if w := s.do(t, http.MethodPut, entryPath, `{"kind":`); w.Code != http.StatusBadRequest {
		t.Errorf("bad json status = %d, want 400", w.Code)
	}
}

func TestSubmitAndReadMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t)
	versionPath := entryPath + "/versions/1.0"

	w := s.do(t, http.MethodPost, versionPath+"/executions?platform=TERRA&description=nightly",
		submission(domain.StatusSuccessful, domain.StatusSuccessful, domain.StatusFailed))
	if w.Code != http.StatusCreated {
		t.Fatalf("submit status = %d body %s", w.Code, w.Body.String())
	}
	sub := decode[service.Submission](t, w)
	if sub.Platform != domain.PartnerTerra || !strings.Contains(sub.Key, "/TERRA/") {
		t.Errorf("submission = %+v", sub)
	}

	w = s.do(t, http.MethodGet, versionPath+"/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	vm := decode[domain.VersionMetrics](t, w)
	if vm.All == nil || vm.All.ExecutionStatusCount.NumberOfExecutions() != 3 {
		t.Errorf("ALL row = %+v", vm.All)
	}
	if _, ok := vm.Partners[domain.PartnerTerra]; !ok {
		t.Errorf("partners = %v", vm.Partners)
	}

	w = s.do(t, http.MethodGet, versionPath+"/metrics?platform=TERRA", nil)
	row := decode[domain.Metrics](t, w)
	if w.Code != http.StatusOK || row.ExecutionStatusCount.NumberOfFailedExecutions() != 1 {
		t.Errorf("TERRA row status %d = %+v", w.Code, row.ExecutionStatusCount)
	}

	w = s.do(t, http.MethodGet, entryPath+"/partners/executions", nil)
	partners := decode[[]domain.Partner](t, w)
	if len(partners) != 1 || partners[0] != domain.PartnerTerra {
		t.Errorf("execution partners = %v", partners)
	}
	w = s.do(t, http.MethodGet, entryPath+"/partners/validations", nil)
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("validation partners = %s, want []", got)
	}

	w = s.do(t, http.MethodGet, versionPath+"/files", nil)
	files := decode[[]service.MetricsFile](t, w)
	if len(files) != 1 || files[0].Key != sub.Key {
		t.Fatalf("files = %+v", files)
	}
	w = s.do(t, http.MethodGet, versionPath+"/files?key="+url.QueryEscape(sub.Key), nil)
	if w.Code != http.StatusOK || w.Header().Get("X-Metrics-Owner") != "alice" {
		t.Errorf("file status %d owner %q", w.Code, w.Header().Get("X-Metrics-Owner"))
	}
}

func TestSubmitRejects(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t)

	tests := []struct {
		name   string
		target string
		body   any
		want   int
		code   string
	}{
		{name: "missing platform", target: entryPath + "/versions/1.0/executions", body: submission(domain.StatusSuccessful), want: 400, code: domain.CodeInvalidInput},
		{name: "ALL platform", target: entryPath + "/versions/1.0/executions?platform=ALL", body: submission(domain.StatusSuccessful), want: 400, code: domain.CodeInvalidInput},
		{name: "unknown platform", target: entryPath + "/versions/1.0/executions?platform=NOPE", body: submission(domain.StatusSuccessful), want: 400, code: domain.CodeInvalidInput},
		{name: "unknown version", target: entryPath + "/versions/9.9/executions?platform=TERRA", body: submission(domain.StatusSuccessful), want: 404, code: domain.CodeNotFound},
		{name: "unknown entry", target: "/entries/" + url.PathEscape("#workflow/github.com/x/y") + "/versions/1.0/executions?platform=TERRA", body: submission(domain.StatusSuccessful), want: 404, code: domain.CodeNotFound},
		{name: "unknown field", target: entryPath + "/versions/1.0/executions?platform=TERRA", body: `{"bogus":1}`, want: 400, code: domain.CodeInvalidInput},
		{name: "empty body", target: entryPath + "/versions/1.0/executions?platform=TERRA", body: "", want: 400, code: domain.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tt.target, tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if body := decode[map[string]string](t, w); body["code"] != tt.code {
				t.Errorf("code = %q, want %q", body["code"], tt.code)
			}
		})
	}
}

func TestEntryLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t)

	if w := s.do(t, http.MethodPut, entryPath+"/default-version", map[string]string{"version": "1.0"}); w.Code != http.StatusOK {
		t.Fatalf("set default status = %d body %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodPut, entryPath+"/default-version", map[string]string{"version": "nope"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown default status = %d, want 404", w.Code)
	}

	if w := s.do(t, http.MethodPost, entryPath+"/versions/empty/freeze", nil); w.Code != http.StatusBadRequest {
		t.Errorf("freeze without files status = %d, want 400", w.Code)
	}
	w := s.do(t, http.MethodPost, entryPath+"/versions/1.0/freeze", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("freeze status = %d body %s", w.Code, w.Body.String())
	}
	if v := decode[domain.Version](t, w); !v.Frozen || !v.SourceFiles[0].Frozen || v.UpdatedBy != "alice" {
		t.Errorf("frozen version = %+v", v)
	}

	if w := s.do(t, http.MethodPut, entryPath+"/doi-selection", map[string]string{"initiator": "GITHUB"}); w.Code != http.StatusOK {
		t.Errorf("doi selection status = %d", w.Code)
	}
	if w := s.do(t, http.MethodPut, entryPath+"/doi-selection", map[string]string{"initiator": "ORCID"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad doi selection status = %d, want 400", w.Code)
	}
	if w := s.do(t, http.MethodPut, entryPath+"/published", map[string]bool{"published": true}); w.Code != http.StatusOK {
		t.Errorf("publish status = %d", w.Code)
	}
	if w := s.do(t, http.MethodPut, entryPath+"/published", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("publish without value status = %d, want 400", w.Code)
	}

	hidden := true
	if w := s.do(t, http.MethodPatch, entryPath+"/versions/1.0", domain.VersionUpdate{Hidden: &hidden}); w.Code != http.StatusOK {
		t.Fatalf("hide status = %d", w.Code)
	}

	w = s.do(t, http.MethodGet, entryPath, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get entry status = %d", w.Code)
	}
	view := decode[service.EntryView](t, w)
	if view.DefaultVersion != "" {
		t.Errorf("default version = %q, want cleared after hiding it", view.DefaultVersion)
	}
	if !view.IsPublished || !view.WasEverPublic {
		t.Errorf("publication = %v/%v", view.IsPublished, view.WasEverPublic)
	}
}

func TestAdminRoutesRestricted(t *testing.T) {
	s := newTestServer(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
	})

	// httptest requests come from 192.0.2.1
	if w := s.do(t, http.MethodPut, entryPath, helloEntry()); w.Code != http.StatusForbidden {
		t.Errorf("register status = %d, want 403", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/reload", nil); w.Code != http.StatusForbidden {
		t.Errorf("reload status = %d, want 403", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", w.Code)
	}
	if w := s.do(t, http.MethodGet, entryPath+"/partners/executions", nil); w.Code != http.StatusOK {
		t.Errorf("partners status = %d, want 200", w.Code)
	}
}

func TestReload(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/reload", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("first reload status = %d", w.Code)
	}
	if body := decode[map[string]string](t, w); body["policy"] != "triggered" || body["aggregate"] != "triggered" {
		t.Errorf("first reload = %v", body)
	}

	// nothing drains the channels, so both are still queued
	w = s.do(t, http.MethodPost, "/reload", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second reload status = %d, want 429", w.Code)
	}
	select {
	case <-s.deps.AggregateTrigger:
	default:
		t.Error("aggregation trigger not queued")
	}
}

func TestInfra(t *testing.T) {
	s := newTestServer(t, nil)
	s.register(t)
	s.do(t, http.MethodPost, entryPath+"/versions/1.0/executions?platform=AGC", submission(domain.StatusSuccessful))

	w := s.do(t, http.MethodGet, "/infra", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Status     string `json:"status"`
		Components map[string]struct {
			OK      bool   `json:"ok"`
			Mode    string `json:"mode"`
			Pending *int64 `json:"pending"`
		} `json:"components"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q", body.Status)
	}
	if r := body.Components["redis"]; !r.OK || r.Pending == nil || *r.Pending != 1 {
		t.Errorf("redis component = %+v", r)
	}
	if b := body.Components["blob"]; b.Mode != "memory" {
		t.Errorf("blob mode = %q", b.Mode)
	}
}
