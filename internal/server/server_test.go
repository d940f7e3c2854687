package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/tiercache/internal/testutil"
	"github.com/Sternrassler/tiercache/pkg/cache"
	"github.com/Sternrassler/tiercache/pkg/coldstore"
	"github.com/Sternrassler/tiercache/pkg/orchestrator"
	"github.com/Sternrassler/tiercache/pkg/syncer"
	"github.com/Sternrassler/tiercache/pkg/upstream"
)

type fixture struct {
	server *Server
	mr     *miniredis.Miniredis
	cold   *coldstore.MemoryStore
	mock   *testutil.MockUpstream
	locker *syncer.LocalLocker
	dir    string
}

func setup(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	hot := cache.NewStore(client, zerolog.Nop())

	cold := coldstore.NewMemoryStore("https://cdn.example.com/f1-cache")

	mock := testutil.NewMockUpstream()
	t.Cleanup(mock.Close)

	up, err := upstream.New(upstream.DefaultConfig(mock.URL(), "tiercache-test/1.0"), zerolog.Nop())
	if err != nil {
		t.Fatalf("upstream.New failed: %v", err)
	}
	up.SetRetryPolicy(func(upstream.ErrorClass) upstream.RetryConfig {
		return upstream.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1}
	})

	locker := syncer.NewLocalLocker()
	dir := t.TempDir()

	srv := New(Deps{
		Orchestrator: orchestrator.New(hot, cold, orchestrator.DefaultConfig(), zerolog.Nop()),
		Hot:          hot,
		Cold:         cold,
		Syncer:       syncer.New(cold, locker, syncer.DefaultConfig(), zerolog.Nop()),
		Upstream:     up,
		CacheDir:     dir,
		DataTTL:      time.Minute,
	}, zerolog.Nop())

	return &fixture{server: srv, mr: mr, cold: cold, mock: mock, locker: locker, dir: dir}
}

func (f *fixture) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodGet, "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET /health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestReady(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodGet, "/ready")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /ready = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp ReadyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Checks["hot_store"] != "ok" || resp.Checks["cold_store"] != "ok" {
		t.Errorf("ready response = %+v", resp)
	}
}

func TestReady_HotStoreDown(t *testing.T) {
	f := setup(t)
	f.mr.Close()

	rec := f.do(http.MethodGet, "/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /ready = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hot_store") {
		t.Errorf("body should name the failing check: %s", rec.Body.String())
	}

	// Liveness does not depend on backends
	if rec := f.do(http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	f := setup(t)
	f.do(http.MethodGet, "/health")
	f.do(http.MethodGet, "/v1/urls/a.json")

	rec := f.do(http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing runtime collectors")
	}
}

func TestGetData_CachesUpstream(t *testing.T) {
	f := setup(t)
	f.mock.SetResponse("/races/2024", testutil.NewJSONResponse(`{"season":2024,"rounds":24}`))

	for i := 0; i < 3; i++ {
		rec := f.do(http.MethodGet, "/v1/data/races/2024")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d: %s", i, rec.Code, rec.Body.String())
		}
		if rec.Body.String() != `{"season":2024,"rounds":24}` {
			t.Errorf("request %d body = %s", i, rec.Body.String())
		}
	}

	if n := f.mock.GetPathCount("/races/2024"); n != 1 {
		t.Errorf("upstream requests = %d, want 1", n)
	}
}

func TestGetData_QueryIsPartOfKey(t *testing.T) {
	f := setup(t)
	f.mock.SetHandler("/laps", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"driver":%q}`, r.URL.Query().Get("driver"))
	})

	ver := f.do(http.MethodGet, "/v1/data/laps?driver=VER")
	ham := f.do(http.MethodGet, "/v1/data/laps?driver=HAM")

	if ver.Body.String() != `{"driver":"VER"}` || ham.Body.String() != `{"driver":"HAM"}` {
		t.Errorf("bodies = %s / %s", ver.Body.String(), ham.Body.String())
	}
	if n := f.mock.GetPathCount("/laps"); n != 2 {
		t.Errorf("upstream requests = %d, want 2", n)
	}
}

func TestGetData_EscapedQueryDoesNotCollide(t *testing.T) {
	f := setup(t)
	f.mock.SetHandler("/laps", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"q":%q}`, r.URL.RawQuery)
	})

	first := f.do(http.MethodGet, "/v1/data/laps?a=1:b%3D2")
	second := f.do(http.MethodGet, "/v1/data/laps?a=1&b=2")

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("statuses = %d / %d", first.Code, second.Code)
	}
	if first.Body.String() == second.Body.String() {
		t.Errorf("different queries served the same body: %s", first.Body.String())
	}
	if second.Body.String() != `{"q":"a=1&b=2"}` {
		t.Errorf("second body = %s", second.Body.String())
	}
	if n := f.mock.GetPathCount("/laps"); n != 2 {
		t.Errorf("upstream requests = %d, want 2", n)
	}
}

func TestGetData_Pagination(t *testing.T) {
	f := setup(t)

	items := make([]string, 25)
	for i := range items {
		items[i] = fmt.Sprint(i)
	}
	f.mock.SetResponse("/telemetry", testutil.NewJSONResponse("["+strings.Join(items, ",")+"]"))

	type pageBody struct {
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalItems int   `json:"total_items"`
		TotalPages int   `json:"total_pages"`
		Items      []int `json:"items"`
	}

	tests := []struct {
		query     string
		wantFirst int
		wantLen   int
	}{
		{"page=1&page_size=10", 0, 10},
		{"page=3&page_size=10", 20, 5},
		{"page=4&page_size=10", 0, 0},
	}

	for _, tt := range tests {
		rec := f.do(http.MethodGet, "/v1/data/telemetry?"+tt.query)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s = %d: %s", tt.query, rec.Code, rec.Body.String())
		}

		var body pageBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.TotalPages != 3 || body.TotalItems != 25 {
			t.Errorf("%s totals = %d pages, %d items", tt.query, body.TotalPages, body.TotalItems)
		}
		if len(body.Items) != tt.wantLen {
			t.Errorf("%s items = %v", tt.query, body.Items)
			continue
		}
		if tt.wantLen > 0 && body.Items[0] != tt.wantFirst {
			t.Errorf("%s first item = %d, want %d", tt.query, body.Items[0], tt.wantFirst)
		}
	}

	if n := f.mock.GetPathCount("/telemetry"); n != 1 {
		t.Errorf("upstream requests = %d, want 1 across pages", n)
	}
}

func TestGetData_BadPage(t *testing.T) {
	f := setup(t)
	f.mock.SetResponse("/telemetry", testutil.NewJSONResponse(`[1,2,3]`))

	for _, query := range []string{"page=0", "page=-2", "page=abc", "page=1&page_size=x"} {
		if rec := f.do(http.MethodGet, "/v1/data/telemetry?"+query); rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", query, rec.Code)
		}
	}
	if n := f.mock.GetPathCount("/telemetry"); n != 0 {
		t.Errorf("invalid pages reached upstream %d times", n)
	}
}

func TestGetData_UpstreamErrors(t *testing.T) {
	f := setup(t)
	f.mock.SetResponse("/broken", testutil.NewServerErrorResponse())

	if rec := f.do(http.MethodGet, "/v1/data/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("missing upstream path = %d, want 404", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/v1/data/broken"); rec.Code != http.StatusBadGateway {
		t.Errorf("failing upstream = %d, want 502", rec.Code)
	}
}

func TestGetData_NoUpstream(t *testing.T) {
	f := setup(t)
	f.server.deps.Upstream = nil

	if rec := f.do(http.MethodGet, "/v1/data/races"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET without upstream = %d, want 503", rec.Code)
	}
}

func TestGetObject(t *testing.T) {
	f := setup(t)
	f.cold.Upload(context.Background(), "2024/R/laps.json", strings.NewReader(`{"laps":57}`), -1, coldstore.UploadOptions{})

	rec := f.do(http.MethodGet, "/v1/objects/2024/R/laps.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET object = %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != `{"laps":57}` {
		t.Errorf("body = %s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	if !f.mr.Exists("file:2024/R/laps.json") {
		t.Error("object not read through the hot store")
	}

	if rec := f.do(http.MethodGet, "/v1/objects/missing.json"); rec.Code != http.StatusNotFound {
		t.Errorf("missing object = %d, want 404", rec.Code)
	}
}

func TestGetURL(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodGet, "/v1/urls/2024/R/laps.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET url = %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["url"] != "https://cdn.example.com/f1-cache/2024/R/laps.json" {
		t.Errorf("url = %q", body["url"])
	}
}

func TestGetURL_PrivateStore(t *testing.T) {
	f := setup(t)
	client := redis.NewClient(&redis.Options{Addr: f.mr.Addr()})
	t.Cleanup(func() { client.Close() })
	f.server.deps.Orchestrator = orchestrator.New(
		cache.NewStore(client, zerolog.Nop()),
		coldstore.NewMemoryStore(""),
		orchestrator.DefaultConfig(),
		zerolog.Nop(),
	)

	if rec := f.do(http.MethodGet, "/v1/urls/a.json"); rec.Code != http.StatusNotFound {
		t.Errorf("private url = %d, want 404", rec.Code)
	}
}

func TestPostSync(t *testing.T) {
	f := setup(t)
	testutil.WriteTree(t, f.dir, map[string]string{"2024/R.json": `{"winner":"VER"}`})

	rec := f.do(http.MethodPost, "/v1/sync/push")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST push = %d: %s", rec.Code, rec.Body.String())
	}

	var report syncer.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Direction != syncer.DirectionPush || report.Transferred != 1 || report.Failed != 0 {
		t.Errorf("report = %+v", report)
	}

	if _, err := f.cold.Download(context.Background(), "2024/R.json"); err != nil {
		t.Errorf("file not pushed: %v", err)
	}

	if rec := f.do(http.MethodPost, "/v1/sync/reconcile"); rec.Code != http.StatusOK {
		t.Errorf("POST reconcile = %d", rec.Code)
	}
}

func TestPostSync_Errors(t *testing.T) {
	f := setup(t)

	if rec := f.do(http.MethodPost, "/v1/sync/sideways"); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown direction = %d, want 400", rec.Code)
	}

	release, err := f.locker.Acquire(context.Background(), "sync", time.Minute)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if rec := f.do(http.MethodPost, "/v1/sync/pull"); rec.Code != http.StatusConflict {
		t.Errorf("pull while locked = %d, want 409", rec.Code)
	}
	release()

	f.server.deps.Syncer = nil
	if rec := f.do(http.MethodPost, "/v1/sync/pull"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("pull without syncer = %d, want 503", rec.Code)
	}
}

func TestNew_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("New should panic without an orchestrator")
		}
	}()
	New(Deps{}, zerolog.Nop())
}
