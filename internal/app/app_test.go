package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/simp-lee/logger"
	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/wbdash/internal/config"
	"github.com/simp-lee/wbdash/internal/domain"
	"github.com/simp-lee/wbdash/internal/middleware"
)

type fakeHTTPServer struct {
	listenErr      error
	listenStarted  chan struct{}
	shutdownCalled bool
	stopCh         chan struct{}
	mu             sync.Mutex
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.listenStarted != nil {
		close(f.listenStarted)
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	if f.stopCh != nil {
		<-f.stopCh
	}
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.mu.Lock()
	f.shutdownCalled = true
	f.mu.Unlock()
	if f.stopCh != nil {
		close(f.stopCh)
	}
	return nil
}

func (f *fakeHTTPServer) wasShutdownCalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdownCalled
}

// testConfig returns a valid config with a file-backed SQLite fetch log and
// the given upstream.
func testConfig(t *testing.T, upstreamURL string) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080, Mode: gin.TestMode},
		Upstream: config.UpstreamConfig{
			BaseURL: upstreamURL,
			APIKey:  "secret-key",
			Timeout: "2s",
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "wbdash.db")},
		},
		Log:     config.LogConfig{Level: "error", Format: "text"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics", Namespace: "wbdash"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func cleanupTestApp(t *testing.T, a *App) {
	t.Helper()
	if a == nil {
		return
	}
	if a.db != nil {
		_ = closeDatabase(a.db)
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// upstreamStub serves fixed JSON on the four metrics API paths and records
// every query it receives.
type upstreamStub struct {
	mu      sync.Mutex
	queries []string
}

func (u *upstreamStub) handler() http.Handler {
	mux := http.NewServeMux()
	for _, path := range []string{"/api/incomes", "/api/orders", "/api/sales"} {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			u.mu.Lock()
			u.queries = append(u.queries, r.URL.Path+"?"+r.URL.RawQuery)
			u.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"nmId":1,"warehouseName":"Kazan"}]`))
		})
	}
	return mux
}

func TestResolveCORSConfig(t *testing.T) {
	defaults := middleware.DefaultCORSConfig()

	tests := []struct {
		name        string
		mode        string
		cfg         config.CORSConfig
		wantOrigins []string
		wantMaxAge  time.Duration
		wantErr     bool
	}{
		{"debug defaults", gin.DebugMode, config.CORSConfig{}, defaults.AllowOrigins, defaults.MaxAge, false},
		{"release denies by default", gin.ReleaseMode, config.CORSConfig{}, []string{}, defaults.MaxAge, false},
		{"configured origins", gin.ReleaseMode, config.CORSConfig{AllowOrigins: []string{"https://a.example"}}, []string{"https://a.example"}, defaults.MaxAge, false},
		{"max age", gin.DebugMode, config.CORSConfig{MaxAge: "12h"}, defaults.AllowOrigins, 12 * time.Hour, false},
		{"bad max age", gin.DebugMode, config.CORSConfig{MaxAge: "soon"}, nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveCORSConfig(tt.mode, tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveCORSConfig: %v", err)
			}
			if strings.Join(got.AllowOrigins, ",") != strings.Join(tt.wantOrigins, ",") || got.AllowOrigins == nil {
				t.Errorf("AllowOrigins = %#v, want %#v", got.AllowOrigins, tt.wantOrigins)
			}
			if got.MaxAge != tt.wantMaxAge {
				t.Errorf("MaxAge = %v, want %v", got.MaxAge, tt.wantMaxAge)
			}
		})
	}
}

func TestResolveCORSConfig_OverridesMethodsAndHeaders(t *testing.T) {
	got, err := resolveCORSConfig(gin.DebugMode, config.CORSConfig{
		AllowMethods:     []string{"GET"},
		AllowHeaders:     []string{"Accept"},
		AllowCredentials: true,
	})
	if err != nil {
		t.Fatalf("resolveCORSConfig: %v", err)
	}
	if len(got.AllowMethods) != 1 || len(got.AllowHeaders) != 1 || !got.AllowCredentials {
		t.Errorf("config = %+v", got)
	}
}

func TestValidateGinMode(t *testing.T) {
	for _, mode := range []string{gin.DebugMode, gin.ReleaseMode, gin.TestMode} {
		if err := validateGinMode(mode); err != nil {
			t.Errorf("validateGinMode(%q) error = %v", mode, err)
		}
	}
	if err := validateGinMode("prod"); err == nil {
		t.Error("validateGinMode(prod) expected error")
	}
}

func TestWriteTimeout(t *testing.T) {
	tests := []struct {
		timeout string
		want    time.Duration
	}{
		{"", defaultWriteTimeout},
		{"45s", 45 * time.Second},
		{"bogus", defaultWriteTimeout},
	}
	for _, tt := range tests {
		if got := writeTimeout(config.ServerConfig{Timeout: tt.timeout}); got != tt.want {
			t.Errorf("writeTimeout(%q) = %v, want %v", tt.timeout, got, tt.want)
		}
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) expected error")
	}
}

func TestNew_ReturnsError_WhenDatabaseSetupFails(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Database.Driver = "unsupported"

	a, err := New(cfg)
	if err == nil {
		cleanupTestApp(t, a)
		t.Fatal("New() error = nil, want error")
	}
	if a != nil {
		t.Fatalf("New() app = %#v, want nil", a)
	}
	if !strings.Contains(err.Error(), "setup database") {
		t.Fatalf("New() error = %q, want contains %q", err.Error(), "setup database")
	}
}

func TestNew_EndToEnd(t *testing.T) {
	stub := &upstreamStub{}
	upstream := httptest.NewServer(stub.handler())
	defer upstream.Close()

	a, err := New(testConfig(t, upstream.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer cleanupTestApp(t, a)
	h := a.Handler()

	// JSON report.
	w := serve(h, http.MethodGet, "/api/v1/reports/stocks?dateFrom=2024-01-01&dateTo=2024-01-31&limit=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("report API = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data domain.Report `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Data.Kind != domain.KindStocks || !strings.Contains(string(resp.Data.Data), "Kazan") {
		t.Errorf("report = %+v", resp.Data)
	}
	requestID := w.Header().Get(middleware.RequestIDHeader)

	// Stocks are read from the sales endpoint, with the key appended.
	stub.mu.Lock()
	got := append([]string(nil), stub.queries...)
	stub.mu.Unlock()
	if len(got) != 1 || got[0] != "/api/sales?dateFrom=2024-01-01&dateTo=2024-01-31&limit=10&key=secret-key" {
		t.Errorf("upstream queries = %v", got)
	}

	// The fetch was logged against the inbound request.
	w = serve(h, http.MethodGet, "/api/v1/fetches", "")
	var fetches struct {
		Data pagination.Pagination[domain.FetchRecord] `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &fetches); err != nil {
		t.Fatalf("unmarshal fetches: %v", err)
	}
	if fetches.Data.TotalItems != 1 || fetches.Data.Items[0].Endpoint != "/api/sales" || fetches.Data.Items[0].RequestID != requestID {
		t.Errorf("fetch log = %+v (request id %q)", fetches.Data.Items, requestID)
	}

	// Every page renders; with dates it shows the upstream rows.
	for _, kind := range domain.Kinds() {
		w = serve(h, http.MethodGet, kind.Path(), "text/html")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<h1>"+kind.Title()+"</h1>") {
			t.Errorf("GET %s = %d", kind.Path(), w.Code)
		}
	}
	w = serve(h, http.MethodGet, "/orders?dateFrom=2024-01-01&dateTo=2024-01-31", "text/html")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<td>Kazan</td>") {
		t.Errorf("orders page = %d:\n%s", w.Code, w.Body.String())
	}

	// Exact paths only; / redirects to the first report.
	if w = serve(h, http.MethodGet, "/orders/", "text/html"); w.Code != http.StatusNotFound {
		t.Errorf("GET /orders/ = %d, want 404", w.Code)
	}
	if w = serve(h, http.MethodGet, "/", "text/html"); w.Code != http.StatusFound {
		t.Errorf("GET / = %d, want 302", w.Code)
	}

	// Metrics cover both the HTTP side and the upstream side.
	w = serve(h, http.MethodGet, "/metrics", "")
	body := w.Body.String()
	for _, want := range []string{
		`wbdash_upstream_fetches_total{endpoint="/api/sales",outcome="200"} 1`,
		`wbdash_http_requests_total{method="GET",route="/api/v1/reports/:kind",status_code="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestNew_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	a, err := New(testConfig(t, upstream.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer cleanupTestApp(t, a)

	w := serve(a.Handler(), http.MethodGet, "/incomes?dateFrom=2024-01-01&dateTo=2024-01-31", "text/html")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("page status = %d, want 502", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "answered with status 503") || strings.Contains(body, "maintenance") {
		t.Errorf("unexpected error banner:\n%s", body)
	}

	w = serve(a.Handler(), http.MethodGet, "/api/v1/reports/incomes?dateFrom=a&dateTo=b", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("api status = %d, want 502", w.Code)
	}
}

func TestNew_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Metrics.Enabled = false

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer cleanupTestApp(t, a)

	if w := serve(a.Handler(), http.MethodGet, "/metrics", "application/json"); w.Code != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want 404", w.Code)
	}
}

func TestRun_ReturnsError_WhenListenFails(t *testing.T) {
	originalNewHTTPServer := newHTTPServer
	originalNotifyContext := notifyContext
	defer func() {
		newHTTPServer = originalNewHTTPServer
		notifyContext = originalNotifyContext
	}()

	listenErr := errors.New("listen failed")
	server := &fakeHTTPServer{listenErr: listenErr}
	newHTTPServer = func(string, http.Handler, time.Duration) httpServer {
		return server
	}
	notifyContext = func(context.Context, ...os.Signal) (context.Context, context.CancelFunc) {
		return context.WithCancel(context.Background())
	}

	a := &App{
		engine: gin.New(),
		logger: logger.Default(),
		cfg:    &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080}},
	}

	err := a.Run()
	if err == nil {
		t.Fatalf("Run() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "server error") || !errors.Is(err, listenErr) {
		t.Fatalf("Run() error = %v, want server error wrapping %v", err, listenErr)
	}
	if server.wasShutdownCalled() {
		t.Error("Shutdown should not be called after a listen failure")
	}
}

func TestRun_ShutdownSignal_ClosesDatabase(t *testing.T) {
	originalNewHTTPServer := newHTTPServer
	originalNotifyContext := notifyContext
	defer func() {
		newHTTPServer = originalNewHTTPServer
		notifyContext = originalNotifyContext
	}()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}

	var gotTimeout time.Duration
	server := &fakeHTTPServer{listenStarted: make(chan struct{}), stopCh: make(chan struct{})}
	newHTTPServer = func(_ string, _ http.Handler, wt time.Duration) httpServer {
		gotTimeout = wt
		return server
	}

	ctx, cancel := context.WithCancel(context.Background())
	notifyContext = func(context.Context, ...os.Signal) (context.Context, context.CancelFunc) {
		return ctx, cancel
	}

	a := &App{
		engine: gin.New(),
		db:     db,
		logger: logger.Default(),
		cfg:    &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080, Timeout: "30s"}},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run()
	}()

	select {
	case <-server.listenStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start listening in time")
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return in time after shutdown signal")
	}

	if !server.wasShutdownCalled() {
		t.Fatal("expected server Shutdown() to be called")
	}
	if gotTimeout != 30*time.Second {
		t.Errorf("write timeout = %v, want 30s", gotTimeout)
	}
	if pingErr := sqlDB.Ping(); pingErr == nil {
		t.Fatal("expected database connection to be closed, but Ping() succeeded")
	}
}

func TestRun_NilReceiver(t *testing.T) {
	var a *App
	if err := a.Run(); err == nil {
		t.Fatal("Run() on nil app expected error")
	}
	if err := (&App{}).Run(); err == nil {
		t.Fatal("Run() without config expected error")
	}
}
