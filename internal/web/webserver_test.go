package web

import (
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-pugsite/internal/accesslog"
	"github.com/go-while/go-pugsite/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestServer builds a server writing its access log into a temp dir
func newTestServer(t *testing.T, mutate func(*config.WebConfig)) (*WebServer, string) {
	t.Helper()
	cfg := config.NewDefaultConfig().Web
	cfg.AccessLogFile = filepath.Join(t.TempDir(), "server.log")
	if mutate != nil {
		mutate(cfg)
	}
	sink, err := accesslog.OpenFile(cfg.AccessLogFile)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })

	srv, err := NewServer(cfg, sink)
	require.NoError(t, err)
	return srv, cfg.AccessLogFile
}

func doRequest(srv *WebServer, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func readLogLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestPageRoutes(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	year := strconv.Itoa(time.Now().Year())

	testCases := []struct {
		target string
		title  string
	}{
		{"/", "Home Page"},
		{"/about", "About Page"},
		{"/projects", "Projects Page"},
	}
	for _, tc := range testCases {
		t.Run(tc.target, func(t *testing.T) {
			w := doRequest(srv, http.MethodGet, tc.target)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))

			body := w.Body.String()
			assert.Contains(t, body, "<title>"+tc.title+"</title>")
			assert.Contains(t, body, "<h1>"+strings.ToUpper(tc.title)+"</h1>")
			assert.Contains(t, body, "Copyright "+year)
			assert.Contains(t, body, `href="/css/styles.css"`)
		})
	}
}

func TestHomePageWelcomeText(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := doRequest(srv, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hi...and welcome to my web site")
}

func TestBadRoute(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := doRequest(srv, http.MethodGet, "/bad")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":1,"errorMessage":"Oooops somethign went wrong...."}`, w.Body.String())
}

func TestStaticFiles(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	want, err := fs.ReadFile(embeddedFS, "static/help.html")
	require.NoError(t, err)
	w := doRequest(srv, http.MethodGet, "/help.html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, want, w.Body.Bytes())
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))

	css, err := fs.ReadFile(embeddedFS, "static/css/styles.css")
	require.NoError(t, err)
	w = doRequest(srv, http.MethodGet, "/css/styles.css")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, css, w.Body.Bytes())
	assert.Equal(t, "text/css; charset=utf-8", w.Header().Get("Content-Type"))

	w = doRequest(srv, http.MethodHead, "/help.html")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestNotFound(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, target := range []string{"/nope", "/missing.css", "/css", "/css/", "/../help.txt"} {
		w := doRequest(srv, http.MethodGet, target)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}

	w := doRequest(srv, http.MethodPost, "/help.html")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

var logLinePattern = regexp.MustCompile(`^[A-Z][a-z]{2} [A-Z][a-z]{2} \d{2} \d{4} \d{2}:\d{2}:\d{2} GMT[+-]\d{4} \(.+\):([A-Z]+):(.+)$`)

func TestAccessLogOneLinePerRequest(t *testing.T) {
	srv, logPath := newTestServer(t, nil)

	requests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/"},
		{http.MethodGet, "/about"},
		{http.MethodGet, "/projects?page=2"},
		{http.MethodGet, "/bad"},
		{http.MethodGet, "/help.html"},
		{http.MethodGet, "/does-not-exist"},
		{http.MethodGet, "/about/"},
		{http.MethodPost, "/"},
	}
	for _, r := range requests {
		doRequest(srv, r.method, r.target)
	}

	lines := readLogLines(t, logPath)
	require.Len(t, lines, len(requests))
	for i, line := range lines {
		m := logLinePattern.FindStringSubmatch(line)
		require.NotNil(t, m, "line %q does not match", line)
		assert.Equal(t, requests[i].method, m[1])
		assert.Equal(t, requests[i].target, m[2])
	}
}

type brokenSink struct{}

func (brokenSink) Append(accesslog.Entry) error { return os.ErrClosed }
func (brokenSink) Close() error                 { return nil }

func TestAccessLogFailureDoesNotBlockRequest(t *testing.T) {
	cfg := config.NewDefaultConfig().Web
	srv, err := NewServer(cfg, brokenSink{})
	require.NoError(t, err)

	w := doRequest(srv, http.MethodGet, "/about")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNilSinkDiscards(t *testing.T) {
	srv, err := NewServer(config.NewDefaultConfig().Web, nil)
	require.NoError(t, err)
	w := doRequest(srv, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMaintenanceGate(t *testing.T) {
	srv, logPath := newTestServer(t, func(cfg *config.WebConfig) {
		cfg.Maintenance = true
	})

	targets := []string{"/", "/about", "/about/", "/projects/", "/bad", "/help.html", "/css/styles.css", "/nope"}
	for _, target := range targets {
		w := doRequest(srv, http.MethodGet, target)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
		assert.Equal(t, "3600", w.Header().Get("Retry-After"), target)
		assert.Contains(t, w.Body.String(), "WE&#39;LL BE RIGHT BACK", target)
	}

	// the gate sits behind the access logger
	assert.Len(t, readLogLines(t, logPath), len(targets))
}

func TestTrailingSlashNotRedirected(t *testing.T) {
	srv, logPath := newTestServer(t, nil)

	for _, target := range []string{"/about/", "/projects/", "/bad/"} {
		w := doRequest(srv, http.MethodGet, target)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
		assert.Empty(t, w.Header().Get("Location"), target)
	}
	assert.Len(t, readLogLines(t, logPath), 3)
}

func TestFooterShowsVersion(t *testing.T) {
	saved := config.AppVersion
	config.AppVersion = "1.2.3"
	t.Cleanup(func() { config.AppVersion = saved })

	srv, _ := newTestServer(t, nil)
	for _, target := range []string{"/", "/about", "/projects"} {
		w := doRequest(srv, http.MethodGet, target)
		require.Equal(t, http.StatusOK, w.Code, target)
		assert.Contains(t, w.Body.String(), `<p class="version">go-pugsite 1.2.3</p>`, target)
	}

	config.AppVersion = ""
	w := doRequest(srv, http.MethodGet, "/")
	assert.NotContains(t, w.Body.String(), `class="version"`)
}

func TestReloadServesPagesAddedLater(t *testing.T) {
	viewsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(viewsDir, "home.html"), []byte(`home`), 0644))

	srv, _ := newTestServer(t, func(cfg *config.WebConfig) {
		cfg.ViewsDir = viewsDir
		cfg.ReloadTemplates = true
	})

	w := doRequest(srv, http.MethodGet, "/about")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	require.NoError(t, os.WriteFile(filepath.Join(viewsDir, "about.html"), []byte(`<p>{{.PageTitle}}</p>`), 0644))
	w = doRequest(srv, http.MethodGet, "/about")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<p>About Page</p>", w.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	w := doRequest(srv, http.MethodGet, "/")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSQLiteMirror(t *testing.T) {
	dir := t.TempDir()
	fileSink, err := accesslog.OpenFile(filepath.Join(dir, "server.log"))
	require.NoError(t, err)
	dbSink, err := accesslog.OpenSQLite(filepath.Join(dir, "accesslog.sq3"))
	require.NoError(t, err)

	srv, err := NewServer(config.NewDefaultConfig().Web, accesslog.Multi(fileSink, dbSink))
	require.NoError(t, err)
	t.Cleanup(func() { srv.AccessLog.Close() })

	for _, target := range []string{"/", "/about", "/nope"} {
		doRequest(srv, http.MethodGet, target)
	}

	recent, err := dbSink.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "/nope", recent[2].URL)

	lines := readLogLines(t, filepath.Join(dir, "server.log"))
	require.Len(t, lines, 3)
	for i, e := range recent {
		assert.True(t, strings.HasSuffix(lines[i], ":"+e.Method+":"+e.URL))
	}
}

func TestStaticMiddlewarePassThrough(t *testing.T) {
	fsys := fstest.MapFS{
		"robots.txt":      {Data: []byte("User-agent: *\nDisallow:\n")},
		"docs/index.html": {Data: []byte("<p>docs</p>")},
	}
	router := gin.New()
	router.Use(StaticMiddleware(fsys))
	router.GET("/docs", func(c *gin.Context) { c.String(http.StatusOK, "route") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User-agent: *\nDisallow:\n", w.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Equal(t, "route", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/../robots.txt", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDiskDirectories(t *testing.T) {
	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "hello.txt"), []byte("hello from disk"), 0644))

	viewsDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(viewsDir, "partials"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(viewsDir, "partials", "title.html"), []byte(`{{define "title"}}{{screamIt .PageTitle}}{{end}}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(viewsDir, "home.html"), []byte(`<h1>{{template "title" .}}</h1><p>{{.WelcomeText}}</p>`), 0644))

	srv, _ := newTestServer(t, func(cfg *config.WebConfig) {
		cfg.StaticDir = staticDir
		cfg.ViewsDir = viewsDir
	})

	w := doRequest(srv, http.MethodGet, "/hello.txt")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello from disk", w.Body.String())

	w = doRequest(srv, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<h1>HOME PAGE</h1><p>Hi...and welcome to my web site</p>", w.Body.String())

	// no about.html in this views dir
	w = doRequest(srv, http.MethodGet, "/about")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error: Template error", w.Body.String())

	// the embedded help page is not part of the disk static root
	w = doRequest(srv, http.MethodGet, "/help.html")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewServerErrors(t *testing.T) {
	cfg := config.NewDefaultConfig().Web
	cfg.StaticDir = filepath.Join(t.TempDir(), "missing")
	_, err := NewServer(cfg, nil)
	assert.Error(t, err)

	cfg = config.NewDefaultConfig().Web
	cfg.ViewsDir = t.TempDir() // no pages
	_, err = NewServer(cfg, nil)
	assert.Error(t, err)
}

func TestStartShutdown(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.WebConfig) {
		cfg.ListenPort = 0
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestListFiles(t *testing.T) {
	staticFS, err := StaticFS("")
	require.NoError(t, err)
	files, err := ListFiles(staticFS)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"help.html", "css/styles.css"}, files)
}
