package web

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/go-while/go-pugsite/internal/accesslog"
	"github.com/go-while/go-pugsite/internal/config"
	"github.com/go-while/go-pugsite/internal/views"
)

// WebServer represents the web server
type WebServer struct {
	Router    *gin.Engine
	Config    *config.WebConfig
	Views     *views.Set
	StaticFS  fs.FS
	AccessLog accesslog.Sink

	httpServer *http.Server
}

// NewServer creates a new web server instance.
// The middleware chain and route table are fixed once this returns.
func NewServer(webconfig *config.WebConfig, sink accesslog.Sink) (*WebServer, error) {
	if sink == nil {
		sink = accesslog.Discard
	}

	staticFS, err := StaticFS(webconfig.StaticDir)
	if err != nil {
		return nil, err
	}
	templatesFS, err := TemplatesFS(webconfig.ViewsDir)
	if err != nil {
		return nil, err
	}
	viewSet, err := views.Load(templatesFS, views.Helpers(nil), webconfig.ReloadTemplates)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	log.Printf("[WEB]: Loaded page templates: %v", viewSet.Names())

	router := gin.New()
	// "/about/" must run the middleware chain too, so no router-level 301
	router.RedirectTrailingSlash = false

	// Configure Gin to trust reverse proxy headers
	// Set trusted proxies for common reverse proxy setups (nginx, etc.)
	if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}); err != nil {
		log.Printf("[WEB]: Warning: failed to set trusted proxies: %v", err)
	}
	router.HTMLRender = viewSet

	server := &WebServer{
		Router:    router,
		Config:    webconfig,
		Views:     viewSet,
		StaticFS:  staticFS,
		AccessLog: sink,
	}
	server.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(webconfig.ListenPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	server.setupRoutes()
	return server, nil
}

// setupRoutes configures the middleware chain and all HTTP routes.
// Middleware executes strictly in registration order, so anything meant to
// block all traffic (maintenance) has to come before static serving,
// otherwise static files stay reachable while the gate is up.
func (s *WebServer) setupRoutes() {
	s.Router.Use(gin.Recovery())
	s.Router.Use(s.AccessLogMiddleware())
	s.Router.Use(secure.New(s.secureConfig()))
	if s.Config.Debug {
		s.Router.Use(s.ApacheLogFormat())
	}
	if s.Config.Maintenance {
		log.Printf("[WEB]: Maintenance mode enabled, all requests get the maintenance page")
		s.Router.Use(s.MaintenanceMiddleware())
	}
	s.Router.Use(StaticMiddleware(s.StaticFS))

	s.Router.GET("/", s.homePage)
	s.Router.GET("/about", s.aboutPage)
	s.Router.GET("/projects", s.projectsPage)
	s.Router.GET("/bad", s.badRequest)
}

// secureConfig configures security headers based on SSL setup
func (s *WebServer) secureConfig() secure.Config {
	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}

	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy like nginx with SSL)
	if s.Config.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
		secureConfig.SSLProxyHeaders = map[string]string{"X-Forwarded-Proto": "https"}
	}
	return secureConfig
}

// Start starts the web server with SSL support if configured.
// It blocks until the server stops and returns http.ErrServerClosed after Shutdown.
func (s *WebServer) Start() error {
	if s.Config.SSL {
		log.Printf("[WEB]: Starting HTTPS server on %s", s.httpServer.Addr)
		return s.httpServer.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile)
	}
	log.Printf("[WEB]: Starting HTTP server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server and closes the access log
func (s *WebServer) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if cerr := s.AccessLog.Close(); cerr != nil {
		log.Printf("[WEB]: Error closing access log: %v", cerr)
	}
	return err
}

// AccessLogMiddleware records "<timestamp>:<method>:<url>" for every request
// and always hands the request on. Write failures are logged and ignored.
func (s *WebServer) AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := accesslog.NewEntry(c.Request, time.Now())
		log.Printf("[ACCESS]: %s", entry.Line())
		if err := s.AccessLog.Append(entry); err != nil {
			log.Printf("[WEB]: Failed to write access log: %v", err)
		}
		c.Next()
	}
}

// ApacheLogFormat prints a combined-log style line to the console after each request
func (s *WebServer) ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d %d "%s" "%s"`+"\n",
			param.ClientIP,
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.BodySize,
			param.Request.Referer(),
			param.Request.UserAgent(),
		)
	})
}
