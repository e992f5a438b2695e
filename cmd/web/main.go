// Web server for go-pugsite
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	prof "github.com/go-while/go-cpu-mem-profiler"
	"github.com/go-while/go-pugsite/internal/accesslog"
	"github.com/go-while/go-pugsite/internal/config"
	"github.com/go-while/go-pugsite/internal/web"
	"golang.org/x/term"
)

var (
	// command-line flags
	envFile         string
	webport         int
	webssl          bool
	webcertFile     string
	webkeyFile      string
	staticDir       string
	viewsDir        string
	accessLogFile   string
	accessLogDB     string
	maintenance     bool
	reloadTemplates bool
	debug           bool
	pprofAddr       string
)

var appVersion = "-unset-"

var Prof *prof.Profiler

func main() {
	config.AppVersion = appVersion

	flag.StringVar(&envFile, "envfile", ".env", "load PORT and friends from this file if it exists")
	flag.IntVar(&webport, "webport", 0, "Web server port (default: $PORT or 6003)")
	flag.BoolVar(&webssl, "webssl", false, "Enable SSL")
	flag.StringVar(&webcertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	flag.StringVar(&webkeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
	flag.StringVar(&staticDir, "static", "", "serve static files from this directory instead of the embedded ones")
	flag.StringVar(&viewsDir, "views", "", "load page templates from this directory instead of the embedded ones")
	flag.StringVar(&accessLogFile, "accesslog", config.DefaultAccessLogFile, "append-only access log file")
	flag.StringVar(&accessLogDB, "accesslog-db", "", "also record access log entries in this sqlite database")
	flag.BoolVar(&maintenance, "maintenance", false, "answer every request with the maintenance page")
	flag.BoolVar(&reloadTemplates, "reload-templates", false, "re-parse templates on every request (development)")
	flag.BoolVar(&debug, "debug", false, "gin debug mode and console request logging")
	flag.StringVar(&pprofAddr, "pprof", "", "serve pprof on this address (e.g. 127.0.0.1:51111)")
	flag.Parse()

	log.Printf("Starting go-pugsite: Web Server (version: %s)", appVersion)

	if err := config.LoadEnvFile(envFile); err != nil {
		log.Fatalf("[WEB]: %v", err)
	}

	mainConfig := config.NewDefaultConfig()
	webConfig := mainConfig.Web
	if err := webConfig.ApplyEnv(os.LookupEnv); err != nil {
		log.Fatalf("[WEB]: Error in environment: %v", err)
	}

	// Override config with command-line flags if provided
	if webport > 0 {
		webConfig.ListenPort = webport
		log.Printf("[WEB]: Overriding listen port with command-line flag: %d", webConfig.ListenPort)
	} else {
		log.Printf("[WEB]: No port flag provided, using: %d", webConfig.ListenPort)
	}
	if webssl {
		webConfig.SSL = true
		log.Printf("[WEB]: SSL enabled via command-line flag")
	}
	if webcertFile != "" {
		webConfig.CertFile = webcertFile
	}
	if webkeyFile != "" {
		webConfig.KeyFile = webkeyFile
	}
	if maintenance {
		webConfig.Maintenance = true
	}
	webConfig.StaticDir = staticDir
	webConfig.ViewsDir = viewsDir
	webConfig.AccessLogFile = accessLogFile
	webConfig.AccessLogDB = accessLogDB
	webConfig.ReloadTemplates = reloadTemplates
	webConfig.Debug = debug

	if err := webConfig.Validate(); err != nil {
		log.Fatalf("[WEB]: %v", err)
	}
	log.Printf("[WEB]: Using WEB configuration: %#v", webConfig)

	if pprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(pprofAddr)
		log.Printf("[WEB]: pprof listening on %s", pprofAddr)
	}

	if webConfig.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		gin.DisableConsoleColor()
	}

	sink := openAccessLog(webConfig)

	server, err := web.NewServer(webConfig, sink)
	if err != nil {
		log.Fatalf("[WEB]: Failed to create web server: %v", err)
	}
	if webConfig.Debug {
		if files, err := web.ListFiles(server.StaticFS); err == nil {
			log.Printf("[WEB]: Static files: %v", files)
		}
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start web server in goroutine to make it non-blocking
	webServerErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			webServerErrChan <- err
		}
	}()

	log.Printf("[WEB]: Listening on port %d... Press Ctrl+C to shutdown", webConfig.ListenPort)

	select {
	case <-sigChan:
		log.Printf("[WEB]: Received shutdown signal, initiating graceful shutdown...")
	case err := <-webServerErrChan:
		log.Fatalf("[WEB]: Failed to start web server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[WEB]: Error during shutdown: %v", err)
	}
	log.Printf("[WEB]: Graceful shutdown completed")
}

// openAccessLog opens the configured sinks. A log that cannot be opened is
// reported and skipped, the site keeps serving either way.
func openAccessLog(webConfig *config.WebConfig) accesslog.Sink {
	var sinks []accesslog.Sink
	if webConfig.AccessLogFile != "" {
		fileSink, err := accesslog.OpenFile(webConfig.AccessLogFile)
		if err != nil {
			log.Printf("[WEB]: Warning: %v", err)
		} else {
			log.Printf("[WEB]: Access log: %s", fileSink.Name())
			sinks = append(sinks, fileSink)
		}
	}
	if webConfig.AccessLogDB != "" {
		dbSink, err := accesslog.OpenSQLite(webConfig.AccessLogDB)
		if err != nil {
			log.Printf("[WEB]: Warning: %v", err)
		} else {
			log.Printf("[WEB]: Access log database: %s", webConfig.AccessLogDB)
			sinks = append(sinks, dbSink)
		}
	}
	if len(sinks) == 0 {
		return accesslog.Discard
	}
	return accesslog.Multi(sinks...)
}
