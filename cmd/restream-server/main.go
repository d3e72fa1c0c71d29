package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgemux/restream-server/internal/config"
	"github.com/edgemux/restream-server/internal/dvr"
	"github.com/edgemux/restream-server/internal/http/handler"
	mw "github.com/edgemux/restream-server/internal/http/middleware"
	"github.com/edgemux/restream-server/internal/infrastructure/processmgr"
	redisrepo "github.com/edgemux/restream-server/internal/redis"
	"github.com/edgemux/restream-server/internal/service"
	"github.com/edgemux/restream-server/internal/websocket"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

type Config struct {
	RedisAddr     string   `yaml:"redis_address"`
	RedisDB       int      `yaml:"redis_db"`
	ServerAddr    string   `yaml:"server_address"`
	Port          string   `yaml:"port"`
	RelayBase     string   `yaml:"relay_base"`
	DvrRoot       string   `yaml:"dvr_root"`
	SessionSecret string   `yaml:"session_secret"`
	CORSOrigins   []string `yaml:"cors_origins"`
	MaxPreflight  int64    `yaml:"max_preflight_workers"`
	MaxOnflight   int64    `yaml:"max_onflight_workers"`
}

var serverConfig *Config

func init() {
	// Handle version display
	handleVersion()
}

func main() {
	// Read env
	isDev := os.Getenv("ENV") == "dev"

	// Load config
	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Create Zap logger
	log := buildLogger(isDev)
	defer log.Sync()
	log = log.Named("main")

	ctx := context.Background()

	// Persistence
	repo := redisrepo.NewRepository(serverConfig.RedisAddr, serverConfig.RedisDB, log)
	defer repo.Close()

	// Live feeds
	feeds := websocket.NewFeeds(log)
	defer feeds.Close()

	// Worker pool + supervisor. The pool's status callback routes
	// through the supervisor, so wire it via a closure set up-front.
	var sup *service.Supervisor
	logmgr := processmgr.NewLogManager()
	pool := processmgr.NewPool(log, logmgr,
		func(key string, st processmgr.Status) { sup.OnWorkerStatus(key, st) },
		serverConfig.MaxPreflight, serverConfig.MaxOnflight)
	sup = service.NewSupervisor(log, pool, serverConfig.RelayBase)

	// Registry
	registry := service.NewRegistry(log, repo.Restreams, sup, feeds)
	sup.Bind(registry)
	if err := registry.Load(ctx); err != nil {
		log.Fatal("registry load failed", zap.Error(err))
	}
	sup.Start()
	defer sup.Stop()

	// Settings, sessions, auth
	settingsSvc := service.NewSettingsService(log, repo.Settings, feeds)
	if err := settingsSvc.Load(ctx); err != nil {
		log.Fatal("settings load failed", zap.Error(err))
	}
	sessionSvc, err := service.NewSessionService(isDev, serverConfig.RedisAddr, []byte(serverConfig.SessionSecret))
	if err != nil {
		log.Fatal("session service creation failed", zap.Error(err))
	}
	authsvc := service.NewAuthService(log, settingsSvc, sessionSvc)

	// Snapshot cache for the polling endpoint
	stateCache := service.NewStateCache(log, registry, service.StateCacheOptions{})

	dvrStore := dvr.NewStore(serverConfig.DvrRoot, log)

	// Create Gin router
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer()
	r := gin.New()

	// Apply Gin middlewares
	{
		r.Use(gin.Recovery()) // Recovery first (outermost)
		r.Use(mw.RequestID()) // Attach request ID for tracing; early in the chain so it's available everywhere

		if isDev { // Enable CORS for local Vite dev
			origins := serverConfig.CORSOrigins
			if len(origins) == 0 {
				origins = []string{"http://localhost:5173", "http://localhost:3000", "http://127.0.0.1:3000"}
			}
			r.Use(cors.New(cors.Config{
				AllowOrigins:     origins,
				AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"X-Request-ID", "Content-Type", "Authorization"},
				ExposeHeaders:    []string{"X-Request-ID", "X-Cache", "X-State-Generated-At"},
				AllowCredentials: true, // Allow cookies in dev
				MaxAge:           12 * time.Hour,
			}))
		} else { // Behind Nginx + TLS
			r.SetTrustedProxies([]string{"127.0.0.1", serverConfig.ServerAddr})
			r.Use(secure.New(secure.Config{
				SSLProxyHeaders: map[string]string{
					"X-Forwarded-Proto": "https", // Fix scheme for secure cookies
				},
			}))
		}

		r.Use(sessionSvc.Middleware()) // Attach cookie-based session for auth

		r.Use(accessLog(log.Named("access")))

		r.Use(func(c *gin.Context) {
			// Enforce a hard 10MB max request body.
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 10<<20)
			c.Next()
		})
	}

	// Register route handlers
	{
		// --- Public endpoints (no auth) ---
		{
			r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

			authhndlr := handler.NewAuthHandler(log, authsvc)
			r.POST("/api/login", mw.RateLimit(rate.Every(time.Second), 5), authhndlr.Login)
			r.POST("/api/logout", authhndlr.Logout)

			settingshndlr := handler.NewSettingsHandler(log, settingsSvc)
			r.GET("/api/settings", settingshndlr.Get)

			// --- Protected endpoints (auth required) ---
			authed := r.Group("", mw.Authentication(authsvc))
			{
				statehndlr := handler.NewStateHandler(log, stateCache)
				wshndlr := websocket.NewHandler(log, serverConfig.CORSOrigins)
				authed.GET("/api/state", statehndlr.Get)
				authed.GET("/api/state/feed", wshndlr.Attach(feeds.State))
				authed.GET("/api/info/feed", wshndlr.Attach(feeds.Info))
			}
			{
				restreamshndlr := handler.NewRestreamsHandler(log, registry)
				authed.POST("/api/restreams", restreamshndlr.Set)
				authed.DELETE("/api/restreams/:id", restreamshndlr.Remove)
				authed.POST("/api/restreams/:id/input/enable", restreamshndlr.EnableInput)
				authed.POST("/api/restreams/:id/input/disable", restreamshndlr.DisableInput)
			}
			{
				outputshndlr := handler.NewOutputsHandler(log, registry)
				authed.POST("/api/restreams/:id/outputs", outputshndlr.Set)
				authed.DELETE("/api/restreams/:id/outputs/:oid", outputshndlr.Remove)
				authed.POST("/api/restreams/:id/outputs/:oid/enable", outputshndlr.Enable)
				authed.POST("/api/restreams/:id/outputs/:oid/disable", outputshndlr.Disable)
				authed.POST("/api/restreams/:id/outputs/enable-all", outputshndlr.EnableAll)
				authed.POST("/api/restreams/:id/outputs/disable-all", outputshndlr.DisableAll)
				authed.POST("/api/outputs/enable-all", outputshndlr.EnableAllGlobal)
				authed.POST("/api/outputs/disable-all", outputshndlr.DisableAllGlobal)
				authed.POST("/api/restreams/:id/outputs/:oid/tune-volume", outputshndlr.TuneVolume)
				authed.POST("/api/restreams/:id/outputs/:oid/tune-delay", outputshndlr.TuneDelay)
			}
			{
				spechndlr := handler.NewSpecHandler(log, registry)
				authed.GET("/api/export", spechndlr.Export)
				// Replace-all imports rewrite the whole registry; one at a time.
				authed.POST("/api/import", mw.LimitConcurrentRequests(1), spechndlr.Import)
			}
			{
				dvrhndlr := handler.NewDvrHandler(log, dvrStore, registry)
				authed.GET("/api/outputs/:oid/dvr", dvrhndlr.List)
				authed.DELETE("/api/outputs/:oid/dvr/:file", dvrhndlr.Remove)
			}
			{
				authed.POST("/api/settings", settingshndlr.Set)
				authed.POST("/api/password", settingshndlr.SetPassword)
			}
			if isDev {
				debughndlr := handler.NewDebugHandler(log, registry, pool)
				authed.GET("/api/debug/state", debughndlr.State)
				authed.GET("/api/debug/workers", debughndlr.Workers)
				authed.GET("/api/debug/workers/:key/logs", debughndlr.WorkerLogs)
			}
		}
	}

	httpsrv := &http.Server{
		Addr:              serverConfig.ServerAddr + ":" + serverConfig.Port,
		Handler:           r,
		ReadHeaderTimeout: 2 * time.Second,  // kills header-drip Slowloris
		ReadTimeout:       10 * time.Second, // full request read (incl. body)
		WriteTimeout:      15 * time.Second, // avoid forever-hangs on writes
		IdleTimeout:       60 * time.Second, // keep-alive cap
		MaxHeaderBytes:    1 << 20,          // 1MB cap
	}

	go func() {
		log.Info("running HTTP server", zap.String("addr", httpsrv.Addr))
		if err := httpsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful teardown: stop accepting requests, then drain the workers.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := httpsrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	pool.Shutdown(shutdownCtx)
	log.Info("server closed")
}

// handleVersion prints build metadata and exits when -v/--version is provided.
func handleVersion() {
	v := flag.Bool("v", false, "print version and exit")
	flag.BoolVar(v, "version", false, "print version and exit")
	flag.Parse()

	if *v {
		fmt.Printf("restream-server %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		os.Exit(0)
	}
}

// accessLog is a Gin middleware that records HTTP request/response details with Zap after handling.
func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		// collect all errors from Gin context
		var errs []error
		for _, ge := range c.Errors {
			if ge.Err != nil {
				errs = append(errs, ge.Err)
			}
		}
		joinedErr := errors.Join(errs...)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", mw.GetRequestID(c)),
			zap.Duration("latency", latency),
		}
		if joinedErr != nil {
			fields = append(fields, zap.Error(joinedErr))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// helpers

func buildLogger(isDev bool) *zap.Logger {
	if isDev {
		logConfig := zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.TimeKey = ""
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logConfig.DisableStacktrace = true
		logConfig.DisableCaller = true
		logConfig.Level.SetLevel(zap.DebugLevel)
		return zap.Must(logConfig.Build())
	}
	logConfig := zap.NewProductionConfig()
	logConfig.DisableCaller = true
	return zap.Must(logConfig.Build())
}

func loadConfig() error {
	data, err := os.ReadFile("restream-server.yaml")
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, &serverConfig); err != nil {
		return err
	}

	// Worker caps default to modest values on small boxes.
	if serverConfig.MaxPreflight <= 0 {
		serverConfig.MaxPreflight = 4
	}
	if serverConfig.MaxOnflight <= 0 {
		serverConfig.MaxOnflight = 64
	}
	if serverConfig.DvrRoot == "" {
		serverConfig.DvrRoot = "/var/lib/restream-server/dvr"
	}
	return nil
}
