package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/itsJ0ker/midnight/internal/api/auth"
	"github.com/itsJ0ker/midnight/internal/api/handler"
	"github.com/itsJ0ker/midnight/internal/cache"
	"github.com/itsJ0ker/midnight/internal/config"
	"github.com/itsJ0ker/midnight/internal/moderation"
	"github.com/itsJ0ker/midnight/internal/notify/webpush"
	"github.com/itsJ0ker/midnight/internal/scheduler"
	"github.com/itsJ0ker/midnight/internal/submission"
)

const (
	sessionName     = "midnight_session"
	eventsPath      = "/api/admin/events"
	shutdownTimeout = 10 * time.Second
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Registry    *moderation.Registry
	Submissions *submission.Service
	Scheduler   *scheduler.Scheduler
	WebPush     *webpush.Client
	Recent      *cache.RecentCache
}

type Server struct {
	cfg          *config.Config
	deps         Dependencies
	ginEngine    *gin.Engine
	authProvider *auth.Provider
}

func New(cfg *config.Config, deps Dependencies, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Registry == nil || deps.Submissions == nil {
		return nil, fmt.Errorf("registry and submission service are required")
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:          cfg,
		deps:         deps,
		ginEngine:    gin.Default(),
		authProvider: auth.NewProvider(deps.Registry, cfg.Gravatar),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupSession() {
	store := cookie.NewStore([]byte(s.cfg.SessionKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   s.cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   false, // Set to true in production
		SameSite: http.SameSiteLaxMode,
	})
	s.ginEngine.Use(sessions.Sessions(sessionName, store))
}

func (s *Server) setupRoutes() {
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{eventsPath})))
	s.setupSession()

	s.ginEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.setupPublicRoutes()
	s.setupAdminRoutes()
}

func (s *Server) setupPublicRoutes() {
	h := handler.NewPublic(s.deps.Submissions)

	public := s.ginEngine.Group("/api")
	public.Use(auth.RequireAPIKey(s.cfg.APIKey))

	public.POST("/applications", h.SubmitApplication)
	public.GET("/applications/recent", h.RecentApplications)
	public.POST("/dev-team/applications", h.SubmitDevTeamApplication)
	public.GET("/dev-team/applications/recent", h.RecentDevTeamApplications)
}

func (s *Server) setupAdminRoutes() {
	p := s.authProvider
	h := handler.NewAdmin(s.cfg.Gravatar)
	wp := handler.NewWebPushHandler(s.deps.WebPush)

	admin := s.ginEngine.Group("/api/admin")
	admin.Use(p.LoadController())
	admin.POST("/login", p.Login)
	admin.POST("/logout", p.Logout)

	protected := admin.Group("/")
	protected.Use(p.RequireAuth())

	protected.GET("/me", p.Me)
	protected.GET("/dashboard", h.Dashboard)
	protected.POST("/refresh", h.Refresh)
	protected.POST("/admins", h.AddAdmin)
	protected.POST("/deletions", h.RequestDeletion)
	protected.POST("/deletions/confirm", h.ConfirmDeletion)
	protected.DELETE("/deletions", h.CancelDeletion)
	protected.GET("/events", h.Events)

	// WebPush routes
	protected.GET("/webpush/vapid-key", wp.GetVAPIDKey)
	protected.POST("/webpush/subscribe", wp.Subscribe)
	protected.POST("/webpush/unsubscribe", wp.Unsubscribe)

	if s.deps.Scheduler != nil && s.deps.Recent != nil {
		sh := handler.NewScheduler(s.deps.Scheduler, s.deps.Recent)
		god := protected.Group("/")
		god.Use(p.RequireGod())
		god.GET("/scheduler/jobs", sh.GetJobs)
		god.POST("/scheduler/jobs/:id/run", sh.RunJob)
		god.GET("/cache/stats", sh.CacheStats)
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting API server", "listen", s.cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
