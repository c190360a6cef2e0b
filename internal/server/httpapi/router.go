package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tkbstudios/tinet/internal/server/services"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Api-Key"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(s.cfg.RequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	limited := s.rateLimit()

	r.Route("/v1", func(r chi.Router) {
		r.With(s.authenticate(ChannelWebOrUserKey, styleError)).Get("/", s.handleRoot)

		r.Route("/auth", func(r chi.Router) {
			r.With(limited).Post("/register", s.handleRegister)
			r.With(limited).Post("/login", s.handleLogin)
			r.With(s.authenticate(ChannelWeb, styleError)).Post("/logout", s.handleLogout)
		})

		r.Route("/user", func(r chi.Router) {
			r.With(limited).Post("/calc/auth", s.handleCalcAuth)
			r.With(limited).Post("/sessions/auth", s.handleSessionAuth)
			r.With(limited).Post("/sessions/validity-check", s.handleValidityCheck)

			r.With(s.authenticate(ChannelWebOrUserKey, styleError)).Get("/info", s.handleUserInfo)

			r.Group(func(r chi.Router) {
				r.Use(s.authenticate(ChannelWeb, styleError))
				r.Get("/audit", s.handleAuditHistory)
				r.Get("/keyfile/download", s.handleKeyfileDownload)
				r.Get("/apikey/new", s.handleNewAPIKey)
				r.Post("/sessions/expireallweb", s.handleExpireWebSessions)
				r.Post("/sessions/expireallcalc", s.handleExpireCalcSessions)
				r.Delete("/", s.handleDeleteAccount)
			})

			r.Route("/files", func(r chi.Router) {
				r.Use(s.authenticate(ChannelWebOrUserKey, styleMessage))
				r.Post("/upload", s.handleUploadFiles)
				r.Get("/list", s.handleListFiles)
				r.Delete("/delete", s.handleDeleteFiles)
				r.Get("/download", s.handleDownloadFile)
				r.Get("/usage", s.handleUsage)
			})
		})

		r.Route("/apps", func(r chi.Router) {
			r.Use(s.authenticate(ChannelWeb, styleError))
			r.Get("/", s.handleListApps)
			r.Post("/", s.handleCreateApp)
			r.Delete("/", s.handleDeleteApp)
			r.Post("/expire", s.handleExpireApp)
		})

		r.Route("/grants", func(r chi.Router) {
			r.Use(s.authenticate(ChannelWeb, styleMessage))
			r.Get("/", s.handleListGrants)
			r.Delete("/", s.handleRevokeGrant)
		})

		r.Route("/oauth", func(r chi.Router) {
			r.Use(s.authenticate(ChannelWeb, styleMessage))
			r.Get("/request", s.handleGrantRequest)
			r.With(limited).Post("/request", s.handleGrantConfirm)
		})

		r.Route("/leaderboards", func(r chi.Router) {
			r.Get("/", s.handleListLeaderboards)
			r.Get("/{id}", s.handleGetLeaderboard)
			r.Group(func(r chi.Router) {
				r.Use(s.authenticate(ChannelApp, styleError))
				r.Post("/", s.handleCreateLeaderboard)
				r.Post("/increment", s.handleScore(services.OpIncrement))
				r.Post("/decrement", s.handleScore(services.OpDecrement))
				r.Post("/set", s.handleScore(services.OpSet))
				r.Delete("/delete", s.handleDeleteEntry)
			})
		})
	})

	return r
}

// rateLimit throttles credential endpoints per client IP. A non-positive
// budget disables it.
func (s *Server) rateLimit() func(http.Handler) http.Handler {
	if s.cfg.RateLimitPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		s.cfg.RateLimitPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, styleError, http.StatusTooManyRequests, "Too many requests, slow down")
		}),
	)
}
