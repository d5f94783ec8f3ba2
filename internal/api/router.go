// Package api exposes the device session over HTTP and streams
// readings to WebSocket clients.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/savegress/vitalink/internal/alerts"
	"github.com/savegress/vitalink/internal/readings"
	"github.com/savegress/vitalink/internal/session"
)

// Server represents the API server
type Server struct {
	router  chi.Router
	session *session.Session
	store   *readings.Store
	alerts  *alerts.Engine
	hub     *Hub
}

// NewServer creates a new API server
func NewServer(sess *session.Session, store *readings.Store, alertsEngine *alerts.Engine, hub *Hub) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		session: sess,
		store:   store,
		alerts:  alertsEngine,
		hub:     hub,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	s.router.Get("/health", s.healthCheck)

	// Live stream
	s.router.Get("/ws", s.handleWebSocket)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Device connection
		r.Route("/device", func(r chi.Router) {
			r.Get("/", s.getDevice)
			r.Post("/connect", s.connectDevice)
			r.Post("/disconnect", s.disconnectDevice)
		})

		// Measurements
		r.Route("/detect", func(r chi.Router) {
			r.Get("/active", s.getActiveDetections)
			r.Post("/{kind}/start", s.startDetection)
			r.Post("/{kind}/stop", s.stopDetection)
			r.Post("/{kind}/manual", s.submitManual)
		})

		// Reading history
		r.Route("/readings", func(r chi.Router) {
			r.Get("/", s.listReadingKinds)
			r.Get("/{kind}", s.getReadingHistory)
			r.Get("/{kind}/latest", s.getLatestReading)
		})

		// Vitals alerts
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.listAlerts)
			r.Get("/{id}", s.getAlert)
			r.Post("/{id}/acknowledge", s.acknowledgeAlert)
		})

		// Stats
		r.Get("/stats", s.getStats)
	})
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}
