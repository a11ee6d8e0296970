// Package server exposes the voice-clone HTTP API: speech generation from a
// stored voice profile, voice enumeration, and a liveness probe.
package server

import (
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/book-expert/voice-clone-service/internal/core"
	"github.com/book-expert/voice-clone-service/internal/text"
	"github.com/book-expert/voice-clone-service/internal/voices"
)

// API routes.
const (
	routeGenerate = "/generate"
	routeVoices   = "/voices"
	routeHealth   = "/health"
)

// Server wires the voice catalog and the synthesis engine into HTTP handlers.
type Server struct {
	catalog    *voices.Catalog
	synth      core.SpeechSynthesizer
	normalizer *text.Normalizer
	log        *logger.Logger
}

// New creates a server over the given catalog and synthesizer.
func New(catalog *voices.Catalog, synth core.SpeechSynthesizer, log *logger.Logger) *Server {
	return &Server{
		catalog:    catalog,
		synth:      synth,
		normalizer: text.NewNormalizer(),
		log:        log,
	}
}

// Routes builds the router with the service middleware stack.
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.requestLogger)
	router.Use(middleware.Recoverer)

	router.Post(routeGenerate, s.handleGenerate)
	router.Get(routeVoices, s.handleListVoices)
	router.Get(routeHealth, s.handleHealth)

	return router
}

// requestLogger logs one line per request through the service logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		wrapped := middleware.NewWrapResponseWriter(writer, request.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(wrapped, request)

		s.log.Info(
			"%s %s -> %d (%d bytes, %s)",
			request.Method,
			request.URL.Path,
			wrapped.Status(),
			wrapped.BytesWritten(),
			time.Since(started).Round(time.Millisecond),
		)
	})
}
