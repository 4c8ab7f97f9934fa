package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/docextract/internal/api/middleware"
	"github.com/kiranshivaraju/docextract/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	CORSOrigins  []string
	MaxBodyBytes int64 // zero disables the body cap

	HealthHandler http.HandlerFunc
	SubmitHandler http.HandlerFunc
	StatusHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	// Outside Logger: MaxBytesReader needs the server's own ResponseWriter.
	if deps.MaxBodyBytes > 0 {
		r.Use(chimw.RequestSize(deps.MaxBodyBytes))
	}
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.CORS(deps.CORSOrigins))

	r.Get("/healthz", orNotImplemented(deps.HealthHandler))

	r.Post("/process", orNotImplemented(deps.SubmitHandler))
	r.Get("/process", orNotImplemented(deps.StatusHandler))

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Message(w, http.StatusNotImplemented, "Endpoint not yet implemented")
	}
}
