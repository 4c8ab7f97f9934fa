package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows the browser upload UI served from origins to call the API and
// read the download headers.
func CORS(origins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition"},
	})
	return c.Handler
}
