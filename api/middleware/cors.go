package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware that applies the API's allowed origin policy. The
// frontend origin is configurable; localhost stays allowed for development.
func CORS(frontendURL string) func(http.Handler) http.Handler {
	origins := []string{"http://localhost:3000"}
	if frontendURL != "" && frontendURL != origins[0] {
		origins = append(origins, frontendURL)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
