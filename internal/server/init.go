package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"golang.org/x/time/rate"

	"filmarchive/internal/catalog"
	"filmarchive/internal/config"
	"filmarchive/internal/gallery"
	"filmarchive/internal/handlers"
	"filmarchive/internal/middleware"
	"filmarchive/internal/router"
)

// Services holds all initialized services for the application
type Services struct {
	Catalog *catalog.Postgres
	Gallery *gallery.Service
}

// InitServices connects to the catalog database, ensures the schema exists
// and wires up the gallery service. Returns the initialized services or an
// error if initialization fails.
func InitServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	store, err := catalog.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to catalog: %w", err)
	}

	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensuring catalog schema: %w", err)
	}

	galleryService := gallery.New(store, cfg.CacheTTL, cfg.SearchUnknownMode, log.Default())

	return &Services{
		Catalog: store,
		Gallery: galleryService,
	}, nil
}

// CreateHandler creates an HTTP handler with all middleware applied
func CreateHandler(galleryService *gallery.Service, cfg *config.Config) http.Handler {
	h := handlers.New(galleryService)

	mux := router.Setup(h)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	// Apply global middleware, innermost first
	wrappedHandler := middleware.APIKeyAuth(cfg.APIKeys)(mux)
	wrappedHandler = limiter.Limit(wrappedHandler)
	wrappedHandler = middleware.RequestID(wrappedHandler)
	wrappedHandler = middleware.CORS(wrappedHandler, cfg.AllowedOrigins)
	wrappedHandler = middleware.Logger(wrappedHandler)

	return wrappedHandler
}
